package nl2sql

import (
	"errors"
	"regexp"
	"strings"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/prompt"
)

var (
	ErrNoContext = errors.New("the model could not generate a valid SQL query for the given context")
	ErrNotSelect = errors.New("the model response does not contain a valid SELECT query")
)

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNoContext
	KindNotSelect
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoContext:
		return "no_context"
	case KindNotSelect:
		return "not_select"
	default:
		return "none"
	}
}

type ExtractError struct {
	Kind ErrorKind
	err  error
}

func (e *ExtractError) Error() string { return e.err.Error() }
func (e *ExtractError) Unwrap() error { return e.err }

// KindOf reports the extraction failure kind carried by err, or KindNone.
func KindOf(err error) ErrorKind {
	var extractErr *ExtractError
	if errors.As(err, &extractErr) {
		return extractErr.Kind
	}
	return KindNone
}

var sqlFence = regexp.MustCompile("(?is)```sql(.*?)```")

// ExtractSQL pulls a read-only statement out of free-form model text. The
// result is a single non-empty statement starting with "select" in any case.
func ExtractSQL(raw string) (string, error) {
	if raw == "" || strings.Contains(raw, prompt.NoContextSentinel) {
		return "", &ExtractError{Kind: KindNoContext, err: ErrNoContext}
	}

	sql := raw
	if match := sqlFence.FindStringSubmatch(raw); match != nil {
		sql = match[1]
	}
	sql = strings.TrimSpace(sql)

	lines := strings.Split(sql, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, strings.TrimSuffix(line, "\r"))
	}
	sql = strings.TrimSpace(strings.Join(kept, "\n"))

	if !strings.HasPrefix(strings.ToLower(sql), "select") {
		return "", &ExtractError{Kind: KindNotSelect, err: ErrNotSelect}
	}
	if strings.Contains(strings.TrimRight(sql, "; \t\r\n"), ";") {
		return "", &ExtractError{Kind: KindNotSelect, err: ErrNotSelect}
	}
	return sql, nil
}
