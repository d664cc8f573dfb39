// Package resource loads the text resources (syntax rules, data dictionary)
// embedded into SQL prompts.
package resource

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/storage"
)

// URLGetter reads objects addressed as s3://bucket/key.
type URLGetter interface {
	GetURL(ctx context.Context, raw string) (io.ReadCloser, error)
}

type Loader struct {
	remote URLGetter
}

// NewLoader returns a loader for local files; remote may be nil, in which
// case s3:// locations fail.
func NewLoader(remote URLGetter) *Loader {
	return &Loader{remote: remote}
}

func (l *Loader) Load(ctx context.Context, location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("resource location is required")
	}
	if _, _, ok := storage.ParseObjectURL(location); ok {
		if l.remote == nil {
			return "", fmt.Errorf("load resource %q: no object store configured", location)
		}
		reader, err := l.remote.GetURL(ctx, location)
		if err != nil {
			return "", fmt.Errorf("load resource %q: %w", location, err)
		}
		defer func() { _ = reader.Close() }()
		body, err := io.ReadAll(reader)
		if err != nil {
			return "", fmt.Errorf("read resource %q: %w", location, err)
		}
		return string(body), nil
	}
	body, err := os.ReadFile(location)
	if err != nil {
		return "", fmt.Errorf("load resource %q: %w", location, err)
	}
	return string(body), nil
}

type Bundle struct {
	SyntaxRules    string
	DataDictionary string
}

func (l *Loader) LoadBundle(ctx context.Context, syntaxPath, dictionaryPath string) (Bundle, error) {
	syntax, err := l.Load(ctx, syntaxPath)
	if err != nil {
		return Bundle{}, err
	}
	dictionary, err := l.Load(ctx, dictionaryPath)
	if err != nil {
		return Bundle{}, err
	}
	return Bundle{SyntaxRules: syntax, DataDictionary: dictionary}, nil
}
