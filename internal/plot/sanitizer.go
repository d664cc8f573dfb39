package plot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
)

// DefaultDenyPatterns are matched case-insensitively anywhere in the code.
var DefaultDenyPatterns = []string{
	`\bimport\s+os\b`,
	`\bos\.`,
	`\bsys\b`,
	`\bsubprocess\b`,
	`\bshutil\b`,
	`\bsocket\b`,
	`\bpathlib\b`,
	`\b(requests|urllib)\.\w`,
	`\bopen\s*\(`,
	`\bexec\s*\(`,
	`\beval\s*\(`,
	`\bcompile\s*\(`,
	`__import__`,
	`\bglobals\s*\(`,
	`\blocals\s*\(`,
	`\bgetattr\s*\(`,
	`\bsetattr\s*\(`,
	`\bdelattr\s*\(`,
	`\bvars\s*\(`,
	`\bdir\s*\(`,
	`__\w+__`,
	`\binput\s*\(`,
	`\bbreakpoint\s*\(`,
	`\bpickle\b`,
	`\bimportlib\b`,
	`\bsavefig\s*\(`,
	`\.to_(csv|excel|json|parquet|pickle|sql|html|feather|hdf|clipboard)\s*\(`,
	`\brmtree\b`,
	`\bremove\s*\(`,
	`\bunlink\s*\(`,
	`\bkill\s*\(`,
	`\bexit\s*\(`,
	`\bquit\s*\(`,
}

// AllowedImports are the only import statements a snippet may contain.
var AllowedImports = []string{
	"import matplotlib.pyplot as plt",
	"import seaborn as sns",
	"import plotly.express as px",
}

var (
	definitionPattern   = regexp.MustCompile(`(?m)^\s*(async\s+def|def|class)\b`)
	inlineImportPattern = regexp.MustCompile(`;\s*(import|from)\s`)
)

type Verdict struct {
	Safe   bool
	Reason string
}

type Sanitizer struct {
	deny    []*regexp.Regexp
	allowed map[string]struct{}
}

// NewSanitizer compiles denyPatterns case-insensitively. Nil arguments select
// DefaultDenyPatterns and AllowedImports.
func NewSanitizer(denyPatterns, allowedImports []string) (*Sanitizer, error) {
	if denyPatterns == nil {
		denyPatterns = DefaultDenyPatterns
	}
	if allowedImports == nil {
		allowedImports = AllowedImports
	}
	s := &Sanitizer{allowed: make(map[string]struct{}, len(allowedImports))}
	for _, pattern := range denyPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile deny pattern %q: %w", pattern, err)
		}
		s.deny = append(s.deny, re)
	}
	for _, stmt := range allowedImports {
		s.allowed[strings.TrimSpace(stmt)] = struct{}{}
	}
	return s, nil
}

// DefaultSanitizer uses the built-in deny-list and import allow-list.
func DefaultSanitizer() *Sanitizer {
	s, err := NewSanitizer(nil, nil)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Sanitizer) Check(code string) Verdict {
	verdict := s.check(code)
	observability.ObservePlotCheck(verdict.Safe)
	return verdict
}

func (s *Sanitizer) check(code string) Verdict {
	if strings.TrimSpace(code) == "" {
		return Verdict{Reason: "code is empty"}
	}
	for _, re := range s.deny {
		if loc := re.FindStringIndex(code); loc != nil {
			return Verdict{Reason: fmt.Sprintf("forbidden construct %q", code[loc[0]:loc[1]])}
		}
	}
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "import ") && !strings.HasPrefix(trimmed, "from ") {
			continue
		}
		if _, ok := s.allowed[trimmed]; !ok {
			return Verdict{Reason: fmt.Sprintf("import not allowed: %q", trimmed)}
		}
	}
	if inlineImportPattern.MatchString(code) {
		return Verdict{Reason: "imports must be on their own line"}
	}
	if definitionPattern.MatchString(code) {
		return Verdict{Reason: "function and class definitions are not allowed"}
	}
	return Verdict{Safe: true}
}

func (s *Sanitizer) IsSafe(code string) bool {
	return s.Check(code).Safe
}

// Validate strips code and vets the result. Only safe code is returned as
// ValidatedCode; otherwise the verdict explains the rejection.
func (s *Sanitizer) Validate(code Code) (ValidatedCode, Verdict) {
	stripped := Strip(string(code))
	verdict := s.Check(stripped)
	if !verdict.Safe {
		return ValidatedCode{}, verdict
	}
	return ValidatedCode{source: stripped}, verdict
}
