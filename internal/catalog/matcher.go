package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/CEA-Brad/avast-toolkit/internal/model"
)

// Rule is a compiled, immutable pattern definition. Matchers are declarative
// data compiled once at load; there is no executable logic in a pack.
type Rule struct {
	ID        string
	Category  model.Category
	Severity  model.Severity
	Message   string
	Languages map[model.Language]bool // empty = applies to every language

	matcher matcher
}

// AppliesTo reports whether the rule targets the given language.
func (r Rule) AppliesTo(lang model.Language) bool {
	if len(r.Languages) == 0 {
		return lang != model.LangUnknown
	}
	return r.Languages[lang]
}

func (r Rule) appliesToAny(langs map[model.Language]bool) bool {
	if len(r.Languages) == 0 {
		return true
	}
	for l := range langs {
		if r.Languages[l] {
			return true
		}
	}
	return false
}

// MatchLine applies the rule's matcher to a single line of source text,
// returning the matched fragment. Matching is pure: same line, same result.
func (r Rule) MatchLine(line string) (string, bool) {
	return r.matcher.match(line)
}

type matcher interface {
	match(line string) (string, bool)
}

func compileMatcher(pr packRule) (matcher, error) {
	switch strings.ToLower(strings.TrimSpace(pr.Match.Kind)) {
	case "regex":
		if pr.Match.Pattern == "" {
			return nil, fmt.Errorf("regex matcher requires pattern")
		}
		re, err := regexp.Compile(pr.Match.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern: %w", err)
		}
		return regexMatcher{re: re}, nil
	case "token-sequence":
		if len(pr.Match.Tokens) == 0 {
			return nil, fmt.Errorf("token-sequence matcher requires tokens")
		}
		toks := make([]string, len(pr.Match.Tokens))
		for i, t := range pr.Match.Tokens {
			if strings.TrimSpace(t) == "" {
				return nil, fmt.Errorf("token-sequence contains empty token")
			}
			toks[i] = strings.ToLower(strings.TrimSpace(t))
		}
		return tokenMatcher{tokens: toks}, nil
	case "import-presence":
		if strings.TrimSpace(pr.Match.Module) == "" {
			return nil, fmt.Errorf("import-presence matcher requires module")
		}
		return importMatcher{module: strings.TrimSpace(pr.Match.Module)}, nil
	case "":
		return nil, fmt.Errorf("missing match kind")
	default:
		return nil, fmt.Errorf("unknown match kind %q", pr.Match.Kind)
	}
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) match(line string) (string, bool) {
	loc := m.re.FindStringIndex(line)
	if loc == nil {
		return "", false
	}
	frag := line[loc[0]:loc[1]]
	if frag == "" {
		// empty-width match still counts; report the line itself
		frag = strings.TrimSpace(line)
	}
	return frag, true
}

// lineTokens splits a line into identifier and punctuation tokens. This is the
// whole extent of "lexing" here: no language grammar, just word boundaries.
var tokenSplit = regexp.MustCompile(`[A-Za-z0-9_]+|[^\sA-Za-z0-9_]`)

type tokenMatcher struct {
	tokens []string // lowercased, matched as a contiguous subsequence
}

func (m tokenMatcher) match(line string) (string, bool) {
	raw := tokenSplit.FindAllString(line, -1)
	if len(raw) < len(m.tokens) {
		return "", false
	}
	lower := make([]string, len(raw))
	for i, t := range raw {
		lower[i] = strings.ToLower(t)
	}
	for i := 0; i+len(m.tokens) <= len(lower); i++ {
		ok := true
		for j, want := range m.tokens {
			if lower[i+j] != want {
				ok = false
				break
			}
		}
		if ok {
			return strings.Join(raw[i:i+len(m.tokens)], " "), true
		}
	}
	return "", false
}

// importMatcher flags lines that look like an import/require/include statement
// and name the given module. Heuristic by design of the catalog format; the
// per-language keywords cover the supported ecosystems.
var importKeyword = regexp.MustCompile(`(?i)\b(import|require|include|use|from|load)\b`)

type importMatcher struct {
	module string
}

func (m importMatcher) match(line string) (string, bool) {
	if !importKeyword.MatchString(line) {
		return "", false
	}
	if !strings.Contains(line, m.module) {
		return "", false
	}
	return strings.TrimSpace(line), true
}
