package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/CEA-Brad/avast-toolkit/internal/model"
)

//go:embed rules/avast.yaml
var defaultPack []byte

// CatalogError reports a malformed or conflicting rule definition. Catalog
// problems are fatal: no scan starts with a bad catalog.
type CatalogError struct {
	Source string
	RuleID string
	Err    error
}

func (e *CatalogError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("catalog %s: rule %q: %v", e.Source, e.RuleID, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Source, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// packFile is the YAML shape of one rule pack.
type packFile struct {
	Rules []packRule `yaml:"rules"`
}

type packRule struct {
	ID        string   `yaml:"id"`
	Category  string   `yaml:"category"`
	Severity  string   `yaml:"severity"`
	Message   string   `yaml:"message"`
	Languages []string `yaml:"languages"`

	Match struct {
		Kind    string   `yaml:"kind"`    // regex | token-sequence | import-presence
		Pattern string   `yaml:"pattern"` // regex
		Tokens  []string `yaml:"tokens"`  // token-sequence
		Module  string   `yaml:"module"`  // import-presence
	} `yaml:"match"`
}

// Catalog is the immutable set of compiled rules for a process. Safe for
// concurrent use after Load returns.
type Catalog struct {
	rules []Rule
	index map[string]int
}

// Load parses the bundled default pack followed by any extra pack paths.
// Within one source a duplicate id is a CatalogError; across sources a later
// rule replaces an earlier one of the same id (path-declared precedence).
func Load(extra ...string) (*Catalog, error) {
	c := &Catalog{index: map[string]int{}}
	if err := c.merge("builtin", defaultPack); err != nil {
		return nil, err
	}
	for _, path := range extra {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, &CatalogError{Source: path, Err: err}
		}
		if err := c.merge(path, b); err != nil {
			return nil, err
		}
	}
	sort.Slice(c.rules, func(i, j int) bool { return c.rules[i].ID < c.rules[j].ID })
	for i, r := range c.rules {
		c.index[r.ID] = i
	}
	return c, nil
}

func (c *Catalog) merge(source string, data []byte) error {
	var pack packFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return &CatalogError{Source: source, Err: fmt.Errorf("parse yaml: %w", err)}
	}
	seen := map[string]bool{}
	for _, pr := range pack.Rules {
		r, err := compile(pr)
		if err != nil {
			return &CatalogError{Source: source, RuleID: pr.ID, Err: err}
		}
		if seen[r.ID] {
			return &CatalogError{Source: source, RuleID: r.ID, Err: fmt.Errorf("duplicate rule id")}
		}
		seen[r.ID] = true
		if i, ok := c.index[r.ID]; ok {
			c.rules[i] = *r // later source wins
			continue
		}
		c.index[r.ID] = len(c.rules)
		c.rules = append(c.rules, *r)
	}
	return nil
}

func compile(pr packRule) (*Rule, error) {
	if strings.TrimSpace(pr.ID) == "" {
		return nil, fmt.Errorf("missing id")
	}
	cat, err := model.ParseCategory(pr.Category)
	if err != nil {
		return nil, err
	}
	sev, err := model.ParseSeverity(pr.Severity)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(pr.Message) == "" {
		return nil, fmt.Errorf("missing message")
	}
	langs := map[model.Language]bool{}
	for _, l := range pr.Languages {
		lang, err := model.ParseLanguage(l)
		if err != nil {
			return nil, err
		}
		langs[lang] = true
	}
	m, err := compileMatcher(pr)
	if err != nil {
		return nil, err
	}
	return &Rule{
		ID:        strings.TrimSpace(pr.ID),
		Category:  cat,
		Severity:  sev,
		Message:   strings.TrimSpace(pr.Message),
		Languages: langs,
		matcher:   m,
	}, nil
}

// Rules returns every rule sorted by id.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Get returns a rule by id.
func (c *Catalog) Get(id string) (Rule, bool) {
	i, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

func (c *Catalog) Len() int { return len(c.rules) }

// Select narrows the catalog to rules in the given categories and languages.
// Empty slices mean "all".
func (c *Catalog) Select(categories []model.Category, languages []model.Language) []Rule {
	wantCat := map[model.Category]bool{}
	for _, cat := range categories {
		wantCat[cat] = true
	}
	wantLang := map[model.Language]bool{}
	for _, l := range languages {
		wantLang[l] = true
	}
	var out []Rule
	for _, r := range c.rules {
		if len(wantCat) > 0 && !wantCat[r.Category] {
			continue
		}
		if len(wantLang) > 0 && !r.appliesToAny(wantLang) {
			continue
		}
		out = append(out, r)
	}
	return out
}
