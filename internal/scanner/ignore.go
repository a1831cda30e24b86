package scanner

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

const ignoreFileName = ".avastignore"

// ignoreList holds version-control-style ignore patterns for one walk root.
// Patterns come from the root's .avastignore file plus configured extras.
type ignoreList struct {
	root     string
	patterns []string
	negated  []string
}

func newIgnoreList(root string, extra []string) *ignoreList {
	il := &ignoreList{root: root}
	for _, p := range extra {
		il.add(p)
	}
	f, err := os.Open(filepath.Join(root, ignoreFileName))
	if err != nil {
		return il
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		il.add(sc.Text())
	}
	return il
}

func (il *ignoreList) add(pattern string) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return
	}
	if rest, ok := strings.CutPrefix(pattern, "!"); ok {
		il.negated = append(il.negated, rest)
		return
	}
	il.patterns = append(il.patterns, pattern)
}

// Match reports whether path (absolute or walk-relative) should be skipped.
func (il *ignoreList) Match(path string) bool {
	rel, err := filepath.Rel(il.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	hit := false
	for _, p := range il.patterns {
		if matchPattern(p, rel) {
			hit = true
			break
		}
	}
	if !hit {
		return false
	}
	for _, p := range il.negated {
		if matchPattern(p, rel) {
			return false
		}
	}
	return true
}

func matchPattern(pattern, rel string) bool {
	// Directory pattern: "vendor/" matches the dir and everything below it.
	if dir, ok := strings.CutSuffix(pattern, "/"); ok {
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			return true
		}
		parts := strings.Split(rel, "/")
		for _, part := range parts[:len(parts)-1] {
			if part == dir {
				return true
			}
		}
		return false
	}
	// Rooted pattern.
	if rooted, ok := strings.CutPrefix(pattern, "/"); ok {
		ok, _ := filepath.Match(rooted, rel)
		return ok
	}
	// Unanchored: try the whole path, every suffix, and each component.
	if ok, _ := filepath.Match(pattern, rel); ok {
		return true
	}
	parts := strings.Split(rel, "/")
	for i := range parts {
		if ok, _ := filepath.Match(pattern, strings.Join(parts[i:], "/")); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := filepath.Match(pattern, parts[i]); ok {
				return true
			}
		}
	}
	return false
}
