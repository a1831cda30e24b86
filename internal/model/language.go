package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Language identifies a source-language lexical convention. Detection is by
// file extension only; content sniffing is deliberately out of scope.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangRuby       Language = "ruby"
	LangJava       Language = "java"
	LangGo         Language = "go"
	LangTerraform  Language = "terraform"
	LangShell      Language = "shell"
	LangYAML       Language = "yaml"
	LangUnknown    Language = ""
)

func KnownLanguages() []Language {
	return []Language{
		LangJavaScript, LangTypeScript, LangPython, LangRuby,
		LangJava, LangGo, LangTerraform, LangShell, LangYAML,
	}
}

func ParseLanguage(s string) (Language, error) {
	for _, l := range KnownLanguages() {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, nil
		}
	}
	return LangUnknown, fmt.Errorf("unknown language %q", s)
}

var extToLang = map[string]Language{
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".py":   LangPython,
	".rb":   LangRuby,
	".java": LangJava,
	".go":   LangGo,
	".tf":   LangTerraform,
	".hcl":  LangTerraform,
	".sh":   LangShell,
	".bash": LangShell,
	".yaml": LangYAML,
	".yml":  LangYAML,
}

// DetectLanguage maps a path to a Language; unknown extensions return
// LangUnknown, which scanners treat as "no rules apply".
func DetectLanguage(path string) Language {
	return extToLang[strings.ToLower(filepath.Ext(path))]
}
