// Package language holds the fixed catalog of console languages.
//
// Only two entries are executable: JavaScript runs through the dynamic
// strategy and C through the pattern strategy. The others exist so the
// console can list them and answer with a "coming soon" notice.
package language

import (
	"embed"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Strategy names how the execution engine treats a language.
type Strategy string

const (
	// StrategyDynamic evaluates the source in a script runner.
	StrategyDynamic Strategy = "dynamic"
	// StrategyPattern synthesizes output from print-call patterns.
	StrategyPattern Strategy = "pattern"
	// StrategyNone marks a language that is listed but not executable.
	StrategyNone Strategy = "none"
)

// Catalog IDs.
const (
	JavaScript = "javascript"
	C          = "c"
	Python     = "python"
	CPP        = "cpp"
	Java       = "java"
)

// Default is the language a new console session starts with.
const Default = JavaScript

// Language describes one entry of the catalog.
type Language struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Extension   string   `json:"extension"`
	Strategy    Strategy `json:"strategy"`
	Supported   bool     `json:"supported"`
	DefaultCode string   `json:"defaultCode"`
}

//go:embed defaults
var defaults embed.FS

var catalog = []Language{
	{ID: JavaScript, Name: "JavaScript", Extension: "js", Strategy: StrategyDynamic, Supported: true},
	{ID: C, Name: "C", Extension: "c", Strategy: StrategyPattern, Supported: true},
	{ID: Python, Name: "Python", Extension: "py", Strategy: StrategyNone},
	{ID: CPP, Name: "C++", Extension: "cpp", Strategy: StrategyNone},
	{ID: Java, Name: "Java", Extension: "java", Strategy: StrategyNone},
}

var aliases = map[string]string{
	"js":  JavaScript,
	"mjs": JavaScript,
	"py":  Python,
	"c++": CPP,
}

func init() {
	for i := range catalog {
		code, err := defaults.ReadFile(path.Join("defaults", "main."+catalog[i].Extension))
		if err != nil {
			panic("language: missing default program for " + catalog[i].ID)
		}
		catalog[i].DefaultCode = strings.TrimSuffix(string(code), "\n")
	}
}

// All returns a copy of the catalog in display order.
func All() []Language {
	out := make([]Language, len(catalog))
	copy(out, catalog)
	return out
}

// Normalize canonicalizes a user supplied language tag: compatibility
// normalization, case folding, surrounding space removed and aliases
// resolved. Unknown tags are returned normalized but otherwise unchanged.
func Normalize(tag string) string {
	tag = strings.TrimSpace(cases.Fold().String(norm.NFKC.String(tag)))
	if id, ok := aliases[tag]; ok {
		return id
	}
	return tag
}

// Lookup finds a language by tag, after normalization.
func Lookup(tag string) (Language, bool) {
	id := Normalize(tag)
	for _, l := range catalog {
		if l.ID == id {
			return l, true
		}
	}
	return Language{}, false
}

// FromFilename guesses the language from a file extension.
func FromFilename(name string) (Language, bool) {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return Language{}, false
	}
	ext = Normalize(ext)
	for _, l := range catalog {
		if l.Extension == ext || l.ID == ext {
			return l, true
		}
	}
	return Language{}, false
}
