package transform

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/metamorph/pkg/errors"
)

// Lexicon is the lexical resource consulted by SynonymReplacement.
// Synonyms may return nil. Multi-word synonyms use underscores.
type Lexicon interface {
	Synonyms(word string) []string
}

// NopLexicon has no synonyms for any word.
type NopLexicon struct{}

// Synonyms implements Lexicon.
func (NopLexicon) Synonyms(string) []string { return nil }

// MapLexicon is an in-memory lexicon keyed by lowercase word.
type MapLexicon map[string][]string

// Synonyms implements Lexicon.
func (m MapLexicon) Synonyms(word string) []string {
	return m[strings.ToLower(word)]
}

// NewMapLexicon normalizes keys to lowercase and merges duplicates.
func NewMapLexicon(entries map[string][]string) MapLexicon {
	m := make(MapLexicon, len(entries))
	for word, syns := range entries {
		key := strings.ToLower(strings.TrimSpace(word))
		if key == "" {
			continue
		}
		m[key] = append(m[key], syns...)
	}
	return m
}

// ParseLexicon reads a YAML mapping of word to synonym list:
//
//	good: [beneficial, full, estimable]
//	food: [nutrient, solid_food]
func ParseLexicon(data []byte) (MapLexicon, error) {
	var entries map[string][]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.NewInvalidInputError("ParseLexicon", "lexicon must be a YAML mapping of word to list of synonyms", err.Error())
	}
	return NewMapLexicon(entries), nil
}

// LoadLexicon reads a YAML lexicon file.
func LoadLexicon(path string) (MapLexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewMissingArtifactError("lexicon", path)
		}
		return nil, errors.Wrapf(err, "read lexicon %s", path)
	}
	lex, err := ParseLexicon(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse lexicon %s", path)
	}
	return lex, nil
}

//go:embed lexicon_en.yaml
var defaultLexiconYAML []byte

// DefaultLexicon returns the embedded English lexicon covering common
// restaurant review vocabulary.
func DefaultLexicon() MapLexicon {
	lex, err := ParseLexicon(defaultLexiconYAML)
	if err != nil {
		panic("transform: embedded lexicon is invalid: " + err.Error())
	}
	return lex
}

// candidates returns the usable replacements for word: the word itself
// (case-insensitive) removed, underscores mapped to spaces, deduplicated and
// sorted so a seeded draw is reproducible regardless of lexicon order.
func candidates(lex Lexicon, word string) []string {
	raw := lex.Synonyms(word)
	if len(raw) == 0 {
		return nil
	}
	lower := strings.ToLower(word)
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if strings.ToLower(s) == lower || s == "" {
			continue
		}
		s = strings.ReplaceAll(s, "_", " ")
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
