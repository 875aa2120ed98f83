package subtitles

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// TermTable maps source-language terms to their preferred translations.
// Substitution is case-insensitive and whole-word; entries apply in file
// order so earlier rows win when sources overlap.
type TermTable struct {
	pairs []termPair
}

type termPair struct {
	source  string
	target  string
	pattern *regexp.Regexp
}

// LoadTermTable reads a two-column CSV of source,target term rows.
// Blank lines and rows with an empty source are skipped.
func LoadTermTable(path string) (*TermTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open term dictionary: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse term dictionary: %w", err)
	}

	table := &TermTable{}
	for _, record := range records {
		if len(record) < 2 {
			continue
		}
		source := strings.TrimSpace(record[0])
		target := strings.TrimSpace(record[1])
		if source == "" {
			continue
		}
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(source) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("term %q: %w", source, err)
		}
		table.pairs = append(table.pairs, termPair{source: source, target: target, pattern: pattern})
	}
	return table, nil
}

// Len returns the number of usable term rows.
func (t *TermTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.pairs)
}

// Apply substitutes every term in text and returns the result with the
// number of replacements made. Applying the output again is a no-op as long
// as targets do not themselves contain source terms.
func (t *TermTable) Apply(text string) (string, int) {
	if t == nil || len(t.pairs) == 0 {
		return text, 0
	}
	replaced := 0
	for _, pair := range t.pairs {
		text = pair.pattern.ReplaceAllStringFunc(text, func(string) string {
			replaced++
			return pair.target
		})
	}
	return text, replaced
}

// ApplyToCues runs Apply over every cue and returns the total replacement count.
func (t *TermTable) ApplyToCues(cues []Cue) int {
	total := 0
	for i := range cues {
		text, n := t.Apply(cues[i].Text)
		cues[i].Text = text
		total += n
	}
	return total
}
