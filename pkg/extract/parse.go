package extract

import (
	"strings"
)

/*
Triple is one (subject, relation, object) fact recovered from extractor output.
*/
type Triple struct {
	Subject  string
	Relation string
	Object   string
}

/*
ParseResult holds the triples accepted from a block of extractor output and
the lines that were dropped because they did not have exactly three fields.
*/
type ParseResult struct {
	Triples   []Triple
	Discarded []string
}

/*
Parse reads extractor output line by line. Parentheses are stripped, the line
is split on commas, and only lines with exactly three fields are kept, with
surrounding whitespace trimmed from each field. Blank lines are ignored
without counting as discarded.
*/
func Parse(output string) ParseResult {
	var result ParseResult

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		cleaned := strings.NewReplacer("(", "", ")", "").Replace(line)
		parts := strings.Split(cleaned, ",")

		if len(parts) != 3 {
			result.Discarded = append(result.Discarded, line)
			continue
		}

		result.Triples = append(result.Triples, Triple{
			Subject:  strings.TrimSpace(parts[0]),
			Relation: strings.TrimSpace(parts[1]),
			Object:   strings.TrimSpace(parts[2]),
		})
	}

	return result
}
