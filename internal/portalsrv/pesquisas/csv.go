// Package pesquisas implements the research-entry catalog: CRUD support
// types and the CSV bulk-import pipeline with upsert/replace semantics.
package pesquisas

import (
	"strings"

	"github.com/worlddata/portalsrv/internal/portalsrv/slug"
)

// DetectDelimiter picks whichever of comma, semicolon or tab appears most
// often in the header line. A heuristic, not a declared format.
func DetectDelimiter(headerLine string) rune {
	best := ','
	bestCount := -1
	for _, candidate := range []rune{',', ';', '\t'} {
		count := strings.Count(headerLine, string(candidate))
		if count > bestCount {
			best = candidate
			bestCount = count
		}
	}
	return best
}

// ParseDelimited scans quoted delimited text into rows of fields. It handles
// embedded delimiters and newlines inside quotes, escaped quotes ("" -> ")
// and both \n and \r\n line endings. encoding/csv is deliberately not used:
// the inputs come from spreadsheet exports with stray quotes and mixed
// delimiters that the strict reader rejects.
func ParseDelimited(text string, delimiter rune) [][]string {
	var rows [][]string
	var row []string
	var field strings.Builder
	inQuotes := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		char := runes[i]

		if char == '"' {
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
			continue
		}

		if !inQuotes && (char == '\n' || char == '\r') {
			if char == '\r' && i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			row = append(row, field.String())
			rows = append(rows, row)
			row = nil
			field.Reset()
			continue
		}

		if !inQuotes && char == delimiter {
			row = append(row, field.String())
			field.Reset()
			continue
		}

		field.WriteRune(char)
	}

	row = append(row, field.String())
	rows = append(rows, row)
	return rows
}

// NormalizeHeader maps a header cell to its canonical field key, so that
// "Título " becomes "titulo".
func NormalizeHeader(value string) string {
	return slug.Make(strings.TrimSpace(value))
}

func stripBOM(text string) string {
	return strings.TrimPrefix(text, "\ufeff")
}
