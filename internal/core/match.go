package core

// match.go maps spreadsheet headers to the semantic field schema.
//
// Matching runs in two passes per field: an exact alias lookup on the
// lowercased, trimmed header, then a substring-containment fallback in
// either direction. Headers are scanned in their original order and the
// first hit wins, so the result is deterministic for a given header row.
//
// Fields are matched independently. Two fields whose alias sets overlap
// can both bind to the same header; the mapping UI lets the user break
// the tie before the mapping is applied.

import (
	"strings"

	"github.com/tigerops/salesops/internal/schema"
)

// MatchColumns builds the initial column mapping for a header row.
// Fields with no exact or partial alias hit are left unmapped.
func MatchColumns(headers []string, fields []schema.Field) ColumnMapping {
	mapping := make(ColumnMapping, len(fields))

	for _, field := range fields {
		if header, ok := exactAliasMatch(headers, field); ok {
			mapping[field.Key] = header
			continue
		}
		if header, ok := partialAliasMatch(headers, field); ok {
			mapping[field.Key] = header
		}
	}

	return mapping
}

// exactAliasMatch finds the first header whose normalized form equals one
// of the field's aliases.
func exactAliasMatch(headers []string, field schema.Field) (string, bool) {
	for _, header := range headers {
		normalized := normalizeHeader(header)
		for _, alias := range field.Aliases {
			if normalized == alias {
				return header, true
			}
		}
	}
	return "", false
}

// partialAliasMatch finds the first header that contains, or is contained
// by, one of the field's aliases. Aliases are tried in declared order so
// more specific aliases listed first take precedence.
func partialAliasMatch(headers []string, field schema.Field) (string, bool) {
	for _, header := range headers {
		normalized := normalizeHeader(header)
		if normalized == "" {
			continue
		}
		for _, alias := range field.Aliases {
			if strings.Contains(normalized, alias) || strings.Contains(alias, normalized) {
				return header, true
			}
		}
	}
	return "", false
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
