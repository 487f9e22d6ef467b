package store

import (
	"strconv"
	"strings"
)

// buildOrderBy builds a safe ORDER BY clause using a whitelist of allowed keys.
// allowed maps incoming sort keys (e.g., "name") to actual column identifiers.
// Input sort is comma-separated; prefix with '-' for DESC. The tiebreak
// column always ends the clause so that paging is stable.
func buildOrderBy(sortParam string, allowed map[string]string, tiebreak string) string {
	parts := strings.Split(sortParam, ",")
	clauses := make([]string, 0, len(parts)+1)
	tiebreakDir := " ASC"
	for _, raw := range parts {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		dir := " ASC"
		if strings.HasPrefix(s, "-") {
			dir = " DESC"
			s = strings.TrimPrefix(s, "-")
		}
		col, ok := allowed[s]
		if !ok {
			continue
		}
		if col == tiebreak {
			tiebreakDir = dir
			break
		}
		clauses = append(clauses, col+dir)
	}
	clauses = append(clauses, tiebreak+tiebreakDir)
	return " ORDER BY " + strings.Join(clauses, ", ")
}

// limitOffset renders LIMIT/OFFSET; a limit of zero or less means no limit.
func limitOffset(limit, offset int) string {
	var out string
	if limit > 0 {
		out += " LIMIT " + strconv.Itoa(limit)
	}
	if offset > 0 {
		out += " OFFSET " + strconv.Itoa(offset)
	}
	return out
}
