package database

import (
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
)

const likeEscape = `\`

// buildWhere turns a filter into a parameterized WHERE clause shared by List
// and Count. Values are always bound; only generated integers are formatted
// into the SQL text.
func buildWhere(f domain.Filter) (string, []any) {
	var conds []string
	var args []any

	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type)
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, f.Source)
	}
	if f.NameContains != "" {
		conds = append(conds, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, containsPattern(strings.ToLower(f.NameContains)))
	}

	if patterns := tagPatterns(f.Tags); len(patterns) > 0 {
		selects := make([]string, len(patterns))
		for i, p := range patterns {
			selects[i] = fmt.Sprintf(`SELECT dot.data_object_id, %d AS p
				FROM data_object_tags dot
				JOIN tags t ON t.id = dot.tag_id
				WHERE LOWER(t.name) LIKE ? ESCAPE '\'`, i)
			args = append(args, containsPattern(p))
		}
		conds = append(conds, fmt.Sprintf(`id IN (
			SELECT m.data_object_id FROM (%s) m
			GROUP BY m.data_object_id
			HAVING COUNT(DISTINCT m.p) = %d)`,
			strings.Join(selects, " UNION ALL "), len(patterns)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// tagPatterns normalizes the requested tag substrings and drops blanks and
// duplicates, so N distinct patterns require N matches.
func tagPatterns(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		p := domain.NormalizeTag(t)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func containsPattern(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return "%" + r.Replace(s) + "%"
}
