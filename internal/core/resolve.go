package core

import (
	"strings"

	"github.com/JonMunkholm/pos/internal/schema"
)

// Resolution maps each resolved field to its column index. Fields without a
// matching header are absent from the map.
type Resolution map[schema.Field]int

// Column returns the column index of f and whether it was resolved.
func (r Resolution) Column(f schema.Field) (int, bool) {
	idx, ok := r[f]
	return idx, ok
}

// Cell returns the raw cell for f, or "" when the field is unresolved or
// the row is too short.
func (r Resolution) Cell(f schema.Field, cells []string) string {
	idx, ok := r[f]
	if !ok || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

// Has reports whether f is resolved and the row carries a cell for it.
func (r Resolution) Has(f schema.Field, cells []string) bool {
	idx, ok := r[f]
	return ok && idx < len(cells)
}

// DetectDialect returns the first dialect of reg with an indicator present
// among headers, or the fallback. Headers are trimmed; the comparison is
// otherwise exact.
func DetectDialect(reg *schema.Registry, headers []string) schema.Dialect {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[strings.TrimSpace(h)] = struct{}{}
	}

	for _, d := range reg.Detectable() {
		for _, ind := range d.Indicators {
			if _, ok := present[ind]; ok {
				return d
			}
		}
	}
	return reg.Fallback()
}

// ResolveColumn returns the index of the header matching aliases.
//
// Aliases are tried in order; for each alias the leftmost header that equals
// or contains it, ignoring case and surrounding whitespace, wins. An earlier
// alias therefore beats a later one regardless of column position.
func ResolveColumn(headers []string, aliases []string) (int, bool) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for _, alias := range aliases {
		a := strings.ToLower(strings.TrimSpace(alias))
		if a == "" {
			continue
		}
		for i, h := range normalized {
			if h == a || strings.Contains(h, a) {
				return i, true
			}
		}
	}
	return -1, false
}

// ResolveFields resolves every field the dialect knows against headers.
func ResolveFields(d schema.Dialect, headers []string) Resolution {
	res := make(Resolution, len(schema.Fields))
	for _, f := range schema.Fields {
		if idx, ok := ResolveColumn(headers, d.AliasesFor(f)); ok {
			res[f] = idx
		}
	}
	return res
}

// columnNames reports which header each resolved field maps to.
func columnNames(res Resolution, headers []string) map[schema.Field]string {
	out := make(map[schema.Field]string, len(res))
	for f, idx := range res {
		if idx < len(headers) {
			out[f] = headers[idx]
		}
	}
	return out
}
