package differ

import "strings"

// typeAliases maps normalised-but-equivalent type spellings onto a single
// canonical form, used only for comparison — never for output.
var typeAliases = map[string]string{
	"int4":              "integer",
	"int8":               "bigint",
	"float4":            "real",
	"float8":            "double precision",
	"bool":              "boolean",
	"timestamptz":       "timestamp with time zone",
	"timetz":            "time with time zone",
}

// normalizeType lowercases a type string and maps known aliases to their
// canonical spelling, for comparison purposes only.
func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if canon, ok := typeAliases[t]; ok {
		return canon
	}
	return t
}

// normalizeDefault lowercases and trims a default expression and maps the
// common boolean/null spellings onto a single canonical form.
func normalizeDefault(d *string) string {
	if d == nil {
		return ""
	}
	v := strings.ToLower(strings.TrimSpace(*d))
	switch v {
	case "null":
		return "null"
	case "true", "'t'", "1":
		return "true"
	case "false", "'f'", "0":
		return "false"
	default:
		return v
	}
}

// jaccard computes the Jaccard similarity of two string sets: the size of
// their intersection over the size of their union. Two empty sets are
// defined as dissimilar (0), since an empty table matches nothing in
// particular.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
