package differ

import "github.com/lockplane/migrator/internal/snapshot"

// columnsEqual reports whether two columns are equal under the
// normalisation rules: normalised type, nullable, normalised default.
// AutoIncrement is intentionally excluded — it is derived from the type in
// most dialects and would otherwise produce spurious alterColumn ops on
// round-trip introspection.
func columnsEqual(a, b *snapshot.Column) bool {
	if normalizeType(a.Type) != normalizeType(b.Type) {
		return false
	}
	if a.Nullable != b.Nullable {
		return false
	}
	if normalizeDefault(a.Default) != normalizeDefault(b.Default) {
		return false
	}
	return true
}

// columnsNormalizedTypeEqual reports whether two columns share the same
// normalised type, the sole criterion for ambiguousColumn detection (no
// similarity heuristic for columns — types must match exactly).
func columnsNormalizedTypeEqual(a, b *snapshot.Column) bool {
	return normalizeType(a.Type) == normalizeType(b.Type)
}
