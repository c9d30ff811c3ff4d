package sqlrewrite

import (
	"strings"

	"github.com/google/uuid"
)

const relationPrefix = "tmp_"

// maxRelationStem bounds the table-derived part of a relation name.
const maxRelationStem = 40

// TemporaryRelationName derives a unique, unquoted-safe relation name for
// table, such as "tmp_orders_3f2a9c1b7d4e".
func TemporaryRelationName(table string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return RelationNameWithToken(table, token)
}

// RelationNameWithToken builds a relation name from table and a caller
// supplied token. Characters outside [a-z0-9_] become "_".
func RelationNameWithToken(table, token string) string {
	var b strings.Builder
	b.WriteString(relationPrefix)
	for i, r := range strings.ToLower(table) {
		if i >= maxRelationStem {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	b.WriteByte('_')
	b.WriteString(token)
	return b.String()
}

// IsTemporaryRelation reports whether name was produced by this package.
func IsTemporaryRelation(name string) bool {
	return strings.HasPrefix(name, relationPrefix)
}
