// Package sqlrewrite retargets user SQL at a materialised temporary relation.
//
// Rewriting works on tokens, never on raw substrings: only identifier tokens
// are replaced, so string literals, comments and longer identifiers that
// merely contain the table name are left alone.
package sqlrewrite

import (
	"strconv"
	"strings"

	"lake-explorer/internal/domain"
)

// Rewrite replaces references to table in sql with relation and appends
// LIMIT limit when the statement has no LIMIT clause. DESCRIBE, SHOW and
// the other statements in wrapsForLimit are wrapped in a subquery instead. The fully qualified
// form (namespace segments then table, dot separated) is replaced first, then
// any remaining bare table name. A bare name is only replaced when it is not
// a member access (preceded by ".") and not a function call (followed by "(").
func Rewrite(sql string, table domain.TableIdentifier, relation string, limit int) string {
	tokens := Tokenize(sql)
	sig := significantIndexes(tokens)

	var b strings.Builder
	b.Grow(len(sql) + len(relation) + 16)

	pattern := qualifiedPattern(table)
	emitted := 0 // byte offset of sql already written
	for si := 0; si < len(sig); si++ {
		tok := tokens[sig[si]]

		if n := matchQualified(tokens, sig, si, pattern); n > 0 {
			b.WriteString(sql[emitted:tok.Start])
			b.WriteString(relation)
			last := tokens[sig[si+n-1]]
			emitted = last.End
			si += n - 1
			continue
		}

		if identEquals(tok, table.Name) && !precededByDot(tokens, sig, si) && !followedBy(tokens, sig, si, "(") {
			b.WriteString(sql[emitted:tok.Start])
			b.WriteString(relation)
			emitted = tok.End
		}
	}
	b.WriteString(sql[emitted:])
	out := b.String()

	if limit > 0 && !HasLimit(out) {
		if wrapsForLimit[leadingKeyword(out)] {
			out = WrapLimit(out, limit)
		} else {
			out = AppendLimit(out, limit)
		}
	}
	return out
}

// wrapsForLimit are statements that take no LIMIT clause of their own and
// are capped as a subquery instead.
var wrapsForLimit = map[string]bool{
	"describe":  true,
	"show":      true,
	"summarize": true,
	"pivot":     true,
	"unpivot":   true,
	"table":     true,
}

// leadingKeyword returns the first word of sql in lower case, skipping
// opening parentheses.
func leadingKeyword(sql string) string {
	for _, tok := range Tokenize(sql) {
		if !tok.Significant() || tok.IsPunct("(") {
			continue
		}
		if tok.Kind == TokenIdent {
			return strings.ToLower(tok.Text)
		}
		return ""
	}
	return ""
}

// HasLimit reports whether sql contains a LIMIT keyword outside strings,
// quoted identifiers and comments.
func HasLimit(sql string) bool {
	for _, tok := range Tokenize(sql) {
		if tok.IsKeyword("limit") {
			return true
		}
	}
	return false
}

// AppendLimit inserts " LIMIT n" after the last significant token that is
// not a statement terminator, keeping trailing semicolons and comments.
func AppendLimit(sql string, n int) string {
	end := statementEnd(sql)
	return sql[:end] + " LIMIT " + strconv.Itoa(n) + sql[end:]
}

// WrapLimit caps sql as SELECT * FROM (sql) LIMIT n, keeping trailing
// semicolons and comments outside the parentheses.
func WrapLimit(sql string, n int) string {
	end := statementEnd(sql)
	return "SELECT * FROM (" + sql[:end] + ") LIMIT " + strconv.Itoa(n) + sql[end:]
}

// statementEnd is the byte offset just past the last significant token that
// is not a statement terminator.
func statementEnd(sql string) int {
	tokens := Tokenize(sql)
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]
		if tok.Significant() && !tok.IsPunct(";") {
			return tok.End
		}
	}
	return len(sql)
}

// QuoteIdentifier quotes s for use as a SQL identifier.
func QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteLiteral quotes s as a SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// qualifiedPattern lists the identifier segments of the qualified name. The
// default namespace is written "default" in SQL.
func qualifiedPattern(table domain.TableIdentifier) []string {
	if table.Namespace.IsDefault() {
		return []string{domain.DefaultNamespace, table.Name}
	}
	return table.Namespace.Child(table.Name)
}

func significantIndexes(tokens []Token) []int {
	idx := make([]int, 0, len(tokens))
	for i, tok := range tokens {
		if tok.Significant() {
			idx = append(idx, i)
		}
	}
	return idx
}

// matchQualified returns the number of significant tokens spanned by the
// dotted pattern starting at si, or 0 when there is no match. Patterns of a
// single segment are bare names and never match here.
func matchQualified(tokens []Token, sig []int, si int, pattern []string) int {
	if len(pattern) < 2 {
		return 0
	}
	need := len(pattern)*2 - 1
	if si+need > len(sig) || precededByDot(tokens, sig, si) {
		return 0
	}
	for p, seg := range pattern {
		if !identEquals(tokens[sig[si+p*2]], seg) {
			return 0
		}
		if p > 0 && !tokens[sig[si+p*2-1]].IsPunct(".") {
			return 0
		}
	}
	return need
}

// identEquals compares an identifier token with name. Unquoted identifiers
// fold case as SQL does; quoted ones match exactly.
func identEquals(tok Token, name string) bool {
	switch tok.Kind {
	case TokenIdent:
		return strings.EqualFold(tok.Text, name)
	case TokenQuotedIdent:
		return tok.Text == name
	default:
		return false
	}
}

func precededByDot(tokens []Token, sig []int, si int) bool {
	return si > 0 && tokens[sig[si-1]].IsPunct(".")
}

func followedBy(tokens []Token, sig []int, si int, punct string) bool {
	return si+1 < len(sig) && tokens[sig[si+1]].IsPunct(punct)
}
