package sqlrewrite

import (
	"strings"

	"lake-explorer/internal/domain"
)

// readOnlyLeaders are the statement keywords accepted for ad-hoc queries.
var readOnlyLeaders = map[string]bool{
	"select":    true,
	"with":      true,
	"values":    true,
	"from":      true,
	"table":     true,
	"describe":  true,
	"show":      true,
	"explain":   true,
	"summarize": true,
	"pivot":     true,
	"unpivot":   true,
}

// blockedFunctions can reach files, other databases or engine internals.
var blockedFunctions = map[string]bool{
	"read_csv":               true,
	"read_csv_auto":          true,
	"read_parquet":           true,
	"parquet_scan":           true,
	"read_json":              true,
	"read_json_auto":         true,
	"read_json_objects":      true,
	"read_json_objects_auto": true,
	"read_ndjson":            true,
	"read_ndjson_auto":       true,
	"read_ndjson_objects":    true,
	"read_xlsx":              true,
	"sniff_csv":              true,
	"parquet_metadata":       true,
	"parquet_schema":         true,
	"parquet_file_metadata":  true,
	"parquet_kv_metadata":    true,
	"iceberg_scan":           true,
	"delta_scan":             true,
	"read_text":              true,
	"read_blob":              true,
	"glob":                   true,
	"sqlite_scan":            true,
	"query_table":            true,
	"duckdb_extensions":      true,
	"duckdb_settings":        true,
	"duckdb_databases":       true,
	"duckdb_secrets":         true,
	"pragma_database_list":   true,
	"getenv":                 true,
}

// ValidateReadOnly accepts a single read-only statement. Anything else
// (DDL, DML, ATTACH, multiple statements, file-reading functions) is
// rejected with a ValidationError.
func ValidateReadOnly(sql string) error {
	tokens := Tokenize(sql)
	sig := significantIndexes(tokens)
	if len(sig) == 0 {
		return domain.ErrValidation("query is empty")
	}

	// Leading parentheses wrap a query expression.
	first := 0
	for first < len(sig) && tokens[sig[first]].IsPunct("(") {
		first++
	}
	if first == len(sig) {
		return domain.ErrValidation("query has no statement")
	}
	lead := tokens[sig[first]]
	if lead.Kind != TokenIdent || !readOnlyLeaders[strings.ToLower(lead.Text)] {
		return domain.ErrValidation("only read-only queries are allowed, got %q", lead.Text)
	}

	for i, si := range sig {
		tok := tokens[si]
		if tok.IsPunct(";") {
			for _, rest := range sig[i+1:] {
				if !tokens[rest].IsPunct(";") {
					return domain.ErrValidation("multiple statements are not allowed")
				}
			}
			break
		}
		if isName(tok) && blockedFunctions[strings.ToLower(tok.Text)] && followedBy(tokens, sig, i, "(") {
			return domain.ErrValidation("function %q is not allowed", strings.ToLower(tok.Text))
		}
		// FROM 'file.csv' scans the file directly.
		if tok.Kind == TokenString && i > 0 && (tokens[sig[i-1]].IsKeyword("from") || tokens[sig[i-1]].IsKeyword("join")) {
			return domain.ErrValidation("reading files is not allowed")
		}
	}
	return nil
}

// isName reports whether tok names something, quoted or not.
func isName(tok Token) bool {
	return tok.Kind == TokenIdent || tok.Kind == TokenQuotedIdent
}
