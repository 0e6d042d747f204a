package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/infraquery/infraquery/internal/schema"
)

// ViolationKind classifies why generated SQL was rejected.
type ViolationKind string

const (
	ViolationUnsafe            ViolationKind = "unsafe"
	ViolationUnknownIdentifier ViolationKind = "unknown_identifier"
	ViolationMultiStatement    ViolationKind = "multi_statement"
	ViolationSyntaxError       ViolationKind = "syntax_error"
)

// Violation is one rejection reason, phrased so it can be fed back to the
// model as corrective instructions.
type Violation struct {
	Kind   ViolationKind `json:"kind"`
	Detail string        `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Detail)
}

// Verdict is the outcome of validating one generated statement. When
// Accepted, SanitizedSQL is the executable text (identical to the input
// except for an appended LIMIT when the statement had none — the one
// permitted sanitization).
type Verdict struct {
	Accepted     bool        `json:"accepted"`
	Violations   []Violation `json:"violations,omitempty"`
	SanitizedSQL string      `json:"sanitized_sql,omitempty"`
}

// forbiddenKeywords are statement kinds and engine commands that must never
// appear anywhere in a read-only query, top level or nested.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "TRUNCATE",
	"MERGE", "GRANT", "REVOKE", "EXEC", "EXECUTE", "CALL",
	"ATTACH", "DETACH", "COPY", "EXPORT", "IMPORT", "PRAGMA",
	"INSTALL", "LOAD", "VACUUM", "SET", "BEGIN", "COMMIT", "ROLLBACK",
}

// sqlKeywords are tokens that are part of the query language rather than
// identifiers. Anything here is never checked against the schema.
var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "JOIN": true,
	"INNER": true, "LEFT": true, "RIGHT": true, "OUTER": true, "CROSS": true,
	"FULL": true, "ON": true, "USING": true, "AND": true, "OR": true, "NOT": true,
	"IN": true, "EXISTS": true, "BETWEEN": true, "LIKE": true, "ILIKE": true,
	"IS": true, "NULL": true, "ORDER": true, "BY": true,
	"GROUP": true, "HAVING": true, "LIMIT": true, "OFFSET": true,
	"ASC": true, "DESC": true, "DISTINCT": true, "AS": true, "ALL": true,
	"WITH": true, "CASE": true, "WHEN": true, "THEN": true,
	"ELSE": true, "END": true, "UNION": true, "EXCEPT": true, "INTERSECT": true,
	"TRUE": true, "FALSE": true, "INTERVAL": true, "NULLS": true,
	"FIRST": true, "LAST": true, "FILTER": true, "OVER": true, "PARTITION": true,
	// date parts (EXTRACT(YEAR FROM ...)) and cast targets appear as bare tokens
	"YEAR": true, "MONTH": true, "DAY": true, "HOUR": true, "MINUTE": true,
	"SECOND": true, "QUARTER": true, "WEEK": true, "EPOCH": true,
	"DATE": true, "TIME": true, "TIMESTAMP": true,
	"INT": true, "INTEGER": true, "BIGINT": true, "DOUBLE": true, "FLOAT": true,
	"FLOAT64": true, "NUMERIC": true, "DECIMAL": true, "VARCHAR": true,
	"TEXT": true, "STRING": true, "BOOLEAN": true, "PRECISION": true,
	"CURRENT_DATE": true, "CURRENT_TIMESTAMP": true,
}

var (
	identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	wordBoundary = func(kw string) *regexp.Regexp { return regexp.MustCompile(`(?i)\b` + kw + `\b`) }
)

var forbiddenPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(forbiddenKeywords))
	for _, kw := range forbiddenKeywords {
		m[kw] = wordBoundary(kw)
	}
	return m
}()

// SQLValidator checks generated SQL against the safety and
// schema-conformance policy. It never rewrites a statement into something
// semantically different: the only mutation it performs is appending a row
// limit.
type SQLValidator struct {
	rowLimit int
}

func NewSQLValidator(rowLimit int) *SQLValidator {
	return &SQLValidator{rowLimit: rowLimit}
}

// Validate parses sqlText lexically and returns a verdict against desc.
func (v *SQLValidator) Validate(sqlText string, desc *schema.Descriptor) Verdict {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return reject(Violation{ViolationSyntaxError, "statement is empty"})
	}

	scanned, serr := scanSQL(trimmed)
	if serr != nil {
		return reject(Violation{ViolationSyntaxError, serr.Error()})
	}

	var violations []Violation

	if scanned.interiorSemicolon {
		violations = append(violations, Violation{
			ViolationMultiStatement,
			"multiple top-level statements; generate exactly one query",
		})
	}

	upper := strings.ToUpper(strings.TrimSpace(scanned.stripped))
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		violations = append(violations, Violation{
			ViolationUnsafe,
			"statement must be a read-only SELECT (or WITH ... SELECT)",
		})
	}
	for _, kw := range forbiddenKeywords {
		if forbiddenPatterns[kw].MatchString(scanned.stripped) {
			violations = append(violations, Violation{
				ViolationUnsafe,
				fmt.Sprintf("forbidden keyword %s", kw),
			})
		}
	}

	violations = append(violations, checkIdentifiers(scanned, desc)...)

	if len(violations) > 0 {
		return Verdict{Accepted: false, Violations: violations}
	}

	sanitized := scanned.withoutTrailingSemicolon
	if !scanned.hasLimit && v.rowLimit > 0 {
		sanitized = fmt.Sprintf("%s LIMIT %d", sanitized, v.rowLimit)
	}
	return Verdict{Accepted: true, SanitizedSQL: sanitized}
}

func reject(violations ...Violation) Verdict {
	return Verdict{Accepted: false, Violations: violations}
}

// castFunctions are the only calls tolerated where a table name is expected:
// they appear as the operand of EXTRACT(part FROM expr) and never produce
// rows. Everything else in that position (read_csv_auto, read_parquet, glob)
// is a table-producing function and must be rejected.
var castFunctions = map[string]bool{
	"CAST": true, "TRY_CAST": true,
}

// checkIdentifiers verifies every referenced identifier against the
// descriptor. Declared aliases (AS name, or a bare alias after the table in
// FROM/JOIN) are exempt; so are function names outside the FROM/JOIN
// position (identifier followed by an opening paren).
func checkIdentifiers(s scannedSQL, desc *schema.Descriptor) []Violation {
	table := strings.ToUpper(desc.Table())

	aliases := map[string]bool{}
	tokens := s.tokens

	// First pass: collect aliases so forward references ("ORDER BY n" before
	// reading the alias in SELECT) resolve.
	for i, tok := range tokens {
		if tok.isLiteral {
			continue
		}
		up := strings.ToUpper(tok.text)
		if up == "AS" && i+1 < len(tokens) && !tokens[i+1].isLiteral {
			next := strings.ToUpper(tokens[i+1].text)
			if next == "SELECT" && i > 0 {
				// CTE: the name precedes AS (WITH name AS (SELECT ...))
				aliases[strings.ToUpper(tokens[i-1].text)] = true
			} else {
				aliases[next] = true
			}
		}
		// FROM table alias / JOIN table alias
		if (up == "FROM" || up == "JOIN") && i+2 < len(tokens) {
			if strings.ToUpper(tokens[i+1].text) == table && !tokens[i+2].isLiteral {
				next := strings.ToUpper(tokens[i+2].text)
				if !sqlKeywords[next] && !isForbidden(next) {
					aliases[next] = true
				}
			}
		}
	}

	var violations []Violation
	seen := map[string]bool{}
	expectTable := false

	for _, tok := range tokens {
		up := strings.ToUpper(tok.text)

		if up == "FROM" || up == "JOIN" {
			expectTable = true
			continue
		}

		if expectTable {
			expectTable = false
			// A string literal here is a file path in DuckDB (FROM
			// '/etc/passwd' scans the file), never a schema table.
			if tok.isLiteral {
				if !seen["t:"+up] {
					seen["t:"+up] = true
					violations = append(violations, Violation{
						ViolationUnknownIdentifier,
						fmt.Sprintf("table source '%s' is a literal, not the %q table", tok.text, desc.Table()),
					})
				}
				continue
			}
			// FROM may be followed by a parenthesized subquery (next token
			// is SELECT), or appear inside EXTRACT(x FROM col) where the
			// operand is a column or a cast.
			if up == "SELECT" || sqlKeywords[up] || desc.HasColumn(tok.text) {
				continue
			}
			if tok.isFunction {
				if castFunctions[up] {
					continue
				}
				// read_csv_auto and friends read arbitrary files.
				if !seen["t:"+up] {
					seen["t:"+up] = true
					violations = append(violations, Violation{
						ViolationUnknownIdentifier,
						fmt.Sprintf("table function %q is not in the schema (expected %q)", tok.text, desc.Table()),
					})
				}
				continue
			}
			if up != table && !aliases[up] {
				if !seen["t:"+up] {
					seen["t:"+up] = true
					violations = append(violations, Violation{
						ViolationUnknownIdentifier,
						fmt.Sprintf("table %q is not in the schema (expected %q)", tok.text, desc.Table()),
					})
				}
			}
			continue
		}

		if tok.isLiteral || sqlKeywords[up] || isForbidden(up) || aliases[up] || tok.isFunction {
			continue
		}
		if up == table || desc.HasColumn(tok.text) {
			continue
		}
		// qualified reference: alias.column arrives as two tokens joined by
		// a dot in the scanner; both halves were already split and checked
		if seen["c:"+up] {
			continue
		}
		seen["c:"+up] = true
		violations = append(violations, Violation{
			ViolationUnknownIdentifier,
			fmt.Sprintf("column %q is not in the schema", tok.text),
		})
	}
	return violations
}

func isForbidden(upperTok string) bool {
	for _, kw := range forbiddenKeywords {
		if upperTok == kw {
			return true
		}
	}
	return false
}
