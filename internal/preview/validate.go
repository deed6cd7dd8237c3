package preview

import (
	"fmt"
	"strings"
)

// Validation error codes.
const (
	ErrEmptySQL        = "V001" // nothing to run
	ErrNoSelect        = "V002" // not a SELECT statement
	ErrDiagnostic      = "V003" // SQL carries an "-- ERROR" comment
	ErrIncomplete      = "V004" // statement ends mid-clause
	ErrUnbalancedParen = "V005" // parentheses do not pair up
)

// ValidationError reports SQL that cannot be previewed.
type ValidationError struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Reason)
}

// danglingKeywords cannot end a complete statement.
var danglingKeywords = map[string]bool{
	"SELECT": true,
	"FROM":   true,
	"WHERE":  true,
	"INNER":  true,
	"JOIN":   true,
	"ON":     true,
	"AND":    true,
	"OR":     true,
	"NOT":    true,
	"GROUP":  true,
	"BY":     true,
}

// Validate checks that sql looks like a complete SELECT statement before it
// is handed to an Executor. It is a shape check, not a parser.
func Validate(sql string) error {
	body := stripComments(sql)

	if strings.Contains(sql, "-- ERROR") {
		return &ValidationError{Code: ErrDiagnostic, Reason: "query has unresolved errors"}
	}
	// Comment-only SQL, such as the empty SELECT placeholder, has nothing to run.
	if strings.TrimSpace(body) == "" {
		return &ValidationError{Code: ErrEmptySQL, Reason: "no query to execute"}
	}

	fields := strings.Fields(body)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "SELECT") {
		return &ValidationError{Code: ErrNoSelect, Reason: "query must start with SELECT"}
	}

	last := fields[len(fields)-1]
	if strings.HasSuffix(last, ",") {
		return &ValidationError{Code: ErrIncomplete, Reason: "query ends with a comma"}
	}
	if danglingKeywords[strings.ToUpper(last)] {
		return &ValidationError{
			Code:   ErrIncomplete,
			Reason: fmt.Sprintf("query ends with %s", strings.ToUpper(last)),
		}
	}

	if !parensBalanced(body) {
		return &ValidationError{Code: ErrUnbalancedParen, Reason: "unbalanced parentheses"}
	}
	return nil
}

// stripComments drops "--" comment lines.
func stripComments(sql string) string {
	var kept []string
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// parensBalanced reports whether parentheses outside quoted literals pair up.
func parensBalanced(sql string) bool {
	depth := 0
	var quote rune
	for _, r := range sql {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
