package utils

import (
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IdentifierError reports a field name that is not a plain SQL identifier.
type IdentifierError struct {
	Name string
}

func (e *IdentifierError) Error() string {
	return "Invalid identifier: " + e.Name
}

// IsIdent reports whether s is a plain identifier: a letter or underscore
// followed by letters, digits or underscores.
func IsIdent(s string) bool {
	return identRe.MatchString(s)
}

// EscapeIdent checks that name is a plain identifier and returns it quoted
// for PostgreSQL.
func EscapeIdent(name string) (string, error) {
	if !IsIdent(name) {
		return "", &IdentifierError{Name: name}
	}
	return QuoteIdentPG(name), nil
}

// QuoteIdentPG безопасно квотирует идентификатор для PostgreSQL: "na""me"
func QuoteIdentPG(s string) string {
	if s == "" {
		return `""`
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
