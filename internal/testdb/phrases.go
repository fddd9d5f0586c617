package testdb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/testkit/internal/dbdriver"
)

// phrases holds the server messages that mark a create or drop as a no-op.
type phrases struct {
	exists  string
	missing string
}

var mysqlPhrases = phrases{
	exists:  "Can't create database '%s'; database exists",
	missing: "Can't drop database '%s'; database doesn't exist",
}

var phrasesByDriver = map[string]phrases{
	dbdriver.DriverMySQL: mysqlPhrases,
	dbdriver.DriverPgSQL: {
		exists:  `database "%s" already exists`,
		missing: `database "%s" does not exist`,
	},
}

// phrasesFor falls back to the MySQL wording for drivers without an entry.
func phrasesFor(driver string) phrases {
	if p, ok := phrasesByDriver[driver]; ok {
		return p
	}
	return mysqlPhrases
}

// isBenignFailure reports whether err is a statement failure whose message
// contains phrase formatted with the database name. Matching is by substring,
// so a localised server or reworded message is not recognised.
func isBenignFailure(err error, phrase, dbName string) bool {
	var failure *dbdriver.ExecutionFailure
	if !errors.As(err, &failure) {
		return false
	}
	return strings.Contains(failure.Error(), fmt.Sprintf(phrase, dbName))
}
