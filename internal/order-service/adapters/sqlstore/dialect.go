package sqlstore

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect isolates the few places where sqlite and postgres differ.
type dialect struct {
	name   string
	driver string
	schema string
	// lockSuffix is appended to single-row reads that must hold the row
	// until the transaction ends.
	lockSuffix string
	numbered   bool
	unique     func(err error) (field string, ok bool)
}

var sqliteDialect = dialect{
	name:       "sqlite",
	driver:     "sqlite",
	schema:     sqliteSchema,
	lockSuffix: "",
	unique:     sqliteUniqueViolation,
}

var postgresDialect = dialect{
	name:       "postgres",
	driver:     "pgx",
	schema:     postgresSchema,
	lockSuffix: " FOR UPDATE",
	numbered:   true,
	unique:     postgresUniqueViolation,
}

// rebind rewrites ? placeholders to $1, $2, ... for postgres.
func (d dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqlite reports the offending column ("products.sku"), not the constraint name.
func sqliteUniqueViolation(err error) (string, bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) || se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return "", false
	}
	msg := se.Error()
	switch {
	case strings.Contains(msg, "products.name"):
		return "name", true
	case strings.Contains(msg, "products.sku"):
		return "sku", true
	}
	return "", true
}

func postgresUniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return "", false
	}
	switch pgErr.ConstraintName {
	case constraintProductName:
		return "name", true
	case constraintProductSKU:
		return "sku", true
	}
	return "", true
}
