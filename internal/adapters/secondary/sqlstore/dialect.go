package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
)

var errNotFound = domain.ErrRecordNotFound

type dialect struct {
	name string

	// numbered reports whether placeholders are written $1, $2, ...
	numbered bool
}

func dialectFor(driverName string) (dialect, error) {
	switch driverName {
	case "postgres":
		return dialect{name: driverName, numbered: true}, nil
	case "sqlite3":
		return dialect{name: driverName}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driverName)
	}
}

// rebind rewrites ? placeholders for dialects using numbered parameters.
// Queries in this package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var (
		b strings.Builder
		n int
	)

	b.Grow(len(query) + 8)

	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}

		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}

// classify maps driver errors onto the domain's store sentinels. Unknown
// errors are returned unchanged.
func (d dialect) classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%w: %w", domain.ErrUniqueViolation, err)
		case "foreign_key_violation":
			return fmt.Errorf("%w: %w", domain.ErrForeignKeyViolation, err)
		}

		return err
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %w", domain.ErrUniqueViolation, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %w", domain.ErrForeignKeyViolation, err)
		}
	}

	return err
}
