package sqlstore

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
)

func TestDialect_Rebind(t *testing.T) {
	query := `UPDATE cities SET name = ?, latitude = ? WHERE id = ?`

	postgres, err := dialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, `UPDATE cities SET name = $1, latitude = $2 WHERE id = $3`, postgres.rebind(query))

	sqlite, err := dialectFor("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, query, sqlite.rebind(query))

	_, err = dialectFor("mysql")
	assert.Error(t, err)
}

func TestDialect_Classify(t *testing.T) {
	d := dialect{name: "postgres", numbered: true}

	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "no rows", err: sql.ErrNoRows, expected: domain.ErrRecordNotFound},
		{name: "postgres unique", err: &pq.Error{Code: "23505"}, expected: domain.ErrUniqueViolation},
		{name: "postgres foreign key", err: &pq.Error{Code: "23503"}, expected: domain.ErrForeignKeyViolation},
		{
			name:     "sqlite unique",
			err:      sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique},
			expected: domain.ErrUniqueViolation,
		},
		{
			name:     "sqlite primary key",
			err:      sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey},
			expected: domain.ErrUniqueViolation,
		},
		{
			name:     "sqlite foreign key",
			err:      sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey},
			expected: domain.ErrForeignKeyViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.classify(tt.err)
			assert.ErrorIs(t, err, tt.expected)
		})
	}

	other := errors.New("connection reset")
	assert.Same(t, other, d.classify(other))
	assert.NoError(t, d.classify(nil))
}

func TestBuildTemperatureQuery(t *testing.T) {
	lat := 46.77
	cityID := int64(3)
	countryID := int64(1)
	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		filter        domain.TemperatureFilter
		expectedQuery string
		expectedArgs  []any
	}{
		{
			name:          "no filter",
			filter:        domain.TemperatureFilter{},
			expectedQuery: `SELECT t.id, t.value, t.recorded_at, t.city_id FROM temperatures t ORDER BY t.recorded_at, t.id`,
		},
		{
			name:   "date range covers whole days",
			filter: domain.TemperatureFilter{From: &from, Until: &until},
			expectedQuery: `SELECT t.id, t.value, t.recorded_at, t.city_id FROM temperatures t` +
				` WHERE t.recorded_at >= ? AND t.recorded_at < ? ORDER BY t.recorded_at, t.id`,
			expectedArgs: []any{from, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)},
		},
		{
			name:   "latitude joins cities",
			filter: domain.TemperatureFilter{Latitude: &lat},
			expectedQuery: `SELECT t.id, t.value, t.recorded_at, t.city_id FROM temperatures t` +
				` JOIN cities c ON c.id = t.city_id WHERE c.latitude = ? ORDER BY t.recorded_at, t.id`,
			expectedArgs: []any{lat},
		},
		{
			name:   "city scope",
			filter: domain.TemperatureFilter{CityID: &cityID, From: &from},
			expectedQuery: `SELECT t.id, t.value, t.recorded_at, t.city_id FROM temperatures t` +
				` WHERE t.recorded_at >= ? AND t.city_id = ? ORDER BY t.recorded_at, t.id`,
			expectedArgs: []any{from, cityID},
		},
		{
			name:   "country scope",
			filter: domain.TemperatureFilter{CountryID: &countryID},
			expectedQuery: `SELECT t.id, t.value, t.recorded_at, t.city_id FROM temperatures t` +
				` JOIN cities c ON c.id = t.city_id WHERE c.country_id = ? ORDER BY t.recorded_at, t.id`,
			expectedArgs: []any{countryID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildTemperatureQuery(tt.filter)

			assert.Equal(t, tt.expectedQuery, query)
			assert.Equal(t, tt.expectedArgs, args)
		})
	}
}
