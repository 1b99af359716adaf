package sqlstore

import (
	"context"
	"strings"
	"time"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
)

func (r *repo) CreateTemperature(ctx context.Context, reading domain.Temperature) (int64, error) {
	var id int64

	err := r.observe(ctx, "CreateTemperature", func(ctx context.Context) error {
		err := r.queryRow(ctx,
			`INSERT INTO temperatures (value, recorded_at, city_id) VALUES (?, ?, ?) RETURNING id`,
			reading.Value, domain.NewTimestamp(reading.Timestamp), reading.CityID,
		).Scan(&id)

		return r.dialect.classify(err)
	})

	return id, err
}

func (r *repo) GetTemperature(ctx context.Context, id int64) (*domain.Temperature, error) {
	var reading domain.Temperature

	err := r.observe(ctx, "GetTemperature", func(ctx context.Context) error {
		err := r.queryRow(ctx,
			`SELECT id, value, recorded_at, city_id FROM temperatures WHERE id = ?`, id,
		).Scan(&reading.ID, &reading.Value, &reading.Timestamp, &reading.CityID)

		return r.dialect.classify(err)
	})
	if err != nil {
		return nil, err
	}

	reading.Timestamp = reading.Timestamp.UTC()

	return &reading, nil
}

func (r *repo) ReadingExists(ctx context.Context, cityID int64, timestamp time.Time, excludeID int64) (bool, error) {
	var exists bool

	err := r.observe(ctx, "ReadingExists", func(ctx context.Context) error {
		return r.queryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM temperatures WHERE city_id = ? AND recorded_at = ? AND id <> ?)`,
			cityID, domain.NewTimestamp(timestamp), excludeID,
		).Scan(&exists)
	})

	return exists, err
}

func (r *repo) UpdateTemperature(ctx context.Context, reading domain.Temperature) error {
	return r.observe(ctx, "UpdateTemperature", func(ctx context.Context) error {
		return r.execOne(ctx,
			`UPDATE temperatures SET value = ?, recorded_at = ?, city_id = ? WHERE id = ?`,
			reading.Value, domain.NewTimestamp(reading.Timestamp), reading.CityID, reading.ID)
	})
}

func (r *repo) DeleteTemperature(ctx context.Context, id int64) error {
	return r.observe(ctx, "DeleteTemperature", func(ctx context.Context) error {
		return r.execOne(ctx, `DELETE FROM temperatures WHERE id = ?`, id)
	})
}

func (r *repo) ListTemperatures(ctx context.Context, filter domain.TemperatureFilter) ([]domain.Temperature, error) {
	readings := make([]domain.Temperature, 0)

	err := r.observe(ctx, "ListTemperatures", func(ctx context.Context) error {
		query, args := buildTemperatureQuery(filter)

		rows, err := r.query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t domain.Temperature
			if err := rows.Scan(&t.ID, &t.Value, &t.Timestamp, &t.CityID); err != nil {
				return err
			}

			t.Timestamp = t.Timestamp.UTC()
			readings = append(readings, t)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return readings, nil
}

// buildTemperatureQuery renders the listing query for filter. Coordinate and
// country predicates apply to the owning city; the date range covers whole
// UTC days, from the start of From to the end of Until.
func buildTemperatureQuery(filter domain.TemperatureFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	needsCity := filter.Latitude != nil || filter.Longitude != nil || filter.CountryID != nil

	if filter.Latitude != nil {
		conditions = append(conditions, "c.latitude = ?")
		args = append(args, *filter.Latitude)
	}

	if filter.Longitude != nil {
		conditions = append(conditions, "c.longitude = ?")
		args = append(args, *filter.Longitude)
	}

	if filter.From != nil {
		conditions = append(conditions, "t.recorded_at >= ?")
		args = append(args, filter.From.UTC())
	}

	if end := filter.UntilExclusive(); end != nil {
		conditions = append(conditions, "t.recorded_at < ?")
		args = append(args, end.UTC())
	}

	if filter.CityID != nil {
		conditions = append(conditions, "t.city_id = ?")
		args = append(args, *filter.CityID)
	}

	if filter.CountryID != nil {
		conditions = append(conditions, "c.country_id = ?")
		args = append(args, *filter.CountryID)
	}

	var b strings.Builder

	b.WriteString(`SELECT t.id, t.value, t.recorded_at, t.city_id FROM temperatures t`)

	if needsCity {
		b.WriteString(` JOIN cities c ON c.id = t.city_id`)
	}

	if len(conditions) > 0 {
		b.WriteString(` WHERE `)
		b.WriteString(strings.Join(conditions, " AND "))
	}

	b.WriteString(` ORDER BY t.recorded_at, t.id`)

	return b.String(), args
}
