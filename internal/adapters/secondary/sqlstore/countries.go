package sqlstore

import (
	"context"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
)

const countryColumns = `id, name, latitude, longitude`

func (r *repo) CreateCountry(ctx context.Context, country domain.Country) (int64, error) {
	var id int64

	err := r.observe(ctx, "CreateCountry", func(ctx context.Context) error {
		err := r.queryRow(ctx,
			`INSERT INTO countries (name, latitude, longitude) VALUES (?, ?, ?) RETURNING id`,
			country.Name, country.Coordinates.Latitude, country.Coordinates.Longitude,
		).Scan(&id)

		return r.dialect.classify(err)
	})

	return id, err
}

func (r *repo) GetCountry(ctx context.Context, id int64) (*domain.Country, error) {
	var country domain.Country

	err := r.observe(ctx, "GetCountry", func(ctx context.Context) error {
		err := r.queryRow(ctx,
			`SELECT `+countryColumns+` FROM countries WHERE id = ?`, id,
		).Scan(&country.ID, &country.Name, &country.Coordinates.Latitude, &country.Coordinates.Longitude)

		return r.dialect.classify(err)
	})
	if err != nil {
		return nil, err
	}

	return &country, nil
}

func (r *repo) ListCountries(ctx context.Context) ([]domain.Country, error) {
	countries := make([]domain.Country, 0)

	err := r.observe(ctx, "ListCountries", func(ctx context.Context) error {
		rows, err := r.query(ctx, `SELECT `+countryColumns+` FROM countries ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c domain.Country
			if err := rows.Scan(&c.ID, &c.Name, &c.Coordinates.Latitude, &c.Coordinates.Longitude); err != nil {
				return err
			}

			countries = append(countries, c)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return countries, nil
}

func (r *repo) CountryNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var taken bool

	err := r.observe(ctx, "CountryNameTaken", func(ctx context.Context) error {
		return r.queryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM countries WHERE name = ? AND id <> ?)`, name, excludeID,
		).Scan(&taken)
	})

	return taken, err
}

func (r *repo) UpdateCountry(ctx context.Context, country domain.Country) error {
	return r.observe(ctx, "UpdateCountry", func(ctx context.Context) error {
		return r.execOne(ctx,
			`UPDATE countries SET name = ?, latitude = ?, longitude = ? WHERE id = ?`,
			country.Name, country.Coordinates.Latitude, country.Coordinates.Longitude, country.ID)
	})
}

// DeleteCountry removes a country; cities and temperatures follow through
// ON DELETE CASCADE.
func (r *repo) DeleteCountry(ctx context.Context, id int64) error {
	return r.observe(ctx, "DeleteCountry", func(ctx context.Context) error {
		return r.execOne(ctx, `DELETE FROM countries WHERE id = ?`, id)
	})
}
