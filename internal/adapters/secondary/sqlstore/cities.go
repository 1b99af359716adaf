package sqlstore

import (
	"context"
	"database/sql"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
)

const cityColumns = `id, country_id, name, latitude, longitude`

func scanCities(rows *sql.Rows) ([]domain.City, error) {
	defer rows.Close()

	cities := make([]domain.City, 0)

	for rows.Next() {
		var c domain.City
		if err := rows.Scan(&c.ID, &c.CountryID, &c.Name, &c.Coordinates.Latitude, &c.Coordinates.Longitude); err != nil {
			return nil, err
		}

		cities = append(cities, c)
	}

	return cities, rows.Err()
}

func (r *repo) CreateCity(ctx context.Context, city domain.City) (int64, error) {
	var id int64

	err := r.observe(ctx, "CreateCity", func(ctx context.Context) error {
		err := r.queryRow(ctx,
			`INSERT INTO cities (country_id, name, latitude, longitude) VALUES (?, ?, ?, ?) RETURNING id`,
			city.CountryID, city.Name, city.Coordinates.Latitude, city.Coordinates.Longitude,
		).Scan(&id)

		return r.dialect.classify(err)
	})

	return id, err
}

func (r *repo) GetCity(ctx context.Context, id int64) (*domain.City, error) {
	var city domain.City

	err := r.observe(ctx, "GetCity", func(ctx context.Context) error {
		err := r.queryRow(ctx,
			`SELECT `+cityColumns+` FROM cities WHERE id = ?`, id,
		).Scan(&city.ID, &city.CountryID, &city.Name, &city.Coordinates.Latitude, &city.Coordinates.Longitude)

		return r.dialect.classify(err)
	})
	if err != nil {
		return nil, err
	}

	return &city, nil
}

func (r *repo) ListCities(ctx context.Context) ([]domain.City, error) {
	var cities []domain.City

	err := r.observe(ctx, "ListCities", func(ctx context.Context) error {
		rows, err := r.query(ctx, `SELECT `+cityColumns+` FROM cities ORDER BY id`)
		if err != nil {
			return err
		}

		cities, err = scanCities(rows)

		return err
	})

	return cities, err
}

func (r *repo) ListCitiesByCountry(ctx context.Context, countryID int64) ([]domain.City, error) {
	var cities []domain.City

	err := r.observe(ctx, "ListCitiesByCountry", func(ctx context.Context) error {
		rows, err := r.query(ctx,
			`SELECT `+cityColumns+` FROM cities WHERE country_id = ? ORDER BY id`, countryID)
		if err != nil {
			return err
		}

		cities, err = scanCities(rows)

		return err
	})

	return cities, err
}

func (r *repo) CityNameTaken(ctx context.Context, countryID int64, name string, excludeID int64) (bool, error) {
	var taken bool

	err := r.observe(ctx, "CityNameTaken", func(ctx context.Context) error {
		return r.queryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM cities WHERE country_id = ? AND name = ? AND id <> ?)`,
			countryID, name, excludeID,
		).Scan(&taken)
	})

	return taken, err
}

func (r *repo) UpdateCity(ctx context.Context, city domain.City) error {
	return r.observe(ctx, "UpdateCity", func(ctx context.Context) error {
		return r.execOne(ctx,
			`UPDATE cities SET country_id = ?, name = ?, latitude = ?, longitude = ? WHERE id = ?`,
			city.CountryID, city.Name, city.Coordinates.Latitude, city.Coordinates.Longitude, city.ID)
	})
}

func (r *repo) DeleteCity(ctx context.Context, id int64) error {
	return r.observe(ctx, "DeleteCity", func(ctx context.Context) error {
		return r.execOne(ctx, `DELETE FROM cities WHERE id = ?`, id)
	})
}
