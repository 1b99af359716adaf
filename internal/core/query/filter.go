// Package query turns temperature listing query parameters into a
// domain.TemperatureFilter.
package query

import (
	"net/url"
	"strconv"
	"time"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
)

// DateLayout is the accepted format of the from and until parameters.
const DateLayout = "2006-01-02"

// Query parameter names.
const (
	ParamLatitude  = "lat"
	ParamLongitude = "lon"
	ParamFrom      = "from"
	ParamUntil     = "until"
)

// Options controls which predicates a listing endpoint accepts.
type Options struct {
	// AllowCoordinates enables the lat and lon predicates. City and country
	// scoped listings leave it off and ignore those parameters.
	AllowCoordinates bool
}

// ParseFilter builds a filter from query values. Every supplied parameter
// must parse; a parameter that is present but malformed yields an
// INVALID_FILTER error naming it.
func ParseFilter(values url.Values, opts Options) (domain.TemperatureFilter, error) {
	var filter domain.TemperatureFilter

	if opts.AllowCoordinates {
		lat, err := parseFloat(values, ParamLatitude)
		if err != nil {
			return domain.TemperatureFilter{}, err
		}

		lon, err := parseFloat(values, ParamLongitude)
		if err != nil {
			return domain.TemperatureFilter{}, err
		}

		filter.Latitude = lat
		filter.Longitude = lon
	}

	from, err := parseDate(values, ParamFrom)
	if err != nil {
		return domain.TemperatureFilter{}, err
	}

	until, err := parseDate(values, ParamUntil)
	if err != nil {
		return domain.TemperatureFilter{}, err
	}

	filter.From = from
	filter.Until = until

	return filter, nil
}

func parseFloat(values url.Values, name string) (*float64, error) {
	if !values.Has(name) {
		return nil, nil
	}

	raw := values.Get(name)

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.NewError(domain.CodeInvalidFilter,
			"Invalid '%s' value %q: expected a number", name, raw).WithCause(err)
	}

	return &v, nil
}

func parseDate(values url.Values, name string) (*time.Time, error) {
	if !values.Has(name) {
		return nil, nil
	}

	raw := values.Get(name)

	d, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return nil, domain.NewError(domain.CodeInvalidFilter,
			"Invalid '%s' date %q: expected format YYYY-MM-DD", name, raw).WithCause(err)
	}

	return &d, nil
}
