// Package domain contains the core business entities and domain logic for the
// geography and temperature registry. Types here are independent of HTTP,
// SQL drivers and any other infrastructure concern.
package domain

import (
	"time"
)

// TimestampPrecision is the resolution at which reading timestamps are
// assigned and stored.
const TimestampPrecision = time.Millisecond

// Temperature is a single temperature observation recorded for a city.
// The pair (CityID, Timestamp) is unique across all readings.
type Temperature struct {
	// ID is the store-generated identifier
	ID int64

	// Value is the observed temperature
	Value float64

	// Timestamp is assigned by the server (UTC, millisecond precision) on
	// every create and update
	Timestamp time.Time

	// CityID references the owning City
	CityID int64
}

// NewTimestamp normalizes t to the precision and location readings are
// stored with.
func NewTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(TimestampPrecision)
}

// TemperatureFilter holds the optional predicates of a temperature listing.
// All non-nil predicates are combined with logical AND; an empty filter
// matches every reading.
type TemperatureFilter struct {
	// Latitude restricts readings to cities at exactly this latitude
	Latitude *float64

	// Longitude restricts readings to cities at exactly this longitude
	Longitude *float64

	// From is the first UTC calendar date included (midnight UTC)
	From *time.Time

	// Until is the last UTC calendar date included (midnight UTC)
	Until *time.Time

	// CityID hard-filters readings to one city
	CityID *int64

	// CountryID hard-filters readings to cities of one country
	CountryID *int64
}

// UntilExclusive returns the first instant after the Until date, or nil when
// no upper bound is set.
func (f TemperatureFilter) UntilExclusive() *time.Time {
	if f.Until == nil {
		return nil
	}

	end := f.Until.AddDate(0, 0, 1)

	return &end
}

// IsEmpty reports whether the filter has no predicates at all.
func (f TemperatureFilter) IsEmpty() bool {
	return f.Latitude == nil && f.Longitude == nil && f.From == nil &&
		f.Until == nil && f.CityID == nil && f.CountryID == nil
}
