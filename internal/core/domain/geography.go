package domain

// Coordinates represent a geographic location using latitude and longitude.
type Coordinates struct {
	// Latitude specifies the north-south position
	Latitude float64

	// Longitude specifies the east-west position
	Longitude float64
}

// Country is a registered country. Name is globally unique. Deleting a
// country removes its cities and, transitively, their temperatures.
type Country struct {
	ID          int64
	Name        string
	Coordinates Coordinates
}

// City belongs to exactly one Country. The pair (CountryID, Name) is unique:
// a city name only has to be unique within its country.
type City struct {
	ID          int64
	CountryID   int64
	Name        string
	Coordinates Coordinates
}
