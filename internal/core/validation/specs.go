package validation

// Field specifications for every mutating request.
var (
	CountryCreate = Spec{
		Required: []string{"name", "lat", "lon"},
		Types:    map[string]Kind{"name": String, "lat": Float, "lon": Float},
	}

	CountryUpdate = Spec{
		Required: []string{"id", "name", "lat", "lon"},
		Types:    map[string]Kind{"id": Integer, "name": String, "lat": Float, "lon": Float},
	}

	CityCreate = Spec{
		Required: []string{"countryId", "name", "lat", "lon"},
		Types:    map[string]Kind{"countryId": Integer, "name": String, "lat": Float, "lon": Float},
	}

	CityUpdate = Spec{
		Required: []string{"id", "countryId", "name", "lat", "lon"},
		Types: map[string]Kind{
			"id":        Integer,
			"countryId": Integer,
			"name":      String,
			"lat":       Float,
			"lon":       Float,
		},
	}

	TemperatureCreate = Spec{
		Required: []string{"cityId", "value"},
		Types:    map[string]Kind{"cityId": Integer, "value": Float},
	}

	TemperatureUpdate = Spec{
		Required: []string{"id", "cityId", "value"},
		Types:    map[string]Kind{"id": Integer, "cityId": Integer, "value": Float},
	}
)
