package locations

import (
	"strconv"
	"strings"
	"time"

	// Timezone validation must work on hosts without a system zoneinfo dir.
	_ "time/tzdata"

	"weather-history/internal/models"
)

// validateLocation normalizes and validates every field of a candidate
// location. The returned location has trimmed fields and a lowercase alias.
func validateLocation(location models.Location) (models.Location, error) {
	var err error
	if location.City, err = requireText("city", location.City); err != nil {
		return location, err
	}
	if location.State, err = requireText("state", location.State); err != nil {
		return location, err
	}
	if location.StateID, err = requireText("state_id", location.StateID); err != nil {
		return location, err
	}
	if location.Alias, err = validateAlias(location.Alias); err != nil {
		return location, err
	}
	if location.Latitude, err = validateDegrees("latitude", location.Latitude, 90); err != nil {
		return location, err
	}
	if location.Longitude, err = validateDegrees("longitude", location.Longitude, 180); err != nil {
		return location, err
	}
	if location.TZ, err = validateTZ(location.TZ); err != nil {
		return location, err
	}
	return location, nil
}

func requireText(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", &models.ValidationError{Field: field, Value: value, Message: "cannot be empty"}
	}
	return trimmed, nil
}

func validateAlias(value string) (string, error) {
	alias := strings.ToLower(strings.TrimSpace(value))
	if alias == "" {
		return "", &models.ValidationError{Field: "alias", Value: value, Message: "cannot be empty"}
	}
	return alias, nil
}

// validateDegrees checks a decimal degree string against [-limit, limit]. The
// original string is kept, not reformatted, so coordinates round trip exactly.
func validateDegrees(field, value string, limit float64) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", &models.ValidationError{Field: field, Value: value, Message: "cannot be empty"}
	}
	degrees, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return "", &models.ValidationError{Field: field, Value: value, Message: "must be a decimal value"}
	}
	if degrees < -limit || degrees > limit {
		return "", &models.ValidationError{
			Field: field, Value: value,
			Message: "must be between " + strconv.FormatFloat(-limit, 'f', -1, 64) +
				" and " + strconv.FormatFloat(limit, 'f', -1, 64) + " degrees",
		}
	}
	return trimmed, nil
}

func validateTZ(value string) (string, error) {
	name := strings.TrimSpace(value)
	if name == "" {
		return "", &models.ValidationError{Field: "tz", Value: value, Message: "cannot be empty"}
	}
	if _, err := time.LoadLocation(name); err != nil {
		return "", &models.ValidationError{Field: "tz", Value: value, Message: "is not a known timezone"}
	}
	return name, nil
}
