package models

import "time"

// History represents one daily weather observation for a location, keyed by
// (alias, date). All weather fields are optional; a nil pointer means the
// upstream provider reported no data for that field.
type History struct {
	Alias               string     `json:"alias"`
	Date                time.Time  `json:"date"`
	TemperatureHigh     *float64   `json:"temperature_high,omitempty"`
	TemperatureLow      *float64   `json:"temperature_low,omitempty"`
	TemperatureMean     *float64   `json:"temperature_mean,omitempty"`
	DewPoint            *float64   `json:"dew_point,omitempty"`
	Humidity            *float64   `json:"humidity,omitempty"`
	PrecipitationChance *float64   `json:"precipitation_chance,omitempty"`
	PrecipitationType   *string    `json:"precipitation_type,omitempty"`
	PrecipitationAmount *float64   `json:"precipitation_amount,omitempty"`
	WindSpeed           *float64   `json:"wind_speed,omitempty"`
	WindGust            *float64   `json:"wind_gust,omitempty"`
	WindDirection       *int64     `json:"wind_direction,omitempty"`
	CloudCover          *float64   `json:"cloud_cover,omitempty"`
	Pressure            *float64   `json:"pressure,omitempty"`
	UVIndex             *float64   `json:"uv_index,omitempty"`
	Sunrise             *time.Time `json:"sunrise,omitempty"`
	Sunset              *time.Time `json:"sunset,omitempty"`
	MoonPhase           *float64   `json:"moon_phase,omitempty"`
	Visibility          *float64   `json:"visibility,omitempty"`
	Description         *string    `json:"description,omitempty"`
}

// Float64 returns a pointer to v. Convenience for building optional history
// fields.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
