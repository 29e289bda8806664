package client

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"weather-history/internal/models"
)

// timelineDay holds the fields of interest from one provider day.
type timelineDay struct {
	Datetime     string   `json:"datetime"`
	TempMax      *float64 `json:"tempmax"`
	TempMin      *float64 `json:"tempmin"`
	Temp         *float64 `json:"temp"`
	Dew          *float64 `json:"dew"`
	Humidity     *float64 `json:"humidity"`
	Precip       *float64 `json:"precip"`
	PrecipProb   *float64 `json:"precipprob"`
	PrecipType   []string `json:"preciptype"`
	WindGust     *float64 `json:"windgust"`
	WindSpeed    *float64 `json:"windspeed"`
	WindDir      *float64 `json:"winddir"`
	Pressure     *float64 `json:"pressure"`
	CloudCover   *float64 `json:"cloudcover"`
	Visibility   *float64 `json:"visibility"`
	UVIndex      *float64 `json:"uvindex"`
	SunriseEpoch *int64   `json:"sunriseEpoch"`
	SunsetEpoch  *int64   `json:"sunsetEpoch"`
	MoonPhase    *float64 `json:"moonphase"`
	Description  *string  `json:"description"`
}

// timelineDays is the provider response envelope.
type timelineDays struct {
	Days []timelineDay `json:"days"`
}

// decodeTimeline maps the provider response body to daily histories for the
// location. Provider percentages are scaled to the 0-1 range.
func decodeTimeline(location models.Location, body []byte) (models.DailyHistories, error) {
	var timeline timelineDays
	if err := json.Unmarshal(body, &timeline); err != nil {
		return models.DailyHistories{}, fmt.Errorf("%q: decode history response: %w", location.Alias, err)
	}
	daily := models.DailyHistories{
		Location:  location,
		Histories: make([]models.History, 0, len(timeline.Days)),
	}
	for _, day := range timeline.Days {
		date, err := models.ParseDate(day.Datetime)
		if err != nil {
			return models.DailyHistories{}, fmt.Errorf("%q: decode history response: %w", location.Alias, err)
		}
		daily.Histories = append(daily.Histories, models.History{
			Alias:               location.Alias,
			Date:                date,
			TemperatureHigh:     day.TempMax,
			TemperatureLow:      day.TempMin,
			TemperatureMean:     day.Temp,
			DewPoint:            day.Dew,
			Humidity:            scalePercent(day.Humidity),
			PrecipitationChance: scalePercent(day.PrecipProb),
			PrecipitationType:   joinTypes(day.PrecipType),
			PrecipitationAmount: day.Precip,
			WindSpeed:           day.WindSpeed,
			WindGust:            day.WindGust,
			WindDirection:       roundDirection(day.WindDir),
			CloudCover:          scalePercent(day.CloudCover),
			Pressure:            day.Pressure,
			UVIndex:             day.UVIndex,
			Sunrise:             epochTime(day.SunriseEpoch),
			Sunset:              epochTime(day.SunsetEpoch),
			MoonPhase:           day.MoonPhase,
			Visibility:          day.Visibility,
			Description:         day.Description,
		})
	}
	return daily, nil
}

func scalePercent(value *float64) *float64 {
	if value == nil {
		return nil
	}
	scaled := *value / 100.0
	return &scaled
}

func joinTypes(types []string) *string {
	if len(types) == 0 {
		return nil
	}
	joined := strings.Join(types, " ")
	return &joined
}

func roundDirection(degrees *float64) *int64 {
	if degrees == nil {
		return nil
	}
	rounded := int64(math.Round(*degrees))
	return &rounded
}

func epochTime(secs *int64) *time.Time {
	if secs == nil {
		return nil
	}
	t := time.Unix(*secs, 0).UTC()
	return &t
}
