package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"weather-history/internal/models"
)

// historyDocument is the stored form of a daily history. Field names follow
// the upstream provider vocabulary and must not change, existing containers
// depend on them. Sunrise and sunset are UTC unix seconds.
type historyDocument struct {
	Date       string   `json:"date"`
	Sunrise    *int64   `json:"sunrise"`
	Sunset     *int64   `json:"sunset"`
	Moon       *float64 `json:"moon"`
	TempMax    *float64 `json:"tempmax"`
	TempMin    *float64 `json:"tempmin"`
	TempMean   *float64 `json:"tempmean"`
	DewPoint   *float64 `json:"dewpoint"`
	PrecipProb *float64 `json:"precipprob"`
	Precip     *float64 `json:"precip"`
	PrecipType *string  `json:"preciptype"`
	Humidity   *float64 `json:"humidity"`
	Pressure   *float64 `json:"pressure"`
	Cloud      *float64 `json:"cloud"`
	UV         *float64 `json:"uv"`
	Vis        *float64 `json:"vis"`
	Wind       *float64 `json:"wind"`
	WindGust   *float64 `json:"windgust"`
	WindDir    *int64   `json:"winddir"`
	Summary    *string  `json:"summary"`
}

// encodeHistory serializes a history into its stored document form.
func encodeHistory(history models.History) ([]byte, error) {
	doc := historyDocument{
		Date:       models.FormatDate(history.Date),
		Sunrise:    unixSeconds(history.Sunrise),
		Sunset:     unixSeconds(history.Sunset),
		Moon:       history.MoonPhase,
		TempMax:    history.TemperatureHigh,
		TempMin:    history.TemperatureLow,
		TempMean:   history.TemperatureMean,
		DewPoint:   history.DewPoint,
		PrecipProb: history.PrecipitationChance,
		Precip:     history.PrecipitationAmount,
		PrecipType: history.PrecipitationType,
		Humidity:   history.Humidity,
		Pressure:   history.Pressure,
		Cloud:      history.CloudCover,
		UV:         history.UVIndex,
		Vis:        history.Visibility,
		Wind:       history.WindSpeed,
		WindGust:   history.WindGust,
		WindDir:    history.WindDirection,
		Summary:    history.Description,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%q: serialize history on %s: %w", history.Alias, doc.Date, err)
	}
	return data, nil
}

// decodeHistory deserializes a stored document into a history for the alias.
func decodeHistory(alias string, data []byte) (models.History, error) {
	var doc historyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.History{}, fmt.Errorf("%q: deserialize history: %w", alias, err)
	}
	date, err := models.ParseDate(doc.Date)
	if err != nil {
		return models.History{}, fmt.Errorf("%q: deserialize history: %w", alias, err)
	}
	return models.History{
		Alias:               alias,
		Date:                date,
		TemperatureHigh:     doc.TempMax,
		TemperatureLow:      doc.TempMin,
		TemperatureMean:     doc.TempMean,
		DewPoint:            doc.DewPoint,
		Humidity:            doc.Humidity,
		PrecipitationChance: doc.PrecipProb,
		PrecipitationType:   doc.PrecipType,
		PrecipitationAmount: doc.Precip,
		WindSpeed:           doc.Wind,
		WindGust:            doc.WindGust,
		WindDirection:       doc.WindDir,
		CloudCover:          doc.Cloud,
		Pressure:            doc.Pressure,
		UVIndex:             doc.UV,
		Sunrise:             unixTime(doc.Sunrise),
		Sunset:              unixTime(doc.Sunset),
		MoonPhase:           doc.Moon,
		Visibility:          doc.Vis,
		Description:         doc.Summary,
	}, nil
}

func unixSeconds(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	secs := t.UTC().Unix()
	return &secs
}

func unixTime(secs *int64) *time.Time {
	if secs == nil {
		return nil
	}
	t := time.Unix(*secs, 0).UTC()
	return &t
}
