// Package reports renders location, history, and summary reports as aligned
// text, CSV, or JSON.
package reports

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"weather-history/internal/models"
)

// Format selects the report output encoding.
type Format string

const (
	// FormatText renders an aligned plain text table.
	FormatText Format = "text"
	// FormatCSV renders comma separated records with a header row.
	FormatCSV Format = "csv"
	// FormatJSON renders a pretty printed JSON document.
	FormatJSON Format = "json"
)

// ParseFormat maps a format flag value to a Format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(value) {
	case "text", "":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format %q, expected text, csv, or json", value)
	}
}

// Locations writes the location listing report.
func Locations(w io.Writer, format Format, locations []models.Location) error {
	switch format {
	case FormatCSV:
		writer := csv.NewWriter(w)
		if err := writer.Write([]string{"name", "alias", "longitude", "latitude", "tz"}); err != nil {
			return err
		}
		for _, location := range locations {
			record := []string{location.Name(), location.Alias, location.Longitude, location.Latitude, location.TZ}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	case FormatJSON:
		type entry struct {
			Name      string `json:"name"`
			Alias     string `json:"alias"`
			Longitude string `json:"longitude"`
			Latitude  string `json:"latitude"`
			TZ        string `json:"tz"`
		}
		entries := make([]entry, len(locations))
		for i, location := range locations {
			entries[i] = entry{
				Name:      location.Name(),
				Alias:     location.Alias,
				Longitude: location.Longitude,
				Latitude:  location.Latitude,
				TZ:        location.TZ,
			}
		}
		return writeJSON(w, map[string]interface{}{"locations": entries})
	default:
		table := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(table, "Location\tAlias\tLatitude/Longitude\tTimezone")
		for _, location := range locations {
			fmt.Fprintf(table, "%s\t%s\t%s/%s\t%s\n",
				location.Name(), location.Alias, location.Latitude, location.Longitude, location.TZ)
		}
		return table.Flush()
	}
}

// Summaries writes the per-location history summary report. Locations supply
// the display names; summaries missing a matching location fall back to the
// alias.
func Summaries(w io.Writer, format Format, locations []models.Location, summaries []models.HistorySummary) error {
	names := make(map[string]string, len(locations))
	for _, location := range locations {
		names[location.Alias] = location.Name()
	}
	displayName := func(alias string) string {
		if name, ok := names[alias]; ok {
			return name
		}
		return alias
	}

	switch format {
	case FormatCSV:
		writer := csv.NewWriter(w)
		if err := writer.Write([]string{"location", "entries", "entries_size", "compressed_size", "size"}); err != nil {
			return err
		}
		for _, summary := range summaries {
			record := []string{
				displayName(summary.Alias),
				fmt.Sprintf("%d", summary.Count),
				fmt.Sprintf("%d", summary.RawSize),
				fmt.Sprintf("%d", summary.CompressedSize),
				fmt.Sprintf("%d", summary.OverallSize),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	case FormatJSON:
		type entry struct {
			Location       string `json:"location"`
			Entries        int    `json:"entries"`
			EntriesSize    int64  `json:"entries_size"`
			CompressedSize int64  `json:"compressed_size"`
			Size           int64  `json:"size"`
		}
		entries := make([]entry, len(summaries))
		for i, summary := range summaries {
			entries[i] = entry{
				Location:       displayName(summary.Alias),
				Entries:        summary.Count,
				EntriesSize:    summary.RawSize,
				CompressedSize: summary.CompressedSize,
				Size:           summary.OverallSize,
			}
		}
		return writeJSON(w, map[string]interface{}{"location_summaries": entries})
	default:
		table := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(table, "Location\tOverall Size\tHistory Count\tHistory Size\tStore Size")
		var totals models.HistorySummary
		for _, summary := range summaries {
			fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\n",
				displayName(summary.Alias),
				kib(summary.OverallSize),
				commafy(int64(summary.Count)),
				kib(summary.RawSize),
				kib(summary.CompressedSize))
			totals.Count += summary.Count
			totals.OverallSize += summary.OverallSize
			totals.RawSize += summary.RawSize
			totals.CompressedSize += summary.CompressedSize
		}
		fmt.Fprintf(table, "Total\t%s\t%s\t%s\t%s\n",
			kib(totals.OverallSize),
			commafy(int64(totals.Count)),
			kib(totals.RawSize),
			kib(totals.CompressedSize))
		return table.Flush()
	}
}

// Dates writes the stored history dates report. Each location lists its date
// ranges one per row; locations with no history report "None".
func Dates(w io.Writer, format Format, dates []models.HistoryDates) error {
	switch format {
	case FormatCSV:
		writer := csv.NewWriter(w)
		if err := writer.Write([]string{"location", "start_date", "end_date"}); err != nil {
			return err
		}
		for _, histories := range dates {
			for _, dateRange := range histories.Ranges {
				record := []string{
					histories.Location.Name(),
					models.FormatDate(dateRange.Start),
					models.FormatDate(dateRange.End),
				}
				if err := writer.Write(record); err != nil {
					return err
				}
			}
		}
		writer.Flush()
		return writer.Error()
	case FormatJSON:
		type rangeEntry struct {
			Start string `json:"start"`
			End   string `json:"end"`
		}
		type entry struct {
			Location string       `json:"location"`
			Ranges   []rangeEntry `json:"ranges"`
		}
		entries := make([]entry, len(dates))
		for i, histories := range dates {
			ranges := make([]rangeEntry, len(histories.Ranges))
			for j, dateRange := range histories.Ranges {
				ranges[j] = rangeEntry{
					Start: models.FormatDate(dateRange.Start),
					End:   models.FormatDate(dateRange.End),
				}
			}
			entries[i] = entry{Location: histories.Location.Name(), Ranges: ranges}
		}
		return writeJSON(w, map[string]interface{}{"history_dates": entries})
	default:
		table := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(table, "Location\tHistory Dates")
		for _, histories := range dates {
			if len(histories.Ranges) == 0 {
				fmt.Fprintf(table, "%s\tNone\n", histories.Location.Name())
				continue
			}
			name := histories.Location.Name()
			for _, dateRange := range histories.Ranges {
				fmt.Fprintf(table, "%s\t%s\n", name, dateRangeText(dateRange))
				name = ""
			}
		}
		return table.Flush()
	}
}

// Histories writes the daily history report for one location.
func Histories(w io.Writer, format Format, daily models.DailyHistories) error {
	switch format {
	case FormatCSV:
		writer := csv.NewWriter(w)
		header := []string{
			"date", "temp_high", "temp_low", "temp_mean", "dew_point", "humidity",
			"precip_chance", "precip_type", "precip_amount", "wind_speed", "wind_gust",
			"wind_direction", "cloud_cover", "pressure", "uv_index", "summary",
		}
		if err := writer.Write(header); err != nil {
			return err
		}
		for _, history := range daily.Histories {
			record := []string{
				models.FormatDate(history.Date),
				floatText(history.TemperatureHigh),
				floatText(history.TemperatureLow),
				floatText(history.TemperatureMean),
				floatText(history.DewPoint),
				floatText(history.Humidity),
				floatText(history.PrecipitationChance),
				stringText(history.PrecipitationType),
				floatText(history.PrecipitationAmount),
				floatText(history.WindSpeed),
				floatText(history.WindGust),
				intText(history.WindDirection),
				floatText(history.CloudCover),
				floatText(history.Pressure),
				floatText(history.UVIndex),
				stringText(history.Description),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	case FormatJSON:
		return writeJSON(w, map[string]interface{}{
			"location":  daily.Location.Name(),
			"histories": daily.Histories,
		})
	default:
		table := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(table, "Date\tHigh\tLow\tMean\tHumidity\tPrecip\tWind\tSummary")
		for _, history := range daily.Histories {
			fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				models.FormatDate(history.Date),
				floatText(history.TemperatureHigh),
				floatText(history.TemperatureLow),
				floatText(history.TemperatureMean),
				floatText(history.Humidity),
				floatText(history.PrecipitationAmount),
				floatText(history.WindSpeed),
				stringText(history.Description))
		}
		return table.Flush()
	}
}

func dateRangeText(dateRange models.DateRange) string {
	if dateRange.IsOneDay() {
		return models.FormatDate(dateRange.Start)
	}
	return fmt.Sprintf("%s thru %s", models.FormatDate(dateRange.Start), models.FormatDate(dateRange.End))
}

func writeJSON(w io.Writer, document interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(document)
}

func floatText(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *v)
}

func intText(v *int64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func stringText(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// kib renders a byte count as whole kiB with thousands separators.
func kib(size int64) string {
	return commafy((size+512)/1024) + " kiB"
}

// commafy inserts thousands separators into a non-negative count.
func commafy(n int64) string {
	text := fmt.Sprintf("%d", n)
	if len(text) <= 3 {
		return text
	}
	var b strings.Builder
	lead := len(text) % 3
	if lead > 0 {
		b.WriteString(text[:lead])
	}
	for i := lead; i < len(text); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(text[i : i+3])
	}
	return b.String()
}
