package main

import (
	"os"

	"github.com/spf13/cobra"

	"weather-history/internal/models"
	"weather-history/internal/reports"
)

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Location catalog commands",
	Long:  `List the cataloged locations or add a new one.`,
}

var locationsListCmd = &cobra.Command{
	Use:   "list [pattern]...",
	Short: "List cataloged locations",
	Long: `List cataloged locations. Positional patterns match the location name or
alias and combine with OR; the city and state flags combine with AND into one
additional filter. Patterns support a leading and/or trailing *.`,
	RunE: runLocationsList,
}

var locationsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a location to the catalog",
	Long:  `Validate and add a location to the catalog and create its empty history archive.`,
	RunE:  runLocationsAdd,
}

var (
	listCity   string
	listState  string
	listFormat string

	addCity      string
	addState     string
	addStateID   string
	addAlias     string
	addLatitude  string
	addLongitude string
	addTZ        string
)

func init() {
	rootCmd.AddCommand(locationsCmd)
	locationsCmd.AddCommand(locationsListCmd)
	locationsCmd.AddCommand(locationsAddCmd)

	locationsListCmd.Flags().StringVar(&listCity, "city", "", "Filter by city pattern")
	locationsListCmd.Flags().StringVar(&listState, "state", "", "Filter by state name or abbreviation pattern")
	locationsListCmd.Flags().StringVarP(&listFormat, "format", "f", "text", "Output format (text, csv, json)")

	locationsAddCmd.Flags().StringVar(&addCity, "city", "", "City name")
	locationsAddCmd.Flags().StringVar(&addState, "state", "", "Full state name")
	locationsAddCmd.Flags().StringVar(&addStateID, "state-id", "", "Abbreviated state name")
	locationsAddCmd.Flags().StringVar(&addAlias, "alias", "", "Unique lowercase alias")
	locationsAddCmd.Flags().StringVar(&addLatitude, "latitude", "", "Latitude in decimal degrees")
	locationsAddCmd.Flags().StringVar(&addLongitude, "longitude", "", "Longitude in decimal degrees")
	locationsAddCmd.Flags().StringVar(&addTZ, "tz", "", "IANA timezone name")
}

// buildFilters turns positional name patterns and the city/state flags into
// an OR-combined filter collection. No patterns and no flags means match all.
func buildFilters(args []string) models.LocationFilters {
	var filters models.LocationFilters
	for _, pattern := range args {
		filters = append(filters, models.LocationFilter{Name: pattern})
	}
	flagFilter := models.LocationFilter{City: listCity, State: listState}
	if !flagFilter.IsEmpty() {
		filters = append(filters, flagFilter)
	}
	return filters
}

func runLocationsList(cmd *cobra.Command, args []string) error {
	format, err := reports.ParseFormat(listFormat)
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	found, err := a.store.Find(buildFilters(args))
	if err != nil {
		return err
	}
	return reports.Locations(os.Stdout, format, found)
}

func runLocationsAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{createStore: true})
	if err != nil {
		return err
	}
	defer a.Close()

	added, err := a.store.Add(models.Location{
		City:      addCity,
		State:     addState,
		StateID:   addStateID,
		Alias:     addAlias,
		Latitude:  addLatitude,
		Longitude: addLongitude,
		TZ:        addTZ,
	})
	if err != nil {
		return err
	}

	cmd.Printf("Added %s (%s)\n", added.Name(), added.Alias)
	return nil
}
