package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-history/internal/models"
)

func TestParseRangeArgs(t *testing.T) {
	dateRange, err := parseRangeArgs([]string{"2024-07-01", "2024-07-04"})
	require.NoError(t, err)
	assert.Equal(t, models.NewDate(2024, time.July, 1), dateRange.Start)
	assert.Equal(t, models.NewDate(2024, time.July, 4), dateRange.End)
}

func TestParseRangeArgsSingleDay(t *testing.T) {
	dateRange, err := parseRangeArgs([]string{"2024-07-01"})
	require.NoError(t, err)
	assert.True(t, dateRange.IsOneDay())
}

func TestParseRangeArgsRejectsBadInput(t *testing.T) {
	_, err := parseRangeArgs([]string{"July 1st"})
	assert.Error(t, err)

	_, err = parseRangeArgs([]string{"2024-07-01", "first of July"})
	assert.Error(t, err)

	_, err = parseRangeArgs([]string{"2024-07-04", "2024-07-01"})
	assert.Error(t, err)
}

func TestBuildFilters(t *testing.T) {
	listCity = ""
	listState = ""
	assert.Empty(t, buildFilters(nil))

	filters := buildFilters([]string{"Foot*", "medina"})
	require.Len(t, filters, 2)
	assert.Equal(t, "Foot*", filters[0].Name)
	assert.Equal(t, "medina", filters[1].Name)

	listState = "OH"
	defer func() { listState = "" }()
	filters = buildFilters([]string{"Foot*"})
	require.Len(t, filters, 2)
	assert.Equal(t, "OH", filters[1].State)
}
