package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"weather-history/internal/index"
	"weather-history/internal/models"
	"weather-history/pkg/database"
	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

// Handler serves read-only queries against the secondary index. Writes go
// through the CLI; the server never touches the archives or the catalog.
type Handler struct {
	ix      *index.Index
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewHandler creates a query handler.
func NewHandler(ix *index.Index, db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Handler {
	return &Handler{
		ix:      ix,
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type locationsResponse struct {
	Locations []models.Location `json:"locations"`
	Count     int               `json:"count"`
}

type historiesResponse struct {
	Location  models.Location  `json:"location"`
	Histories []models.History `json:"histories"`
	Count     int              `json:"count"`
}

type datesResponse struct {
	Alias  string   `json:"alias"`
	Ranges []string `json:"ranges"`
}

type summaryResponse struct {
	Alias          string `json:"alias"`
	Count          int    `json:"count"`
	RawSize        int64  `json:"raw_size"`
	CompressedSize int64  `json:"compressed_size"`
}

// GetLocations handles GET /api/v1/locations with optional city, state, and
// name filter parameters. Filters support * wildcards and combine with AND.
func (h *Handler) GetLocations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("get_locations").Observe(time.Since(start).Seconds())
	}()

	query := r.URL.Query()
	filter := models.LocationFilter{
		City:  query.Get("city"),
		State: query.Get("state"),
		Name:  query.Get("name"),
	}
	var filters models.LocationFilters
	if !filter.IsEmpty() {
		filters = models.LocationFilters{filter}
	}

	locations, err := h.ix.Locations(r.Context(), filters)
	if err != nil {
		h.logger.Error(r.Context(), "[API_ERROR] Failed to query locations", logging.Fields{
			"endpoint": "get_locations",
		}, err)
		h.metrics.RecordAPIError("internal_error", "get_locations")
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Failed to query locations")
		return
	}

	h.metrics.RecordAPIRequest("get_locations", "GET", "200")
	h.sendJSON(w, http.StatusOK, locationsResponse{Locations: locations, Count: len(locations)})
}

// GetLocation handles GET /api/v1/locations/{alias}.
func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("get_location").Observe(time.Since(start).Seconds())
	}()

	alias := mux.Vars(r)["alias"]
	location, err := h.ix.Location(r.Context(), alias)
	if err != nil {
		h.handleLookupError(w, r, "get_location", alias, err)
		return
	}

	h.metrics.RecordAPIRequest("get_location", "GET", "200")
	h.sendJSON(w, http.StatusOK, location)
}

// GetHistories handles GET /api/v1/locations/{alias}/histories. The start
// parameter is required; end defaults to start for single-day queries.
func (h *Handler) GetHistories(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("get_histories").Observe(time.Since(start).Seconds())
	}()

	alias := mux.Vars(r)["alias"]
	dateRange, ok := h.parseDateRange(w, r, "get_histories")
	if !ok {
		return
	}

	location, err := h.ix.Location(r.Context(), alias)
	if err != nil {
		h.handleLookupError(w, r, "get_histories", alias, err)
		return
	}

	daily, err := h.ix.DailyHistories(r.Context(), location, dateRange)
	if err != nil {
		h.logger.Error(r.Context(), "[API_ERROR] Failed to query histories", logging.Fields{
			"endpoint": "get_histories",
			"alias":    alias,
		}, err)
		h.metrics.RecordAPIError("internal_error", "get_histories")
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Failed to query histories")
		return
	}

	h.metrics.RecordAPIRequest("get_histories", "GET", "200")
	h.sendJSON(w, http.StatusOK, historiesResponse{
		Location:  daily.Location,
		Histories: daily.Histories,
		Count:     len(daily.Histories),
	})
}

// GetDates handles GET /api/v1/locations/{alias}/dates and returns the stored
// dates collapsed into contiguous ranges.
func (h *Handler) GetDates(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("get_dates").Observe(time.Since(start).Seconds())
	}()

	alias := mux.Vars(r)["alias"]
	location, err := h.ix.Location(r.Context(), alias)
	if err != nil {
		h.handleLookupError(w, r, "get_dates", alias, err)
		return
	}

	dates, err := h.ix.HistoryDates(r.Context(), location)
	if err != nil {
		h.logger.Error(r.Context(), "[API_ERROR] Failed to query history dates", logging.Fields{
			"endpoint": "get_dates",
			"alias":    alias,
		}, err)
		h.metrics.RecordAPIError("internal_error", "get_dates")
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Failed to query history dates")
		return
	}

	ranges := make([]string, len(dates.Ranges))
	for i, dateRange := range dates.Ranges {
		ranges[i] = dateRange.String()
	}

	h.metrics.RecordAPIRequest("get_dates", "GET", "200")
	h.sendJSON(w, http.StatusOK, datesResponse{Alias: dates.Alias, Ranges: ranges})
}

// GetSummaries handles GET /api/v1/summaries.
func (h *Handler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("get_summaries").Observe(time.Since(start).Seconds())
	}()

	summaries, err := h.ix.Summaries(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "[API_ERROR] Failed to query summaries", logging.Fields{
			"endpoint": "get_summaries",
		}, err)
		h.metrics.RecordAPIError("internal_error", "get_summaries")
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Failed to query summaries")
		return
	}

	response := make([]summaryResponse, len(summaries))
	for i, summary := range summaries {
		response[i] = summaryResponse{
			Alias:          summary.Alias,
			Count:          summary.Count,
			RawSize:        summary.RawSize,
			CompressedSize: summary.CompressedSize,
		}
	}

	h.metrics.RecordAPIRequest("get_summaries", "GET", "200")
	h.sendJSON(w, http.StatusOK, response)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		h.sendJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) parseDateRange(w http.ResponseWriter, r *http.Request, endpoint string) (models.DateRange, bool) {
	query := r.URL.Query()
	startText := query.Get("start")
	if startText == "" {
		h.metrics.RecordAPIError("invalid_request", endpoint)
		h.sendError(w, http.StatusBadRequest, "invalid_request", "start parameter is required")
		return models.DateRange{}, false
	}
	startDate, err := models.ParseDate(startText)
	if err != nil {
		h.metrics.RecordAPIError("invalid_request", endpoint)
		h.sendError(w, http.StatusBadRequest, "invalid_request", "start must be formatted YYYY-MM-DD")
		return models.DateRange{}, false
	}
	endDate := startDate
	if endText := query.Get("end"); endText != "" {
		endDate, err = models.ParseDate(endText)
		if err != nil {
			h.metrics.RecordAPIError("invalid_request", endpoint)
			h.sendError(w, http.StatusBadRequest, "invalid_request", "end must be formatted YYYY-MM-DD")
			return models.DateRange{}, false
		}
	}
	dateRange := models.NewDateRange(startDate, endDate)
	if !dateRange.Valid() {
		h.metrics.RecordAPIError("invalid_request", endpoint)
		h.sendError(w, http.StatusBadRequest, "invalid_request", "end must not precede start")
		return models.DateRange{}, false
	}
	return dateRange, true
}

func (h *Handler) handleLookupError(w http.ResponseWriter, r *http.Request, endpoint, alias string, err error) {
	var notFound *models.NotFoundError
	if errors.As(err, &notFound) {
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, http.StatusNotFound, "not_found", "Location not found: "+alias)
		return
	}
	h.logger.Error(r.Context(), "[API_ERROR] Failed to look up location", logging.Fields{
		"endpoint": endpoint,
		"alias":    alias,
	}, err)
	h.metrics.RecordAPIError("internal_error", endpoint)
	h.sendError(w, http.StatusInternalServerError, "internal_error", "Failed to look up location")
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error(context.Background(), "[API_ERROR] Failed to encode response", logging.Fields{}, err)
	}
}

func (h *Handler) sendError(w http.ResponseWriter, status int, errorType, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: message,
		Code:    status,
	})
}

// RegisterRoutes registers every query route on the router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/locations", h.GetLocations).Methods("GET")
	api.HandleFunc("/locations/{alias}", h.GetLocation).Methods("GET")
	api.HandleFunc("/locations/{alias}/histories", h.GetHistories).Methods("GET")
	api.HandleFunc("/locations/{alias}/dates", h.GetDates).Methods("GET")
	api.HandleFunc("/summaries", h.GetSummaries).Methods("GET")

	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
