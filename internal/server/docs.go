package server

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the query API.
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	dateParam := func(name, description string, required bool) map[string]interface{} {
		return map[string]interface{}{
			"name":        name,
			"in":          "query",
			"description": description,
			"required":    required,
			"schema":      map[string]string{"type": "string", "format": "date"},
		}
	}
	filterParam := func(name, description string) map[string]interface{} {
		return map[string]interface{}{
			"name":        name,
			"in":          "query",
			"description": description,
			"required":    false,
			"schema":      map[string]string{"type": "string"},
		}
	}
	aliasParam := map[string]interface{}{
		"name":        "alias",
		"in":          "path",
		"description": "Location alias",
		"required":    true,
		"schema":      map[string]string{"type": "string"},
	}

	locationSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"city":      map[string]string{"type": "string"},
			"state":     map[string]string{"type": "string"},
			"state_id":  map[string]string{"type": "string"},
			"alias":     map[string]string{"type": "string"},
			"latitude":  map[string]string{"type": "string"},
			"longitude": map[string]string{"type": "string"},
			"tz":        map[string]string{"type": "string"},
		},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Weather History API",
			"description": "Read-only queries over cataloged locations and their stored weather histories",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local server"},
		},
		"paths": map[string]interface{}{
			"/api/v1/locations": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List locations",
					"description": "List cataloged locations with optional wildcard filters",
					"parameters": []map[string]interface{}{
						filterParam("city", "Filter by city pattern"),
						filterParam("state", "Filter by state name or abbreviation pattern"),
						filterParam("name", "Filter by location name or alias pattern"),
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Matching locations",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"locations": map[string]interface{}{"type": "array", "items": locationSchema},
											"count":     map[string]string{"type": "integer"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/v1/locations/{alias}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Get a location",
					"parameters": []map[string]interface{}{aliasParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "The location",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{"schema": locationSchema},
							},
						},
						"404": map[string]interface{}{"description": "Unknown alias"},
					},
				},
			},
			"/api/v1/locations/{alias}/histories": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get daily histories",
					"description": "Get the stored daily histories for a location over an inclusive date range",
					"parameters": []map[string]interface{}{
						aliasParam,
						dateParam("start", "First date of the range (YYYY-MM-DD)", true),
						dateParam("end", "Last date of the range, defaults to start", false),
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "The daily histories"},
						"400": map[string]interface{}{"description": "Malformed date range"},
						"404": map[string]interface{}{"description": "Unknown alias"},
					},
				},
			},
			"/api/v1/locations/{alias}/dates": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get stored history dates",
					"description": "Get a location's stored dates collapsed into contiguous ranges",
					"parameters":  []map[string]interface{}{aliasParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "The collapsed date ranges"},
						"404": map[string]interface{}{"description": "Unknown alias"},
					},
				},
			},
			"/api/v1/summaries": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get history summaries",
					"description": "Get per-location history counts and byte totals",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "The summaries"},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its database are reachable",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "API is healthy"},
						"503": map[string]interface{}{"description": "Database is unreachable"},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Prometheus metrics in text format"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
