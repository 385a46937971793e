package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"meterr-hq/io/pkg/gateway/middleware"
)

// defaultWindow is the lookback applied when a query omits "from".
const defaultWindow = 30 * 24 * time.Hour

// queryTimeLayouts are accepted by from/to query parameters.
var queryTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02",
}

// handleAggregate serves GET /v1/usage/aggregate.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			"only GET is supported")
		return
	}

	customerID, from, to, ok := s.usageQuery(w, r)
	if !ok {
		return
	}

	agg, err := s.dependencies.Store.Aggregate(r.Context(), customerID, from, to)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "aggregate query failed",
			"customer_id", customerID,
			"error", err,
		)
		middleware.WriteError(w, http.StatusInternalServerError, "storage_error",
			"failed to aggregate usage")
		return
	}

	writeJSON(w, http.StatusOK, agg)
}

// handleEvents serves GET /v1/usage/events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			"only GET is supported")
		return
	}

	customerID, from, to, ok := s.usageQuery(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	events, err := s.dependencies.Store.ListEvents(r.Context(), customerID, from, to, limit, offset)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "event listing failed",
			"customer_id", customerID,
			"error", err,
		)
		middleware.WriteError(w, http.StatusInternalServerError, "storage_error",
			"failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"customer_id": customerID,
		"from":        from,
		"to":          to,
		"limit":       limit,
		"offset":      offset,
		"events":      events,
	})
}

// handleInsights serves GET /v1/insights.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			"only GET is supported")
		return
	}

	customerID, from, to, ok := s.usageQuery(w, r)
	if !ok {
		return
	}

	result, err := s.dependencies.Insights.Generate(r.Context(), customerID, from, to)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "insight generation failed",
			"customer_id", customerID,
			"error", err,
		)
		middleware.WriteError(w, http.StatusInternalServerError, "storage_error",
			"failed to generate insights")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"customer_id": customerID,
		"from":        from,
		"to":          to,
		"insights":    result,
	})
}

// usageQuery parses the common customer_id/from/to parameters. It
// writes the error response itself and returns ok=false on bad input.
func (s *Server) usageQuery(w http.ResponseWriter, r *http.Request) (customerID string, from, to time.Time, ok bool) {
	customerID = r.URL.Query().Get("customer_id")
	if customerID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request",
			"customer_id query parameter is required")
		return "", time.Time{}, time.Time{}, false
	}

	to = time.Now().UTC()
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := parseQueryTime(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_request",
				"invalid to timestamp: "+raw)
			return "", time.Time{}, time.Time{}, false
		}
		to = parsed
	}

	from = to.Add(-defaultWindow)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := parseQueryTime(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_request",
				"invalid from timestamp: "+raw)
			return "", time.Time{}, time.Time{}, false
		}
		from = parsed
	}

	if from.After(to) {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request",
			"from must not be after to")
		return "", time.Time{}, time.Time{}, false
	}

	return customerID, from, to, true
}

func parseQueryTime(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range queryTimeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, &queryError{name: name, raw: raw}
	}
	return value, nil
}

type queryError struct {
	name string
	raw  string
}

func (e *queryError) Error() string {
	return e.name + " must be a non-negative integer, got " + strconv.Quote(e.raw)
}

// writeJSON writes a JSON response. Encoding failures after the header
// is sent can only be logged.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("response encoding failed", "error", err)
	}
}
