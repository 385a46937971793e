package gateway

import (
	"errors"
	"net/http"

	"meterr-hq/io/pkg/gateway/middleware"
	"meterr-hq/io/pkg/importer"
	"meterr-hq/io/pkg/upstream"
)

// handleImport serves POST /v1/imports. The CSV body is streamed into
// the importer; the finalized batch summary is returned as JSON.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			"only POST is supported")
		return
	}

	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		customerID = s.customerID(r)
	}
	if customerID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request",
			"customer_id query parameter or X-Customer-Id header is required")
		return
	}

	provider := r.URL.Query().Get("provider")
	switch provider {
	case upstream.ProviderOpenAI, upstream.ProviderAnthropic:
	case "":
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request",
			"provider query parameter is required")
		return
	default:
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request",
			"unknown provider "+provider)
		return
	}

	batch, err := s.dependencies.Importer.Import(r.Context(), customerID, provider, r.Body)
	if err != nil {
		var fatal *importer.FatalError
		if errors.As(err, &fatal) {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_import", fatal.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "import failed",
			"customer_id", customerID,
			"provider", provider,
			"error", err,
		)
		middleware.WriteError(w, http.StatusInternalServerError, "storage_error",
			"import aborted")
		return
	}

	s.logger.InfoContext(r.Context(), "import batch finished",
		"batch_id", batch.ID,
		"customer_id", customerID,
		"provider", provider,
		"total_rows", batch.TotalRows,
		"inserted", batch.Inserted,
		"duplicates", batch.Duplicates,
		"malformed", batch.Malformed,
	)
	if s.dependencies.Metrics != nil {
		s.dependencies.Metrics.RecordImportRows(provider,
			int64(batch.Inserted), int64(batch.Duplicates), int64(batch.Malformed))
	}

	writeJSON(w, http.StatusOK, batch)
}
