package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"meterr-hq/io/pkg/costs"
	"meterr-hq/io/pkg/ledger"
)

// columnAliases maps each logical field to the header names providers use
// for it, in preference order.
var columnAliases = map[string][]string{
	"timestamp":         {"timestamp", "date"},
	"model":             {"model", "model_name"},
	"prompt_tokens":     {"n_prompt_tokens", "prompt_tokens", "input_tokens"},
	"completion_tokens": {"n_completion_tokens", "completion_tokens", "output_tokens"},
	"request_id":        {"request_id"},
}

// timestampLayouts are the accepted timestamp formats, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Importer reconciles CSV usage exports into the ledger.
type Importer struct {
	store  ledger.Store
	calc   *costs.Calculator
	logger *slog.Logger
}

// NewImporter creates an importer writing through store and pricing rows
// with calc.
func NewImporter(store ledger.Store, calc *costs.Calculator) *Importer {
	return &Importer{
		store:  store,
		calc:   calc,
		logger: slog.Default().With("component", "importer"),
	}
}

// columns maps logical field names to CSV column indexes.
type columns map[string]int

// resolveColumns matches the header row against the alias table. The
// timestamp, model and token columns are required; request_id is optional.
func resolveColumns(header []string) (columns, error) {
	cols := columns{}
	for i, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		for field, aliases := range columnAliases {
			if _, taken := cols[field]; taken {
				continue
			}
			for _, alias := range aliases {
				if normalized == alias {
					cols[field] = i
					break
				}
			}
		}
	}

	for _, required := range []string{"timestamp", "model", "prompt_tokens", "completion_tokens"} {
		if _, ok := cols[required]; !ok {
			return nil, &FatalError{Reason: fmt.Sprintf("no usable %s column in header", required)}
		}
	}
	return cols, nil
}

// Import reads a CSV export for one customer and provider, records every
// usable row and returns the batch report. Row-level failures are counted,
// not fatal; the returned error is non-nil only for unusable files or
// storage failures.
func (im *Importer) Import(ctx context.Context, customerID, provider string, r io.Reader) (*Batch, error) {
	if customerID == "" {
		return nil, &FatalError{Reason: "customer id is required"}
	}
	if provider == "" {
		return nil, &FatalError{Reason: "provider is required"}
	}

	batch := &Batch{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Provider:   provider,
		StartedAt:  time.Now().UTC(),
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	// A stray quote must spoil only its own row, never swallow the data
	// lines after it.
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, &FatalError{Reason: "cannot read header", Cause: err}
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	for rowNum := 1; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Rows the reader itself rejects still count toward the
			// batch total so TotalRows = Inserted + Duplicates + Malformed
			// holds for every report.
			batch.TotalRows++
			batch.reject(rowNum, fmt.Sprintf("unparseable row: %v", err))
			continue
		}
		if isBlank(record) {
			continue
		}
		batch.TotalRows++

		event, rowErr := im.buildEvent(batch, cols, record, rowNum)
		if rowErr != nil {
			batch.reject(rowNum, rowErr.Reason)
			continue
		}

		outcome, err := im.store.Record(ctx, event)
		if err != nil {
			// Storage failure is not a row problem; abort so the batch
			// can be retried cleanly. Idempotency makes the retry safe.
			return batch, fmt.Errorf("record row %d: %w", rowNum, err)
		}
		switch outcome {
		case ledger.OutcomeInserted:
			batch.Inserted++
			batch.TotalCost += event.CostAmount
		case ledger.OutcomeDuplicateSkipped:
			batch.Duplicates++
		}
	}

	batch.CompletedAt = time.Now().UTC()

	im.logger.Info("import batch completed",
		"batch_id", batch.ID,
		"customer_id", customerID,
		"provider", provider,
		"total_rows", batch.TotalRows,
		"inserted", batch.Inserted,
		"duplicates", batch.Duplicates,
		"malformed", batch.Malformed,
		"total_cost", batch.TotalCost.String(),
	)
	return batch, nil
}

// buildEvent turns one CSV record into a metering event.
func (im *Importer) buildEvent(batch *Batch, cols columns, record []string, rowNum int) (*ledger.MeteringEvent, *RowError) {
	get := func(field string) string {
		idx, ok := cols[field]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	occurredAt, err := parseTimestamp(get("timestamp"))
	if err != nil {
		return nil, &RowError{Row: rowNum, Reason: err.Error()}
	}

	model := get("model")
	if model == "" {
		return nil, &RowError{Row: rowNum, Reason: "missing model"}
	}

	promptTokens, err := parseTokens(get("prompt_tokens"), "prompt_tokens")
	if err != nil {
		return nil, &RowError{Row: rowNum, Reason: err.Error()}
	}
	completionTokens, err := parseTokens(get("completion_tokens"), "completion_tokens")
	if err != nil {
		return nil, &RowError{Row: rowNum, Reason: err.Error()}
	}
	if promptTokens == 0 && completionTokens == 0 {
		return nil, &RowError{Row: rowNum, Reason: "zero token counts"}
	}

	cost, err := im.calc.Calculate(batch.Provider, model, promptTokens, completionTokens, occurredAt)
	if err != nil {
		return nil, &RowError{Row: rowNum, Reason: fmt.Sprintf("cost calculation: %v", err)}
	}

	event := &ledger.MeteringEvent{
		CustomerID:        batch.CustomerID,
		Provider:          batch.Provider,
		Model:             model,
		PromptTokens:      promptTokens,
		CompletionTokens:  completionTokens,
		CostAmount:        cost.Amount,
		CostConfidence:    cost.Confidence,
		Source:            ledger.SourceImport,
		ProviderRequestID: get("request_id"),
		ImportBatchID:     batch.ID,
		OccurredAt:        occurredAt,
		RecordedAt:        time.Now().UTC(),
	}
	event.EventID = ledger.EventID(event)

	if err := event.Validate(); err != nil {
		return nil, &RowError{Row: rowNum, Reason: err.Error()}
	}
	return event, nil
}

// reject counts a malformed row and remembers the reason, up to the cap.
func (b *Batch) reject(rowNum int, reason string) {
	b.Malformed++
	if len(b.RowErrors) < maxRowErrors {
		b.RowErrors = append(b.RowErrors, RowError{Row: rowNum, Reason: reason})
	}
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	// Some exports use epoch seconds.
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseTokens(s, field string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative %s", field)
	}
	return n, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
