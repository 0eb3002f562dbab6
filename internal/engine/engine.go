// internal/engine/engine.go
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"formsync/internal/common/config"
	commonerrors "formsync/internal/common/errors"
	"formsync/internal/common/logger"
	"formsync/internal/dedup"
	"formsync/internal/google"
	"formsync/internal/sink"
	"formsync/internal/tabular"
)

// Outcome classifies one completed sync cycle.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeNoData    Outcome = "no_data"
)

// Result reports what a successful cycle did.
type Result struct {
	Outcome      Outcome
	Rows         int
	ArtifactPath string
}

// PrimarySource answers structured response queries for one source and
// resolves its linked fallback spreadsheet.
type PrimarySource interface {
	ListResponses(ctx context.Context, sourceID string) ([]google.FormResponse, error)
	LinkedSheet(ctx context.Context, sourceID string) (string, error)
}

// FallbackSource reads the raw grid backing a source.
type FallbackSource interface {
	FirstSheetGrid(ctx context.Context, spreadsheetID string) ([][]string, error)
}

// Engine runs one retrieval cycle for one configured source: primary
// fetch, fallback, normalization, dedup filtering and delivery. Dedup
// state is only advanced after the sink confirms delivery, so a failed
// delivery is retried wholesale on the next cycle.
type Engine struct {
	primary  PrimarySource
	fallback FallbackSource
	store    dedup.Store
	sinks    map[string]sink.Sink
	logger   logger.Logger
}

func New(primary PrimarySource, fallback FallbackSource, store dedup.Store, sinks map[string]sink.Sink, log logger.Logger) *Engine {
	return &Engine{
		primary:  primary,
		fallback: fallback,
		store:    store,
		sinks:    sinks,
		logger:   log,
	}
}

// Sync executes one cycle for src. Per-cycle failures are returned to
// the caller for reporting; they never carry partial dedup state.
func (e *Engine) Sync(ctx context.Context, src config.SourceConfig) (Result, error) {
	table, ok, err := e.retrieve(ctx, src)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Outcome: OutcomeNoData}, nil
	}

	fresh, keys, err := e.filterNew(ctx, src, table)
	if err != nil {
		return Result{}, err
	}
	if fresh.IsEmpty() {
		return Result{Outcome: OutcomeNoData}, nil
	}

	deliverable := fresh
	if src.DeliveryMode == config.DeliveryModeExport && src.SingleColumn != "" {
		deliverable, err = extractColumn(fresh, src.SingleColumn)
		if err != nil {
			return Result{}, err
		}
	}

	target, err := e.sinkFor(src)
	if err != nil {
		return Result{}, err
	}

	res, err := target.Deliver(ctx, src, deliverable)
	if err != nil {
		return Result{}, err
	}

	// delivered; only now does the store learn about these rows
	for _, key := range keys {
		if err := e.store.MarkDelivered(ctx, key); err != nil {
			return Result{}, err
		}
	}

	return Result{
		Outcome:      OutcomeDelivered,
		Rows:         len(fresh.Rows),
		ArtifactPath: res.ArtifactPath,
	}, nil
}

// retrieve tries the primary path and falls back to the linked
// spreadsheet when the primary yields nothing usable. The bool result
// is false when neither path produced data.
func (e *Engine) retrieve(ctx context.Context, src config.SourceConfig) (tabular.Table, bool, error) {
	records, err := e.primary.ListResponses(ctx, src.ID)
	if err != nil {
		e.logger.Warn("primary retrieval unavailable, trying fallback", map[string]interface{}{
			"source": src.ID,
			"error":  err.Error(),
		})
	} else if len(records) > 0 {
		table := tabular.Remap(tabular.NormalizePrimary(records), src.ColumnMapping)
		return table, true, nil
	}

	sheetID, err := e.fallbackSheet(ctx, src)
	if err != nil || sheetID == "" {
		return tabular.Table{}, false, nil
	}

	grid, err := e.fallback.FirstSheetGrid(ctx, sheetID)
	if err != nil {
		e.logger.Warn("fallback retrieval unavailable", map[string]interface{}{
			"source": src.ID,
			"sheet":  sheetID,
			"error":  err.Error(),
		})
		return tabular.Table{}, false, nil
	}

	// no column mapping on the fallback path; header text is already
	// display text
	table := tabular.NormalizeFallback(grid)
	return table, !table.IsEmpty(), nil
}

func (e *Engine) fallbackSheet(ctx context.Context, src config.SourceConfig) (string, error) {
	sheetID, err := e.primary.LinkedSheet(ctx, src.ID)
	if err != nil {
		e.logger.Warn("fallback discovery failed", map[string]interface{}{
			"source": src.ID,
			"error":  err.Error(),
		})
		return "", err
	}
	return sheetID, nil
}

// filterNew keeps rows the store has not seen, without marking them.
// A key repeated within one batch survives only once. The returned
// keys parallel the kept rows.
func (e *Engine) filterNew(ctx context.Context, src config.SourceConfig, table tabular.Table) (tabular.Table, []string, error) {
	kept := table
	kept.Rows = nil

	var keys []string
	inBatch := make(map[string]bool)

	for r, row := range table.Rows {
		key := dedupKey(src.ID, table, r)
		if inBatch[key] {
			continue
		}
		inBatch[key] = true

		isNew, err := e.store.IsNew(ctx, key)
		if err != nil {
			// a broken store must fail the cycle, never skip the check
			return tabular.Table{}, nil, err
		}
		if !isNew {
			continue
		}
		kept.Rows = append(kept.Rows, row)
		keys = append(keys, key)
	}

	return kept, keys, nil
}

// dedupKey is the row's record_id when present. Fallback-path rows
// have no record identifier, so their key is a content hash scoped to
// the source; an unchanged row stays delivered, an edited row counts
// as new.
func dedupKey(sourceID string, table tabular.Table, row int) string {
	if id := table.Rows[row][tabular.ColumnRecordID]; id != "" {
		return id
	}

	h := sha256.New()
	h.Write([]byte(sourceID))
	for i, col := range table.Columns {
		h.Write([]byte{0})
		h.Write([]byte(col))
		h.Write([]byte{0})
		h.Write([]byte(table.CellAt(row, i)))
	}
	return "row:" + hex.EncodeToString(h.Sum(nil))
}

func extractColumn(table tabular.Table, column string) (tabular.Table, error) {
	if !table.HasColumn(column) {
		return tabular.Table{}, commonerrors.NewSchemaMismatchError(column, table.Columns)
	}

	out := tabular.Table{Columns: []string{column}}
	for _, row := range table.Rows {
		out.Rows = append(out.Rows, tabular.Row{column: row[column]})
	}
	return out, nil
}

func (e *Engine) sinkFor(src config.SourceConfig) (sink.Sink, error) {
	var name string
	switch src.DeliveryMode {
	case config.DeliveryModeExport:
		name = "export"
	default:
		name = src.Channel
	}

	s, ok := e.sinks[name]
	if !ok {
		return nil, commonerrors.NewConfigInvalidError("no sink configured for " + name)
	}
	return s, nil
}
