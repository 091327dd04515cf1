package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scribeflow/internal/models"
	"scribeflow/internal/recognize"
)

// ProgressFunc receives the completed fraction in [0,1] after every processed
// item, successful or not.
type ProgressFunc func(fraction float64)

// Runner executes one batch: recognition, then structuring or classification
// per item, then ordered accumulation. Items are processed strictly in input
// order, one at a time; a per-item failure is recorded and the batch moves
// on, while an unavailable engine aborts the whole run.
type Runner struct {
	Adapter  *recognize.Adapter
	Opts     recognize.Options
	Progress ProgressFunc
}

// RunResult pairs the aggregate with the per-item statuses. The aggregate is
// computed once; callers reuse the same table for both preview and export.
type RunResult struct {
	Table    models.AggregatedTable
	Statuses []models.PerItemStatus
}

// Run processes the items of one media kind. Items whose declared kind does
// not match the batch kind fail individually without stopping the run.
func (r *Runner) Run(ctx context.Context, kind models.MediaKind, items []models.InputItem) (*RunResult, error) {
	logCtx := slog.With("kind", string(kind), "items", len(items))
	logCtx.Info("Starting batch run.")

	if err := r.Adapter.Verify(ctx, kind, r.Opts); err != nil {
		logCtx.Error("Recognition engine unavailable, aborting batch", "error", err)
		return nil, err
	}

	var (
		frames   []models.StructuredRecord
		records  []models.ClassificationRecord
		statuses = make([]models.PerItemStatus, 0, len(items))
	)

	for i, item := range items {
		// Cooperative cancellation: stop before starting the next item.
		select {
		case <-ctx.Done():
			logCtx.Info("Batch cancelled between items.", "completed", i)
			return nil, ctx.Err()
		default:
		}

		itemLog := logCtx.With("item", item.Name, "index", i)

		status, err := r.processItem(ctx, itemLog, kind, item, &frames, &records)
		if err != nil {
			// Engine broke mid-batch: abort with no partial table.
			logCtx.Error("Recognition engine became unavailable mid-batch", "error", err)
			return nil, err
		}
		statuses = append(statuses, status)

		if r.Progress != nil {
			r.Progress(float64(i+1) / float64(len(items)))
		}
	}

	source := ""
	if len(items) > 0 {
		source = items[0].Name
	}
	table := BuildTable(kind, r.Adapter.Tag(kind), source, frames, records)
	logCtx.Info("Batch run complete.", "rows", len(table.Rows), "records", len(table.Records))
	return &RunResult{Table: table, Statuses: statuses}, nil
}

// processItem runs one item end to end and reports its status. Content-level
// failures are absorbed into the status; only engine unavailability and a
// dead context (cancelled or past its deadline) escape as an error, which
// aborts the batch.
func (r *Runner) processItem(ctx context.Context, itemLog *slog.Logger, kind models.MediaKind, item models.InputItem, frames *[]models.StructuredRecord, records *[]models.ClassificationRecord) (models.PerItemStatus, error) {
	if item.Kind != kind {
		itemLog.Warn("Item kind does not match batch kind, skipping.", "itemKind", string(item.Kind))
		return models.PerItemStatus{
			Item:    item.Name,
			Outcome: models.OutcomeFailed,
			Detail:  fmt.Sprintf("item kind %q does not match batch kind %q", item.Kind, kind),
		}, nil
	}

	res, err := r.Adapter.Recognize(ctx, item, r.Opts)
	if err != nil {
		if IsAbort(err) {
			return models.PerItemStatus{}, err
		}
		itemLog.Error("Recognition failed for item", "error", err)
		if kind == models.KindAudio {
			// The failure stays visible in the final table rather than being
			// silently dropped.
			*records = append(*records, models.ClassificationRecord{
				Source:     item.Name,
				Conclusion: models.ConclusionError,
				Reason:     err.Error(),
			})
		}
		return models.PerItemStatus{Item: item.Name, Outcome: models.OutcomeFailed, Detail: err.Error()}, nil
	}

	switch kind {
	case models.KindDocument:
		record, advisories := StructurePages(res.Segments)
		for _, adv := range advisories {
			itemLog.Warn("No structured text found on page.", "page", adv.Page)
		}
		if len(record.Rows) == 0 {
			itemLog.Warn("Item contributed no structured rows.")
			return models.PerItemStatus{Item: item.Name, Outcome: models.OutcomeNoContent}, nil
		}
		*frames = append(*frames, record)
		return models.PerItemStatus{Item: item.Name, Outcome: models.OutcomeOK, Rows: len(record.Rows)}, nil

	default: // models.KindAudio
		transcript := ""
		if len(res.Segments) > 0 {
			transcript = res.Segments[0]
		}
		conclusion, reason := Classify(transcript)
		*records = append(*records, models.ClassificationRecord{
			Source:     item.Name,
			Conclusion: conclusion,
			Reason:     reason,
			Excerpt:    Excerpt(transcript),
		})
		return models.PerItemStatus{Item: item.Name, Outcome: models.OutcomeOK, Rows: 1}, nil
	}
}

// IsAbort reports whether the runner error ends the batch without a partial
// table (engine setup failure, cancellation, or an expired deadline), as
// opposed to a per-item error, which never surfaces from Run.
func IsAbort(err error) bool {
	return errors.Is(err, recognize.ErrEngineUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
