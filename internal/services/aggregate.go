package services

import (
	"errors"

	"scribeflow/internal/models"
)

// ErrEmptyAggregate reports that the batch completed but extracted no data.
// It is a distinct outcome, not a processing failure: the export step is
// skipped and the operator sees "no data extracted" instead of an artifact.
var ErrEmptyAggregate = errors.New("no data extracted")

// BuildTable concatenates per-item results in processing order. No sorting,
// filtering, or deduplication happens here: the total order of the table is
// the submission order of the items, with page order preserved within each
// document item.
func BuildTable(kind models.MediaKind, engineTag, source string, frames []models.StructuredRecord, records []models.ClassificationRecord) models.AggregatedTable {
	table := models.AggregatedTable{
		Kind:      kind,
		EngineTag: engineTag,
		Source:    source,
		Records:   records,
	}
	for _, frame := range frames {
		table.Rows = append(table.Rows, frame.Rows...)
	}
	return table
}
