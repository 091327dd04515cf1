package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"scribeflow/internal/models"
)

// Format selects the artifact encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const (
	// SheetName is identical across runs so consumers can address the
	// worksheet deterministically.
	SheetName = "Merged_OCR_Result"

	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMECSV  = "text/csv"
)

// ErrExportFailed wraps serialization errors. The aggregated table is never
// mutated by Export, so a caller may retry without recomputing the batch.
var ErrExportFailed = errors.New("export failed")

// classificationHeader mirrors the ClassificationRecord field names; it is
// the header row of audio-path exports.
var classificationHeader = []string{"source", "conclusion", "reason", "excerpt"}

// DefaultFormat returns the conventional encoding for a media kind: a
// spreadsheet for document tables, a delimited file for call records.
func DefaultFormat(kind models.MediaKind) Format {
	if kind == models.KindAudio {
		return FormatCSV
	}
	return FormatXLSX
}

// Export serializes the aggregated table into a downloadable artifact. It is
// a pure function of the table: exporting the same table twice yields
// byte-identical artifacts (no timestamps are embedded).
//
// An empty table yields ErrEmptyAggregate; no artifact is produced.
func Export(table models.AggregatedTable, format Format) (models.ExportArtifact, error) {
	if table.IsEmpty() {
		return models.ExportArtifact{}, ErrEmptyAggregate
	}

	rows := tableRows(table)

	var (
		data []byte
		mime string
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = encodeCSV(rows)
		mime = MIMECSV
	case FormatXLSX:
		data, err = encodeXLSX(rows)
		mime = MIMEXLSX
	default:
		return models.ExportArtifact{}, fmt.Errorf("%w: unsupported format %q", ErrExportFailed, format)
	}
	if err != nil {
		return models.ExportArtifact{}, err
	}

	return models.ExportArtifact{
		Data:        data,
		ContentType: mime,
		Filename:    ArtifactName(table, format),
	}, nil
}

// ArtifactName derives the suggested filename deterministically from the
// primary input's base name and the recognition engine used.
func ArtifactName(table models.AggregatedTable, format Format) string {
	base := strings.TrimSuffix(filepath.Base(table.Source), filepath.Ext(table.Source))
	if base == "" || base == "." {
		base = "batch"
	}
	return fmt.Sprintf("%s_%s.%s", base, table.EngineTag, format)
}

// tableRows flattens the table into cell rows. Document tables carry no
// header (there is no declared schema); classification tables get a header
// derived from the record field names. Ragged rows are padded with empty
// trailing cells to the widest row, never truncated.
func tableRows(table models.AggregatedTable) [][]string {
	if table.Kind == models.KindAudio {
		rows := make([][]string, 0, len(table.Records)+1)
		rows = append(rows, classificationHeader)
		for _, rec := range table.Records {
			rows = append(rows, []string{rec.Source, string(rec.Conclusion), rec.Reason, rec.Excerpt})
		}
		return rows
	}
	return padRows(table.Rows)
}

func padRows(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	padded := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) == width {
			padded[i] = row
			continue
		}
		p := make([]string, width)
		copy(p, row)
		padded[i] = p
	}
	return padded
}

func encodeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("%w: write csv row: %v", ErrExportFailed, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("%w: flush csv: %v", ErrExportFailed, err)
	}
	return buf.Bytes(), nil
}

func encodeXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("%w: name sheet: %v", ErrExportFailed, err)
	}
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		start, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("%w: cell coordinates: %v", ErrExportFailed, err)
		}
		if err := f.SetSheetRow(SheetName, start, &cells); err != nil {
			return nil, fmt.Errorf("%w: write row %d: %v", ErrExportFailed, i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: serialize workbook: %v", ErrExportFailed, err)
	}
	return buf.Bytes(), nil
}
