package services

import (
	"regexp"
	"strings"

	"scribeflow/internal/models"
)

// cellDelimiter is a run of two or more whitespace characters. OCR output
// spaces words inconsistently, so a single space is intra-cell content; only
// a wider gap marks a column boundary.
var cellDelimiter = regexp.MustCompile(`\s{2,}`)

// PageAdvisory flags a page that yielded zero structured rows. This is not a
// failure; the page simply had no recognizable tabular content.
type PageAdvisory struct {
	Page int // 1-based
}

// StructurePage converts one page's raw OCR text into rows of cells. Lines
// that are empty after trimming are dropped; the rest are split on whitespace
// runs. Rows stay ragged: no column-count normalization happens here.
func StructurePage(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rows = append(rows, cellDelimiter.Split(line, -1))
	}
	return rows
}

// StructurePages structures every page of a document in page order and
// reports an advisory per page that contributed nothing.
func StructurePages(pages []string) (models.StructuredRecord, []PageAdvisory) {
	var record models.StructuredRecord
	var advisories []PageAdvisory
	for i, text := range pages {
		rows := StructurePage(text)
		if len(rows) == 0 {
			advisories = append(advisories, PageAdvisory{Page: i + 1})
			continue
		}
		record.Rows = append(record.Rows, rows...)
	}
	return record, advisories
}
