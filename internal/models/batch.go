package models

import "strings"

func hasSuffixFold(s, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(s), suffix)
}

// MediaKind declares how an input item's payload should be recognized.
type MediaKind string

const (
	KindDocument MediaKind = "document"
	KindAudio    MediaKind = "audio"
)

// KindForFile infers the media kind from a filename extension. The second
// return is false for extensions the pipeline does not accept.
func KindForFile(name string) (MediaKind, bool) {
	switch {
	case hasSuffixFold(name, ".pdf"):
		return KindDocument, true
	case hasSuffixFold(name, ".mp3"), hasSuffixFold(name, ".wav"):
		return KindAudio, true
	}
	return "", false
}

// InputItem is a single uploaded file. It is immutable once ingested and
// lives only for the duration of one batch run.
type InputItem struct {
	Name string
	Data []byte
	Kind MediaKind
}

// RecognitionResult carries the raw recognizer output for one item: one text
// segment per page on the document path, a single whole-item segment on the
// audio path. Segments preserve page order.
type RecognitionResult struct {
	ItemName  string
	Segments  []string
	EngineTag string
}

// StructuredRecord is the tabular form of one document item. Rows are ragged:
// there is no declared schema, so column counts may differ row to row.
type StructuredRecord struct {
	Rows [][]string
}

// Conclusion is the categorical outcome derived from a call transcript.
type Conclusion string

const (
	ConclusionAccepted Conclusion = "Accepted"
	ConclusionDeclined Conclusion = "Declined"
	ConclusionUnclear  Conclusion = "Unclear"
	// ConclusionError marks an audio item whose recognition failed. The
	// failure stays visible in the exported table instead of being dropped.
	ConclusionError Conclusion = "Error"
)

// ClassificationRecord is the outcome for one audio item.
type ClassificationRecord struct {
	Source     string
	Conclusion Conclusion
	Reason     string
	Excerpt    string
}

// AggregatedTable merges per-item results in submission order. Exactly one of
// Rows or Records is populated, depending on the batch's media kind.
type AggregatedTable struct {
	Kind      MediaKind
	EngineTag string
	// Source is the base name of the primary (first) input, used to derive
	// the export filename deterministically.
	Source  string
	Rows    [][]string
	Records []ClassificationRecord
}

// IsEmpty reports whether the batch produced no rows and no records.
func (t AggregatedTable) IsEmpty() bool {
	return len(t.Rows) == 0 && len(t.Records) == 0
}

// ItemOutcome is the terminal state of one item within a batch.
type ItemOutcome string

const (
	OutcomeOK        ItemOutcome = "ok"
	OutcomeFailed    ItemOutcome = "failed"
	OutcomeNoContent ItemOutcome = "no_content"
)

// PerItemStatus records how one item fared. The batch runner emits exactly
// one status per input item, in input order, regardless of success.
type PerItemStatus struct {
	Item    string      `json:"item"`
	Outcome ItemOutcome `json:"outcome"`
	Detail  string      `json:"detail,omitempty"`
	Rows    int         `json:"rows"`
}

// ExportArtifact is the downloadable result of a batch: an immutable byte
// buffer plus the metadata a download surface needs to serve it.
type ExportArtifact struct {
	Data        []byte
	ContentType string
	Filename    string
}
