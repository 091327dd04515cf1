package models

// These structs define the JSON payloads for HTTP requests and responses
// between callers (or the GCS event trigger) and the worker function.

// BatchRequest is the input for the worker's HTTP entry point. Either
// Objects names the GCS inputs explicitly, or Prefix selects every object
// under it; Objects wins when both are set. Order of Objects is the
// processing order.
type BatchRequest struct {
	Bucket   string   `json:"bucket"`
	Objects  []string `json:"objects,omitempty"`
	Prefix   string   `json:"prefix,omitempty"`
	Kind     string   `json:"kind"`
	Language string   `json:"language,omitempty"`
	DPI      int      `json:"dpi,omitempty"`
	Format   string   `json:"format,omitempty"`
}

// BatchResponse is the worker's output. Preview holds at most PreviewRows
// rows of the aggregate so the caller can sanity-check without downloading.
type BatchResponse struct {
	Status      string          `json:"status"`
	ArtifactURI string          `json:"artifactUri,omitempty"`
	Filename    string          `json:"filename,omitempty"`
	ContentType string          `json:"contentType,omitempty"`
	RowCount    int             `json:"rowCount"`
	Preview     [][]string      `json:"preview,omitempty"`
	Statuses    []PerItemStatus `json:"statuses"`
}

// PreviewRows bounds the preview slice in BatchResponse.
const PreviewRows = 15
