package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"

	"scribeflow/internal/gcp"
	"scribeflow/internal/models"
	"scribeflow/internal/recognize"
)

// WorkerConfig holds configuration for the batch worker service.
type WorkerConfig struct {
	ProjectID      string
	Region         string
	ArtifactBucket string
	Language       string
	DPI            int
}

// WorkerFunction holds dependencies for the batch worker logic: it downloads
// the named inputs, runs the pipeline, and uploads the export artifact.
type WorkerFunction struct {
	storageClient *storage.Client
	adapter       *recognize.Adapter
	config        WorkerConfig
}

// GCSEvent is the payload of a storage object-finalize trigger.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// NewWorker creates a new WorkerFunction instance.
func NewWorker(ctx context.Context) (*WorkerFunction, error) {
	config := WorkerConfig{
		ProjectID:      gcp.GetEnv("PROJECT_ID", ""),
		Region:         gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		ArtifactBucket: gcp.GetEnv("ARTIFACT_BUCKET", ""),
		Language:       gcp.GetEnv("OCR_LANGUAGE", recognize.DefaultLanguage),
	}
	if config.ArtifactBucket == "" {
		return nil, fmt.Errorf("ARTIFACT_BUCKET environment variable must be set")
	}
	if dpi, err := strconv.Atoi(gcp.GetEnv("OCR_DPI", "")); err == nil && dpi > 0 {
		config.DPI = dpi
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	adapter, err := recognize.Default(ctx, recognize.EngineConfig{
		ProjectID: config.ProjectID,
		Region:    config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize recognition engines: %w", err)
	}

	slog.Info("Batch worker initialized.", "artifactBucket", config.ArtifactBucket, "language", config.Language)
	return &WorkerFunction{
		storageClient: storageClient,
		adapter:       adapter,
		config:        config,
	}, nil
}

// Process handles one batch request end to end.
func (f *WorkerFunction) Process(ctx context.Context, req *models.BatchRequest) (*models.BatchResponse, error) {
	logCtx := slog.With("bucket", req.Bucket, "kind", req.Kind)
	logCtx.Info("Processing batch request.")

	kind := models.MediaKind(req.Kind)
	if kind != models.KindDocument && kind != models.KindAudio {
		return nil, fmt.Errorf("unsupported media kind %q", req.Kind)
	}

	objects := req.Objects
	if len(objects) == 0 {
		var err error
		objects, err = gcp.ListObjects(ctx, f.storageClient, req.Bucket, req.Prefix)
		if err != nil {
			logCtx.Error("Failed to list input objects", "error", err)
			return nil, err
		}
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("no input objects under gs://%s/%s", req.Bucket, req.Prefix)
	}

	items, err := f.downloadItems(ctx, req.Bucket, objects, kind)
	if err != nil {
		return nil, err
	}

	opts := recognize.Options{Language: f.config.Language, DPI: f.config.DPI, Deterministic: true}
	if req.Language != "" {
		opts.Language = req.Language
	}
	if req.DPI > 0 {
		opts.DPI = req.DPI
	}

	runner := &Runner{
		Adapter: f.adapter,
		Opts:    opts,
		Progress: func(fraction float64) {
			logCtx.Info("Batch progress.", "fraction", fraction)
		},
	}
	result, err := runner.Run(ctx, kind, items)
	if err != nil {
		logCtx.Error("Batch run failed", "error", err)
		return nil, err
	}

	if result.Table.IsEmpty() {
		logCtx.Warn("Batch produced no data; skipping export.")
		return &models.BatchResponse{Status: "empty", Statuses: result.Statuses}, nil
	}

	format := DefaultFormat(kind)
	if req.Format != "" {
		format = Format(req.Format)
	}
	artifact, err := Export(result.Table, format)
	if err != nil {
		logCtx.Error("Export failed; aggregate retained for retry", "error", err)
		return nil, err
	}

	bucketHandle := f.storageClient.Bucket(f.config.ArtifactBucket)
	if err := gcp.SaveToGCSAtomically(ctx, bucketHandle, artifact.Filename, artifact.Data); err != nil {
		logCtx.Error("Failed to upload artifact", "error", err, "object", artifact.Filename)
		return nil, err
	}
	artifactURI := fmt.Sprintf("gs://%s/%s", f.config.ArtifactBucket, artifact.Filename)
	logCtx.Info("Batch complete.", "artifact", artifactURI)

	// Preview and export both come from the one aggregate computed above.
	preview := tableRows(result.Table)
	if len(preview) > models.PreviewRows {
		preview = preview[:models.PreviewRows]
	}

	return &models.BatchResponse{
		Status:      "success",
		ArtifactURI: artifactURI,
		Filename:    artifact.Filename,
		ContentType: artifact.ContentType,
		RowCount:    len(result.Table.Rows) + len(result.Table.Records),
		Preview:     preview,
		Statuses:    result.Statuses,
	}, nil
}

// ProcessUpload handles a single GCS object-finalize event by running a
// one-item batch over the uploaded file.
func (f *WorkerFunction) ProcessUpload(ctx context.Context, e GCSEvent) error {
	kind, ok := models.KindForFile(e.Name)
	if !ok {
		slog.Info("Ignoring object with unsupported extension.", "gcsObject", e.Name)
		return nil
	}
	_, err := f.Process(ctx, &models.BatchRequest{
		Bucket:  e.Bucket,
		Objects: []string{e.Name},
		Kind:    string(kind),
	})
	return err
}

// downloadItems fetches the inputs concurrently but keeps their slots in
// request order; the sequential pipeline below sees them as submitted.
func (f *WorkerFunction) downloadItems(ctx context.Context, bucket string, objects []string, kind models.MediaKind) ([]models.InputItem, error) {
	items := make([]models.InputItem, len(objects))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(8)

	for i, object := range objects {
		eg.Go(func() error {
			data, err := gcp.FetchObject(gctx, f.storageClient, bucket, object)
			if err != nil {
				return err
			}
			items[i] = models.InputItem{Name: object, Data: data, Kind: kind}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to download inputs: %w", err)
	}
	return items, nil
}
