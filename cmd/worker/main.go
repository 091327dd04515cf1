package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"scribeflow/internal/models"
	"scribeflow/internal/services"
)

var (
	workerInstance *services.WorkerFunction
	once           sync.Once
	initErr        error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// HTTP entry for explicit batch requests, CloudEvent entry for
	// GCS-upload triggered single-file runs.
	functions.HTTP("RunBatch", handleRunBatch)
	functions.CloudEvent("ProcessUpload", processUpload)
}

// main is required by the Go Functions Framework.
func main() {}

func getWorker() (*services.WorkerFunction, error) {
	// sync.Once for robust, one-time initialization of clients and engines.
	once.Do(func() {
		workerInstance, initErr = services.NewWorker(context.Background())
	})
	return workerInstance, initErr
}

// handleRunBatch is the HTTP handler.
func handleRunBatch(w http.ResponseWriter, r *http.Request) {
	worker, err := getWorker()
	if err != nil {
		slog.Error("Critical error during worker initialization", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := worker.Process(r.Context(), &req)
	if err != nil {
		// The specific error is already logged inside Process; the message
		// itself goes back so the operator can diagnose without log access.
		http.Error(w, fmt.Sprintf("processing failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}

// processUpload is the CloudEvent entry point for GCS uploads.
func processUpload(ctx context.Context, e cloudevents.Event) error {
	worker, err := getWorker()
	if err != nil {
		slog.Error("Critical error during worker initialization", "error", err)
		return err
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return worker.ProcessUpload(ctx, gcsEvent)
}
