// Package recognize defines the adapter between the batch pipeline and the
// external recognition engines (OCR for scanned documents, ASR for audio).
// Engines are consumed as capabilities behind small interfaces so they can be
// backed by native libraries or remote APIs without leaking provider concerns
// into the pipeline.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"scribeflow/internal/models"
)

// ErrEngineUnavailable signals a setup problem: the recognition engine is not
// installed or not configured. It aborts the whole batch, unlike per-item
// recognition failures.
var ErrEngineUnavailable = errors.New("recognition engine unavailable")

// ItemError scopes a recognition failure to a single input item. The batch
// continues past it.
type ItemError struct {
	Item string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %q: recognition failed: %v", e.Item, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Options are the externally tunable recognition parameters.
type Options struct {
	// Language is the OCR traineddata tag, e.g. "hin" for Devanagari Hindi.
	Language string
	// DPI is the resolution hint handed to the OCR engine for page scans.
	DPI int
	// Deterministic forces full-precision, temperature-zero inference on
	// engines that support reduced-precision modes.
	Deterministic bool
}

const (
	DefaultLanguage = "hin"
	DefaultDPI      = 300
)

// WithDefaults fills unset fields with the deployment defaults.
func (o Options) WithDefaults() Options {
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	return o
}

// OCREngine converts one page image to text.
type OCREngine interface {
	Tag() string
	// Verify checks that the engine is installed and able to serve the given
	// options. A non-nil error wraps ErrEngineUnavailable.
	Verify(ctx context.Context, opts Options) error
	RecognizeImage(ctx context.Context, image []byte, opts Options) (string, error)
}

// ASREngine converts one whole audio payload to a transcript.
type ASREngine interface {
	Tag() string
	Verify(ctx context.Context, opts Options) error
	RecognizeAudio(ctx context.Context, audio []byte, mimeType string, opts Options) (string, error)
}

// PageExtractor turns a PDF payload into its per-page scan images.
type PageExtractor func(data []byte) ([][]byte, error)

// Adapter routes an input item to the engine matching its media kind and
// normalizes the output into a RecognitionResult.
type Adapter struct {
	OCR   OCREngine
	ASR   ASREngine
	Pages PageExtractor
}

// NewAdapter builds an adapter over the given engines. Either engine may be
// nil; recognizing an item of that kind then fails with ErrEngineUnavailable.
func NewAdapter(ocr OCREngine, asr ASREngine) *Adapter {
	return &Adapter{OCR: ocr, ASR: asr, Pages: PageImages}
}

// Tag names the engine serving the given media kind, for artifact naming.
func (a *Adapter) Tag(kind models.MediaKind) string {
	switch kind {
	case models.KindDocument:
		if a.OCR != nil {
			return a.OCR.Tag()
		}
	case models.KindAudio:
		if a.ASR != nil {
			return a.ASR.Tag()
		}
	}
	return "unknown"
}

// Verify checks upfront that the engine for the given kind is usable, so a
// missing engine aborts the batch before any item is processed.
func (a *Adapter) Verify(ctx context.Context, kind models.MediaKind, opts Options) error {
	switch kind {
	case models.KindDocument:
		if a.OCR == nil {
			return fmt.Errorf("%w: no OCR engine configured (is tesseract installed?)", ErrEngineUnavailable)
		}
		return a.OCR.Verify(ctx, opts)
	case models.KindAudio:
		if a.ASR == nil {
			return fmt.Errorf("%w: no ASR engine configured (set PROJECT_ID for the Gemini transcriber)", ErrEngineUnavailable)
		}
		return a.ASR.Verify(ctx, opts)
	}
	return fmt.Errorf("unsupported media kind %q", kind)
}

// Recognize runs the engine matching the item's kind. Content-level failures
// come back as *ItemError; ErrEngineUnavailable passes through unwrapped so
// the runner can abort.
func (a *Adapter) Recognize(ctx context.Context, item models.InputItem, opts Options) (models.RecognitionResult, error) {
	opts = opts.WithDefaults()
	switch item.Kind {
	case models.KindDocument:
		return a.recognizeDocument(ctx, item, opts)
	case models.KindAudio:
		return a.recognizeAudio(ctx, item, opts)
	default:
		return models.RecognitionResult{}, &ItemError{Item: item.Name, Err: fmt.Errorf("unsupported media kind %q", item.Kind)}
	}
}

func (a *Adapter) recognizeDocument(ctx context.Context, item models.InputItem, opts Options) (models.RecognitionResult, error) {
	if a.OCR == nil {
		return models.RecognitionResult{}, fmt.Errorf("%w: no OCR engine configured", ErrEngineUnavailable)
	}
	extract := a.Pages
	if extract == nil {
		extract = PageImages
	}
	pages, err := extract(item.Data)
	if err != nil {
		return models.RecognitionResult{}, &ItemError{Item: item.Name, Err: err}
	}
	segments := make([]string, 0, len(pages))
	for i, img := range pages {
		select {
		case <-ctx.Done():
			return models.RecognitionResult{}, ctx.Err()
		default:
		}
		if len(img) == 0 {
			// Page carries no scan image; it contributes an empty segment so
			// page numbering stays intact downstream.
			segments = append(segments, "")
			continue
		}
		text, err := a.OCR.RecognizeImage(ctx, img, opts)
		if err != nil {
			if errors.Is(err, ErrEngineUnavailable) {
				return models.RecognitionResult{}, err
			}
			return models.RecognitionResult{}, &ItemError{Item: item.Name, Err: fmt.Errorf("page %d: %w", i+1, err)}
		}
		segments = append(segments, text)
	}
	return models.RecognitionResult{ItemName: item.Name, Segments: segments, EngineTag: a.OCR.Tag()}, nil
}

func (a *Adapter) recognizeAudio(ctx context.Context, item models.InputItem, opts Options) (models.RecognitionResult, error) {
	if a.ASR == nil {
		return models.RecognitionResult{}, fmt.Errorf("%w: no ASR engine configured", ErrEngineUnavailable)
	}
	transcript, err := a.ASR.RecognizeAudio(ctx, item.Data, AudioMIME(item.Name), opts)
	if err != nil {
		if errors.Is(err, ErrEngineUnavailable) {
			return models.RecognitionResult{}, err
		}
		return models.RecognitionResult{}, &ItemError{Item: item.Name, Err: err}
	}
	return models.RecognitionResult{ItemName: item.Name, Segments: []string{transcript}, EngineTag: a.ASR.Tag()}, nil
}

// handle is a lazily initialized, process-wide adapter guarded so concurrent
// first use cannot double-initialize. The build error is remembered: a failed
// init stays failed for the life of the process.
type handle struct {
	once    sync.Once
	adapter *Adapter
	err     error
}

// get returns the adapter, building it on the first call. Later calls ignore
// their build function and see the first call's result.
func (h *handle) get(ctx context.Context, build func(context.Context) (*Adapter, error)) (*Adapter, error) {
	h.once.Do(func() {
		h.adapter, h.err = build(ctx)
	})
	return h.adapter, h.err
}

// EngineConfig selects the engine backends for the default adapter.
type EngineConfig struct {
	// ProjectID and Region configure the Gemini ASR engine. An empty
	// ProjectID leaves the audio path unconfigured.
	ProjectID string
	Region    string
}

var defaultHandle = &handle{}

// Default returns the process-wide adapter, building it on first use. The
// config of the first caller wins; later configs are ignored.
func Default(ctx context.Context, cfg EngineConfig) (*Adapter, error) {
	return defaultHandle.get(ctx, func(ctx context.Context) (*Adapter, error) {
		return buildDefault(ctx, cfg)
	})
}

func buildDefault(ctx context.Context, cfg EngineConfig) (*Adapter, error) {
	var asr ASREngine
	if cfg.ProjectID != "" {
		engine, err := NewGeminiEngine(ctx, cfg.ProjectID, cfg.Region)
		if err != nil {
			return nil, err
		}
		asr = engine
	}
	return NewAdapter(NewTesseractEngine(), asr), nil
}

// AudioMIME maps an audio filename to the content type handed to the ASR
// engine.
func AudioMIME(name string) string {
	switch {
	case hasSuffixFold(name, ".wav"):
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}
