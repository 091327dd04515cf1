package recognize

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine performs OCR through the gosseract client. A fresh client
// is created per call; the traineddata stays cached by the tesseract runtime
// itself.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs the Tesseract-backed OCR engine.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Tag() string { return "tesseract_ocr" }

// Verify confirms the tesseract installation serves the requested language.
// Both a broken installation and missing traineddata are setup errors, so
// they surface as ErrEngineUnavailable with a remediation hint.
func (e *TesseractEngine) Verify(ctx context.Context, opts Options) error {
	opts = opts.WithDefaults()
	c := e.clientFactory()
	defer c.Close()

	langs, err := c.GetAvailableLanguages()
	if err != nil {
		return fmt.Errorf("%w: tesseract not installed or tessdata missing: %v", ErrEngineUnavailable, err)
	}
	for _, l := range langs {
		if l == opts.Language {
			return nil
		}
	}
	return fmt.Errorf("%w: traineddata for language %q not installed (available: %s)",
		ErrEngineUnavailable, opts.Language, strings.Join(langs, ", "))
}

// RecognizeImage runs OCR over one encoded page image.
func (e *TesseractEngine) RecognizeImage(ctx context.Context, image []byte, opts Options) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	opts = opts.WithDefaults()

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(opts.Language); err != nil {
		return "", fmt.Errorf("set language %q: %w", opts.Language, err)
	}
	if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(opts.DPI)); err != nil {
		return "", fmt.Errorf("set dpi: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
