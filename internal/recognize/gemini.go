package recognize

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// --- Transcriber model prompts ---
const transcriberSystemPrompt = "You are a call transcriber. Your task is to transcribe the provided audio recording verbatim. Accuracy and completeness are of utmost importance."
const transcriberUserPrompt = `You will be provided with an audio recording of a phone call.

Transcribe the spoken content verbatim. Do not summarize, translate, or annotate. Return ONLY the transcript text, with no preamble and no markdown fences.`

// GeminiEngine transcribes audio through a Vertex AI Gemini model. With
// Options.Deterministic set, generation runs at temperature zero so the same
// recording yields the same transcript; otherwise sampling is left at the
// model default.
type GeminiEngine struct {
	baseClient *genai.Client
	modelName  string
}

// NewGeminiEngine creates the ASR engine. A client construction failure is a
// setup error and wraps ErrEngineUnavailable.
func NewGeminiEngine(ctx context.Context, projectID, region string) (*GeminiEngine, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("%w: projectID and region must be set for the Gemini transcriber", ErrEngineUnavailable)
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("%w: genai.NewClient: %v", ErrEngineUnavailable, err)
	}

	return &GeminiEngine{baseClient: baseClient, modelName: "gemini-1.5-pro"}, nil
}

func (e *GeminiEngine) Tag() string { return "gemini_asr" }

// Verify is satisfied by construction; the client either exists or the
// constructor already reported ErrEngineUnavailable.
func (e *GeminiEngine) Verify(ctx context.Context, opts Options) error {
	if e.baseClient == nil {
		return fmt.Errorf("%w: gemini client not initialized", ErrEngineUnavailable)
	}
	return nil
}

// RecognizeAudio transcribes one whole audio payload.
func (e *GeminiEngine) RecognizeAudio(ctx context.Context, audio []byte, mimeType string, opts Options) (string, error) {
	model := e.baseClient.GenerativeModel(e.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(transcriberSystemPrompt)},
	}
	model.GenerationConfig = generationConfig(opts)

	part := genai.Blob{
		MIMEType: mimeType,
		Data:     audio,
	}
	resp, err := model.GenerateContent(ctx, part, genai.Text(transcriberUserPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate transcript from gemini: %w", err)
	}
	return extractText(resp), nil
}

// generationConfig maps the recognition options onto inference settings.
// Deterministic pins the temperature to zero; otherwise the model default
// applies.
func generationConfig(opts Options) genai.GenerationConfig {
	var cfg genai.GenerationConfig
	if opts.Deterministic {
		cfg.Temperature = genai.Ptr[float32](0.0)
	}
	return cfg
}

func (e *GeminiEngine) Close() error {
	if e.baseClient != nil {
		return e.baseClient.Close()
	}
	return nil
}

// extractText robustly pulls the text content out of the model response,
// concatenating multiple text parts and stripping stray markdown fences.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	out := strings.TrimSpace(sb.String())
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}
