package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribeflow/internal/models"
	"scribeflow/internal/recognize"
)

// stubOCR echoes the page image bytes back as text. Payloads containing
// "FAIL" error out per item; "DOWN" simulates the engine dying mid-batch;
// "EXPIRE" simulates a deadline expiring inside the recognition call.
type stubOCR struct{}

func (stubOCR) Tag() string { return "stub_ocr" }

func (stubOCR) Verify(ctx context.Context, opts recognize.Options) error { return nil }

func (stubOCR) RecognizeImage(ctx context.Context, image []byte, opts recognize.Options) (string, error) {
	text := string(image)
	if strings.Contains(text, "DOWN") {
		return "", fmt.Errorf("%w: engine died", recognize.ErrEngineUnavailable)
	}
	if strings.Contains(text, "EXPIRE") {
		return "", context.DeadlineExceeded
	}
	if strings.Contains(text, "FAIL") {
		return "", errors.New("corrupt page image")
	}
	return text, nil
}

type stubASR struct{}

func (stubASR) Tag() string { return "stub_asr" }

func (stubASR) Verify(ctx context.Context, opts recognize.Options) error { return nil }

func (stubASR) RecognizeAudio(ctx context.Context, audio []byte, mimeType string, opts recognize.Options) (string, error) {
	transcript := string(audio)
	if strings.Contains(transcript, "FAIL") {
		return "", errors.New("unsupported codec")
	}
	return transcript, nil
}

type downOCR struct{ stubOCR }

func (downOCR) Verify(ctx context.Context, opts recognize.Options) error {
	return fmt.Errorf("%w: tesseract not installed", recognize.ErrEngineUnavailable)
}

func testAdapter() *recognize.Adapter {
	return &recognize.Adapter{
		OCR: stubOCR{},
		ASR: stubASR{},
		// One synthetic page per item, carrying the payload verbatim.
		Pages: func(data []byte) ([][]byte, error) { return [][]byte{data}, nil },
	}
}

func docItem(name, text string) models.InputItem {
	return models.InputItem{Name: name, Data: []byte(text), Kind: models.KindDocument}
}

func audioItem(name, transcript string) models.InputItem {
	return models.InputItem{Name: name, Data: []byte(transcript), Kind: models.KindAudio}
}

func TestRunner_StatusesMatchItemsInOrder(t *testing.T) {
	runner := &Runner{Adapter: testAdapter()}
	items := []models.InputItem{
		audioItem("a.mp3", "yes, i can"),
		audioItem("b.mp3", "not possible"),
		audioItem("c.mp3", "hmm"),
	}

	result, err := runner.Run(context.Background(), models.KindAudio, items)
	require.NoError(t, err)

	require.Len(t, result.Statuses, len(items))
	for i, item := range items {
		assert.Equal(t, item.Name, result.Statuses[i].Item)
		assert.Equal(t, models.OutcomeOK, result.Statuses[i].Outcome)
	}

	require.Len(t, result.Table.Records, 3)
	assert.Equal(t, models.ConclusionAccepted, result.Table.Records[0].Conclusion)
	assert.Equal(t, models.ConclusionDeclined, result.Table.Records[1].Conclusion)
	assert.Equal(t, models.ConclusionUnclear, result.Table.Records[2].Conclusion)
}

func TestRunner_DocumentFailureIsolation(t *testing.T) {
	runner := &Runner{Adapter: testAdapter()}
	items := []models.InputItem{
		docItem("one.pdf", "r1a  r1b"),
		docItem("two.pdf", "FAIL"),
		docItem("three.pdf", "r3a  r3b"),
	}

	result, err := runner.Run(context.Background(), models.KindDocument, items)
	require.NoError(t, err)

	require.Len(t, result.Statuses, 3)
	assert.Equal(t, models.OutcomeOK, result.Statuses[0].Outcome)
	assert.Equal(t, models.OutcomeFailed, result.Statuses[1].Outcome)
	assert.Contains(t, result.Statuses[1].Detail, "two.pdf")
	assert.Equal(t, models.OutcomeOK, result.Statuses[2].Outcome)

	// Rows from items 1 and 3 are present and contiguous; item 2 left none.
	require.Len(t, result.Table.Rows, 2)
	assert.Equal(t, []string{"r1a", "r1b"}, result.Table.Rows[0])
	assert.Equal(t, []string{"r3a", "r3b"}, result.Table.Rows[1])
}

func TestRunner_AudioFailureMarkedInTable(t *testing.T) {
	runner := &Runner{Adapter: testAdapter()}
	items := []models.InputItem{
		audioItem("ok.mp3", "i accept"),
		audioItem("bad.mp3", "FAIL"),
	}

	result, err := runner.Run(context.Background(), models.KindAudio, items)
	require.NoError(t, err)

	require.Len(t, result.Table.Records, 2)
	assert.Equal(t, models.ConclusionError, result.Table.Records[1].Conclusion)
	assert.Contains(t, result.Table.Records[1].Reason, "unsupported codec")
	assert.Equal(t, models.OutcomeFailed, result.Statuses[1].Outcome)
}

func TestRunner_ProgressIsMonotonicAndComplete(t *testing.T) {
	var fractions []float64
	runner := &Runner{
		Adapter:  testAdapter(),
		Progress: func(f float64) { fractions = append(fractions, f) },
	}
	items := []models.InputItem{
		docItem("a.pdf", "x  y"),
		docItem("b.pdf", "FAIL"),
		docItem("c.pdf", "z  w"),
	}

	_, err := runner.Run(context.Background(), models.KindDocument, items)
	require.NoError(t, err)

	// Progress fires after every item, failures included.
	require.Len(t, fractions, 3)
	for i := 1; i < len(fractions); i++ {
		assert.Greater(t, fractions[i], fractions[i-1])
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
}

func TestRunner_EngineUnavailableAbortsBeforeItems(t *testing.T) {
	adapter := testAdapter()
	adapter.OCR = downOCR{}
	runner := &Runner{Adapter: adapter}

	result, err := runner.Run(context.Background(), models.KindDocument, []models.InputItem{
		docItem("a.pdf", "x  y"),
	})
	require.ErrorIs(t, err, recognize.ErrEngineUnavailable)
	assert.Nil(t, result)
	assert.True(t, IsAbort(err))
}

func TestRunner_MidBatchUnavailableAbortsWithoutPartialTable(t *testing.T) {
	runner := &Runner{Adapter: testAdapter()}
	items := []models.InputItem{
		docItem("a.pdf", "x  y"),
		docItem("b.pdf", "DOWN"),
		docItem("c.pdf", "z  w"),
	}

	result, err := runner.Run(context.Background(), models.KindDocument, items)
	require.ErrorIs(t, err, recognize.ErrEngineUnavailable)
	assert.Nil(t, result)
}

func TestRunner_DeadlineDuringRecognitionAborts(t *testing.T) {
	runner := &Runner{Adapter: testAdapter()}
	items := []models.InputItem{
		docItem("a.pdf", "x  y"),
		docItem("b.pdf", "EXPIRE"),
		docItem("c.pdf", "z  w"),
	}

	// An expired deadline inside the recognition call ends the batch like a
	// cancellation, not like a per-item content failure.
	result, err := runner.Run(context.Background(), models.KindDocument, items)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, result)
	assert.True(t, IsAbort(err))
}

func TestRunner_CancellationStopsBeforeNextItem(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	processed := 0
	runner := &Runner{
		Adapter: testAdapter(),
		Progress: func(f float64) {
			processed++
			cancel()
		},
	}
	items := []models.InputItem{
		audioItem("a.mp3", "yes, i can"),
		audioItem("b.mp3", "yes, i can"),
		audioItem("c.mp3", "yes, i can"),
	}

	result, err := runner.Run(ctx, models.KindAudio, items)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.Equal(t, 1, processed)
	assert.True(t, IsAbort(err))
}

func TestRunner_BlankDocumentIsNoContentNotFailure(t *testing.T) {
	runner := &Runner{Adapter: testAdapter()}
	items := []models.InputItem{docItem("blank.pdf", "   \n\t\n")}

	result, err := runner.Run(context.Background(), models.KindDocument, items)
	require.NoError(t, err)

	require.Len(t, result.Statuses, 1)
	assert.Equal(t, models.OutcomeNoContent, result.Statuses[0].Outcome)
	assert.True(t, result.Table.IsEmpty())
}

func TestRunner_KindMismatchFailsItemOnly(t *testing.T) {
	runner := &Runner{Adapter: testAdapter()}
	items := []models.InputItem{
		docItem("a.pdf", "x  y"),
		audioItem("odd.mp3", "yes, i can"),
	}

	result, err := runner.Run(context.Background(), models.KindDocument, items)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeOK, result.Statuses[0].Outcome)
	assert.Equal(t, models.OutcomeFailed, result.Statuses[1].Outcome)
	assert.Len(t, result.Table.Rows, 1)
}

func TestRunner_NeedsNoScratchFiles(t *testing.T) {
	// The runner holds all payloads in memory; an unusable temp location
	// must not affect the batch.
	t.Setenv("TMPDIR", filepath.Join(t.TempDir(), "missing"))

	runner := &Runner{Adapter: testAdapter()}
	result, err := runner.Run(context.Background(), models.KindDocument, []models.InputItem{
		docItem("a.pdf", "x  y"),
	})
	require.NoError(t, err)
	assert.Len(t, result.Table.Rows, 1)
}

func TestRunner_TableCarriesSourceAndEngineTag(t *testing.T) {
	runner := &Runner{Adapter: testAdapter()}
	result, err := runner.Run(context.Background(), models.KindDocument, []models.InputItem{
		docItem("ledger.pdf", "a  b"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ledger.pdf", result.Table.Source)
	assert.Equal(t, "stub_ocr", result.Table.EngineTag)
}
