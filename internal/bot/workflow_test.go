package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlahtinen/telegram-haggle-bot/internal/appraisal"
)

func testImage() *CapturedImage {
	return &CapturedImage{
		Data:     []byte("fake image bytes"),
		MimeType: "image/jpeg",
		FileName: "photo.jpg",
	}
}

func testAnalysis() *appraisal.AnalysisResult {
	return &appraisal.AnalysisResult{
		AnalysisID:          "a1",
		ItemName:            "Vintage Film Camera",
		EstimatedPriceRange: appraisal.PriceRange{Low: 200, Fair: 240, High: 280, Currency: "USD"},
		BestPlatform:        "eBay",
		Confidence:          0.8,
	}
}

func TestHappyPath(t *testing.T) {
	w := NewWorkflow()
	assert.Equal(t, StageIdle, w.Stage())

	img := testImage()
	w.SelectImage(img)
	assert.Equal(t, StagePreview, w.Stage())
	assert.Same(t, img, w.Image())

	gen, got, ok := w.BeginAnalysis()
	require.True(t, ok)
	assert.Same(t, img, got)
	assert.Equal(t, StageAnalyzing, w.Stage())

	result := testAnalysis()
	require.True(t, w.FinishAnalysis(gen, result))
	assert.Equal(t, StageResults, w.Stage())
	// Stored payload is exactly what the service returned
	assert.Same(t, result, w.Analysis())

	gen, analysisID, ok := w.BeginNegotiation()
	require.True(t, ok)
	assert.Equal(t, "a1", analysisID)
	assert.Equal(t, StageResults, w.Stage())

	require.True(t, w.FinishNegotiation(gen, "j1"))
	assert.Equal(t, StageCalling, w.Stage())
	assert.Equal(t, "j1", w.JobID())
}

func TestBeginAnalysisRequiresPreviewWithImage(t *testing.T) {
	w := NewWorkflow()

	// Nothing captured yet
	_, _, ok := w.BeginAnalysis()
	assert.False(t, ok)
	assert.Equal(t, StageIdle, w.Stage())

	// Double tap: the second begin while analyzing is a no-op
	w.SelectImage(testImage())
	_, _, ok = w.BeginAnalysis()
	require.True(t, ok)
	_, _, ok = w.BeginAnalysis()
	assert.False(t, ok)
	assert.Equal(t, StageAnalyzing, w.Stage())
}

func TestAnalysisFailureEntersErrorStage(t *testing.T) {
	w := NewWorkflow()
	w.SelectImage(testImage())
	gen, _, _ := w.BeginAnalysis()

	require.True(t, w.FailAnalysis(gen, "model unavailable"))
	assert.Equal(t, StageError, w.Stage())
	assert.Equal(t, "model unavailable", w.ErrorMessage())
	assert.Nil(t, w.Analysis())
}

func TestRetryReturnsToPreviewWithSameImage(t *testing.T) {
	w := NewWorkflow()
	img := testImage()
	w.SelectImage(img)
	gen, _, _ := w.BeginAnalysis()
	w.FailAnalysis(gen, "model unavailable")

	require.True(t, w.Retry())
	assert.Equal(t, StagePreview, w.Stage())
	assert.Same(t, img, w.Image())
	assert.Empty(t, w.ErrorMessage())

	// And analysis can be re-attempted
	_, got, ok := w.BeginAnalysis()
	require.True(t, ok)
	assert.Same(t, img, got)
}

func TestRetryOnlyFromError(t *testing.T) {
	w := NewWorkflow()
	assert.False(t, w.Retry())

	w.SelectImage(testImage())
	assert.False(t, w.Retry())
	assert.Equal(t, StagePreview, w.Stage())
}

func TestStaleAnalysisResultIsDropped(t *testing.T) {
	w := NewWorkflow()
	w.SelectImage(testImage())
	gen, _, _ := w.BeginAnalysis()

	// User resets while the request is outstanding
	w.Reset()

	assert.False(t, w.FinishAnalysis(gen, testAnalysis()))
	assert.Equal(t, StageIdle, w.Stage())
	assert.Nil(t, w.Analysis())

	assert.False(t, w.FailAnalysis(gen, "too late"))
	assert.Empty(t, w.ErrorMessage())
}

func TestReplacingImageInvalidatesOutstandingAnalysis(t *testing.T) {
	w := NewWorkflow()
	w.SelectImage(testImage())
	gen, _, _ := w.BeginAnalysis()

	// A new capture arrives mid-flight; the old result must not apply
	w.SelectImage(testImage())
	assert.Equal(t, StagePreview, w.Stage())

	assert.False(t, w.FinishAnalysis(gen, testAnalysis()))
	assert.Equal(t, StagePreview, w.Stage())
	assert.Nil(t, w.Analysis())
}

func TestStaleNegotiationResultIsDropped(t *testing.T) {
	w := NewWorkflow()
	w.SelectImage(testImage())
	gen, _, _ := w.BeginAnalysis()
	w.FinishAnalysis(gen, testAnalysis())
	gen, _, ok := w.BeginNegotiation()
	require.True(t, ok)

	w.Reset()

	assert.False(t, w.FinishNegotiation(gen, "j1"))
	assert.Equal(t, StageIdle, w.Stage())
	assert.Empty(t, w.JobID())
}

func TestBeginNegotiationGates(t *testing.T) {
	w := NewWorkflow()

	// Not in results
	_, _, ok := w.BeginNegotiation()
	assert.False(t, ok)

	w.SelectImage(testImage())
	gen, _, _ := w.BeginAnalysis()

	// Analysis without an id cannot key a negotiation
	w.FinishAnalysis(gen, &appraisal.AnalysisResult{ItemName: "Lamp"})
	_, _, ok = w.BeginNegotiation()
	assert.False(t, ok)
}

func TestBeginNegotiationDebounces(t *testing.T) {
	w := NewWorkflow()
	w.SelectImage(testImage())
	gen, _, _ := w.BeginAnalysis()
	w.FinishAnalysis(gen, testAnalysis())

	_, _, ok := w.BeginNegotiation()
	require.True(t, ok)

	// Second tap while the dispatch is in flight
	_, _, ok = w.BeginNegotiation()
	assert.False(t, ok)
}

func TestResetIsTotalFromEveryStage(t *testing.T) {
	assertResetState := func(t *testing.T, w *Workflow) {
		t.Helper()
		assert.Equal(t, StageIdle, w.Stage())
		assert.Nil(t, w.Image())
		assert.Nil(t, w.Analysis())
		assert.Empty(t, w.JobID())
		assert.Empty(t, w.ErrorMessage())
	}

	stages := map[string]func() *Workflow{
		"idle": NewWorkflow,
		"preview": func() *Workflow {
			w := NewWorkflow()
			w.SelectImage(testImage())
			return w
		},
		"results": func() *Workflow {
			w := NewWorkflow()
			w.SelectImage(testImage())
			gen, _, _ := w.BeginAnalysis()
			w.FinishAnalysis(gen, testAnalysis())
			return w
		},
		"calling": func() *Workflow {
			w := NewWorkflow()
			w.SelectImage(testImage())
			gen, _, _ := w.BeginAnalysis()
			w.FinishAnalysis(gen, testAnalysis())
			gen, _, _ = w.BeginNegotiation()
			w.FinishNegotiation(gen, "j1")
			return w
		},
		"error": func() *Workflow {
			w := NewWorkflow()
			w.SelectImage(testImage())
			gen, _, _ := w.BeginAnalysis()
			w.FailAnalysis(gen, "model unavailable")
			return w
		},
	}

	for name, setup := range stages {
		t.Run(name, func(t *testing.T) {
			w := setup()
			w.Reset()
			assertResetState(t, w)
		})
	}
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "idle", StageIdle.String())
	assert.Equal(t, "preview", StagePreview.String())
	assert.Equal(t, "analyzing", StageAnalyzing.String())
	assert.Equal(t, "results", StageResults.String())
	assert.Equal(t, "calling", StageCalling.String())
	assert.Equal(t, "error", StageError.String())
}
