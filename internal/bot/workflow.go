package bot

import (
	"fmt"

	"github.com/mlahtinen/telegram-haggle-bot/internal/appraisal"
)

// Stage is a point in the valuation workflow. It determines which replies the
// bot renders and which user actions are accepted next.
type Stage int

const (
	StageIdle Stage = iota
	StagePreview
	StageAnalyzing
	StageResults
	StageCalling
	StageError
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StagePreview:
		return "preview"
	case StageAnalyzing:
		return "analyzing"
	case StageResults:
		return "results"
	case StageCalling:
		return "calling"
	case StageError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Workflow is the linear photo-to-offers state machine for one user:
//
//	idle → preview → analyzing → results → calling
//	                     ↘ error ↙
//
// It holds only the data valid for the current stage and contains no network
// or Telegram code, so transitions can be tested with synthetic events. The
// caller (UserSession) serializes access; at most one network operation is in
// flight per workflow.
//
// Async completions are guarded by a generation counter: Begin* methods hand
// out the current generation, Finish*/Fail* drop results whose generation is
// stale (the workflow was reset or the image replaced while the request was
// outstanding).
type Workflow struct {
	stage       Stage
	gen         uint64
	image       *CapturedImage
	analysis    *appraisal.AnalysisResult
	jobID       string
	errMsg      string
	negotiating bool
}

func NewWorkflow() *Workflow {
	return &Workflow{stage: StageIdle}
}

func (w *Workflow) Stage() Stage                        { return w.stage }
func (w *Workflow) Generation() uint64                  { return w.gen }
func (w *Workflow) Image() *CapturedImage               { return w.image }
func (w *Workflow) Analysis() *appraisal.AnalysisResult { return w.analysis }
func (w *Workflow) JobID() string                       { return w.jobID }
func (w *Workflow) ErrorMessage() string                { return w.errMsg }

// SelectImage installs a newly captured image and enters preview. Allowed
// from any stage: a new capture invalidates everything downstream, so the
// previous image is released, analysis/job/error state is cleared, and the
// generation is bumped so any outstanding request result is dropped.
func (w *Workflow) SelectImage(img *CapturedImage) {
	if w.image != nil {
		w.image.Release()
	}
	w.image = img
	w.analysis = nil
	w.jobID = ""
	w.errMsg = ""
	w.negotiating = false
	w.gen++
	w.stage = StagePreview
}

// BeginAnalysis moves preview → analyzing and returns the image to submit
// together with the generation to pass back on completion. Returns ok=false
// when there is nothing to analyze or an analysis is already running (a
// second "Analyze" tap while analyzing is a no-op).
func (w *Workflow) BeginAnalysis() (gen uint64, img *CapturedImage, ok bool) {
	if w.stage != StagePreview || w.image == nil {
		return 0, nil, false
	}
	w.errMsg = ""
	w.stage = StageAnalyzing
	return w.gen, w.image, true
}

// FinishAnalysis applies a successful analysis. The result is dropped when
// the generation is stale or the workflow is no longer analyzing.
func (w *Workflow) FinishAnalysis(gen uint64, result *appraisal.AnalysisResult) bool {
	if gen != w.gen || w.stage != StageAnalyzing {
		return false
	}
	w.analysis = result
	w.stage = StageResults
	return true
}

// FailAnalysis applies an analysis failure, entering the error stage with a
// user-facing message. Never retried automatically.
func (w *Workflow) FailAnalysis(gen uint64, msg string) bool {
	if gen != w.gen || w.stage != StageAnalyzing {
		return false
	}
	w.errMsg = msg
	w.stage = StageError
	return true
}

// BeginNegotiation starts the delegated store-calling process from results.
// The stage stays at results while the dispatch request is in flight; the
// negotiating latch debounces a second tap.
func (w *Workflow) BeginNegotiation() (gen uint64, analysisID string, ok bool) {
	if w.stage != StageResults || w.negotiating {
		return 0, "", false
	}
	if w.analysis == nil || w.analysis.AnalysisID == "" {
		return 0, "", false
	}
	w.negotiating = true
	return w.gen, w.analysis.AnalysisID, true
}

// FinishNegotiation stores the job handle and enters calling.
func (w *Workflow) FinishNegotiation(gen uint64, jobID string) bool {
	if gen != w.gen || w.stage != StageResults || !w.negotiating {
		return false
	}
	w.negotiating = false
	w.jobID = jobID
	w.stage = StageCalling
	return true
}

// FailNegotiation enters the error stage with a user-facing message.
func (w *Workflow) FailNegotiation(gen uint64, msg string) bool {
	if gen != w.gen || w.stage != StageResults || !w.negotiating {
		return false
	}
	w.negotiating = false
	w.errMsg = msg
	w.stage = StageError
	return true
}

// Retry re-enters preview from the error stage with the original image still
// attached, so the user can re-attempt analysis without re-selecting a file.
func (w *Workflow) Retry() bool {
	if w.stage != StageError || w.image == nil {
		return false
	}
	w.errMsg = ""
	w.stage = StagePreview
	return true
}

// Reset returns to idle from any stage: the captured image's preview handle
// is released and all downstream state is cleared. Bumping the generation
// makes any in-flight request result stale.
func (w *Workflow) Reset() {
	if w.image != nil {
		w.image.Release()
	}
	w.image = nil
	w.analysis = nil
	w.jobID = ""
	w.errMsg = ""
	w.negotiating = false
	w.gen++
	w.stage = StageIdle
}
