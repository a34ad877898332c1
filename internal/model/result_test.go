package model

import (
	"errors"
	"testing"
)

// TestStageError tests error wrapping with stage context.
func TestStageError(t *testing.T) {
	t.Parallel()

	t.Run("message includes stage", func(t *testing.T) {
		t.Parallel()

		err := &StageError{Stage: StageFetching, Err: errors.New("connection refused")}
		if err.Error() != "fetching: connection refused" {
			t.Errorf("got %q", err.Error())
		}
	})

	t.Run("unwraps to the underlying error", func(t *testing.T) {
		t.Parallel()

		sentinel := errors.New("boom")
		err := &StageError{Stage: StageValidating, Err: sentinel}
		if !errors.Is(err, sentinel) {
			t.Error("errors.Is failed to find wrapped sentinel")
		}

		var stageErr *StageError
		if !errors.As(err, &stageErr) || stageErr.Stage != StageValidating {
			t.Error("errors.As failed to recover stage")
		}
	})
}

// TestPipelineResultFailed tests the terminal-state accessor.
func TestPipelineResultFailed(t *testing.T) {
	t.Parallel()

	done := &PipelineResult{Stage: StageDone}
	if done.Failed() {
		t.Error("StageDone reported as failed")
	}

	failed := &PipelineResult{Stage: StageFailed, FailedStage: StageFetching}
	if !failed.Failed() {
		t.Error("StageFailed not reported as failed")
	}
}

// TestExtractionHeuristic tests the advisory mode flag.
func TestExtractionHeuristic(t *testing.T) {
	t.Parallel()

	if (&Extraction{Mode: ExtractionModeModel}).Heuristic() {
		t.Error("model mode reported heuristic")
	}
	if !(&Extraction{Mode: ExtractionModeHeuristic}).Heuristic() {
		t.Error("heuristic mode not reported")
	}
}
