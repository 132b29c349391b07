// Package pipeline executes the nine-stage quality pipeline: intent
// analysis, retrieval with evaluation and fallback, agent selection, answer
// generation, grounding and output validation, and metrics recording.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/smartquery/qrouter/pkg/models"
)

// StageFunc is one pipeline stage. It returns the stage payload or an
// error; the runner captures both and never lets a panic escape.
type StageFunc func(ctx context.Context) (any, error)

// RunStage executes one stage with wall-clock timing and uniform fault
// capture. Panics become stage errors.
func RunStage(ctx context.Context, name models.StageName, fn StageFunc) models.StageResult {
	start := time.Now()
	result := models.StageResult{Stage: name}

	data, err := runCaptured(ctx, fn)
	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Data = data
	return result
}

func runCaptured(ctx context.Context, fn StageFunc) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage panicked: %v", r)
		}
	}()
	return fn(ctx)
}
