package agent

import "fmt"

// Stage identifies where in the pipeline a query failed.
type Stage string

const (
	StageEmbedding  Stage = "embedding"
	StageRetrieval  Stage = "retrieval"
	StageGeneration Stage = "generation"
)

// StageError tags a pipeline failure with the stage it came from, so
// callers can report "failed during retrieval" instead of a bare cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("query failed during %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
