package reporter

import "fmt"

// Stage is the pipeline step a run failed in
type Stage string

const (
	StageCollect Stage = "collect"
	StageParse   Stage = "parse"
	StageSubmit  Stage = "submit"
)

// Stages returns all pipeline stages in execution order
func Stages() []string {
	return []string{string(StageCollect), string(StageParse), string(StageSubmit)}
}

// StageError wraps the error that aborted a run together with the stage it occurred in
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
