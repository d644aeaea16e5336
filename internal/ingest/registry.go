package ingest

import "fmt"

// Stage is one named step of the fixed ingestion sequence.
type Stage string

const (
	StageImportPages      Stage = "import_pages"
	StageRunOcr           Stage = "run_ocr"
	StageNormalizeLines   Stage = "normalize_lines"
	StageSegmentPassages  Stage = "segment_passages"
	StageTokenizePassages Stage = "tokenize_passages"
	StageQaChecks         Stage = "qa_checks"
	StagePublishRelease   Stage = "publish_release"
)

// stageSequence is the pipeline order. Fixed at build time; index position
// determines job progress.
var stageSequence = []Stage{
	StageImportPages,
	StageRunOcr,
	StageNormalizeLines,
	StageSegmentPassages,
	StageTokenizePassages,
	StageQaChecks,
	StagePublishRelease,
}

type UnknownStageError struct {
	Stage Stage
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown ingest stage: %q", string(e.Stage))
}

// Stages returns the ordered pipeline sequence. Callers must not mutate the
// returned slice.
func Stages() []Stage {
	return stageSequence
}

func FirstStage() Stage {
	return stageSequence[0]
}

func StageCount() int {
	return len(stageSequence)
}

// Index returns the zero-based position of a stage in the pipeline.
func Index(s Stage) (int, error) {
	for i, stage := range stageSequence {
		if stage == s {
			return i, nil
		}
	}
	return 0, &UnknownStageError{Stage: s}
}

// Next returns the stage immediately following current. ok is false when
// current is the last stage. An unrecognized stage is a programmer error,
// never a runtime condition to recover from.
func Next(current Stage) (next Stage, ok bool, err error) {
	idx, err := Index(current)
	if err != nil {
		return "", false, err
	}
	if idx == len(stageSequence)-1 {
		return "", false, nil
	}
	return stageSequence[idx+1], true, nil
}

// Progress returns the job progress percentage after the given stage has
// completed: (index+1)/count * 100.
func Progress(s Stage) (float64, error) {
	idx, err := Index(s)
	if err != nil {
		return 0, err
	}
	return float64(idx+1) / float64(len(stageSequence)) * 100, nil
}
