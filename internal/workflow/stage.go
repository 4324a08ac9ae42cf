package workflow

import "fmt"

// Stage is a 1-based position in the production sequence.
type Stage int

const (
	StageSkeleton Stage = iota + 1
	StageNarrative
	StageVisualPlan
	StagePrompts
	StageQuality
	StageRaster
)

// FirstStage and LastStage bound the sequence.
const (
	FirstStage = StageSkeleton
	LastStage  = StageRaster
)

var stageNames = map[Stage]string{
	StageSkeleton:   "skeleton",
	StageNarrative:  "narrative",
	StageVisualPlan: "visual_plan",
	StagePrompts:    "prompts",
	StageQuality:    "quality",
	StageRaster:     "raster",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Valid reports whether s is one of the six stages.
func (s Stage) Valid() bool {
	return s >= FirstStage && s <= LastStage
}

// Stages lists every stage in execution order.
func Stages() []Stage {
	return []Stage{StageSkeleton, StageNarrative, StageVisualPlan, StagePrompts, StageQuality, StageRaster}
}

// State is the execution state of the current stage.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)
