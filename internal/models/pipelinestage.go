package models

// PipelineStage is one bounded step in the reel-generation pipeline.
// Order is significant: StageOrder defines the sequence the
// PipelineStateMachine walks a run through.
type PipelineStage string

const (
	StageRouter           PipelineStage = "ROUTER"
	StageResearch         PipelineStage = "RESEARCH"
	StageTranscript       PipelineStage = "TRANSCRIPT"
	StageContent          PipelineStage = "CONTENT"
	StageLayoutDetective  PipelineStage = "LAYOUT_DETECTIVE"
	StageFFmpegEngineer   PipelineStage = "FFMPEG_ENGINEER"
	StageSidegenAwait     PipelineStage = "SIDEGEN_AWAIT"
	StageAssembly         PipelineStage = "ASSEMBLY"
	StageDelivery         PipelineStage = "DELIVERY"
)

// StageOrder is the canonical ordered sequence of pipeline stages.
var StageOrder = []PipelineStage{
	StageRouter,
	StageResearch,
	StageTranscript,
	StageContent,
	StageLayoutDetective,
	StageFFmpegEngineer,
	StageSidegenAwait,
	StageAssembly,
	StageDelivery,
}

// IsTerminal reports whether stage is the final stage in the sequence.
func (s PipelineStage) IsTerminal() bool {
	return s == StageDelivery
}

// IsAgentStage reports whether stage goes through the agent/QA machinery.
// SIDEGEN_AWAIT is a non-agent stage and DELIVERY bypasses the agent/QA
// machinery entirely (§3 of the spec).
func (s PipelineStage) IsAgentStage() bool {
	return s != StageSidegenAwait && s != StageDelivery
}

// Index returns the position of stage within StageOrder, or -1 if stage is
// not a recognized stage.
func (s PipelineStage) Index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the stage that follows s in StageOrder, and false if s is
// the terminal stage or unrecognized.
func (s PipelineStage) Next() (PipelineStage, bool) {
	idx := s.Index()
	if idx < 0 || idx+1 >= len(StageOrder) {
		return "", false
	}
	return StageOrder[idx+1], true
}

// FirstStage returns the first stage in the canonical sequence.
func FirstStage() PipelineStage {
	return StageOrder[0]
}

// StageAt returns the stage at 1-based position n in StageOrder, and false
// if n is out of range. Used by CLI --start-stage handling (§6, §4.14).
func StageAt(n int) (PipelineStage, bool) {
	if n < 1 || n > len(StageOrder) {
		return "", false
	}
	return StageOrder[n-1], true
}
