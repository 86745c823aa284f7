package pipeline

import "github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"

// DispatchEntry names the per-stage documents the StageRunner composes
// into an agent prompt and the QA gate criteria it is judged against
// (§4.13: "Holds a dispatch table mapping each stage to
// (workflow_document_filename, agent_directory, qa_gate_name)").
type DispatchEntry struct {
	WorkflowDocument string
	AgentDirectory   string
	QAGateName       string
}

// DispatchTable is the default mapping for every agent-driven stage.
// SIDEGEN_AWAIT and DELIVERY are intentionally absent: they are handled
// by AwaitGate and the delivery collaborator respectively, never by the
// generic StageRunner (§3, §4.13).
var DispatchTable = map[models.PipelineStage]DispatchEntry{
	models.StageRouter: {
		WorkflowDocument: "router.workflow.md",
		AgentDirectory:   "agents/router",
		QAGateName:       "router_gate",
	},
	models.StageResearch: {
		WorkflowDocument: "research.workflow.md",
		AgentDirectory:   "agents/research",
		QAGateName:       "research_gate",
	},
	models.StageTranscript: {
		WorkflowDocument: "transcript.workflow.md",
		AgentDirectory:   "agents/transcript",
		QAGateName:       "transcript_gate",
	},
	models.StageContent: {
		WorkflowDocument: "content.workflow.md",
		AgentDirectory:   "agents/content",
		QAGateName:       "content_gate",
	},
	models.StageLayoutDetective: {
		WorkflowDocument: "layout_detective.workflow.md",
		AgentDirectory:   "agents/layout_detective",
		QAGateName:       "layout_detective_gate",
	},
	models.StageFFmpegEngineer: {
		WorkflowDocument: "ffmpeg_engineer.workflow.md",
		AgentDirectory:   "agents/ffmpeg_engineer",
		QAGateName:       "ffmpeg_engineer_gate",
	},
	models.StageAssembly: {
		WorkflowDocument: "assembly.workflow.md",
		AgentDirectory:   "agents/assembly",
		QAGateName:       "assembly_gate",
	},
}
