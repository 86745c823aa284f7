package models

// QADecision is the classification a ReflectionLoop critique resolves to.
type QADecision string

const (
	QAPass   QADecision = "PASS"
	QARework QADecision = "REWORK"
	QAFail   QADecision = "FAIL"
)

// QACritique is the structured result of a QA gate judgement.
type QACritique struct {
	Decision          QADecision `json:"decision"`
	Score             int        `json:"score"` // 0-100
	Blockers          []string   `json:"blockers"`
	PrescriptiveFixes []string   `json:"prescriptive_fixes"`
}

// Valid reports whether the critique's decision and score are well-formed.
func (c QACritique) Valid() bool {
	switch c.Decision {
	case QAPass, QARework, QAFail:
	default:
		return false
	}
	return c.Score >= 0 && c.Score <= 100
}
