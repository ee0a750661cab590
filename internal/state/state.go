// Package state defines the per-user conversation record and its store.
package state

import "time"

// Step identifies the current stage of an intake conversation. Transitions
// move strictly forward except for the restart command (back to StepNew) and
// in-place loops on invalid input.
type Step string

const (
	StepNew                 Step = "new"
	StepLanguageSelect      Step = "language_select"
	StepAskName             Step = "ask_name"
	StepAskDOB              Step = "ask_dob"
	StepAskGestational      Step = "ask_gestational"
	StepAskGestationalWeeks Step = "ask_gestational_weeks"
	StepAssessment          Step = "assessment"
	StepCompleted           Step = "completed"
	StepAbandoned           Step = "abandoned"
)

// Collected holds the intake fields gathered before an assessment starts.
// GestationalWeeks is present only when IsPremature is true.
type Collected struct {
	Locale           string `json:"locale,omitempty"`
	ChildName        string `json:"child_name,omitempty"`
	DOB              string `json:"dob,omitempty"` // ISO format: YYYY-MM-DD
	IsPremature      *bool  `json:"is_premature,omitempty"`
	GestationalWeeks *int   `json:"gestational_weeks,omitempty"`
}

// Conversation is the complete dialog state for one user identifier.
// SessionID is set once, when the intake finishes and the backend session is
// created, and never changes afterward.
type Conversation struct {
	Step           Step      `json:"current_step"`
	Collected      Collected `json:"collected_data"`
	SessionID      string    `json:"session_id,omitempty"`
	QuestionsAsked int       `json:"questions_asked"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// NewConversation returns a fresh record at StepNew.
func NewConversation() *Conversation {
	return &Conversation{
		Step:           StepNew,
		LastActivityAt: time.Now().UTC(),
	}
}
