package schemas

import "time"

// FieldKind classifies the semantic input type of one form section. It decides
// which committer strategy applies to the resolved answer.
type FieldKind string

const (
	FieldSelect     FieldKind = "select"
	FieldRadio      FieldKind = "radio"
	FieldCheckbox   FieldKind = "checkbox"
	FieldText       FieldKind = "text"
	FieldTextarea   FieldKind = "textarea"
	FieldFileUpload FieldKind = "file_upload"
	FieldUnknown    FieldKind = "unknown"
)

// FieldDescriptor is the result of inspecting a single form section. It is
// created by the inspector, consumed once by the resolver/committer pair and
// then discarded; the underlying DOM is rebuilt on every dialog step, so
// descriptors are never reused across steps.
type FieldDescriptor struct {
	// Question is the label text extracted for the section. Empty means the
	// section hosts no answerable field and must be skipped.
	Question string
	Kind     FieldKind
	// Section is the container element the field was discovered in.
	Section Element
	// Options holds the visible option labels for select and radio fields,
	// in original document order.
	Options []string
	// Inputs holds a radio group's input elements, index-aligned with
	// Options. The group is gathered across every matcher variant, so a
	// commit must click these handles rather than re-query the section.
	Inputs []Element
	// Input is the primary input element for text and textarea fields.
	Input       Element
	Placeholder string
}

// Key returns the identity under which a field is recorded as processed.
// A (question, kind) pair survives DOM rebuilds between steps, so a field
// that re-renders after a failed navigation is not answered twice.
func (d FieldDescriptor) Key() string {
	return d.Question + "\x00" + string(d.Kind)
}

// NumericConstraint bounds a numeric answer. Either side may be absent.
type NumericConstraint struct {
	Min *float64
	Max *float64
}

// TerminalState is the outcome of one application attempt.
type TerminalState string

const (
	// StateSubmitted means the portal confirmed the application was sent.
	StateSubmitted TerminalState = "submitted"
	// StateExhausted means a step produced no fields and no navigation
	// control, so the dialog cannot be driven any further.
	StateExhausted TerminalState = "exhausted"
	// StateStepLimit means the step ceiling was hit. This is the circuit
	// breaker against dialogs whose structure we never recognize.
	StateStepLimit TerminalState = "step_limit_reached"
)

// AttemptResult summarizes one application attempt for the job-iteration
// loop. The loop only logs it; nothing downstream consumes the details.
type AttemptResult struct {
	AttemptID       string        `json:"attempt_id"`
	State           TerminalState `json:"state"`
	Steps           int           `json:"steps"`
	FieldsProcessed int           `json:"fields_processed"`
}

// Job identifies one posting discovered during search.
type Job struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
}

// AttemptRecord is the JSONL row persisted per application attempt.
type AttemptRecord struct {
	Job       Job           `json:"job"`
	Result    AttemptResult `json:"result"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// GenerationOptions carries the per-request generation parameters.
type GenerationOptions struct {
	Temperature float32
	MaxTokens   int
}

// GenerationRequest is the provider-agnostic payload for one completion call.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Options      GenerationOptions
}
