package harness

// Trace event types.
const (
	EventAction     = "action"
	EventChange     = "change"
	EventRejected   = "rejected"
	EventConcurrent = "concurrent"
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Type string `json:"type"`

	// Action events.
	Seq     int64  `json:"seq,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Shape   string `json:"shape,omitempty"`
	Payload string `json:"payload,omitempty"`

	// Change events.
	Store  string         `json:"store,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`

	// Rejected sends.
	Code string `json:"code,omitempty"`

	// Concurrent steps.
	Count int64 `json:"count,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step and assertion succeeded.
	Pass bool `json:"pass"`

	// Trace is the per-step record of actions and change events.
	Trace []TraceEvent `json:"trace"`

	// Errors lists failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds each store's final entities, by alias.
	State map[string][]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string][]any),
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
