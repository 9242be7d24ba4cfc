package harness

// Trace event types.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
	EventEmail      = "email"
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Type       string         `json:"type"`
	Action     string         `json:"action,omitempty"`
	As         string         `json:"as,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	OutputCase string         `json:"case,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
	Seq        int64          `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds invocations, completions and sent emails in order.
	Trace []TraceEvent `json:"trace"`

	// Errors is empty when Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace records an action being invoked.
func (r *Result) AddInvocationTrace(action, as string, args map[string]any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventInvocation,
		Action: action,
		As:     as,
		Args:   args,
		Seq:    seq,
	})
}

// AddCompletionTrace records the outcome of the preceding invocation.
func (r *Result) AddCompletionTrace(outputCase string, result map[string]any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventCompletion,
		OutputCase: outputCase,
		Result:     result,
		Seq:        seq,
	})
}

// AddEmailTrace records an email handed to the mailer.
func (r *Result) AddEmailTrace(to, subject string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventEmail,
		Result: map[string]any{"to": to, "subject": subject},
		Seq:    seq,
	})
}
