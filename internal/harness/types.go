package harness

// TraceEvent records one executed step and the emission that followed it.
type TraceEvent struct {
	Step       int      `json:"step"`
	Action     string   `json:"action"`
	Arg        string   `json:"arg,omitempty"`
	SQL        string   `json:"sql"`
	Diagnostic string   `json:"diagnostic"`
	Missing    []string `json:"missing_joins,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Saved holds the IDs of queries saved during the run.
	Saved []string `json:"saved,omitempty"`
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

// AddTrace appends a step event.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}

// Last returns the final trace event, or a zero event for an empty trace.
func (r *Result) Last() TraceEvent {
	if len(r.Trace) == 0 {
		return TraceEvent{}
	}
	return r.Trace[len(r.Trace)-1]
}
