package ops

// Result is the normalized outcome of one invocation: either Output is
// the success payload, or Failure describes what went wrong. Never both.
type Result struct {
	Output  string   `json:"output,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// OK reports whether the invocation succeeded.
func (r *Result) OK() bool {
	return r.Failure == nil
}

// Failure is the reportable error shape handed back to the dispatcher.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func success(output string) *Result {
	return &Result{Output: output}
}
