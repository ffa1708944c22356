package mapping

// Result reports the outcome of a single mapping invocation. It is created
// fresh per call and never shared. Success is true iff Errors is empty;
// warnings never affect Success.
type Result struct {
	Success  bool
	Value    interface{}
	Errors   []string
	Warnings []string

	// MappedFieldCount counts fields assigned a non-default value by direct
	// copy or successful conversion. Fields left at their default by skip
	// rules do not count.
	MappedFieldCount int
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *Result) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *Result) finish() *Result {
	r.Success = len(r.Errors) == 0
	return r
}
