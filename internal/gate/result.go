package gate

// Status is the outcome class of an operation envelope
type Status string

const (
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
	StatusNotFound Status = "not_found"

	// StatusRouted marks a response handed to a named downstream collaborator.
	// No dispatch is performed here; the constant exists so envelope consumers
	// share one vocabulary.
	StatusRouted Status = "routed"
)

// Result is the uniform envelope every operation returns. Error messages
// are human-readable and never carry backend diagnostics.
type Result struct {
	Status    Status `json:"status"`
	Operation string `json:"operation,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
}

func success(operation string, data any) Result {
	return Result{Status: StatusSuccess, Operation: operation, Data: data}
}

func failure(operation, msg string) Result {
	return Result{Status: StatusError, Operation: operation, Error: msg}
}

func notFound(operation, msg string) Result {
	return Result{Status: StatusNotFound, Operation: operation, Message: msg}
}

// OK reports whether the result carries usable data
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}
