package ir

// Version constants recorded in journals and traces.
const (
	// TraceVersion is the trace/journal record format version.
	TraceVersion = "1"

	// RuntimeVersion is the flux runtime version.
	RuntimeVersion = "0.1.0"
)
