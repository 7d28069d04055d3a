package ir

// Version constants for IR schema and engine.
const (
	// IRVersion is the rule-base IR schema version.
	IRVersion = "1"

	// EngineVersion is the inference engine version recorded with each run.
	EngineVersion = "0.1.0"
)
