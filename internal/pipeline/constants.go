package pipeline

import "github.com/dvloznov/credit-report/internal/llm"

// Default values for statement analysis.
// These can be overridden via configuration or environment variables.
const (
	// DefaultModelName is the default Gemini model used for extraction and narration.
	DefaultModelName = llm.DefaultModelName

	// DefaultMaxChars caps the statement text sent to the extraction model.
	DefaultMaxChars = 60000
)
