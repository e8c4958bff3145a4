package cli

import (
	"fmt"
	"strings"
)

// CLIError represents a user-friendly error with context and suggestions.
type CLIError struct {
	Message    string
	Suggestion string
	Cause      error
	// StatusCode is the HTTP status when the daemon answered with an error.
	StatusCode int
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Suggestion != "" {
		sb.WriteString("\n\nSuggestion: ")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// ErrDaemonConnectionFailed returns an error when connection to daemon fails.
func ErrDaemonConnectionFailed(addr string, cause error) *CLIError {
	return &CLIError{
		Message:    fmt.Sprintf("Cannot connect to embedsvcd at %s", addr),
		Suggestion: "Start the daemon with 'embedsvcd', or point --addr / " + AddrEnv + " at a running instance",
		Cause:      cause,
	}
}

// ErrRequestFailed returns an error for a non-200 daemon response.
func ErrRequestFailed(status int, code, detail string) *CLIError {
	e := &CLIError{
		Message:    fmt.Sprintf("Request failed (HTTP %d): %s", status, detail),
		StatusCode: status,
	}
	switch code {
	case "AUTH_FAILED":
		e.Suggestion = "Set HF_TOKEN for the daemon to a valid Hugging Face token"
	case "RATE_LIMITED", "MODEL_LOADING", "PROVIDER_UNAVAILABLE":
		e.Suggestion = "The backend is temporarily unavailable, retry in a moment"
	}
	if e.Suggestion == "" && status >= 500 {
		e.Suggestion = "Check 'embedsvc status' for the model's last initialization error"
	}
	return e
}

// ErrEmptyInput returns an error when embed receives no text at all.
func ErrEmptyInput() *CLIError {
	return &CLIError{
		Message:    "No text given",
		Suggestion: "Pass the text as an argument, or '-' to read it from stdin, e.g. 'echo hola | embedsvc embed -'",
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(cause error) *CLIError {
	return &CLIError{
		Message:    "Configuration is invalid",
		Suggestion: "Check the config file and EMBEDSVC_* environment variables",
		Cause:      cause,
	}
}
