package cli

import (
	"fmt"
	"os"

	"github.com/grovetools/lookout/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
	}
}

// Handle provides user-friendly error messages based on error type
func (h *ErrorHandler) Handle(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(os.Stderr, "❌ Configuration not found. Create a lookout.yml or pass --config.\n")
		return err

	case errors.ErrCodeWatchFailed:
		if lkErr, ok := err.(*errors.LookoutError); ok {
			fmt.Fprintf(os.Stderr, "❌ Cannot watch '%s'. Check that it exists and is a directory.\n",
				lkErr.Details["dir"])
		}
		return err

	case errors.ErrCodeScanFailed:
		if lkErr, ok := err.(*errors.LookoutError); ok {
			fmt.Fprintf(os.Stderr, "❌ Cannot scan '%s'. Check directory permissions.\n",
				lkErr.Details["dir"])
		}
		return err

	case errors.ErrCodeBadPattern:
		if lkErr, ok := err.(*errors.LookoutError); ok {
			fmt.Fprintf(os.Stderr, "❌ Invalid ignore pattern '%s'.\n", lkErr.Details["pattern"])
		}
		return err

	default:
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		if h.Verbose {
			if lkErr, ok := err.(*errors.LookoutError); ok {
				fmt.Fprintf(os.Stderr, "%s\n", lkErr.ToJSON())
			}
		}
		return err
	}
}
