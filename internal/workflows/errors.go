package workflows

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

// Application error types reported by simulation activities
const (
	ErrorTypeValidation = "ValidationError"
	ErrorTypeNotFound   = "NotFoundError"
)

// NonRetryableErrorTypes are failures a retry cannot fix
var NonRetryableErrorTypes = []string{
	ErrorTypeValidation,
	ErrorTypeNotFound,
}

// ActivityError converts a domain error into a Temporal application error.
// Invalid requests and missing runs become non-retryable.
func ActivityError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrInvalidStrategy),
		errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidClassTable):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrorTypeValidation, err)
	case errors.Is(err, domain.ErrRunNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrorTypeNotFound, err)
	default:
		return err
	}
}
