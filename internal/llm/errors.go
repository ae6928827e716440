package llm

import (
	"context"
	"errors"
	"net"

	"github.com/newthinker/parley/internal/core"
)

// IsTimeout reports whether err is a timeout-class failure: an error
// already classified as core.ErrLLMTimeout, an expired context deadline or
// a network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, core.ErrLLMTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Classify wraps a provider error as core.ErrLLMTimeout or core.ErrLLMFailed.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if IsTimeout(err) {
		return core.WrapError(core.ErrLLMTimeout, err)
	}
	return core.WrapError(core.ErrLLMFailed, err)
}
