package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNoChoices marks a completion that came back without any choice to extract.
	ErrNoChoices = errors.New("completion returned no choices")
	// ErrAlreadyRun is returned when Run is called on a runner whose state has left Created.
	ErrAlreadyRun = errors.New("workflow: run already executed")
)

// UpstreamCompletionError covers every failure of the outbound completion
// call: transport errors, provider errors, timeouts, and responses with no
// usable choice.
type UpstreamCompletionError struct {
	Provider string
	Model    string
	Err      error
}

func (e *UpstreamCompletionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("upstream completion failed (provider=%s model=%s): %v", e.Provider, e.Model, e.Err)
}

func (e *UpstreamCompletionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsUpstream reports whether err is, or wraps, an UpstreamCompletionError.
func IsUpstream(err error) bool {
	var upstream *UpstreamCompletionError
	return errors.As(err, &upstream)
}
