package browser

import (
	"context"
	"errors"

	"github.com/pageaudit/pageaudit/internal/audit"
)

// Noop implements audit.Browser but always returns an error to indicate
// that no browser is available in the current build.
type Noop struct{}

// NewNoop creates a new Noop browser.
func NewNoop() *Noop {
	return &Noop{}
}

// NewSession returns an error since this is a stub implementation.
func (Noop) NewSession(_ context.Context) (audit.Session, error) {
	return nil, errors.New("browser not configured")
}

// Close is a no-op.
func (Noop) Close(_ context.Context) error {
	return nil
}
