package notifications

import (
	"context"
	"errors"
	"time"
)

// Notifier delivers failure reports to operators.
type Notifier interface {
	Notify(ctx context.Context, failure ShareFailure) error
}

type Webhook struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

// ShareFailure describes a share that could not be processed, or a run whose
// shared setup (Fatal) failed before any share was looked at.
type ShareFailure struct {
	Service   string `json:"service"`
	RunID     string `json:"run_id"`
	ProjectID string `json:"project_id,omitempty"`
	NASName   string `json:"nas_name,omitempty"`
	ShareID   string `json:"share_id,omitempty"`
	Action    string `json:"action,omitempty"`
	Message   string `json:"message"`
	Fatal     bool   `json:"fatal"`
}

// Multi fans a failure out to every notifier. All notifiers are attempted.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, failure ShareFailure) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, failure); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
