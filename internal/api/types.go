// Package api owns the registry of liveness watches behind the control
// server: creating a watch starts a poll loop, deleting one stops it, and
// snapshots report the last observed state. Dead watches stay listed until
// deleted, mirroring the stickiness of the oracle underneath.
package api

import (
	stdcontext "context"
	"errors"
	"time"

	"github.com/wrenware/vigil/internal/watch"
)

var (
	// ErrUnknownWatch reports a watch id the registry does not hold.
	ErrUnknownWatch = errors.New("unknown watch")
	// ErrInvalidTarget reports a create request that does not name
	// exactly one watchable target.
	ErrInvalidTarget = errors.New("invalid watch target")
	// ErrRegistryClosed reports an operation against a registry that has
	// already shut its poll loops down.
	ErrRegistryClosed = errors.New("watch registry closed")
)

// WatchRequest names the target of a new watch. Exactly one field must be
// set.
type WatchRequest struct {
	Pid       *int   `json:"pid,omitempty"`
	Container string `json:"container,omitempty"`
}

// WatchReport is the externally visible state of one watch.
type WatchReport struct {
	ID        string       `json:"id"`
	Target    string       `json:"target"`
	Kind      string       `json:"kind"`
	Status    watch.Status `json:"status"`
	Since     time.Time    `json:"since"`
	CreatedAt time.Time    `json:"created_at"`
}

// Controller exposes the watch operations required by control servers.
type Controller interface {
	ListWatches(stdcontext.Context) ([]WatchReport, error)
	CreateWatch(stdcontext.Context, WatchRequest) (*WatchReport, error)
	GetWatch(stdcontext.Context, string) (*WatchReport, error)
	DeleteWatch(stdcontext.Context, string) error
}
