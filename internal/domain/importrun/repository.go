package importrun

import (
	"context"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrDuplicateRun = crerr.New("import run already exists")
	ErrNotRunning   = crerr.New("import run is not running")
)

type Repository interface {
	// Create stores a new run. An existing run id yields ErrDuplicateRun.
	Create(ctx context.Context, run Run) error
	// Finish records the final status and counters of a running run. A run
	// that is unknown or already finished yields ErrNotRunning.
	Finish(ctx context.Context, run Run) error
	Get(ctx context.Context, runID string) (Run, bool, error)
}
