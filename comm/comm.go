// Package comm models the bulk-synchronous communicator the distributed
// collectives in package dist and package octree run over. No repo in the
// example pack links an MPI binding, so this is modeled on Go's own
// concurrency primitives (channels, context.Context, errgroup) instead of a
// borrowed wire protocol, the way junjiewwang-perf-analysis models worker
// pools rather than adopting a foreign job-queue format.
package comm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Comm is a rank's view of a P-process bulk-synchronous group. Every
// collective (Broadcast, Barrier) must be called by all P ranks with
// matching arguments, in the same order, or the group deadlocks or panics.
// Send is not a rendezvous: Local buffers up to 8 frames per (src, dest)
// link, and TCP returns once the frame is written to the connection.
//
// Send/Recv move raw bytes; package dist and package octree layer typed
// encode/decode (their own Codec[T]) on top, the way encoding/gob layers
// typed encoding on top of an io.Writer — Comm itself stays domain-agnostic
// so it can carry a uint64 scan value or an Octant tuple without either
// living in this package.
type Comm interface {
	// Rank returns this process's rank in [0, Size).
	Rank() int
	// Size returns the number of ranks in the group, P.
	Size() int
	// RunID identifies this run: the ranks of one NewLocal group share an
	// ID, while each NewTCP process generates its own.
	RunID() uuid.UUID

	// Send delivers data tagged tag to dest; it may return before dest
	// calls Recv.
	Send(ctx context.Context, dest int, tag int, data []byte) error
	// Recv blocks until data tagged tag arrives from src.
	Recv(ctx context.Context, src int, tag int) ([]byte, error)

	// Broadcast distributes data from root to every rank; every rank
	// (including root) must call Broadcast with the same root and receives
	// root's data back as the return value.
	Broadcast(ctx context.Context, root int, data []byte) ([]byte, error)

	// Barrier blocks until every rank has called Barrier.
	Barrier(ctx context.Context) error
}

// TransportError wraps a failure from a Comm primitive. Unlike the core
// octant algebra's *PreconditionError (a programmer-error panic), a
// TransportError is a reported runtime condition: the caller's driver
// decides how (or whether) to abort, per spec.md §7's "no recovery policy,
// but no surprise side effects" stance on collective failures.
type TransportError struct {
	Op   string
	Rank int
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("comm: rank %d: %s: %v", e.Rank, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
