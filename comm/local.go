package comm

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// reserved tags, kept out of the range a caller would plausibly pick for
// its own Send/Recv traffic.
const (
	tagBroadcast = -1
)

type envelope struct {
	tag  int
	data []byte
}

// cyclicBarrier is a reusable rendezvous point for exactly size waiters,
// the in-process stand-in spec.md's "every collective blocks" design note
// calls for when there's no MPI_Barrier to reach for.
type cyclicBarrier struct {
	mu    sync.Mutex
	count int
	size  int
	gen   chan struct{}
}

func newCyclicBarrier(size int) *cyclicBarrier {
	return &cyclicBarrier{size: size, gen: make(chan struct{})}
}

func (b *cyclicBarrier) wait(ctx context.Context) error {
	b.mu.Lock()
	gen := b.gen
	b.count++
	if b.count == b.size {
		b.count = 0
		b.gen = make(chan struct{})
		close(gen)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	select {
	case <-gen:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// localGroup is the shared state every rank's *Local holds a reference to:
// a fully-connected matrix of buffered channels, one per (src,dest) pair.
type localGroup struct {
	size    int
	links   [][]chan envelope
	barrier *cyclicBarrier
	runID   uuid.UUID
}

// Local is a comm.Comm backed by goroutines and channels within a single
// process: the transport every test in this module drives the distributed
// algorithms with, since it gives deterministic, race-detector-clean BSP
// semantics without a real cluster.
type Local struct {
	g       *localGroup
	self    int
	mu      sync.Mutex
	pending map[int][]envelope // buffered by src, for Recv calls that
	// arrived out of tag order
}

// NewLocal returns p ranks of an in-process communicator group, indexed
// 0..p-1 by Comm.Rank.
func NewLocal(p int) []Comm {
	if p <= 0 {
		panic("comm: NewLocal: p must be positive")
	}
	links := make([][]chan envelope, p)
	for i := range links {
		links[i] = make([]chan envelope, p)
		for j := range links[i] {
			if i != j {
				links[i][j] = make(chan envelope, 8)
			}
		}
	}
	g := &localGroup{
		size:    p,
		links:   links,
		barrier: newCyclicBarrier(p),
		runID:   uuid.New(),
	}
	out := make([]Comm, p)
	for r := 0; r < p; r++ {
		out[r] = &Local{g: g, self: r, pending: make(map[int][]envelope)}
	}
	return out
}

func (c *Local) Rank() int          { return c.self }
func (c *Local) Size() int          { return c.g.size }
func (c *Local) RunID() uuid.UUID   { return c.g.runID }

func (c *Local) Send(ctx context.Context, dest int, tag int, data []byte) error {
	if dest < 0 || dest >= c.g.size {
		return &TransportError{Op: "Send", Rank: c.self, Err: fmt.Errorf("dest %d out of range [0,%d)", dest, c.g.size)}
	}
	if dest == c.self {
		return &TransportError{Op: "Send", Rank: c.self, Err: fmt.Errorf("cannot send to self")}
	}
	buf := append([]byte(nil), data...)
	select {
	case c.g.links[c.self][dest] <- envelope{tag: tag, data: buf}:
		return nil
	case <-ctx.Done():
		return &TransportError{Op: "Send", Rank: c.self, Err: ctx.Err()}
	}
}

func (c *Local) Recv(ctx context.Context, src int, tag int) ([]byte, error) {
	if src < 0 || src >= c.g.size {
		return nil, &TransportError{Op: "Recv", Rank: c.self, Err: fmt.Errorf("src %d out of range [0,%d)", src, c.g.size)}
	}

	c.mu.Lock()
	queue := c.pending[src]
	for i, env := range queue {
		if env.tag == tag {
			c.pending[src] = append(queue[:i:i], queue[i+1:]...)
			c.mu.Unlock()
			return env.data, nil
		}
	}
	c.mu.Unlock()

	for {
		select {
		case env := <-c.g.links[src][c.self]:
			if env.tag == tag {
				return env.data, nil
			}
			c.mu.Lock()
			c.pending[src] = append(c.pending[src], env)
			c.mu.Unlock()
		case <-ctx.Done():
			return nil, &TransportError{Op: "Recv", Rank: c.self, Err: ctx.Err()}
		}
	}
}

func (c *Local) Broadcast(ctx context.Context, root int, data []byte) ([]byte, error) {
	if root < 0 || root >= c.g.size {
		return nil, &TransportError{Op: "Broadcast", Rank: c.self, Err: fmt.Errorf("root %d out of range", root)}
	}
	if c.self == root {
		for dest := 0; dest < c.g.size; dest++ {
			if dest == root {
				continue
			}
			if err := c.Send(ctx, dest, tagBroadcast, data); err != nil {
				return nil, err
			}
		}
		return data, nil
	}
	return c.Recv(ctx, root, tagBroadcast)
}

func (c *Local) Barrier(ctx context.Context) error {
	if err := c.g.barrier.wait(ctx); err != nil {
		return &TransportError{Op: "Barrier", Rank: c.self, Err: err}
	}
	return nil
}
