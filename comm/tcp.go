package comm

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TCP is a real multi-process comm.Comm: each rank listens on a TCP port,
// dials every peer of higher rank, and exchanges length-prefixed, tagged
// frames. It exists so spec.md's "transport failure" and "non-blocking
// send buffer lifetime" clauses have a component that can actually fail
// and actually hold a buffer live across a network round-trip, not just a
// channel send that can never meaningfully fail the way comm.Local's can't.
//
// No repo in the retrieval pack couples a generic binary struct layout to
// an RPC/network library in a way this module could adapt without
// hand-fabricating generated code (protobuf/gRPC both require a protoc
// pass this module cannot run). encoding/binary + net is the direct,
// dependency-free way to hit spec.md §6's literal fixed-layout-tuple wire
// requirement; golang.org/x/sync/errgroup (already wired via dist's
// ParallelConfig) carries the concurrency concern of dialing/accepting N
// peers concurrently below.
type TCP struct {
	self  int
	size  int
	runID uuid.UUID
	ln    net.Listener
	peers []*tcpPeer // peers[self] is nil
}

const (
	tcpTagBroadcast = -1
	tcpTagBarrierIn = -2
	tcpTagBarrierOut = -3
)

// dialRetryInterval is the pause between dial attempts while peers
// bootstrap; NewTCP retries within ctx until every peer is connected.
var dialRetryInterval = 50 * time.Millisecond

// NewTCP establishes a fully-connected mesh of size len(addrs): this rank
// is self, addrs[r] is the "host:port" every rank listens on. It blocks
// until every connection is up or ctx is canceled.
func NewTCP(ctx context.Context, self int, addrs []string) (*TCP, error) {
	size := len(addrs)
	if self < 0 || self >= size {
		return nil, fmt.Errorf("comm: NewTCP: self %d out of range [0,%d)", self, size)
	}

	ln, err := net.Listen("tcp", addrs[self])
	if err != nil {
		return nil, fmt.Errorf("comm: NewTCP: listen %s: %w", addrs[self], err)
	}

	t := &TCP{self: self, size: size, runID: uuid.New(), ln: ln, peers: make([]*tcpPeer, size)}

	g, gctx := errgroup.WithContext(ctx)

	// accept connections from every peer of lower rank: each dials us once.
	g.Go(func() error {
		for i := 0; i < self; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return fmt.Errorf("accept: %w", err)
			}
			rank, err := readHandshake(conn)
			if err != nil {
				conn.Close()
				return err
			}
			t.peers[rank] = newTCPPeer(conn)
		}
		return nil
	})

	// dial every peer of higher rank.
	for dest := self + 1; dest < size; dest++ {
		dest := dest
		g.Go(func() error {
			conn, err := dialWithRetry(gctx, addrs[dest])
			if err != nil {
				return fmt.Errorf("dial %s: %w", addrs[dest], err)
			}
			if err := writeHandshake(conn, self); err != nil {
				conn.Close()
				return err
			}
			t.peers[dest] = newTCPPeer(conn)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		ln.Close()
		return nil, fmt.Errorf("comm: NewTCP: %w", err)
	}
	return t, nil
}

func dialWithRetry(ctx context.Context, addr string) (net.Conn, error) {
	for {
		conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dialRetryInterval):
		}
	}
}

func writeHandshake(conn net.Conn, self int) error {
	return binary.Write(conn, binary.BigEndian, int32(self))
}

func readHandshake(conn net.Conn) (int, error) {
	var rank int32
	if err := binary.Read(conn, binary.BigEndian, &rank); err != nil {
		return 0, err
	}
	return int(rank), nil
}

// tcpPeer demultiplexes one peer connection's incoming frames by tag so
// Recv can block for a specific tag while out-of-order frames for other
// tags wait in a queue, the network analogue of comm.Local's pending map.
type tcpPeer struct {
	conn net.Conn
	wmu  sync.Mutex

	cond   *sync.Cond
	queue  []envelope
	closed bool
	err    error
}

func newTCPPeer(conn net.Conn) *tcpPeer {
	p := &tcpPeer{conn: conn}
	p.cond = sync.NewCond(&sync.Mutex{})
	go p.readLoop()
	return p
}

func (p *tcpPeer) readLoop() {
	for {
		var tag int64
		if err := binary.Read(p.conn, binary.BigEndian, &tag); err != nil {
			p.fail(err)
			return
		}
		var n uint64
		if err := binary.Read(p.conn, binary.BigEndian, &n); err != nil {
			p.fail(err)
			return
		}
		data := make([]byte, n)
		if _, err := io.ReadFull(p.conn, data); err != nil {
			p.fail(err)
			return
		}
		p.cond.L.Lock()
		p.queue = append(p.queue, envelope{tag: int(tag), data: data})
		p.cond.Broadcast()
		p.cond.L.Unlock()
	}
}

func (p *tcpPeer) fail(err error) {
	p.cond.L.Lock()
	if !p.closed {
		p.closed = true
		p.err = err
	}
	p.cond.Broadcast()
	p.cond.L.Unlock()
}

func (p *tcpPeer) send(tag int, data []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	if err := binary.Write(p.conn, binary.BigEndian, int64(tag)); err != nil {
		return err
	}
	if err := binary.Write(p.conn, binary.BigEndian, uint64(len(data))); err != nil {
		return err
	}
	_, err := p.conn.Write(data)
	return err
}

func (p *tcpPeer) recv(ctx context.Context, tag int) ([]byte, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.cond.L.Lock()
			p.cond.Broadcast()
			p.cond.L.Unlock()
		case <-done:
		}
	}()

	p.cond.L.Lock()
	defer p.cond.L.Unlock()
	for {
		for i, e := range p.queue {
			if e.tag == tag {
				p.queue = append(p.queue[:i:i], p.queue[i+1:]...)
				return e.data, nil
			}
		}
		if p.closed {
			return nil, p.err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.cond.Wait()
	}
}

func (c *TCP) Rank() int        { return c.self }
func (c *TCP) Size() int        { return c.size }
func (c *TCP) RunID() uuid.UUID { return c.runID }

func (c *TCP) peerAt(rank int) (*tcpPeer, error) {
	if rank < 0 || rank >= c.size || rank == c.self {
		return nil, fmt.Errorf("rank %d invalid for peer lookup (self=%d, size=%d)", rank, c.self, c.size)
	}
	return c.peers[rank], nil
}

func (c *TCP) Send(ctx context.Context, dest int, tag int, data []byte) error {
	p, err := c.peerAt(dest)
	if err != nil {
		return &TransportError{Op: "Send", Rank: c.self, Err: err}
	}
	if err := p.send(tag, data); err != nil {
		return &TransportError{Op: "Send", Rank: c.self, Err: err}
	}
	return nil
}

func (c *TCP) Recv(ctx context.Context, src int, tag int) ([]byte, error) {
	p, err := c.peerAt(src)
	if err != nil {
		return nil, &TransportError{Op: "Recv", Rank: c.self, Err: err}
	}
	data, err := p.recv(ctx, tag)
	if err != nil {
		return nil, &TransportError{Op: "Recv", Rank: c.self, Err: err}
	}
	return data, nil
}

func (c *TCP) Broadcast(ctx context.Context, root int, data []byte) ([]byte, error) {
	if root < 0 || root >= c.size {
		return nil, &TransportError{Op: "Broadcast", Rank: c.self, Err: fmt.Errorf("root %d out of range", root)}
	}
	if c.self == root {
		g, gctx := errgroup.WithContext(ctx)
		for dest := 0; dest < c.size; dest++ {
			if dest == root {
				continue
			}
			dest := dest
			g.Go(func() error { return c.Send(gctx, dest, tcpTagBroadcast, data) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return data, nil
	}
	return c.Recv(ctx, root, tcpTagBroadcast)
}

func (c *TCP) Barrier(ctx context.Context) error {
	const root = 0
	if c.self != root {
		if err := c.Send(ctx, root, tcpTagBarrierIn, nil); err != nil {
			return err
		}
		_, err := c.Recv(ctx, root, tcpTagBarrierOut)
		return err
	}
	for src := 0; src < c.size; src++ {
		if src == root {
			continue
		}
		if _, err := c.Recv(ctx, src, tcpTagBarrierIn); err != nil {
			return err
		}
	}
	for dest := 0; dest < c.size; dest++ {
		if dest == root {
			continue
		}
		if err := c.Send(ctx, dest, tcpTagBarrierOut, nil); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the listener and every peer connection.
func (c *TCP) Close() error {
	var firstErr error
	if err := c.ln.Close(); err != nil {
		firstErr = err
	}
	for _, p := range c.peers {
		if p == nil {
			continue
		}
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
