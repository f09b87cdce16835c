package comm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLocalSendRecv(t *testing.T) {
	ranks := NewLocal(3)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ranks[0].Send(gctx, 1, 7, []byte("hello"))
	})
	g.Go(func() error {
		data, err := ranks[1].Recv(gctx, 0, 7)
		if err != nil {
			return err
		}
		if string(data) != "hello" {
			t.Errorf("Recv got %q, want %q", data, "hello")
		}
		return nil
	})
	require.NoError(t, g.Wait())
}

func TestLocalRecvFiltersByTag(t *testing.T) {
	ranks := NewLocal(2)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ranks[0].Send(gctx, 1, 2, []byte("second")); err != nil {
			return err
		}
		return ranks[0].Send(gctx, 1, 1, []byte("first"))
	})
	g.Go(func() error {
		// ask for tag 1 first even though it's sent second: Recv must
		// stash the mismatched tag-2 frame and keep waiting.
		data, err := ranks[1].Recv(gctx, 0, 1)
		if err != nil {
			return err
		}
		if string(data) != "first" {
			t.Errorf("Recv(tag=1) got %q, want %q", data, "first")
		}
		data, err = ranks[1].Recv(gctx, 0, 2)
		if err != nil {
			return err
		}
		if string(data) != "second" {
			t.Errorf("Recv(tag=2) got %q, want %q", data, "second")
		}
		return nil
	})
	require.NoError(t, g.Wait())
}

func TestLocalBroadcast(t *testing.T) {
	ranks := NewLocal(4)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for r := range ranks {
		r := r
		g.Go(func() error {
			data, err := ranks[r].Broadcast(gctx, 2, []byte("root-says-hi"))
			if err != nil {
				return err
			}
			if string(data) != "root-says-hi" {
				t.Errorf("rank %d: Broadcast got %q", r, data)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestLocalBarrierReleasesTogether(t *testing.T) {
	ranks := NewLocal(5)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var before, after [5]bool
	g, gctx := errgroup.WithContext(ctx)
	for r := range ranks {
		r := r
		g.Go(func() error {
			before[r] = true
			if err := ranks[r].Barrier(gctx); err != nil {
				return err
			}
			after[r] = true
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for r := range ranks {
		require.True(t, before[r])
		require.True(t, after[r])
	}
}

func TestLocalRunIDSharedAcrossRanks(t *testing.T) {
	ranks := NewLocal(3)
	id0 := ranks[0].RunID()
	for _, r := range ranks[1:] {
		require.Equal(t, id0, r.RunID())
	}
}

func TestEncodeDecodeUint64SliceRoundTrip(t *testing.T) {
	vs := []uint64{1, 2, 1<<63 - 1, 0}
	got := DecodeUint64Slice(EncodeUint64Slice(vs))
	require.Equal(t, vs, got)
}
