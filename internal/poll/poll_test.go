package poll

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoller_SkipsWhileInFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	p := New(5*time.Millisecond, func(ctx context.Context) (int, error) {
		n := calls.Add(1)
		if n == 1 {
			<-release
		}
		return int(n), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Result[int], 16)
	go p.Run(ctx, func(r Result[int]) { got <- r })

	time.Sleep(60 * time.Millisecond)
	if c := calls.Load(); c != 1 {
		t.Fatalf("fetch called %d times while first was in flight", c)
	}
	if p.Skipped() == 0 {
		t.Error("no ticks skipped")
	}

	close(release)
	var last uint64
	for i := 0; i < 3; i++ {
		select {
		case r := <-got:
			if r.Seq <= last {
				t.Errorf("result %d out of order after %d", r.Seq, last)
			}
			last = r.Seq
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for results")
		}
	}
}

func TestPoller_CancelStopsFetch(t *testing.T) {
	cancelled := make(chan struct{})
	p := New(time.Hour, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	applied := atomic.Bool{}
	go func() {
		p.Run(ctx, func(Result[int]) { applied.Store(true) })
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight fetch was not cancelled")
	}
	if applied.Load() {
		t.Error("result applied after cancel")
	}
}

func TestPoller_NextFetchWaitsForApply(t *testing.T) {
	var mu sync.Mutex
	var log []string
	record := func(s string) {
		mu.Lock()
		log = append(log, s)
		mu.Unlock()
	}

	var calls atomic.Int32
	p := New(time.Millisecond, func(ctx context.Context) (int, error) {
		n := calls.Add(1)
		record(fmt.Sprintf("fetch %d", n))
		return int(n), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	p.Run(ctx, func(r Result[int]) {
		record(fmt.Sprintf("apply %d", r.Value))
		// Give a due tick the chance to race the result.
		time.Sleep(2 * time.Millisecond)
	})

	mu.Lock()
	defer mu.Unlock()
	if len(log) < 4 {
		t.Fatalf("only %d events recorded", len(log))
	}
	for i, ev := range log {
		n := i/2 + 1
		want := fmt.Sprintf("fetch %d", n)
		if i%2 == 1 {
			want = fmt.Sprintf("apply %d", n)
		}
		if ev != want {
			t.Fatalf("event %d = %q, want %q (log %v)", i, ev, want, log)
		}
	}
}
