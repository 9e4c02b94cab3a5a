package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

// =============================================================================
// WorkerPool Creation Tests
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if got, want := pool.Workers(), runtime.GOMAXPROCS(0); got != want {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d", n, got, want)
		}
		pool.Close()
	}
}

func TestWorkerPool_CloseTwice(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()
	if pool.IsRunning() {
		t.Error("Pool should not be running after Close")
	}
}

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestGroupCount(t *testing.T) {
	tests := []struct {
		n, size, want int
	}{
		{0, 64, 0},
		{1, 64, 1},
		{64, 64, 1},
		{65, 64, 2},
		{4096, 64, 64},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := GroupCount(tt.n, tt.size); got != tt.want {
			t.Errorf("GroupCount(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}

func TestWorkerPool_DispatchCoversEveryIndexOnce(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	for _, n := range []int{1, 63, 64, 65, 1000} {
		hits := make([]atomic.Int32, n)
		var groups atomic.Int32
		err := pool.Dispatch(context.Background(), n, 64, func(lo, hi int) {
			groups.Add(1)
			if hi-lo > 64 {
				t.Errorf("group [%d,%d) larger than 64", lo, hi)
			}
			for i := lo; i < hi; i++ {
				hits[i].Add(1)
			}
		})
		if err != nil {
			t.Fatalf("Dispatch(%d) error = %v", n, err)
		}
		for i := range hits {
			if got := hits[i].Load(); got != 1 {
				t.Errorf("n=%d: index %d visited %d times, want 1", n, i, got)
			}
		}
		if got, want := int(groups.Load()), GroupCount(n, 64); got != want {
			t.Errorf("n=%d: %d groups ran, want %d", n, got, want)
		}
	}
}

func TestWorkerPool_DispatchEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	called := false
	if err := pool.Dispatch(context.Background(), 0, 64, func(int, int) { called = true }); err != nil {
		t.Fatalf("Dispatch(0) error = %v", err)
	}
	if called {
		t.Error("Dispatch(0) ran a group")
	}
}

func TestWorkerPool_DispatchClosed(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	err := pool.Dispatch(context.Background(), 10, 4, func(int, int) {})
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Dispatch on closed pool error = %v, want %v", err, ErrPoolClosed)
	}
}

func TestWorkerPool_DispatchCanceled(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	err := pool.Dispatch(ctx, 1<<16, 1, func(int, int) { ran.Add(1) })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Dispatch error = %v, want %v", err, context.Canceled)
	}
	if ran.Load() != 0 {
		t.Errorf("%d groups ran after cancellation, want 0", ran.Load())
	}
}

func TestWorkerPool_ConcurrentDispatch(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var wg sync.WaitGroup
	var total atomic.Int64
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Dispatch(context.Background(), 512, 64, func(lo, hi int) {
				total.Add(int64(hi - lo))
			})
			if err != nil {
				t.Errorf("Dispatch error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := total.Load(); got != 8*512 {
		t.Errorf("total work = %d, want %d", got, 8*512)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkWorkerPool_Dispatch(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		_ = pool.Dispatch(ctx, 1920*1080, 64, func(lo, hi int) {})
	}
}
