package registry

import (
	"sync"
	"testing"
)

// TestLookup tests region resolution, including the overlap-suffices rule.
func TestLookup(t *testing.T) {
	r := New()
	r.Watch(0x9000, 0x100)

	tests := []struct {
		name string
		addr uintptr
		size uintptr
		want bool
	}{
		{name: "interior", addr: 0x9010, size: 4, want: true},
		{name: "first byte", addr: 0x9000, size: 1, want: true},
		{name: "last byte", addr: 0x90ff, size: 1, want: true},
		{name: "straddles region end", addr: 0x90fc, size: 8, want: true},
		{name: "straddles region start", addr: 0x8ffc, size: 8, want: true},
		// Any non-None relation resolves, so exact adjacency matches too.
		{name: "adjacent past end", addr: 0x9100, size: 4, want: true},
		{name: "adjacent below start", addr: 0x8ffc, size: 4, want: true},
		{name: "disjoint above", addr: 0xa000, size: 4, want: false},
		{name: "disjoint below", addr: 0x8000, size: 4, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Lookup(tt.addr, tt.size)
			if (got != nil) != tt.want {
				t.Errorf("Lookup(%#x, %d) found=%v, want %v", tt.addr, tt.size, got != nil, tt.want)
			}
		})
	}
}

// TestLookupSharedHandle tests that repeated lookups hand out the same
// tracker, so state tracked through one handle is visible through another.
func TestLookupSharedHandle(t *testing.T) {
	r := New()
	r.Watch(0x9000, 0x100)

	h1 := r.Lookup(0x9010, 4)
	h2 := r.Lookup(0x9020, 4)
	if h1 == nil || h2 == nil {
		t.Fatal("Lookup returned nil for watched region")
	}
	if h1 != h2 {
		t.Fatal("lookups for one region returned different handles")
	}

	h1.Track(0x9010, 4)
	if _, overlap := h2.Check(0x9010, 4); !overlap {
		t.Error("state tracked via one handle not visible via the other")
	}
}

// TestIndependentRegions tests that each region gets its own tracker.
func TestIndependentRegions(t *testing.T) {
	r := New()
	r.Watch(0x9000, 0x100)
	r.Watch(0xa000, 0x100)

	r.Lookup(0x9010, 4).Track(0x9010, 4)

	if _, overlap := r.Lookup(0xa010, 4).Check(0xa010, 4); overlap {
		t.Error("tracking in one region leaked into another")
	}
}

// TestUnwatch tests removal semantics.
func TestUnwatch(t *testing.T) {
	t.Run("drops region and tracker state", func(t *testing.T) {
		r := New()
		r.Watch(0x9000, 0x100)
		r.Lookup(0x9010, 4).Track(0x9010, 4)

		if !r.Unwatch(0x9010) {
			t.Fatal("Unwatch(0x9010) = false, want true")
		}
		if got := r.Lookup(0x9010, 4); got != nil {
			t.Error("Lookup found a region after Unwatch")
		}
		if r.Len() != 0 {
			t.Errorf("Len() = %d, want 0", r.Len())
		}
	})

	t.Run("no-op when nothing matches", func(t *testing.T) {
		r := New()
		r.Watch(0x9000, 0x100)

		if r.Unwatch(0x5000) {
			t.Error("Unwatch(0x5000) = true, want false")
		}
		if r.Len() != 1 {
			t.Errorf("Len() = %d, want 1", r.Len())
		}
	})

	t.Run("only the containing region is removed", func(t *testing.T) {
		r := New()
		r.Watch(0x9000, 0x100)
		r.Watch(0xa000, 0x100)

		r.Unwatch(0xa010)

		if r.Lookup(0x9010, 4) == nil {
			t.Error("unrelated region was removed")
		}
		if r.Lookup(0xa010, 4) != nil {
			t.Error("target region survived Unwatch")
		}
	})
}

// TestConcurrentLookupAndWatch tests that in-flight tracker operations on one
// region do not exclude registry mutation for others. The handle is used
// outside the registry lock, so concurrent Watch/Unwatch must not race with
// it structurally (run with -race).
func TestConcurrentLookupAndWatch(t *testing.T) {
	r := New()
	r.Watch(0x9000, 0x1000)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			addr := uintptr(0x9000 + (i%0x100)*8)
			h := r.Lookup(addr, 8)
			if h == nil {
				t.Error("watched region vanished")
				return
			}
			h.Track(addr, 8)
			h.Check(addr, 8)
		}
	}()

	for i := 0; i < 100; i++ {
		base := uintptr(0x100000 + i*0x1000)
		r.Watch(base, 0x100)
		r.Unwatch(base)
	}
	close(stop)
	wg.Wait()
}
