package shm

import "testing"

// TestTakeMatchConsumes tests that a matched record is consumed exactly once.
func TestTakeMatchConsumes(t *testing.T) {
	p := NewPendingSet()
	p.Remember(7, 0x1000)

	size, ok := p.TakeMatch(7)
	if !ok || size != 0x1000 {
		t.Fatalf("TakeMatch(7) = (%#x, %v), want (0x1000, true)", size, ok)
	}

	if _, ok := p.TakeMatch(7); ok {
		t.Error("second TakeMatch(7) matched a consumed record")
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
}

// TestTakeMatchUnknownID tests that unknown IDs find no match and disturb
// nothing.
func TestTakeMatchUnknownID(t *testing.T) {
	p := NewPendingSet()
	p.Remember(7, 0x1000)

	if _, ok := p.TakeMatch(9); ok {
		t.Error("TakeMatch(9) matched, want no match")
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

// TestTakeMatchFirstOfDuplicates tests that duplicate IDs are consumed one at
// a time, oldest first.
func TestTakeMatchFirstOfDuplicates(t *testing.T) {
	p := NewPendingSet()
	p.Remember(7, 0x1000)
	p.Remember(7, 0x2000)

	size, ok := p.TakeMatch(7)
	if !ok || size != 0x1000 {
		t.Fatalf("first TakeMatch(7) = (%#x, %v), want (0x1000, true)", size, ok)
	}

	size, ok = p.TakeMatch(7)
	if !ok || size != 0x2000 {
		t.Fatalf("second TakeMatch(7) = (%#x, %v), want (0x2000, true)", size, ok)
	}
}
