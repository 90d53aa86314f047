package span

import "testing"

// TestWithLen tests span construction from (start, size).
func TestWithLen(t *testing.T) {
	a := New(0x4141, 0x4142)
	b := WithLen(0x4141, 1)

	if a != b {
		t.Errorf("WithLen(0x4141, 1) = %v, want %v", b, a)
	}
}

// TestWithLenSaturates tests that length overflow clamps to the top of the
// address space instead of wrapping.
func TestWithLenSaturates(t *testing.T) {
	s := WithLen(^Address(0)-4, 16)

	if s.Start() != ^Address(0)-4 {
		t.Errorf("Start() = %#x, want %#x", s.Start(), ^Address(0)-4)
	}
	if s.End() != ^Address(0) {
		t.Errorf("End() = %#x, want %#x (saturated)", s.End(), ^Address(0))
	}
}

// TestAccessors tests Start, End and Len.
func TestAccessors(t *testing.T) {
	s := New(0x4141, 0x4242)

	if s.Start() != 0x4141 {
		t.Errorf("Start() = %#x, want 0x4141", s.Start())
	}
	if s.End() != 0x4242 {
		t.Errorf("End() = %#x, want 0x4242", s.End())
	}
	if s.Len() != 0x4242-0x4141 {
		t.Errorf("Len() = %#x, want %#x", s.Len(), 0x4242-0x4141)
	}
}

// TestOrdering tests that spans order by start address.
func TestOrdering(t *testing.T) {
	a := New(0x4040, 0x4141)
	b := New(0x4141, 0x4242)

	if !a.Before(b) {
		t.Error("a.Before(b) = false, want true")
	}
	if b.Before(a) {
		t.Error("b.Before(a) = true, want false")
	}
}

// TestRelation tests the seven-way classification, including its asymmetry:
// each pair is checked in both operand orders.
func TestRelation(t *testing.T) {
	tests := []struct {
		name    string
		self    Span
		other   Span
		want    Relation
		wantInv Relation // other.Relation(self)
	}{
		{
			name:    "break and engulf",
			self:    New(0, 0xffff),
			other:   New(0x4141, 0x4242),
			want:    Break,
			wantInv: Engulf,
		},
		{
			name:    "adjacent edges",
			self:    New(0x4040, 0x4141),
			other:   New(0x4141, 0x4242),
			want:    AdjacentEnd,
			wantInv: AdjacentStart,
		},
		{
			name:    "overlapping edges",
			self:    New(0x4040, 0x4142),
			other:   New(0x4140, 0x4242),
			want:    OverlapEnd,
			wantInv: OverlapStart,
		},
		{
			name:    "disjoint",
			self:    New(0x4141, 0x4242),
			other:   New(0x5151, 0x5252),
			want:    None,
			wantInv: None,
		},
		{
			name:    "identical spans engulf both ways",
			self:    New(0x4141, 0x4242),
			other:   New(0x4141, 0x4242),
			want:    Engulf,
			wantInv: Engulf,
		},
		{
			name:    "engulf beats adjacency precedence",
			self:    New(0x4141, 0x4141), // empty reference
			other:   New(0x4040, 0x4242),
			want:    Engulf,
			wantInv: Break,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.self.Relation(tt.other); got != tt.want {
				t.Errorf("%v.Relation(%v) = %v, want %v", tt.self, tt.other, got, tt.want)
			}
			if got := tt.other.Relation(tt.self); got != tt.wantInv {
				t.Errorf("%v.Relation(%v) = %v, want %v", tt.other, tt.self, got, tt.wantInv)
			}
		})
	}
}

// TestString tests the diagnostic format.
func TestString(t *testing.T) {
	got := New(0x4141, 0x4242).String()
	want := "0x0000000000004141..0x0000000000004242"

	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
