package atn

import "testing"

func TestIntervalSetAddAndMerge(t *testing.T) {
	tests := []struct {
		caption string
		build   func() *IntervalSet
		want    string
	}{
		{
			caption: "disjoint ranges stay separate",
			build: func() *IntervalSet {
				s := NewIntervalSet()
				s.AddRange(1, 3)
				s.AddRange(10, 12)
				return s
			},
			want: "{1..3, 10..12}",
		},
		{
			caption: "overlapping ranges merge",
			build: func() *IntervalSet {
				s := NewIntervalSet()
				s.AddRange(1, 5)
				s.AddRange(3, 9)
				return s
			},
			want: "{1..9}",
		},
		{
			caption: "adjacent ranges merge",
			build: func() *IntervalSet {
				s := NewIntervalSet()
				s.AddRange(1, 3)
				s.AddRange(4, 6)
				return s
			},
			want: "{1..6}",
		},
		{
			caption: "single values",
			build: func() *IntervalSet {
				s := NewIntervalSet()
				s.AddOne(7)
				s.AddOne(5)
				s.AddOne(6)
				return s
			},
			want: "{5..7}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			if got := tt.build().String(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntervalSetCheckedAddReportsOverlap(t *testing.T) {
	s := NewIntervalSet()
	if overlap := s.AddRangeChecked('a', 'z'); overlap != nil {
		t.Fatalf("first add must not overlap, got %v", overlap)
	}
	overlap := s.AddRangeChecked('m', 'p')
	if overlap == nil {
		t.Fatalf("expected overlap")
	}
	if overlap.String() != "{109..112}" {
		t.Errorf("overlap: got %v", overlap)
	}
}

func TestIntervalSetComplement(t *testing.T) {
	s := NewIntervalSet()
	s.AddRange(3, 5)
	s.AddRange(8, 8)
	got := s.Complement(1, 10).String()
	if got != "{1..2, 6..7, 9..10}" {
		t.Errorf("complement: got %v", got)
	}
}

func TestIntervalSetAndDisjoint(t *testing.T) {
	a := NewIntervalSetOf(1, 10)
	b := NewIntervalSetOf(5, 15)
	c := NewIntervalSetOf(11, 20)

	if got := a.And(b).String(); got != "{5..10}" {
		t.Errorf("intersection: got %v", got)
	}
	if a.Disjoint(b) {
		t.Errorf("a and b overlap")
	}
	if !a.Disjoint(c) {
		t.Errorf("a and c are disjoint")
	}
}

func TestIntervalSetContainsAndLength(t *testing.T) {
	s := NewIntervalSet()
	s.AddRange(10, 12)
	s.AddOne(20)
	for _, v := range []int{10, 11, 12, 20} {
		if !s.Contains(v) {
			t.Errorf("missing %v", v)
		}
	}
	for _, v := range []int{9, 13, 19, 21} {
		if s.Contains(v) {
			t.Errorf("spurious %v", v)
		}
	}
	if s.Length() != 4 {
		t.Errorf("length: got %v, want 4", s.Length())
	}
}
