package colorant

import "testing"

func TestSortColorantsAscendingDedupe(t *testing.T) {
	tests := []struct {
		name        string
		input       []Index
		dup         DuplicatePolicy
		output      []Index
		simple      bool
		permutation []int32 // nil skips the permutation check
	}{
		{
			name:        "already sorted, no dupes",
			input:       []Index{0, 1, 2},
			dup:         First,
			output:      []Index{0, 1, 2},
			simple:      true,
			permutation: []int32{0, 1, 2},
		},
		{
			// Output[k] = input[Permutation[k]]: Output[0]=1 came from
			// input[1], Output[1]=2 came from input[2], Output[2]=3 came
			// from input[0].
			name:        "reverse order",
			input:       []Index{3, 1, 2},
			dup:         First,
			output:      []Index{1, 2, 3},
			simple:      false,
			permutation: []int32{1, 2, 0},
		},
		{
			// Permutation stays at the pre-dedupe (post-sort) length, with
			// the dropped duplicate's slot marked -1 rather than
			// compacted away, so it isn't asserted positionally here.
			name:   "dedupe keep first",
			input:  []Index{1, 1, 2},
			dup:    First,
			output: []Index{1, 2},
			simple: false,
		},
		{
			name:   "dedupe keep last",
			input:  []Index{1, 1, 2},
			dup:    Last,
			output: []Index{1, 2},
			simple: false,
		},
		{
			name:   "drop leading none when others present",
			input:  []Index{NONE, 0, 1},
			dup:    First,
			output: []Index{0, 1},
			simple: false,
		},
		{
			name:   "keep single none when all none",
			input:  []Index{NONE, NONE},
			dup:    First,
			output: []Index{NONE},
			simple: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := SortColorants(tc.input, tc.dup)
			if len(res.Output) != len(tc.output) {
				t.Fatalf("len(output) = %d, want %d (%v)", len(res.Output), len(tc.output), res.Output)
			}
			for i := range tc.output {
				if res.Output[i] != tc.output[i] {
					t.Errorf("output[%d] = %v, want %v", i, res.Output[i], tc.output[i])
				}
			}
			if res.Simple != tc.simple {
				t.Errorf("simple = %v, want %v", res.Simple, tc.simple)
			}
			if tc.permutation != nil {
				if len(res.Permutation) != len(tc.permutation) {
					t.Fatalf("len(permutation) = %d, want %d (%v)", len(res.Permutation), len(tc.permutation), res.Permutation)
				}
				for k := range tc.permutation {
					if res.Permutation[k] != tc.permutation[k] {
						t.Errorf("permutation[%d] = %d, want %d", k, res.Permutation[k], tc.permutation[k])
					}
					if p := res.Permutation[k]; p >= 0 && int(p) < len(tc.input) {
						if tc.input[p] != res.Output[k] {
							t.Errorf("input[permutation[%d]] = %v, want output[%d] = %v", k, tc.input[p], k, res.Output[k])
						}
					}
				}
			}
		})
	}
}

func TestSortColorantsIdempotentPermutation(t *testing.T) {
	res := SortColorants([]Index{0, 1, 2, 3}, First)
	for i, p := range res.Permutation {
		if p != int32(i) {
			t.Errorf("permutation[%d] = %d, want identity %d", i, p, i)
		}
	}
}

func TestOverprintMaskBasics(t *testing.T) {
	m := NewOverprintMask(5)
	if m.CountOverprint() != 0 {
		t.Fatalf("fresh mask should have zero overprint bits")
	}
	m.Overprint(0)
	m.Overprint(4)
	if !m.IsOverprint(0) || !m.IsOverprint(4) {
		t.Fatal("expected bits 0 and 4 set")
	}
	if m.IsOverprint(1) || m.IsOverprint(2) || m.IsOverprint(3) {
		t.Fatal("unexpected bits set")
	}
	if m.CountOverprint() != 2 {
		t.Fatalf("CountOverprint = %d, want 2", m.CountOverprint())
	}
	if !m.IsPaint(1) {
		t.Fatal("IsPaint should be true where IsOverprint is false")
	}
}

func TestOverprintMaskPaddingStaysKnockout(t *testing.T) {
	m := NewOverprintMask(3)
	m.SetAll(true)
	if m.CountOverprint() != 3 {
		t.Fatalf("CountOverprint = %d, want 3 (padding must stay knockout)", m.CountOverprint())
	}
}

func TestIntersectOverprintMaskLaws(t *testing.T) {
	m := NewOverprintMask(4)
	m.Overprint(1)
	m.Overprint(3)

	self := Intersect(m, m)
	if self.CountOverprint() != m.CountOverprint() {
		t.Fatal("intersect(M, M) must equal M")
	}

	allKnockout := NewOverprintMask(4)
	withKnockout := Intersect(m, allKnockout)
	if withKnockout.CountOverprint() != 0 {
		t.Fatal("intersect(M, all-knockout) must be all-knockout")
	}

	allOverprint := NewOverprintMask(4)
	allOverprint.SetAll(true)
	withAll := Intersect(m, allOverprint)
	if withAll.CountOverprint() != m.CountOverprint() {
		t.Fatal("intersect(M, all-overprint) must equal M")
	}
}

func TestBackgroundColorants(t *testing.T) {
	sorted := []Index{0, 1, 2}
	values := []uint16{0xFF00, 0, 0x8000}
	bg := BackgroundColorants(sorted, values, false) // subtractive: white = 0xFF00
	if len(bg) != 1 || bg[0] != 0 {
		t.Fatalf("BackgroundColorants = %v, want [0]", bg)
	}
}
