package progress

import "testing"

func TestComputeCompletion_EmptyIsZero(t *testing.T) {
	if got := ComputeCompletion(nil); got != 0 {
		t.Fatalf("expected 0 for empty set, got %d", got)
	}
	if got := ComputeCompletion([]bool{}); got != 0 {
		t.Fatalf("expected 0 for empty slice, got %d", got)
	}
}

func TestComputeCompletion_TruncatesTowardZero(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		total     int
		want      int
	}{
		{"none", 0, 6, 0},
		{"half", 3, 6, 50},
		{"four of six", 4, 6, 66},
		{"one third", 1, 3, 33},
		{"two thirds", 2, 3, 66},
		{"all", 6, 6, 100},
		{"single incomplete", 0, 1, 0},
		{"single complete", 1, 1, 100},
		{"one of seven", 1, 7, 14},
	}
	for _, tt := range tests {
		flags := make([]bool, tt.total)
		for i := 0; i < tt.completed; i++ {
			flags[i] = true
		}
		if got := ComputeCompletion(flags); got != tt.want {
			t.Fatalf("%s: ComputeCompletion(%d/%d) = %d, want %d", tt.name, tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestComputeCompletion_OrderIndependent(t *testing.T) {
	a := ComputeCompletion([]bool{true, false, true, false, false})
	b := ComputeCompletion([]bool{false, false, true, false, true})
	if a != b {
		t.Fatalf("same multiset of flags gave %d and %d", a, b)
	}
}

func TestComputeCompletionCounts_Bounds(t *testing.T) {
	if got := ComputeCompletionCounts(5, 0); got != 0 {
		t.Fatalf("zero total should give 0, got %d", got)
	}
	if got := ComputeCompletionCounts(-1, 4); got != 0 {
		t.Fatalf("negative completed should clamp to 0, got %d", got)
	}
	if got := ComputeCompletionCounts(9, 4); got != 100 {
		t.Fatalf("completed above total should clamp to 100, got %d", got)
	}
	for completed := 0; completed <= 20; completed++ {
		for total := 1; total <= 20; total++ {
			if completed > total {
				continue
			}
			got := ComputeCompletionCounts(completed, total)
			if got < 0 || got > 100 {
				t.Fatalf("percentage out of range: %d/%d -> %d", completed, total, got)
			}
			if want := 100 * completed / total; got != want {
				t.Fatalf("%d/%d: got %d want %d", completed, total, got, want)
			}
		}
	}
}
