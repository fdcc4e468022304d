package pagination

import "testing"

func TestLimitsSize(t *testing.T) {
	turns := Limits{Default: 50, Max: 100}
	for requested, want := range map[int]int{0: 50, -3: 50, 1: 1, 10: 10, 100: 100, 500: 100} {
		if got := turns.Size(requested); got != want {
			t.Fatalf("expected size %d for request %d, got %d", want, requested, got)
		}
	}
}

func TestLimitsSizeZeroValue(t *testing.T) {
	var limits Limits
	if got := limits.Size(0); got != 1 {
		t.Fatalf("expected floor of 1, got %d", got)
	}
	if got := limits.Size(7); got != 7 {
		t.Fatalf("expected uncapped request, got %d", got)
	}
}
