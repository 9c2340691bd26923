package observability

import (
	"math"
	"strings"
	"testing"
)

func TestFeeUnits(t *testing.T) {
	if got := feeUnits("25"); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	huge := "1" + strings.Repeat("0", 400)
	if got := feeUnits(huge); got != math.MaxFloat64 {
		t.Fatalf("expected overflow to clamp to MaxFloat64, got %v", got)
	}
	if got := feeUnits("-" + huge); got != 0 {
		t.Fatalf("expected negative overflow to report zero, got %v", got)
	}
	if got := feeUnits("not-a-number"); got != 0 {
		t.Fatalf("expected malformed value to report zero, got %v", got)
	}
}
