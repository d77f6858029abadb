package money

import "testing"

func TestWithTax(t *testing.T) {
	if got := WithTax(4000, 11.5); got != 4460 {
		t.Fatalf("expected 4460, got %d", got)
	}
	if got := WithTax(0, 11.5); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := WithTax(4000, 0); got != 4000 {
		t.Fatalf("expected 4000, got %d", got)
	}
}

func TestDecomposeResumsToGross(t *testing.T) {
	for _, gross := range []int64{2000, 4460, 1, 99, 123457} {
		subtotal, tax := Decompose(gross, 11.5)
		if subtotal+tax != gross {
			t.Fatalf("gross %d: subtotal %d + tax %d does not re-sum", gross, subtotal, tax)
		}
		if subtotal <= 0 || tax < 0 {
			t.Fatalf("gross %d: bad split subtotal=%d tax=%d", gross, subtotal, tax)
		}
	}
}

func TestDecomposeKnownValue(t *testing.T) {
	// 44.60 gross at 11.5% came from a 40.00 estimate.
	subtotal, tax := Decompose(4460, 11.5)
	if subtotal != 4000 {
		t.Fatalf("expected subtotal 4000, got %d", subtotal)
	}
	if tax != 460 {
		t.Fatalf("expected tax 460, got %d", tax)
	}
}

func TestHoursAmount(t *testing.T) {
	// 90 minutes at $12.00/h.
	hours, amount := HoursAmount(90*60*1000, 1200)
	if hours != 1.5 {
		t.Fatalf("expected 1.5 hours, got %v", hours)
	}
	if amount != 1800 {
		t.Fatalf("expected 1800 cents, got %d", amount)
	}

	_, amount = HoursAmount(0, 1200)
	if amount != 0 {
		t.Fatalf("expected 0 for zero duration, got %d", amount)
	}
}
