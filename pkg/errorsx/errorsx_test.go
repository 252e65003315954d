package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonUnknownProvider)
	if Reason(err) != ReasonUnknownProvider {
		t.Fatalf("expected reason %s, got %s", ReasonUnknownProvider, Reason(err))
	}
	if !HasReason(err, ReasonUnknownProvider) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonPipelineNotReady)
	second := Wrap(first, ReasonOutOfRange)
	if Reason(second) != ReasonPipelineNotReady {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestNewCarriesMessage(t *testing.T) {
	err := New(ReasonOutOfRange, "timeout must be between 0.1 and 10.0 seconds")
	if err.Error() != "timeout must be between 0.1 and 10.0 seconds" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if Reason(err) != ReasonOutOfRange {
		t.Fatalf("expected out_of_range, got %s", Reason(err))
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
