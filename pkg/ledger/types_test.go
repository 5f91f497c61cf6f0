// Copyright 2025 Certen Protocol

package ledger

import "testing"

func TestStepWeight_KnownTypes(t *testing.T) {
	if w, ok := StepWeight(StepArrow); !ok || w != 0.0 {
		t.Errorf("expected arrow weight 0.0, got %v (ok=%v)", w, ok)
	}
	if w, ok := StepWeight(StepBridge); !ok || w != 0.5 {
		t.Errorf("expected bridge weight 0.5, got %v (ok=%v)", w, ok)
	}
	if w, ok := StepWeight(StepProposal); !ok || w != 1.0 {
		t.Errorf("expected proposal weight 1.0, got %v (ok=%v)", w, ok)
	}
}

func TestStepWeight_UnknownType(t *testing.T) {
	if _, ok := StepWeight("not-a-real-step"); ok {
		t.Errorf("expected unknown step type to report ok=false")
	}
}
