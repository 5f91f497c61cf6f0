// Copyright 2025 Certen Protocol

package validation

import (
	"testing"
	"time"

	"github.com/certen/sidecar-ledger/pkg/ledger"
)

func TestValidate_ProposalOK(t *testing.T) {
	ev := ledger.Event{
		Type: ledger.EventProposalRecorded,
		ID:   "evt-1",
		Proposal: &ledger.Proposal{
			ID:       "prop-1",
			Kind:     "claim",
			Status:   ledger.ProposalPending,
			Score:    0.4,
			Method:   "heuristic",
			Evidence: []any{},
		},
	}

	res := Validate(ev)
	if !res.OK {
		t.Fatalf("expected ok, got errors: %+v", res.Errors)
	}
}

func TestValidate_ProposalAccumulatesAllErrors(t *testing.T) {
	ev := ledger.Event{
		Type: ledger.EventProposalRecorded,
		Proposal: &ledger.Proposal{
			Status: "bogus",
			Score:  1.5,
		},
	}

	res := Validate(ev)
	if res.OK {
		t.Fatalf("expected failure")
	}

	want := map[string]bool{
		"id": true, "kind": true, "status": true, "score": true,
		"method": true, "evidence": true,
	}
	got := map[string]bool{}
	for _, e := range res.Errors {
		got[e.Field] = true
	}
	for field := range want {
		if !got[field] {
			t.Errorf("expected a violation on field %q, errors were: %+v", field, res.Errors)
		}
	}
}

func TestValidate_UnknownEventType(t *testing.T) {
	res := Validate(ledger.Event{Type: "mystery", ID: "evt-2"})
	if res.OK {
		t.Fatalf("expected failure for unknown event type")
	}
	foundTypeError := false
	for _, e := range res.Errors {
		if e.Field == "type" && e.Kind == ledger.ErrKindInvalid {
			foundTypeError = true
		}
	}
	if !foundTypeError {
		t.Errorf("expected an invalid 'type' error, got: %+v", res.Errors)
	}
}

func TestValidate_MissingPayload(t *testing.T) {
	res := Validate(ledger.Event{Type: ledger.EventPromotionRecorded, ID: "evt-3"})
	if res.OK {
		t.Fatalf("expected failure for missing payload")
	}
	if len(res.Errors) != 1 || res.Errors[0].Field != "promotion" {
		t.Errorf("expected a single missing 'promotion' error, got: %+v", res.Errors)
	}
}

func TestValidate_ChainSenseShiftRequiresGate(t *testing.T) {
	ev := ledger.Event{
		Type: ledger.EventChainBuilt,
		ID:   "evt-4",
		Chain: &ledger.Chain{
			Steps: []ledger.ChainStep{
				{Type: ledger.StepBridge, TargetID: "b-1", Shift: true},
			},
		},
	}

	res := Validate(ev)
	if res.OK {
		t.Fatalf("expected failure: shift without gate")
	}
	found := false
	for _, e := range res.Errors {
		if e.Field == "step/gate" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a step/gate error, got: %+v", res.Errors)
	}
}

func TestValidate_ChainSenseShiftWithGateOK(t *testing.T) {
	ev := ledger.Event{
		Type: ledger.EventChainBuilt,
		ID:   "evt-5",
		Chain: &ledger.Chain{
			Steps: []ledger.ChainStep{
				{Type: ledger.StepArrow, TargetID: "a-1"},
				{Type: ledger.StepBridge, TargetID: "b-1", Shift: true, Gate: ledger.GateTypedArrow},
				{Type: ledger.StepProposal, TargetID: "p-2"},
			},
		},
	}

	res := Validate(ev)
	if !res.OK {
		t.Fatalf("expected ok, got errors: %+v", res.Errors)
	}
}

func TestValidate_ChainEmptySteps(t *testing.T) {
	res := Validate(ledger.Event{
		Type:  ledger.EventChainBuilt,
		ID:    "evt-6",
		Chain: &ledger.Chain{Steps: nil},
	})
	if res.OK {
		t.Fatalf("expected failure for empty steps")
	}
	if len(res.Errors) != 1 || res.Errors[0].Field != "steps" {
		t.Errorf("expected a single 'steps' error, got: %+v", res.Errors)
	}
}

func TestValidate_BridgeTriple(t *testing.T) {
	ok := Validate(ledger.Event{
		Type: ledger.EventBridgeTripleRecorded,
		ID:   "evt-7",
		BridgeTriple: &ledger.BridgeTriple{
			ID:          "b-1",
			PromotionID: "pr-1",
			CreatedAt:   time.Now(),
		},
	})
	if !ok.OK {
		t.Fatalf("expected ok, got errors: %+v", ok.Errors)
	}

	bad := Validate(ledger.Event{
		Type:         ledger.EventBridgeTripleRecorded,
		ID:           "evt-8",
		BridgeTriple: &ledger.BridgeTriple{},
	})
	if bad.OK {
		t.Fatalf("expected failure for missing bridge-triple fields")
	}
}

func TestDecodeStrict_UnknownEnvelopeField(t *testing.T) {
	raw := []byte(`{"type":"action-recorded","id":"evt-10","action":{"id":"a-1","type":"review"},"oops":true}`)

	ev, unknown, err := DecodeStrict(raw)
	if err != nil {
		t.Fatalf("DecodeStrict: %v", err)
	}
	if ev.ID != "evt-10" {
		t.Fatalf("expected decoded event id, got %q", ev.ID)
	}
	if len(unknown) != 1 || unknown[0].Field != "<envelope>" || unknown[0].Kind != ledger.ErrKindUnknown {
		t.Errorf("expected one envelope-level unknown error, got: %+v", unknown)
	}
}

func TestDecodeStrict_UnknownPayloadField(t *testing.T) {
	raw := []byte(`{"type":"action-recorded","id":"evt-11","action":{"id":"a-1","type":"review","bogus":"x"}}`)

	_, unknown, err := DecodeStrict(raw)
	if err != nil {
		t.Fatalf("DecodeStrict: %v", err)
	}
	if len(unknown) != 1 || unknown[0].Field != "action" || unknown[0].Kind != ledger.ErrKindUnknown {
		t.Errorf("expected one payload-level unknown error on 'action', got: %+v", unknown)
	}
}

func TestDecodeStrict_NoUnknownFieldsOK(t *testing.T) {
	raw := []byte(`{"type":"action-recorded","id":"evt-12","action":{"id":"a-1","type":"review"}}`)

	_, unknown, err := DecodeStrict(raw)
	if err != nil {
		t.Fatalf("DecodeStrict: %v", err)
	}
	if len(unknown) != 0 {
		t.Errorf("expected no unknown-field errors, got: %+v", unknown)
	}
}

func TestDecodeStrict_InvalidJSON(t *testing.T) {
	_, _, err := DecodeStrict([]byte(`not json`))
	if err == nil {
		t.Fatalf("expected a decode error for malformed JSON")
	}
}

func TestValidate_EvidenceTargetType(t *testing.T) {
	res := Validate(ledger.Event{
		Type: ledger.EventEvidenceAttached,
		ID:   "evt-9",
		Evidence: &ledger.Evidence{
			ID:      "ev-1",
			Target:  ledger.EvidenceTarget{Type: "nonsense", ID: "prop-1"},
			Method:  "manual",
			Payload: []any{},
		},
	})
	if res.OK {
		t.Fatalf("expected failure for bad target.type")
	}
	found := false
	for _, e := range res.Errors {
		if e.Field == "target.type" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a target.type error, got: %+v", res.Errors)
	}
}
