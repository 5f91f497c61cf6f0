// Copyright 2025 Certen Protocol

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/certen/sidecar-ledger/pkg/audit"
	"github.com/certen/sidecar-ledger/pkg/clock"
	"github.com/certen/sidecar-ledger/pkg/idgen"
	"github.com/certen/sidecar-ledger/pkg/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	sink, err := audit.New(audit.Config{Path: filepath.Join(t.TempDir(), "sidecar-audit.edn")})
	if err != nil {
		t.Fatalf("audit.New: %v", err)
	}
	t.Cleanup(func() { sink.Close() })

	return New(Config{
		Clock: clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		IDs:   idgen.NewSequential(),
		Audit: sink,
	})
}

func TestStore_DuplicateProposalIsAudited(t *testing.T) {
	s := newTestStore(t)

	p := ledger.Proposal{ID: "p-1", Kind: "claim", Status: ledger.ProposalPending, Score: 0.2, Method: "heuristic"}
	first := s.RecordProposal(p)
	if !first.OK {
		t.Fatalf("expected first write ok, got %+v", first.Errors)
	}

	second := s.RecordProposal(p)
	if second.OK {
		t.Fatalf("expected duplicate id to be rejected")
	}

	log := s.AuditLog()
	if len(log) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(log))
	}
	if log[1].AuditType != ledger.AuditAppendOnlyViolation {
		t.Errorf("expected append-only-violation audit, got %s", log[1].AuditType)
	}
}

func TestStore_PromotionRequiresExistingProposal(t *testing.T) {
	s := newTestStore(t)

	res := s.RecordPromotion(ledger.Promotion{
		ProposalID: "does-not-exist",
		DecidedBy:  "reviewer-1",
		Rationale:  "looks right",
	})
	if res.OK {
		t.Fatalf("expected failure: proposal does not exist")
	}

	found := false
	for _, e := range res.Errors {
		if e.Field == "proposal-id" && e.Kind == ledger.ErrKindMissing {
			found = true
		}
	}
	if !found {
		t.Errorf("expected missing proposal-id error, got %+v", res.Errors)
	}
}

func TestStore_ChainSoftnessScoring(t *testing.T) {
	s := newTestStore(t)

	prop := s.RecordProposal(ledger.Proposal{ID: "p-2", Kind: "claim", Status: ledger.ProposalPending, Score: 0.3, Method: "m"})
	if !prop.OK {
		t.Fatalf("record proposal: %+v", prop.Errors)
	}
	promo := s.RecordPromotion(ledger.Promotion{ID: "promo-1", ProposalID: "p-2", DecidedBy: "r", Rationale: "ok"})
	if !promo.OK {
		t.Fatalf("record promotion: %+v", promo.Errors)
	}
	bridge := s.RecordBridgeTriple("promo-1", ledger.BridgeTriple{ID: "b-1", Subject: "x", Predicate: "maps-to", Object: "y"})
	if !bridge.OK {
		t.Fatalf("record bridge triple: %+v", bridge.Errors)
	}

	chain := s.BuildChain(ledger.Chain{
		ID: "c-1",
		Steps: []ledger.ChainStep{
			{Type: ledger.StepArrow, TargetID: "a-1"},
			{Type: ledger.StepBridge, TargetID: "b-1"},
			{Type: ledger.StepProposal, TargetID: "p-2"},
		},
	})
	if !chain.OK {
		t.Fatalf("build chain: %+v", chain.Errors)
	}
	if chain.Softness.Total != 1.5 {
		t.Errorf("expected total softness 1.5, got %v", chain.Softness.Total)
	}
	if chain.Softness.Average != 0.5 {
		t.Errorf("expected average softness 0.5, got %v", chain.Softness.Average)
	}
}

func TestStore_ChainRejectsUnknownBridgeStep(t *testing.T) {
	s := newTestStore(t)

	res := s.BuildChain(ledger.Chain{
		Steps: []ledger.ChainStep{{Type: ledger.StepBridge, TargetID: "no-such-bridge"}},
	})
	if res.OK {
		t.Fatalf("expected failure: bridge step refers to unknown bridge triple")
	}
}

func TestStore_FactKindMismatchIsBoundaryViolation(t *testing.T) {
	s := newTestStore(t)

	s.RecordProposal(ledger.Proposal{ID: "p-3", Kind: "claim", Status: ledger.ProposalPending, Score: 0.1, Method: "m"})
	s.RecordPromotion(ledger.Promotion{ID: "promo-2", ProposalID: "p-3", Kind: "claim", DecidedBy: "r", Rationale: "ok"})

	res := s.RecordFact("promo-2", ledger.Fact{Kind: ledger.FactKindBridgeTriple})
	if res.OK {
		t.Fatalf("expected fact-kind mismatch to be rejected")
	}

	found := false
	for _, e := range res.Errors {
		if e.Field == "fact-kind" && e.Kind == ledger.ErrKindMismatch {
			found = true
		}
	}
	if !found {
		t.Errorf("expected fact-kind mismatch error, got %+v", res.Errors)
	}

	log := s.AuditLog()
	if log[len(log)-1].AuditType != ledger.AuditBoundaryViolation {
		t.Errorf("expected boundary-violation audit, got %s", log[len(log)-1].AuditType)
	}
}

func TestStore_EvidenceRequiresExistingTarget(t *testing.T) {
	s := newTestStore(t)

	res := s.RecordEvidence(ledger.Evidence{
		Target: ledger.EvidenceTarget{Type: ledger.EvidenceTargetProposal, ID: "missing"},
		Method: "manual",
	})
	if res.OK {
		t.Fatalf("expected failure: evidence target does not exist")
	}
}

func TestStore_DuplicatePromotionIsAppendOnlyViolation(t *testing.T) {
	s := newTestStore(t)

	s.RecordProposal(ledger.Proposal{ID: "p-4", Kind: "claim", Status: ledger.ProposalPending, Score: 0.1, Method: "m"})
	p := ledger.Promotion{ID: "promo-3", ProposalID: "p-4", DecidedBy: "r", Rationale: "ok"}

	first := s.RecordPromotion(p)
	if !first.OK {
		t.Fatalf("expected first write ok, got %+v", first.Errors)
	}

	second := s.RecordPromotion(p)
	if second.OK {
		t.Fatalf("expected duplicate promotion id to be rejected")
	}

	log := s.AuditLog()
	if log[len(log)-1].AuditType != ledger.AuditAppendOnlyViolation {
		t.Errorf("expected append-only-violation audit for a duplicate promotion id that references a valid proposal, got %s", log[len(log)-1].AuditType)
	}
}

func TestStore_DuplicateEvidenceIsAppendOnlyViolation(t *testing.T) {
	s := newTestStore(t)

	s.RecordProposal(ledger.Proposal{ID: "p-5", Kind: "claim", Status: ledger.ProposalPending, Score: 0.1, Method: "m"})
	e := ledger.Evidence{ID: "ev-1", Target: ledger.EvidenceTarget{Type: ledger.EvidenceTargetProposal, ID: "p-5"}, Method: "manual"}

	first := s.RecordEvidence(e)
	if !first.OK {
		t.Fatalf("expected first write ok, got %+v", first.Errors)
	}

	second := s.RecordEvidence(e)
	if second.OK {
		t.Fatalf("expected duplicate evidence id to be rejected")
	}

	log := s.AuditLog()
	if log[len(log)-1].AuditType != ledger.AuditAppendOnlyViolation {
		t.Errorf("expected append-only-violation audit for a duplicate evidence id with a valid target, got %s", log[len(log)-1].AuditType)
	}
}

func TestStore_DuplicateFactIsAppendOnlyViolation(t *testing.T) {
	s := newTestStore(t)

	s.RecordProposal(ledger.Proposal{ID: "p-6", Kind: "claim", Status: ledger.ProposalPending, Score: 0.1, Method: "m"})
	s.RecordPromotion(ledger.Promotion{ID: "promo-4", ProposalID: "p-6", DecidedBy: "r", Rationale: "ok"})
	f := ledger.Fact{ID: "fact-1", Kind: "claim"}

	first := s.RecordFact("promo-4", f)
	if !first.OK {
		t.Fatalf("expected first write ok, got %+v", first.Errors)
	}

	second := s.RecordFact("promo-4", f)
	if second.OK {
		t.Fatalf("expected duplicate fact id to be rejected")
	}

	log := s.AuditLog()
	if log[len(log)-1].AuditType != ledger.AuditAppendOnlyViolation {
		t.Errorf("expected append-only-violation audit for a duplicate fact id that references a valid promotion, got %s", log[len(log)-1].AuditType)
	}
}

func TestStore_DuplicateBridgeTripleIsAppendOnlyViolation(t *testing.T) {
	s := newTestStore(t)

	s.RecordProposal(ledger.Proposal{ID: "p-7", Kind: "claim", Status: ledger.ProposalPending, Score: 0.1, Method: "m"})
	s.RecordPromotion(ledger.Promotion{ID: "promo-5", ProposalID: "p-7", DecidedBy: "r", Rationale: "ok"})
	b := ledger.BridgeTriple{ID: "bridge-1", Subject: "x", Predicate: "maps-to", Object: "y"}

	first := s.RecordBridgeTriple("promo-5", b)
	if !first.OK {
		t.Fatalf("expected first write ok, got %+v", first.Errors)
	}

	second := s.RecordBridgeTriple("promo-5", b)
	if second.OK {
		t.Fatalf("expected duplicate bridge-triple id to be rejected")
	}

	log := s.AuditLog()
	if log[len(log)-1].AuditType != ledger.AuditAppendOnlyViolation {
		t.Errorf("expected append-only-violation audit for a duplicate bridge-triple id that references a valid promotion, got %s", log[len(log)-1].AuditType)
	}
}

func TestStore_DuplicateChainIsAppendOnlyViolation(t *testing.T) {
	s := newTestStore(t)

	s.RecordProposal(ledger.Proposal{ID: "p-8", Kind: "claim", Status: ledger.ProposalPending, Score: 0.1, Method: "m"})
	c := ledger.Chain{
		ID:    "chain-1",
		Steps: []ledger.ChainStep{{Type: ledger.StepProposal, TargetID: "p-8"}},
	}

	first := s.BuildChain(c)
	if !first.OK {
		t.Fatalf("expected first write ok, got %+v", first.Errors)
	}

	second := s.BuildChain(c)
	if second.OK {
		t.Fatalf("expected duplicate chain id to be rejected")
	}

	log := s.AuditLog()
	if log[len(log)-1].AuditType != ledger.AuditAppendOnlyViolation {
		t.Errorf("expected append-only-violation audit for a duplicate chain id with valid step references, got %s", log[len(log)-1].AuditType)
	}
}

func TestStore_RejectAuditsWithoutRecording(t *testing.T) {
	s := newTestStore(t)

	ev := ledger.Event{Type: ledger.EventActionRecorded, ID: "evt-1"}
	errs := []ledger.FieldError{{Field: "<envelope>", Kind: ledger.ErrKindUnknown, Message: "unrecognized field(s)"}}

	res := s.Reject(ev, errs)
	if res.OK {
		t.Fatalf("expected Reject to report failure")
	}

	log := s.AuditLog()
	if len(log) != 1 || log[0].AuditType != ledger.AuditValidationFailure {
		t.Fatalf("expected a single validation-failure audit entry, got %+v", log)
	}
	if len(s.Actions()) != 0 {
		t.Errorf("expected no action to have been recorded")
	}
}
