// Copyright 2025 Certen Protocol
//
// Package store implements the sidecar ledger's in-memory store (C3): the
// single component that owns the write path (validate → boundary-check →
// uniqueness-check → insert → audit) and exposes snapshot-consistent read
// accessors that take the same mutex and return copies. The single-writer-mutex discipline and the
// arena-of-maps layout continue the teacher's pkg/ledger/store.go (now
// retired in favor of this package) and its documented concurrency stance;
// the MemoryKV mutex pattern is lifted from main.go's MemoryKV.
package store

import (
	"sort"
	"sync"

	"github.com/certen/sidecar-ledger/pkg/audit"
	"github.com/certen/sidecar-ledger/pkg/chain"
	"github.com/certen/sidecar-ledger/pkg/clock"
	"github.com/certen/sidecar-ledger/pkg/idgen"
	"github.com/certen/sidecar-ledger/pkg/ledger"
	"github.com/certen/sidecar-ledger/pkg/metrics"
	"github.com/certen/sidecar-ledger/pkg/validation"
)

// Result is the outcome of a single record-operation.
type Result struct {
	OK     bool                `json:"ok"`
	ID     string              `json:"id,omitempty"`
	Errors []ledger.FieldError `json:"errors,omitempty"`
	// Softness is populated only by BuildChain.
	Softness *Softness `json:"softness,omitempty"`
}

// Softness carries a built chain's computed softness accounting.
type Softness struct {
	Total   float64
	Average float64
	PerStep []float64
}

// Store is the sidecar ledger's single in-memory store. The zero value is
// not usable; construct with New. A Store is safe for concurrent use: all
// writes serialize on mu, all reads return defensive copies so callers never
// observe a write half-applied.
type Store struct {
	mu sync.Mutex

	clock   clock.Clock
	ids     idgen.Generator
	audit   *audit.Sink
	metrics *metrics.Metrics

	proposals     map[string]ledger.Proposal
	promotions    map[string]ledger.Promotion
	evidence      map[string]ledger.Evidence
	actions       map[string]ledger.Action
	facts         map[string]ledger.Fact
	bridgeTriples map[string]ledger.BridgeTriple
	chains        map[string]ledger.Chain
}

// Config wires a Store's collaborators.
type Config struct {
	Clock   clock.Clock
	IDs     idgen.Generator
	Audit   *audit.Sink
	Metrics *metrics.Metrics
}

// New constructs an empty Store. Clock and IDs default to the production
// implementations if left nil; Audit is required.
func New(cfg Config) *Store {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.IDs == nil {
		cfg.IDs = idgen.New()
	}
	return &Store{
		clock:         cfg.Clock,
		ids:           cfg.IDs,
		audit:         cfg.Audit,
		metrics:       cfg.Metrics,
		proposals:     map[string]ledger.Proposal{},
		promotions:    map[string]ledger.Promotion{},
		evidence:      map[string]ledger.Evidence{},
		actions:       map[string]ledger.Action{},
		facts:         map[string]ledger.Fact{},
		bridgeTriples: map[string]ledger.BridgeTriple{},
		chains:        map[string]ledger.Chain{},
	}
}

// RecordProposal validates and, on success, commits p and mirrors the
// outcome to the audit sink. p.ID and p.CreatedAt are assigned if empty.
func (s *Store) RecordProposal(p ledger.Proposal) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.ids.NewID("prop")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.clock.Now()
	}
	if p.Evidence == nil {
		p.Evidence = []any{}
	}

	ev := ledger.Event{Type: ledger.EventProposalRecorded, ID: p.ID, At: p.CreatedAt, Proposal: &p}
	res := validation.Validate(ev)
	if !res.OK {
		s.reject(ev, ledger.AuditValidationFailure, res.Errors)
		return Result{OK: false, Errors: res.Errors}
	}

	var boundaryErrs []ledger.FieldError
	if _, exists := s.proposals[p.ID]; exists {
		boundaryErrs = append(boundaryErrs, dup("proposal-id", p.ID))
	}
	if len(boundaryErrs) > 0 {
		s.reject(ev, ledger.AuditAppendOnlyViolation, boundaryErrs)
		return Result{OK: false, Errors: boundaryErrs}
	}

	s.proposals[p.ID] = p
	s.commit(ev)
	s.metrics.ObserveEntity("proposal")
	return Result{OK: true, ID: p.ID}
}

// RecordPromotion validates that the referenced proposal exists (invariant
// 2: referential), then commits.
func (s *Store) RecordPromotion(p ledger.Promotion) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.ids.NewID("promo")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.clock.Now()
	}

	ev := ledger.Event{Type: ledger.EventPromotionRecorded, ID: p.ID, At: p.CreatedAt, Promotion: &p}
	res := validation.Validate(ev)
	if !res.OK {
		s.reject(ev, ledger.AuditValidationFailure, res.Errors)
		return Result{OK: false, Errors: res.Errors}
	}

	var boundaryErrs []ledger.FieldError
	if _, exists := s.proposals[p.ProposalID]; !exists {
		boundaryErrs = append(boundaryErrs, missingRef("proposal-id", p.ProposalID))
	}
	if len(boundaryErrs) > 0 {
		s.reject(ev, ledger.AuditBoundaryViolation, boundaryErrs)
		return Result{OK: false, Errors: boundaryErrs}
	}

	if _, exists := s.promotions[p.ID]; exists {
		errs := []ledger.FieldError{dup("id", p.ID)}
		s.reject(ev, ledger.AuditAppendOnlyViolation, errs)
		return Result{OK: false, Errors: errs}
	}

	s.promotions[p.ID] = p
	s.commit(ev)
	s.metrics.ObserveEntity("promotion")
	return Result{OK: true, ID: p.ID}
}

// RecordEvidence validates that the evidence target exists, then commits.
func (s *Store) RecordEvidence(e ledger.Evidence) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.ids.NewID("ev")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock.Now()
	}
	if e.Payload == nil {
		e.Payload = []any{}
	}

	ev := ledger.Event{Type: ledger.EventEvidenceAttached, ID: e.ID, At: e.CreatedAt, Evidence: &e}
	res := validation.Validate(ev)
	if !res.OK {
		s.reject(ev, ledger.AuditValidationFailure, res.Errors)
		return Result{OK: false, Errors: res.Errors}
	}

	var boundaryErrs []ledger.FieldError
	if !s.targetExists(e.Target) {
		boundaryErrs = append(boundaryErrs, missingRef("target.id", e.Target.ID))
	}
	if len(boundaryErrs) > 0 {
		s.reject(ev, ledger.AuditBoundaryViolation, boundaryErrs)
		return Result{OK: false, Errors: boundaryErrs}
	}

	if _, exists := s.evidence[e.ID]; exists {
		errs := []ledger.FieldError{dup("id", e.ID)}
		s.reject(ev, ledger.AuditAppendOnlyViolation, errs)
		return Result{OK: false, Errors: errs}
	}

	s.evidence[e.ID] = e
	s.commit(ev)
	s.metrics.ObserveEntity("evidence")
	return Result{OK: true, ID: e.ID}
}

// RecordAction validates and commits a reviewer/agent activity record.
func (s *Store) RecordAction(a ledger.Action) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.ids.NewID("act")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.clock.Now()
	}

	ev := ledger.Event{Type: ledger.EventActionRecorded, ID: a.ID, At: a.CreatedAt, Action: &a}
	res := validation.Validate(ev)
	if !res.OK {
		s.reject(ev, ledger.AuditValidationFailure, res.Errors)
		return Result{OK: false, Errors: res.Errors}
	}

	if _, exists := s.actions[a.ID]; exists {
		errs := []ledger.FieldError{dup("id", a.ID)}
		s.reject(ev, ledger.AuditAppendOnlyViolation, errs)
		return Result{OK: false, Errors: errs}
	}

	s.actions[a.ID] = a
	s.commit(ev)
	s.metrics.ObserveEntity("action")
	return Result{OK: true, ID: a.ID}
}

// RecordFact validates that promotionID exists and, if the promotion
// declares a kind, that f.Kind matches it (invariant 2, scenario S6), then
// commits.
func (s *Store) RecordFact(promotionID string, f ledger.Fact) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.PromotionID = promotionID
	if f.ID == "" {
		f.ID = s.ids.NewID("fact")
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.clock.Now()
	}

	ev := ledger.Event{Type: ledger.EventFactMaterialized, ID: f.ID, At: f.CreatedAt, Fact: &f}
	res := validation.Validate(ev)
	if !res.OK {
		s.reject(ev, ledger.AuditValidationFailure, res.Errors)
		return Result{OK: false, Errors: res.Errors}
	}

	var boundaryErrs []ledger.FieldError
	promo, exists := s.promotions[promotionID]
	if !exists {
		boundaryErrs = append(boundaryErrs, missingRef("promotion-id", promotionID))
	} else if promo.Kind != "" && promo.Kind != f.Kind {
		boundaryErrs = append(boundaryErrs, ledger.FieldError{
			Field: "fact-kind", Kind: ledger.ErrKindMismatch,
			Message: "fact kind does not match the promotion's declared kind",
			Detail:  map[string]string{"promotion-kind": promo.Kind, "fact-kind": f.Kind},
		})
	}
	if len(boundaryErrs) > 0 {
		s.reject(ev, ledger.AuditBoundaryViolation, boundaryErrs)
		return Result{OK: false, Errors: boundaryErrs}
	}

	if _, exists := s.facts[f.ID]; exists {
		errs := []ledger.FieldError{dup("id", f.ID)}
		s.reject(ev, ledger.AuditAppendOnlyViolation, errs)
		return Result{OK: false, Errors: errs}
	}

	s.facts[f.ID] = f
	s.commit(ev)
	s.metrics.ObserveEntity("fact")
	return Result{OK: true, ID: f.ID}
}

// RecordBridgeTriple writes a Fact of kind bridge-triple via the fact
// pathway, plus a bridge-triples index entry. If the fact write fails the
// bridge-triple write fails identically — no partial success (spec §4.3).
func (s *Store) RecordBridgeTriple(promotionID string, b ledger.BridgeTriple) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.PromotionID = promotionID
	if b.ID == "" {
		b.ID = s.ids.NewID("bridge")
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.clock.Now()
	}

	ev := ledger.Event{Type: ledger.EventBridgeTripleRecorded, ID: b.ID, At: b.CreatedAt, BridgeTriple: &b}
	res := validation.Validate(ev)
	if !res.OK {
		s.reject(ev, ledger.AuditValidationFailure, res.Errors)
		return Result{OK: false, Errors: res.Errors}
	}

	f := ledger.Fact{
		ID:          b.ID,
		Kind:        ledger.FactKindBridgeTriple,
		Body:        b,
		CreatedAt:   b.CreatedAt,
		PromotionID: promotionID,
	}

	var boundaryErrs []ledger.FieldError
	promo, exists := s.promotions[promotionID]
	if !exists {
		boundaryErrs = append(boundaryErrs, missingRef("promotion-id", promotionID))
	} else if promo.Kind != "" && promo.Kind != f.Kind {
		boundaryErrs = append(boundaryErrs, ledger.FieldError{
			Field: "fact-kind", Kind: ledger.ErrKindMismatch,
			Message: "fact kind does not match the promotion's declared kind",
			Detail:  map[string]string{"promotion-kind": promo.Kind, "fact-kind": f.Kind},
		})
	}
	if len(boundaryErrs) > 0 {
		s.reject(ev, ledger.AuditBoundaryViolation, boundaryErrs)
		return Result{OK: false, Errors: boundaryErrs}
	}

	_, bridgeExists := s.bridgeTriples[b.ID]
	_, factExists := s.facts[f.ID]
	if bridgeExists || factExists {
		errs := []ledger.FieldError{dup("id", b.ID)}
		s.reject(ev, ledger.AuditAppendOnlyViolation, errs)
		return Result{OK: false, Errors: errs}
	}

	s.facts[f.ID] = f
	s.bridgeTriples[b.ID] = b
	s.commit(ev)
	s.metrics.ObserveEntity("bridge-triple")
	return Result{OK: true, ID: b.ID}
}

// BuildChain validates step referential integrity (proposal-typed steps
// must name a stored proposal; bridge-typed steps a stored bridge triple;
// arrow-typed steps are never cross-checked), computes softness accounting,
// and commits.
func (s *Store) BuildChain(c ledger.Chain) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = s.ids.NewID("chain")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.clock.Now()
	}

	ev := ledger.Event{Type: ledger.EventChainBuilt, ID: c.ID, At: c.CreatedAt, Chain: &c}
	res := validation.Validate(ev)
	if !res.OK {
		s.reject(ev, ledger.AuditValidationFailure, res.Errors)
		return Result{OK: false, Errors: res.Errors}
	}

	boundaryErrs := chain.CheckReferences(c.Steps,
		func(id string) bool { _, ok := s.proposals[id]; return ok },
		func(id string) bool { _, ok := s.bridgeTriples[id]; return ok },
	)
	if len(boundaryErrs) > 0 {
		s.reject(ev, ledger.AuditBoundaryViolation, boundaryErrs)
		return Result{OK: false, Errors: boundaryErrs}
	}

	if _, exists := s.chains[c.ID]; exists {
		errs := []ledger.FieldError{dup("id", c.ID)}
		s.reject(ev, ledger.AuditAppendOnlyViolation, errs)
		return Result{OK: false, Errors: errs}
	}

	soft := chain.ComputeSoftness(c.Steps)
	c.SoftnessTotal = soft.Total
	c.SoftnessAverage = soft.Average
	c.SoftnessPerStep = soft.PerStep
	ev.Chain = &c

	s.chains[c.ID] = c
	s.commit(ev)
	s.metrics.ObserveEntity("chain")
	s.metrics.ObserveChainSoftness(soft.Average)
	result := Softness{Total: soft.Total, Average: soft.Average, PerStep: soft.PerStep}
	return Result{OK: true, ID: c.ID, Softness: &result}
}

func (s *Store) targetExists(t ledger.EvidenceTarget) bool {
	switch t.Type {
	case ledger.EvidenceTargetProposal:
		_, ok := s.proposals[t.ID]
		return ok
	case ledger.EvidenceTargetPromotion:
		_, ok := s.promotions[t.ID]
		return ok
	default:
		return false
	}
}

func dup(field, id string) ledger.FieldError {
	return ledger.FieldError{Field: field, Kind: ledger.ErrKindDuplicate, Message: "id already recorded", Detail: id}
}

func missingRef(field, id string) ledger.FieldError {
	return ledger.FieldError{Field: field, Kind: ledger.ErrKindMissing, Message: "referenced entity does not exist", Detail: id}
}

// commit appends the audit record for a successful write. Ordering is
// audit-after-commit: the in-memory map is updated before the audit line is
// appended, so a crash between the two loses only the audit mirror, never
// correctness of the in-memory store (spec §9 open question 1). Callers
// hold s.mu for the duration.
func (s *Store) commit(ev ledger.Event) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Append(ledger.AuditEntry{AuditType: ledger.AuditSuccess, Event: ev, At: ev.At})
}

func (s *Store) reject(ev ledger.Event, at ledger.AuditType, errs []ledger.FieldError) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Append(ledger.AuditEntry{AuditType: at, Event: ev, Errors: errs, At: ev.At})
}

// Reject audits a validation failure for an event that never reached a
// Record* method — e.g. a wire payload whose unrecognized fields were caught
// by validation.DecodeStrict before it was even worth constructing a typed
// payload for. Still produces an audit record like any other rejection: no
// failure is swallowed.
func (s *Store) Reject(ev ledger.Event, errs []ledger.FieldError) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject(ev, ledger.AuditValidationFailure, errs)
	return Result{OK: false, Errors: errs}
}

// --- Observable state: snapshot-consistent read accessors (copies taken under s.mu) ---

// Proposals returns a snapshot copy of every stored proposal.
func (s *Store) Proposals() []ledger.Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Proposal, 0, len(s.proposals))
	for _, p := range s.proposals {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Promotions returns a snapshot copy of every stored promotion.
func (s *Store) Promotions() []ledger.Promotion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Promotion, 0, len(s.promotions))
	for _, p := range s.promotions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Evidence returns a snapshot copy of every stored evidence record.
func (s *Store) Evidence() []ledger.Evidence {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Evidence, 0, len(s.evidence))
	for _, e := range s.evidence {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Actions returns a snapshot copy of every stored action.
func (s *Store) Actions() []ledger.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Action, 0, len(s.actions))
	for _, a := range s.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Facts returns a snapshot copy of every stored fact.
func (s *Store) Facts() []ledger.Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Fact, 0, len(s.facts))
	for _, f := range s.facts {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BridgeTriples returns a snapshot copy of every stored bridge triple.
func (s *Store) BridgeTriples() []ledger.BridgeTriple {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.BridgeTriple, 0, len(s.bridgeTriples))
	for _, b := range s.bridgeTriples {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Chains returns a snapshot copy of every stored chain.
func (s *Store) Chains() []ledger.Chain {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Chain, 0, len(s.chains))
	for _, c := range s.chains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AuditLog returns every audit entry recorded so far, oldest first.
func (s *Store) AuditLog() []ledger.AuditEntry {
	if s.audit == nil {
		return nil
	}
	return s.audit.All()
}
