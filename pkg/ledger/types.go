// Copyright 2025 Certen Protocol
//
// Package ledger defines the entity and event shapes recorded by the
// sidecar ledger: proposals, promotions, evidence, actions, facts (including
// bridge triples), and chains of hops that justify a derived claim.
package ledger

import "time"

// ProposalStatus is the closed set of statuses a Proposal may carry.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// EvidenceTargetType is the closed set of entity kinds Evidence may attach to.
type EvidenceTargetType string

const (
	EvidenceTargetProposal  EvidenceTargetType = "proposal"
	EvidenceTargetPromotion EvidenceTargetType = "promotion"
)

// ChainStepType is the closed set of hop kinds a ChainStep may be.
type ChainStepType string

const (
	StepArrow    ChainStepType = "arrow"
	StepBridge   ChainStepType = "bridge"
	StepProposal ChainStepType = "proposal"
)

// SenseShiftGate is the closed set of warrants a sense-shift step may cite.
type SenseShiftGate string

const (
	GateTypedArrow   SenseShiftGate = "typed-arrow"
	GateBridgeTriple SenseShiftGate = "bridge-triple"
)

// EventType is the closed set of event envelopes the validator recognizes.
type EventType string

const (
	EventProposalRecorded    EventType = "proposal-recorded"
	EventPromotionRecorded   EventType = "promotion-recorded"
	EventEvidenceAttached    EventType = "evidence-attached"
	EventActionRecorded      EventType = "action-recorded"
	EventFactMaterialized    EventType = "fact-materialized"
	EventBridgeTripleRecorded EventType = "bridge-triple-recorded"
	EventChainBuilt          EventType = "chain-built"
)

// FactKindBridgeTriple is the reserved Fact.Kind value for bridge triples.
const FactKindBridgeTriple = "bridge-triple"

// Proposal is a candidate claim with a method and supporting evidence.
type Proposal struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	TargetID  string         `json:"target-id,omitempty"`
	Status    ProposalStatus `json:"status"`
	Score     float64        `json:"score"`
	Method    string         `json:"method"`
	Evidence  []any          `json:"evidence"`
	CreatedAt time.Time      `json:"created-at"`
}

// Promotion is an explicit reviewer decision to accept a proposal.
type Promotion struct {
	ID         string    `json:"id"`
	ProposalID string    `json:"proposal-id"`
	Kind       string    `json:"kind,omitempty"`
	TargetID   string    `json:"target-id,omitempty"`
	DecidedBy  string    `json:"decided-by"`
	Rationale  string    `json:"rationale"`
	CreatedAt  time.Time `json:"created-at"`
}

// EvidenceTarget names the entity Evidence is attached to.
type EvidenceTarget struct {
	Type EvidenceTargetType `json:"type"`
	ID   string             `json:"id"`
}

// Evidence is supporting payload attached to a proposal or a promotion.
type Evidence struct {
	ID        string         `json:"id"`
	Target    EvidenceTarget `json:"target"`
	Method    string         `json:"method"`
	Payload   []any          `json:"payload"`
	CreatedAt time.Time      `json:"created-at"`
}

// Action records reviewer or agent activity. Actor/Note are optional and no
// downstream consumer may assume their presence (spec open question 4).
type Action struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Actor     string    `json:"actor,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created-at"`
}

// Fact is a materialized decision outcome. Kind must equal the promotion's
// kind when the promotion declares one (invariant 2).
type Fact struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Body        any       `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created-at"`
	PromotionID string    `json:"promotion-id"`
}

// BridgeTriple is a Fact of kind "bridge-triple" that warrants a sense-shift
// between concepts. Stored both as a Fact and in a separate bridge index.
type BridgeTriple struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created-at"`
	PromotionID string    `json:"promotion-id"`
	Subject     string    `json:"subject,omitempty"`
	Predicate   string    `json:"predicate,omitempty"`
	Object      string    `json:"object,omitempty"`
	Rationale   string    `json:"rationale,omitempty"`
}

// ChainStep is one hop in a Chain: an arrow, a bridge, or a proposal.
type ChainStep struct {
	Type     ChainStepType  `json:"type"`
	TargetID string         `json:"target-id"`
	Shift    bool           `json:"shift,omitempty"`
	Gate     SenseShiftGate `json:"gate,omitempty"`
	Notes    string         `json:"notes,omitempty"`
}

// Chain is an ordered sequence of steps that collectively justify a derived
// claim, carrying the computed softness accounting for its steps.
type Chain struct {
	ID              string      `json:"id"`
	CreatedAt       time.Time   `json:"created-at"`
	Steps           []ChainStep `json:"steps"`
	SoftnessTotal   float64     `json:"softness-total"`
	SoftnessAverage float64     `json:"softness-average"`
	SoftnessPerStep []float64   `json:"softness-per-step"`
}

// stepWeights is the fixed per-step softness accounting (invariant 6).
var stepWeights = map[ChainStepType]float64{
	StepArrow:    0.0,
	StepBridge:   0.5,
	StepProposal: 1.0,
}

// StepWeight returns the fixed softness weight for a step type, and whether
// the step type is recognized.
func StepWeight(t ChainStepType) (float64, bool) {
	w, ok := stepWeights[t]
	return w, ok
}
