// Copyright 2025 Certen Protocol
//
// Package validation implements the sidecar ledger's schema validator (C1):
// purely structural & type validation of an event payload, with no IO. The
// style continues the teacher's own invariant checker
// (pkg/consensus/validator_block_invariants.go) — accumulate every
// violation into a slice via a small `add` closure rather than
// short-circuiting on the first error — so a rejected write's audit record
// carries the full failure set (spec §4.1 rationale).
package validation

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/certen/sidecar-ledger/pkg/ledger"
)

// Result is the outcome of validating one event.
type Result struct {
	OK     bool
	Errors []ledger.FieldError
}

// Validate checks an event's envelope and payload, returning every
// violation found (never just the first).
func Validate(ev ledger.Event) Result {
	var errs []ledger.FieldError
	add := func(fe ledger.FieldError) {
		errs = append(errs, fe)
	}

	validateEnvelope(ev, add)
	validatePayloadShape(ev, add)

	switch ev.Type {
	case ledger.EventProposalRecorded:
		validateProposal(ev.Proposal, add)
	case ledger.EventPromotionRecorded:
		validatePromotion(ev.Promotion, add)
	case ledger.EventEvidenceAttached:
		validateEvidence(ev.Evidence, add)
	case ledger.EventActionRecorded:
		validateAction(ev.Action, add)
	case ledger.EventFactMaterialized:
		validateFact(ev.Fact, add)
	case ledger.EventBridgeTripleRecorded:
		validateBridgeTriple(ev.BridgeTriple, add)
	case ledger.EventChainBuilt:
		validateChain(ev.Chain, add)
	}

	return Result{OK: len(errs) == 0, Errors: errs}
}

// knownEnvelopeFields are the JSON keys ledger.Event recognizes at the
// envelope level.
var knownEnvelopeFields = map[string]bool{
	"type": true, "id": true, "at": true,
	"proposal": true, "promotion": true, "evidence": true,
	"action": true, "fact": true, "bridge-triple": true, "chain": true,
}

// knownPayloadFields mirrors the json tags of each typed payload, keyed by
// the event type that carries it.
var knownPayloadFields = map[ledger.EventType]map[string]bool{
	ledger.EventProposalRecorded: {
		"id": true, "kind": true, "target-id": true, "status": true,
		"score": true, "method": true, "evidence": true, "created-at": true,
	},
	ledger.EventPromotionRecorded: {
		"id": true, "proposal-id": true, "kind": true, "target-id": true,
		"decided-by": true, "rationale": true, "created-at": true,
	},
	ledger.EventEvidenceAttached: {
		"id": true, "target": true, "method": true, "payload": true, "created-at": true,
	},
	ledger.EventActionRecorded: {
		"id": true, "type": true, "actor": true, "note": true, "created-at": true,
	},
	ledger.EventFactMaterialized: {
		"id": true, "kind": true, "body": true, "created-at": true, "promotion-id": true,
	},
	ledger.EventBridgeTripleRecorded: {
		"id": true, "created-at": true, "promotion-id": true,
		"subject": true, "predicate": true, "object": true, "rationale": true,
	},
	ledger.EventChainBuilt: {
		"id": true, "created-at": true, "steps": true,
		"softness-total": true, "softness-average": true, "softness-per-step": true,
	},
}

// payloadKeyForType maps an event type to the envelope key holding its
// payload, for picking the matching raw object out of the envelope.
var payloadKeyForType = map[ledger.EventType]string{
	ledger.EventProposalRecorded:     "proposal",
	ledger.EventPromotionRecorded:    "promotion",
	ledger.EventEvidenceAttached:     "evidence",
	ledger.EventActionRecorded:       "action",
	ledger.EventFactMaterialized:     "fact",
	ledger.EventBridgeTripleRecorded: "bridge-triple",
	ledger.EventChainBuilt:           "chain",
}

// DecodeStrict unmarshals a raw wire envelope into a ledger.Event, reporting
// any unrecognized envelope or payload keys as `unknown` field errors (spec's
// unknown error kind: "unrecognized fields on a payload"). Typed struct
// decoding alone can't see unknown fields — encoding/json silently drops
// them — so this check has to happen against the raw object, at the one
// point a wire payload still exists as a map rather than a struct.
func DecodeStrict(raw []byte) (ledger.Event, []ledger.FieldError, error) {
	var ev ledger.Event
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ev, nil, err
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, nil, err
	}

	var errs []ledger.FieldError
	if unknown := sortedUnknownFields(knownEnvelopeFields, keysOf(envelope)); len(unknown) > 0 {
		errs = append(errs, ledger.FieldError{
			Field: "<envelope>", Kind: ledger.ErrKindUnknown,
			Message: "unrecognized field(s) on event envelope", Detail: unknown,
		})
	}

	if payloadKey, ok := payloadKeyForType[ev.Type]; ok {
		if payloadRaw, ok := envelope[payloadKey]; ok {
			var payload map[string]json.RawMessage
			if err := json.Unmarshal(payloadRaw, &payload); err == nil {
				if unknown := sortedUnknownFields(knownPayloadFields[ev.Type], keysOf(payload)); len(unknown) > 0 {
					errs = append(errs, ledger.FieldError{
						Field: payloadKey, Kind: ledger.ErrKindUnknown,
						Message: "unrecognized field(s) on payload", Detail: unknown,
					})
				}
			}
		}
	}

	return ev, errs, nil
}

func keysOf(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// validateEnvelope checks the three fields every event carries: type, id, at.
func validateEnvelope(ev ledger.Event, add func(ledger.FieldError)) {
	if !isKnownEventType(ev.Type) {
		add(ledger.FieldError{
			Field:   "type",
			Kind:    ledger.ErrKindInvalid,
			Message: "unrecognized event type",
			Detail:  ev.Type,
		})
	}
	if strings.TrimSpace(ev.ID) == "" {
		add(ledger.FieldError{Field: "id", Kind: ledger.ErrKindMissing, Message: "event id is required"})
	}
	if ev.At.IsZero() {
		// at is optional on the wire (the store fills it), so a zero value
		// here is not itself an error — see store.go's created-at fill.
		_ = ev.At
	}
}

func isKnownEventType(t ledger.EventType) bool {
	switch t {
	case ledger.EventProposalRecorded, ledger.EventPromotionRecorded,
		ledger.EventEvidenceAttached, ledger.EventActionRecorded,
		ledger.EventFactMaterialized, ledger.EventBridgeTripleRecorded,
		ledger.EventChainBuilt:
		return true
	default:
		return false
	}
}

// validatePayloadShape checks that the payload field matching the envelope's
// type is populated; the other payload fields are not inspected, and nothing
// else is checked here (per-kind validators below own their own fields). A nil expected payload is surfaced
// as a missing-field error rather than a panic in the per-kind validator.
func validatePayloadShape(ev ledger.Event, add func(ledger.FieldError)) {
	switch ev.Type {
	case ledger.EventProposalRecorded:
		if ev.Proposal == nil {
			add(ledger.FieldError{Field: "proposal", Kind: ledger.ErrKindMissing, Message: "proposal payload is required"})
		}
	case ledger.EventPromotionRecorded:
		if ev.Promotion == nil {
			add(ledger.FieldError{Field: "promotion", Kind: ledger.ErrKindMissing, Message: "promotion payload is required"})
		}
	case ledger.EventEvidenceAttached:
		if ev.Evidence == nil {
			add(ledger.FieldError{Field: "evidence", Kind: ledger.ErrKindMissing, Message: "evidence payload is required"})
		}
	case ledger.EventActionRecorded:
		if ev.Action == nil {
			add(ledger.FieldError{Field: "action", Kind: ledger.ErrKindMissing, Message: "action payload is required"})
		}
	case ledger.EventFactMaterialized:
		if ev.Fact == nil {
			add(ledger.FieldError{Field: "fact", Kind: ledger.ErrKindMissing, Message: "fact payload is required"})
		}
	case ledger.EventBridgeTripleRecorded:
		if ev.BridgeTriple == nil {
			add(ledger.FieldError{Field: "bridge-triple", Kind: ledger.ErrKindMissing, Message: "bridge-triple payload is required"})
		}
	case ledger.EventChainBuilt:
		if ev.Chain == nil {
			add(ledger.FieldError{Field: "chain", Kind: ledger.ErrKindMissing, Message: "chain payload is required"})
		}
	}
}

func validateProposal(p *ledger.Proposal, add func(ledger.FieldError)) {
	if p == nil {
		return
	}
	if strings.TrimSpace(p.ID) == "" {
		add(ledger.FieldError{Field: "id", Kind: ledger.ErrKindMissing, Message: "proposal id is required"})
	}
	if strings.TrimSpace(p.Kind) == "" {
		add(ledger.FieldError{Field: "kind", Kind: ledger.ErrKindMissing, Message: "proposal kind is required"})
	}
	switch p.Status {
	case ledger.ProposalPending, ledger.ProposalAccepted, ledger.ProposalRejected:
	default:
		add(ledger.FieldError{Field: "status", Kind: ledger.ErrKindInvalid, Message: "status must be one of pending, accepted, rejected", Detail: p.Status})
	}
	if p.Score < 0.0 || p.Score > 1.0 {
		add(ledger.FieldError{Field: "score", Kind: ledger.ErrKindInvalid, Message: "score must be in [0.0, 1.0]", Detail: p.Score})
	}
	if strings.TrimSpace(p.Method) == "" {
		add(ledger.FieldError{Field: "method", Kind: ledger.ErrKindMissing, Message: "method must be non-blank"})
	}
	if p.Evidence == nil {
		add(ledger.FieldError{Field: "evidence", Kind: ledger.ErrKindMissing, Message: "evidence must be a collection (may be empty)"})
	}
}

func validatePromotion(p *ledger.Promotion, add func(ledger.FieldError)) {
	if p == nil {
		return
	}
	if strings.TrimSpace(p.ID) == "" {
		add(ledger.FieldError{Field: "id", Kind: ledger.ErrKindMissing, Message: "promotion id is required"})
	}
	if strings.TrimSpace(p.ProposalID) == "" {
		add(ledger.FieldError{Field: "proposal-id", Kind: ledger.ErrKindMissing, Message: "proposal-id is required"})
	}
	if strings.TrimSpace(p.DecidedBy) == "" {
		add(ledger.FieldError{Field: "decided-by", Kind: ledger.ErrKindMissing, Message: "decided-by must be non-blank"})
	}
	if strings.TrimSpace(p.Rationale) == "" {
		add(ledger.FieldError{Field: "rationale", Kind: ledger.ErrKindMissing, Message: "rationale must be non-blank"})
	}
}

func validateEvidence(e *ledger.Evidence, add func(ledger.FieldError)) {
	if e == nil {
		return
	}
	if strings.TrimSpace(e.ID) == "" {
		add(ledger.FieldError{Field: "id", Kind: ledger.ErrKindMissing, Message: "evidence id is required"})
	}
	switch e.Target.Type {
	case ledger.EvidenceTargetProposal, ledger.EvidenceTargetPromotion:
	default:
		add(ledger.FieldError{Field: "target.type", Kind: ledger.ErrKindInvalid, Message: "target.type must be proposal or promotion", Detail: e.Target.Type})
	}
	if strings.TrimSpace(e.Target.ID) == "" {
		add(ledger.FieldError{Field: "target.id", Kind: ledger.ErrKindMissing, Message: "target.id must be non-blank"})
	}
	if strings.TrimSpace(e.Method) == "" {
		add(ledger.FieldError{Field: "method", Kind: ledger.ErrKindMissing, Message: "method must be non-blank"})
	}
	if e.Payload == nil {
		add(ledger.FieldError{Field: "payload", Kind: ledger.ErrKindMissing, Message: "payload must be a collection (may be empty)"})
	}
}

func validateAction(a *ledger.Action, add func(ledger.FieldError)) {
	if a == nil {
		return
	}
	if strings.TrimSpace(a.ID) == "" {
		add(ledger.FieldError{Field: "id", Kind: ledger.ErrKindMissing, Message: "action id is required"})
	}
	if strings.TrimSpace(a.Type) == "" {
		add(ledger.FieldError{Field: "type", Kind: ledger.ErrKindMissing, Message: "action type is required"})
	}
}

func validateFact(f *ledger.Fact, add func(ledger.FieldError)) {
	if f == nil {
		return
	}
	if strings.TrimSpace(f.ID) == "" {
		add(ledger.FieldError{Field: "id", Kind: ledger.ErrKindMissing, Message: "fact id is required"})
	}
	if strings.TrimSpace(f.Kind) == "" {
		add(ledger.FieldError{Field: "kind", Kind: ledger.ErrKindMissing, Message: "fact kind is required"})
	}
	if strings.TrimSpace(f.PromotionID) == "" {
		add(ledger.FieldError{Field: "promotion-id", Kind: ledger.ErrKindMissing, Message: "promotion-id is required"})
	}
}

func validateBridgeTriple(b *ledger.BridgeTriple, add func(ledger.FieldError)) {
	if b == nil {
		return
	}
	if strings.TrimSpace(b.ID) == "" {
		add(ledger.FieldError{Field: "id", Kind: ledger.ErrKindMissing, Message: "bridge-triple id is required"})
	}
	if strings.TrimSpace(b.PromotionID) == "" {
		add(ledger.FieldError{Field: "promotion-id", Kind: ledger.ErrKindMissing, Message: "promotion-id is required"})
	}
}

func validateChain(c *ledger.Chain, add func(ledger.FieldError)) {
	if c == nil {
		return
	}
	if len(c.Steps) == 0 {
		add(ledger.FieldError{Field: "steps", Kind: ledger.ErrKindMissing, Message: "steps must be non-empty"})
		return
	}
	for i, step := range c.Steps {
		switch step.Type {
		case ledger.StepArrow, ledger.StepBridge, ledger.StepProposal:
		default:
			add(ledger.FieldError{Field: stepField(i, "type"), Kind: ledger.ErrKindInvalid, Message: "step.type must be arrow, bridge, or proposal", Detail: step.Type})
		}
		if strings.TrimSpace(step.TargetID) == "" {
			add(ledger.FieldError{Field: stepField(i, "target-id"), Kind: ledger.ErrKindMissing, Message: "step.target-id is required"})
		}
		if step.Shift {
			switch step.Gate {
			case ledger.GateTypedArrow, ledger.GateBridgeTriple:
			default:
				add(ledger.FieldError{Field: "step/gate", Kind: ledger.ErrKindMissing, Message: "a sense-shift step requires gate typed-arrow or bridge-triple", Detail: i})
			}
		}
	}
}

func stepField(i int, sub string) string {
	return "steps[" + itoa(i) + "]." + sub
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

// sortedUnknownFields returns the sorted list of keys in given that aren't
// present in known, for DecodeStrict's unknown-fields error detail.
func sortedUnknownFields(known map[string]bool, given []string) []string {
	var unknown []string
	for _, k := range given {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}
