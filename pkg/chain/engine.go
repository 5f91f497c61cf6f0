// Copyright 2025 Certen Protocol
//
// Package chain implements the sidecar ledger's chain engine (C5): given a
// set of steps and two existence predicates supplied by the store (C3), it
// cross-checks referential integrity and computes the fixed softness
// accounting. This package is pure — no locking, no IO — so the store can
// run it under its own write mutex without a second lock acquisition.
//
// The teacher dispatches per-chain signing work through a pluggable
// strategy registry (pkg/chain/strategy: one interface implementation per
// external chain). Chain steps here are a small, closed, spec-fixed set
// (arrow, bridge, proposal) rather than externally-supplied
// implementations, so a closed type switch replaces that registry — see
// DESIGN.md for the full reasoning.
package chain

import "github.com/certen/sidecar-ledger/pkg/ledger"

// Existence is a lookup the engine uses to check that a step's target-id
// refers to a stored entity of the right kind.
type Existence func(id string) bool

// Softness is the computed per-chain softness accounting.
type Softness struct {
	Total   float64
	Average float64
	PerStep []float64
}

// CheckReferences validates each step's target-id against the store,
// exhaustively switching on the closed ChainStepType. Arrow-typed steps are
// never cross-checked (arrows are external to this core, per spec
// invariant 2 and §4.5 step 3). The returned errors use the field name
// "steps[i].target-id" for each failing step, matching the validator's
// index-qualified field convention.
func CheckReferences(steps []ledger.ChainStep, proposalExists, bridgeExists Existence) []ledger.FieldError {
	var errs []ledger.FieldError
	for i, step := range steps {
		switch step.Type {
		case ledger.StepProposal:
			if !proposalExists(step.TargetID) {
				errs = append(errs, refError(i, step.TargetID))
			}
		case ledger.StepBridge:
			if !bridgeExists(step.TargetID) {
				errs = append(errs, refError(i, step.TargetID))
			}
		case ledger.StepArrow:
			// arrows are external in this core; never cross-checked.
		}
	}
	return errs
}

func refError(i int, targetID string) ledger.FieldError {
	return ledger.FieldError{
		Field:   stepField(i),
		Kind:    ledger.ErrKindMissing,
		Message: "referenced entity does not exist",
		Detail:  targetID,
	}
}

func stepField(i int) string {
	return "steps[" + itoa(i) + "].target-id"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	return string(b)
}

// ComputeSoftness applies the spec's fixed per-step weights
// (arrow=0.0, bridge=0.5, proposal=1.0) and returns the total, average
// (0 for an empty chain), and a per-step breakdown mirroring input order.
func ComputeSoftness(steps []ledger.ChainStep) Softness {
	perStep := make([]float64, len(steps))
	var total float64
	for i, step := range steps {
		w, _ := ledger.StepWeight(step.Type)
		perStep[i] = w
		total += w
	}
	avg := 0.0
	if len(steps) > 0 {
		avg = total / float64(len(steps))
	}
	return Softness{Total: total, Average: avg, PerStep: perStep}
}
