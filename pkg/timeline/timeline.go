// Copyright 2025 Certen Protocol
//
// Package timeline implements the sidecar ledger's timeline reconstructor
// (C4): pure functions over a store snapshot and its audit log that answer
// "what happened to this id, in order". Grounded on the teacher's read-only
// accessor style in pkg/ledger (public getters returning copies) — this
// package never mutates the store, it only reads its public accessors.
package timeline

import (
	"sort"
	"time"

	"github.com/certen/sidecar-ledger/pkg/ledger"
	"github.com/certen/sidecar-ledger/pkg/store"
)

// Entry is one chronologically-ordered occurrence in an id's timeline.
type Entry struct {
	At     time.Time
	Status string // "success" or "failure"
	Audit  ledger.AuditEntry
}

// Timeline returns every audit entry whose event touches id, plus every
// fact-materialized entry whose promotion promotes id as a proposal, success
// and failure alike, sorted ascending by At (ties broken by their position in
// the audit log, which is itself append-ordered).
func Timeline(s *store.Store, id string) []Entry {
	entries := collect(s, id, false)
	return entries
}

// FailureReasons returns the subset of id's timeline whose audit-type is a
// failure (validation-failure, boundary-violation, append-only-violation),
// preserving order.
func FailureReasons(s *store.Store, id string) []Entry {
	return collect(s, id, true)
}

func collect(s *store.Store, id string, failuresOnly bool) []Entry {
	// A fact is also related to the proposal its promotion promotes.
	promotedProposal := map[string]string{}
	for _, p := range s.Promotions() {
		promotedProposal[p.ID] = p.ProposalID
	}

	var out []Entry
	for _, a := range s.AuditLog() {
		related := touches(a.Event, id)
		if !related && a.Event.Fact != nil && id != "" {
			related = promotedProposal[a.Event.Fact.PromotionID] == id
		}
		if !related {
			continue
		}
		isSuccess := a.AuditType == ledger.AuditSuccess
		if failuresOnly && isSuccess {
			continue
		}
		status := "failure"
		if isSuccess {
			status = "success"
		}
		out = append(out, Entry{At: a.At, Status: status, Audit: a})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.Before(out[j].At)
	})
	return out
}

// touches reports whether id appears in ev under a fixed set of
// touch-points: the envelope id, proposal.id, promotion.id,
// promotion.proposal-id, evidence.id, evidence.target.id, action.id,
// fact.id, fact.promotion-id, bridge-triple.id, bridge-triple.promotion-id,
// chain.id, or any chain step's target-id.
func touches(ev ledger.Event, id string) bool {
	if ev.ID == id {
		return true
	}
	if ev.Proposal != nil && ev.Proposal.ID == id {
		return true
	}
	if ev.Promotion != nil && (ev.Promotion.ID == id || ev.Promotion.ProposalID == id) {
		return true
	}
	if ev.Evidence != nil && (ev.Evidence.ID == id || ev.Evidence.Target.ID == id) {
		return true
	}
	if ev.Action != nil && ev.Action.ID == id {
		return true
	}
	if ev.Fact != nil && (ev.Fact.ID == id || ev.Fact.PromotionID == id) {
		return true
	}
	if ev.BridgeTriple != nil && (ev.BridgeTriple.ID == id || ev.BridgeTriple.PromotionID == id) {
		return true
	}
	if ev.Chain != nil {
		if ev.Chain.ID == id {
			return true
		}
		for _, step := range ev.Chain.Steps {
			if step.TargetID == id {
				return true
			}
		}
	}
	return false
}
