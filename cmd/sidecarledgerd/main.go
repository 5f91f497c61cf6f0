// Copyright 2025 Certen Protocol
//
// sidecarledgerd is a minimal embedding example for the sidecar ledger: it
// wires the store's collaborators from environment configuration and, if
// given a file argument, replays a JSON-lines file of events through the
// matching record-operation, printing one result line per non-empty input
// line. It is
// not an operator CLI or remote-query transport — see SPEC_FULL.md §4.9.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/certen/sidecar-ledger/pkg/audit"
	"github.com/certen/sidecar-ledger/pkg/config"
	"github.com/certen/sidecar-ledger/pkg/ledger"
	"github.com/certen/sidecar-ledger/pkg/metrics"
	"github.com/certen/sidecar-ledger/pkg/store"
	"github.com/certen/sidecar-ledger/pkg/validation"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.FromEnv()

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	sink, err := audit.New(audit.Config{Path: cfg.AuditPath(), Counter: m.AuditEntriesTotal})
	if err != nil {
		return fmt.Errorf("open audit sink: %w", err)
	}
	defer sink.Close()

	s := store.New(store.Config{Audit: sink, Metrics: m})

	if len(args) == 0 {
		fmt.Fprintln(os.Stdout, "sidecarledgerd: no input file given, exiting after wiring collaborators")
		return nil
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	return replay(s, f, os.Stdout)
}

// replay reads one JSON event envelope per line from r and applies it to s,
// writing one {ok, id|errors} JSON result line per non-empty input line to w.
// Empty lines are skipped without output.
func replay(s *store.Store, r *os.File, w *os.File) error {
	scanner := bufio.NewScanner(r)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		ev, unknown, err := validation.DecodeStrict(line)
		if err != nil {
			_ = enc.Encode(map[string]any{"ok": false, "errors": []string{"invalid json: " + err.Error()}})
			continue
		}
		if len(unknown) > 0 {
			_ = enc.Encode(s.Reject(ev, unknown))
			continue
		}

		_ = enc.Encode(applyEvent(s, ev))
	}
	return scanner.Err()
}

func applyEvent(s *store.Store, ev ledger.Event) store.Result {
	switch ev.Type {
	case ledger.EventProposalRecorded:
		if ev.Proposal == nil {
			return store.Result{OK: false, Errors: []ledger.FieldError{{Field: "proposal", Kind: ledger.ErrKindMissing, Message: "proposal payload is required"}}}
		}
		return s.RecordProposal(*ev.Proposal)
	case ledger.EventPromotionRecorded:
		if ev.Promotion == nil {
			return store.Result{OK: false, Errors: []ledger.FieldError{{Field: "promotion", Kind: ledger.ErrKindMissing, Message: "promotion payload is required"}}}
		}
		return s.RecordPromotion(*ev.Promotion)
	case ledger.EventEvidenceAttached:
		if ev.Evidence == nil {
			return store.Result{OK: false, Errors: []ledger.FieldError{{Field: "evidence", Kind: ledger.ErrKindMissing, Message: "evidence payload is required"}}}
		}
		return s.RecordEvidence(*ev.Evidence)
	case ledger.EventActionRecorded:
		if ev.Action == nil {
			return store.Result{OK: false, Errors: []ledger.FieldError{{Field: "action", Kind: ledger.ErrKindMissing, Message: "action payload is required"}}}
		}
		return s.RecordAction(*ev.Action)
	case ledger.EventFactMaterialized:
		if ev.Fact == nil {
			return store.Result{OK: false, Errors: []ledger.FieldError{{Field: "fact", Kind: ledger.ErrKindMissing, Message: "fact payload is required"}}}
		}
		return s.RecordFact(ev.Fact.PromotionID, *ev.Fact)
	case ledger.EventBridgeTripleRecorded:
		if ev.BridgeTriple == nil {
			return store.Result{OK: false, Errors: []ledger.FieldError{{Field: "bridge-triple", Kind: ledger.ErrKindMissing, Message: "bridge-triple payload is required"}}}
		}
		return s.RecordBridgeTriple(ev.BridgeTriple.PromotionID, *ev.BridgeTriple)
	case ledger.EventChainBuilt:
		if ev.Chain == nil {
			return store.Result{OK: false, Errors: []ledger.FieldError{{Field: "chain", Kind: ledger.ErrKindMissing, Message: "chain payload is required"}}}
		}
		return s.BuildChain(*ev.Chain)
	default:
		return store.Result{OK: false, Errors: []ledger.FieldError{{Field: "type", Kind: ledger.ErrKindInvalid, Message: "unrecognized event type", Detail: ev.Type}}}
	}
}
