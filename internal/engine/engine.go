// Package engine implements the SLP1/SLP2 contract engine (spec.md §4.4):
// a handler table keyed by (family, op), replacing the reflective
// `apply_<tp>` dispatch the teacher's namesake node packages use for
// their own (unrelated) opcodes with the explicit dispatch table
// spec.md's Design Notes call for.
package engine

import (
	"context"
	"fmt"

	"github.com/synnergy-labs/slpindexer/internal/config"
	"github.com/synnergy-labs/slpindexer/internal/errs"
	"github.com/synnergy-labs/slpindexer/internal/model"
	"github.com/synnergy-labs/slpindexer/internal/store"
)

// Handler is a pure precondition check plus mutation for one (family, op)
// pair. It returns Ok() on success (having already performed the state
// mutation) or the first failed assertion as an Err.
type Handler func(ctx context.Context, deps Deps, rec *model.Record) Result

// Result is the outcome of a handler invocation.
type Result struct {
	OK      bool
	Comment string
}

// Ok reports a passing precondition chain.
func Ok() Result { return Result{OK: true} }

// Err reports the first failed assertion, named for the rejected store's
// comment field (spec.md §3 "Rejected store").
func Err(assertion string) Result { return Result{OK: false, Comment: assertion} }

// Deps bundles everything a handler needs: the derived stores and the
// network config (for cost/milestone lookups).
type Deps struct {
	Contracts store.ContractStore
	SLP1      store.SLP1Store
	SLP2      store.SLP2Store
	Network   *config.Network
}

// key identifies one handler slot in the dispatch table.
type key struct {
	family model.Family
	op     model.Op
}

// Engine holds the closed handler table and applies it to newly-inserted
// journal records (spec.md §4.4: "Invoked once per newly-inserted
// record").
type Engine struct {
	handlers map[key]Handler
	deps     Deps
	journal  store.JournalStore
	rejected store.RejectedStore
}

// New builds an Engine with the full SLP1/SLP2 handler table wired in.
func New(deps Deps, journal store.JournalStore, rejected store.RejectedStore) *Engine {
	e := &Engine{handlers: make(map[key]Handler), deps: deps, journal: journal, rejected: rejected}
	e.registerSLP1()
	e.registerSLP2()
	return e
}

func (e *Engine) register(family model.Family, op model.Op, h Handler) {
	e.handlers[key{family, op}] = h
}

// Apply runs the handler selected by (rec.SlpType, rec.Tp) against rec,
// which must already be journalled with Legit == unset (spec.md §4.4:
// "idempotent guarded by legit ∈ {unset} — re-application is refused").
// On pass it flips legit to true via the store's compare-and-set; on fail
// it flips legit to false and copies rec into the rejected store.
func (e *Engine) Apply(ctx context.Context, rec *model.Record) (Result, error) {
	if rec.Legit != model.LegitUnset {
		return Result{}, errs.New(errs.ContractAssertion, "record already replayed, refusing re-application")
	}
	h, ok := e.handlers[key{rec.SlpType, rec.Tp}]
	if !ok {
		res := Err(fmt.Sprintf("no handler for %s/%s", rec.SlpType, rec.Tp))
		return res, e.finish(ctx, rec, res)
	}
	res := h(ctx, e.deps, rec)
	return res, e.finish(ctx, rec, res)
}

func (e *Engine) finish(ctx context.Context, rec *model.Record, res Result) error {
	legit := model.LegitFalse
	if res.OK {
		legit = model.LegitTrue
	}
	if err := e.journal.SetLegit(ctx, rec.Height, rec.Index, legit, res.Comment, rec.PoH); err != nil {
		return errs.Wrap(errs.Fatal, err, "commit legit transition")
	}
	rec.Legit = legit
	rec.Comment = res.Comment
	if !res.OK {
		rej := &model.Rejected{Record: *rec, RejectedComment: res.Comment}
		rej.Legit = model.LegitFalse
		rej.Comment = res.Comment
		if err := e.rejected.Insert(ctx, rej); err != nil {
			return errs.Wrap(errs.Fatal, err, "insert rejected copy")
		}
	}
	return nil
}

// costSatisfied checks the common precondition every handler enforces
// (spec.md §4.4 "cost ≥ milestone.cost[family][op]"), matching the
// original's `slp.JSON.ask("cost", height)[family].get(op, 1)`: a missing
// per-op entry defaults the required cost to 1, not to outright rejection.
func costSatisfied(net *config.Network, family model.Family, op model.Op, height uint64, cost uint64) bool {
	requiredUnits := 1.0
	if v, ok := net.Ask("cost", &height); ok {
		if table, ok := v.(map[string]interface{}); ok {
			if famTable, ok := table[string(family)].(map[string]interface{}); ok {
				if required, ok := famTable[string(op)]; ok {
					switch r := required.(type) {
					case float64:
						requiredUnits = r
					case int:
						requiredUnits = float64(r)
					}
				}
			}
		}
	}
	return float64(cost) >= requiredUnits
}

func masterAddress(net *config.Network) (string, bool) {
	v, ok := net.Ask("master address", nil)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
