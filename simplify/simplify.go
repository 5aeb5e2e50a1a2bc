// Copyright (c) 2024 The scriptcond developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package simplify normalizes the per-branch spending-condition lists the
// executor collects: canonical ordering, dedup, contradiction detection,
// and partial evaluation, followed by the disjunctive-normal-form printer.
//
// There is no teacher file that does symbolic formula simplification
// (txscript never builds a formula at all); this package is grounded on
// the expr package's Compare/Equal/IsArgOrderSignificant contracts and on
// the teacher's general preference for small, well-named pure functions
// over one large method (see stack.go's PickN/RollN/etc., each a focused
// single-purpose helper).
package simplify

import (
	"sort"
	"strings"

	"github.com/btcsuite/scriptcond/expr"
	"github.com/btcsuite/scriptcond/opcode"
	"github.com/btcsuite/scriptcond/scriptnum"
)

// verdict is the outcome of evaluating one predicate during partial
// evaluation.
type verdict int

const (
	evalUnchanged verdict = iota
	evalRewritten
	evalTrue
	evalFalse
)

// Simplify normalizes every branch's conjunct list, dropping branches that
// are contradictory or evaluate to concrete false, and returns the
// surviving disjuncts.
func Simplify(branches [][]*expr.Expr) [][]*expr.Expr {
	var out [][]*expr.Expr
	for _, br := range branches {
		if simplified, ok := simplifyBranch(br); ok {
			out = append(out, simplified)
		}
	}
	return out
}

// simplifyBranch runs the sort/dedup/contradict/evaluate pipeline to a
// fixed point, since evaluation can introduce new concretes the next
// iteration over the list can again simplify.
func simplifyBranch(initial []*expr.Expr) ([]*expr.Expr, bool) {
	conjuncts := initial
	for {
		canon := make([]*expr.Expr, len(conjuncts))
		for i, c := range conjuncts {
			canon[i] = canonicalize(c)
		}
		sort.SliceStable(canon, func(i, j int) bool {
			return expr.Compare(canon[i], canon[j]) < 0
		})
		deduped := dedup(canon)
		if hasContradiction(deduped) {
			return nil, false
		}

		changed := len(deduped) != len(conjuncts)
		next := make([]*expr.Expr, 0, len(deduped))
		for _, c := range deduped {
			result, v := evaluate(c)
			switch v {
			case evalFalse:
				return nil, false
			case evalTrue:
				changed = true
			case evalRewritten:
				changed = true
				next = append(next, result)
			default:
				next = append(next, result)
			}
		}
		conjuncts = next
		if !changed {
			return conjuncts, true
		}
	}
}

// canonicalize returns a new tree with every App node's argument list
// sorted, unless that opcode's argument order is significant. It never
// mutates e, since subtrees may be shared across sibling branches from a
// common fork ancestor.
func canonicalize(e *expr.Expr) *expr.Expr {
	if e.Kind != expr.KindApp {
		return e
	}
	newArgs := make([]*expr.Expr, len(e.Args))
	for i, a := range e.Args {
		newArgs[i] = canonicalize(a)
	}
	expr.Sort(e.Op, newArgs)
	cp := *e
	cp.Args = newArgs
	return &cp
}

// dedup removes adjacent structural duplicates from a sorted list.
func dedup(xs []*expr.Expr) []*expr.Expr {
	if len(xs) == 0 {
		return xs
	}
	out := xs[:1:1]
	for _, x := range xs[1:] {
		if !expr.Equal(out[len(out)-1], x) {
			out = append(out, x)
		}
	}
	return out
}

// hasContradiction reports whether any pair in xs satisfies p == ¬q. xs is
// typically small (a handful of conditions per branch), so the quadratic
// scan costs nothing in practice.
func hasContradiction(xs []*expr.Expr) bool {
	for i := range xs {
		for j := i + 1; j < len(xs); j++ {
			if expr.AreContradictory(xs[i], xs[j]) {
				return true
			}
		}
	}
	return false
}

// evaluate rewrites e to a fixed point using the rule set below, then
// classifies the result: concrete true (drop the predicate), concrete
// false (drop the whole branch), or a (possibly unchanged) kept
// expression.
func evaluate(e *expr.Expr) (*expr.Expr, verdict) {
	cur := e
	for {
		next, changed := rewriteOnce(cur)
		if !changed {
			break
		}
		cur = next
	}
	if cur.IsBytes() {
		if scriptnum.DecodeBool(cur.Bytes) {
			return nil, evalTrue
		}
		return nil, evalFalse
	}
	if expr.Equal(cur, e) {
		return cur, evalUnchanged
	}
	return cur, evalRewritten
}

// rewriteOnce applies three rewrite patterns bottom-up, once:
//
//	OP_EQUAL(Bytes a, Bytes b)       -> Bool.encode(a == b)
//	OP_NOT(Bytes b) / !(Bytes b)     -> Bool.not(b)
//	OP_NOT(CHECKSIG(s, p))           -> (s == FALSE)
//
// Children are rewritten first so a pattern that only becomes visible
// after a child rewrite (e.g. an OP_EQUAL of two byte strings collapsing
// to a concrete bool under a NOT) is still caught within the same sweep.
func rewriteOnce(e *expr.Expr) (*expr.Expr, bool) {
	if e.Kind != expr.KindApp {
		return e, false
	}

	newArgs := make([]*expr.Expr, len(e.Args))
	childChanged := false
	for i, a := range e.Args {
		r, ch := rewriteOnce(a)
		newArgs[i] = r
		if ch {
			childChanged = true
		}
	}
	node := e
	if childChanged {
		cp := *e
		cp.Args = newArgs
		node = &cp
	}

	switch {
	case node.Op == opcode.OP_EQUAL && len(node.Args) == 2 &&
		node.Args[0].IsBytes() && node.Args[1].IsBytes():
		eq := string(node.Args[0].Bytes) == string(node.Args[1].Bytes)
		return expr.NewBytes(scriptnum.EncodeBool(eq)), true

	case (node.Op == opcode.OP_NOT || node.Op == opcode.InternalNot) &&
		len(node.Args) == 1 && node.Args[0].IsBytes():
		return expr.NewBytes(scriptnum.NotBool(node.Args[0].Bytes)), true

	case node.Op == opcode.OP_NOT && len(node.Args) == 1 &&
		node.Args[0].Kind == expr.KindApp && node.Args[0].Op == opcode.OP_CHECKSIG:
		checksig := node.Args[0]
		return expr.NewApp(opcode.OP_EQUAL, checksig.Args[0], expr.NewBytes(scriptnum.FALSE)), true

	default:
		return node, childChanged
	}
}

// Print renders branches as a disjunctive normal form: conjuncts within a
// branch joined by " && ", branches joined by " ||\n".
func Print(branches [][]*expr.Expr) string {
	parts := make([]string, len(branches))
	for i, br := range branches {
		conds := make([]string, len(br))
		for j, c := range br {
			conds[j] = c.String()
		}
		parts[i] = strings.Join(conds, " && ")
	}
	return strings.Join(parts, " ||\n")
}
