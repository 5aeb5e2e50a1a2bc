// Copyright (c) 2024 The scriptcond developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package expr implements the value/expression model stack items are built
// from: a tagged sum of a concrete byte string, a free witness variable, or
// an opcode applied to an ordered argument list.
//
// The three-variant sum and the dense, opcode-keyed dispatch style are
// grounded on the teacher's stack.go (asInt/fromInt/asBool/fromBool operate
// on the same []byte representation Bytes wraps) and opcode.go's
// opcode-indexed dispatch; Expr plays the role txscript's stack slots play,
// except a slot here may also be symbolic.
package expr

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/scriptcond/opcode"
)

// Kind discriminates the three Expr variants.
type Kind int

const (
	KindBytes Kind = iota
	KindVar
	KindApp
)

// Expr is a node in the symbolic expression tree a stack slot holds. Exactly
// one of the per-kind fields is meaningful, selected by Kind. Expr values
// are treated as immutable once built: forks share subtrees by pointer,
// so nothing downstream may mutate an Expr in place.
type Expr struct {
	Kind Kind

	// KindBytes.
	Bytes []byte

	// KindVar.
	Var int

	// KindApp.
	Op   opcode.Opcode
	Args []*Expr

	// Err optionally tags an App node: "this predicate must hold, else
	// fail with this error kind". Nil means untagged.
	Err *ErrTag
}

// ErrTag names the error kind an App predicate is tagged with when it must
// hold for the script to accept.
type ErrTag struct {
	Code int
	Name string
}

// NewErrTag builds an ErrTag from a scripterr.ErrorCode-shaped value. Kept
// generic (int code + name) so this package does not need to import
// scripterr; callers convert with int(code).
func NewErrTag(code int, name string) *ErrTag {
	return &ErrTag{Code: code, Name: name}
}

// NewBytes wraps a concrete byte string as a leaf Expr.
func NewBytes(b []byte) *Expr {
	return &Expr{Kind: KindBytes, Bytes: b}
}

// NewVar builds a free witness variable numbered n.
func NewVar(n int) *Expr {
	return &Expr{Kind: KindVar, Var: n}
}

// NewApp builds an opcode application node.
func NewApp(op opcode.Opcode, args ...*Expr) *Expr {
	return &Expr{Kind: KindApp, Op: op, Args: args}
}

// WithErr returns a copy of e (which must be KindApp) tagged with err. e is
// not mutated, preserving the immutable-handle discipline forks rely on.
func (e *Expr) WithErr(err *ErrTag) *Expr {
	cp := *e
	cp.Err = err
	return &cp
}

// IsBytes reports whether e is a concrete byte string.
func (e *Expr) IsBytes() bool { return e.Kind == KindBytes }

// Equal reports structural equality: same variant and recursively equal
// subterms. The Err tag is metadata, not part of the predicate's identity,
// and is ignored.
func Equal(a, b *Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBytes:
		return string(a.Bytes) == string(b.Bytes)
	case KindVar:
		return a.Var == b.Var
	case KindApp:
		if a.Op != b.Op || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// kindPriority orders variants for comparisons between mixed kinds: App <
// Var < Bytes.
func kindPriority(k Kind) int {
	switch k {
	case KindApp:
		return 0
	case KindVar:
		return 1
	case KindBytes:
		return 2
	default:
		return 3
	}
}

// Compare implements a total order over expressions: mixed kinds order
// App < Var < Bytes; same-kind pairs compare
// by opcode+arity+args (App), index (Var), or lexicographic bytes (Bytes).
// Returns <0, 0, or >0 like bytes.Compare.
func Compare(a, b *Expr) int {
	if a.Kind != b.Kind {
		return kindPriority(a.Kind) - kindPriority(b.Kind)
	}
	switch a.Kind {
	case KindBytes:
		return strings.Compare(string(a.Bytes), string(b.Bytes))
	case KindVar:
		return a.Var - b.Var
	case KindApp:
		if a.Op != b.Op {
			return int(a.Op) - int(b.Op)
		}
		if len(a.Args) != len(b.Args) {
			return len(a.Args) - len(b.Args)
		}
		for i := range a.Args {
			if c := Compare(a.Args[i], b.Args[i]); c != 0 {
				return c
			}
		}
		return 0
	default:
		return 0
	}
}

// argOrderSignificantSet holds the opcodes whose argument order carries
// meaning and must never be reordered by canonicalization: OP_CHECKSIG's
// [sig, pk] is not symmetric, nor are the comparison and subtraction ops.
var argOrderSignificantSet = map[opcode.Opcode]struct{}{
	opcode.OP_CHECKMULTISIG:      {},
	opcode.OP_CHECKSIG:           {},
	opcode.OP_GREATERTHAN:        {},
	opcode.OP_GREATERTHANOREQUAL: {},
	opcode.OP_LESSTHAN:           {},
	opcode.OP_LESSTHANOREQUAL:    {},
	opcode.OP_SUB:                {},
	opcode.OP_WITHIN:             {},
}

// IsArgOrderSignificant reports whether op's arguments must keep their
// original order when canonicalizing.
func IsArgOrderSignificant(op opcode.Opcode) bool {
	_, ok := argOrderSignificantSet[op]
	return ok
}

// Sort sorts args in place using Compare, unless op's argument order is
// significant, in which case args is left untouched.
func Sort(op opcode.Opcode, args []*Expr) {
	if IsArgOrderSignificant(op) {
		return
	}
	// Small, fixed arities throughout this language; insertion sort keeps
	// this allocation-free and is plenty fast.
	for i := 1; i < len(args); i++ {
		for j := i; j > 0 && Compare(args[j-1], args[j]) > 0; j-- {
			args[j-1], args[j] = args[j], args[j-1]
		}
	}
}

// IsNegationOf reports whether a is the logical negation of b: a is
// App(OP_NOT, [b]) or App(InternalNot, [b]).
func IsNegationOf(a, b *Expr) bool {
	if a.Kind != KindApp || len(a.Args) != 1 {
		return false
	}
	if a.Op != opcode.OP_NOT && a.Op != opcode.InternalNot {
		return false
	}
	return Equal(a.Args[0], b)
}

// AreContradictory reports whether p and q form p == ¬q, in either
// direction.
func AreContradictory(p, q *Expr) bool {
	return IsNegationOf(p, q) || IsNegationOf(q, p)
}

// String renders e for the final disjunction printer: App(op,args) as
// "NAME(arg1, …)" with the "OP_" prefix stripped; INTERNAL_NOT(x) as
// "!(x)"; OP_EQUAL(a,b) as "(a == b)"; Var(n) as "<input{n}>"; Bytes(b) as
// its hex encoding.
func (e *Expr) String() string {
	switch e.Kind {
	case KindBytes:
		return hex.EncodeToString(e.Bytes)
	case KindVar:
		return "<input" + strconv.Itoa(e.Var) + ">"
	case KindApp:
		if e.Op == opcode.InternalNot {
			return "!(" + e.Args[0].String() + ")"
		}
		if e.Op == opcode.OP_EQUAL && len(e.Args) == 2 {
			return "(" + e.Args[0].String() + " == " + e.Args[1].String() + ")"
		}
		name := strings.TrimPrefix(opcode.Name(e.Op), "OP_")
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
	default:
		return "<invalid>"
	}
}
