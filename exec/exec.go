// Copyright (c) 2024 The scriptcond developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package exec implements the symbolic script executor (spec §4.2): the
// dual interpreter that walks a parsed script maintaining a stack,
// altstack, condition stack, and accumulated spending conditions, forking
// an independent analyzer state at every conditional branch point.
//
// Grounded on the teacher's engine.go/opcode.go opcode-function dispatch
// (one opTYPE(op, data, vm) per mnemonic) and stack.go's asInt/asBool
// family, generalized here from concrete execution to symbolic execution
// per spec §9 ("keep HOW, replace WHAT"): every opTYPE below mutates a
// *Branch instead of a concrete *Engine, and pushes expr.Expr instead of
// raw bytes when any operand is symbolic.
package exec

import (
	"github.com/btcsuite/scriptcond/condstack"
	"github.com/btcsuite/scriptcond/expr"
	"github.com/btcsuite/scriptcond/item"
	"github.com/btcsuite/scriptcond/opcode"
	"github.com/btcsuite/scriptcond/scripterr"
	"github.com/btcsuite/scriptcond/scriptnum"
)

// Version identifies the script-version regime in force (spec §3, §6).
type Version int

const (
	Legacy Version = iota
	SegwitV0
	SegwitV1
)

// String renders v for diagnostics and CLI flag round-tripping.
func (v Version) String() string {
	switch v {
	case Legacy:
		return "legacy"
	case SegwitV0:
		return "segwitv0"
	case SegwitV1:
		return "segwitv1"
	default:
		return "unknown"
	}
}

// Rules identifies the rule set in force (spec §3, §6).
type Rules int

const (
	All Rules = iota
	ConsensusOnly
)

// String renders r for diagnostics and CLI flag round-tripping.
func (r Rules) String() string {
	switch r {
	case All:
		return "all"
	case ConsensusOnly:
		return "consensus-only"
	default:
		return "unknown"
	}
}

// Resource bounds (spec §5).
const (
	maxStackAndAltStackSize = 1000
	maxPubKeysPerMultisig   = 20
)

// Registry is the append-only collection every fork of a single top-level
// analysis appends itself to (spec §4.3). Branches appear in deterministic
// depth-first pre-order.
type Registry struct {
	Branches []*Branch
	nextPath int
}

func (r *Registry) newPath() int {
	p := r.nextPath
	r.nextPath++
	return p
}

func (r *Registry) add(b *Branch) {
	r.Branches = append(r.Branches, b)
}

// Branch is one analyzer state: a clonable tuple of script position, the
// two stacks, the accumulated spending conditions, the condition stack,
// and a path id, all sharing one Registry (spec §3 "Branch").
type Branch struct {
	script   item.Script
	offset   int
	stack    []*expr.Expr
	altstack []*expr.Expr

	varCounter int
	cs         *condstack.Stack
	registry   *Registry
	version    Version
	rules      Rules

	Path               int
	SpendingConditions []*expr.Expr
	Err                *scripterr.ScriptError
}

// Analyze runs the symbolic executor over script under the given version
// and rules, forking synchronously at every conditional, and returns the
// populated branch registry (spec §4.2, §4.3).
func Analyze(script item.Script, version Version, rules Rules) *Registry {
	reg := &Registry{}
	root := &Branch{
		script:   script,
		cs:       condstack.New(),
		registry: reg,
		version:  version,
		rules:    rules,
	}
	root.Path = reg.newPath()
	reg.add(root)
	root.run()
	return reg
}

// Snapshot renders the current stack and altstack as printable byte
// strings, for the per-path diagnostic (spec §7).
func (b *Branch) Snapshot() (stack, altstack [][]byte) {
	return renderExprs(b.stack), renderExprs(b.altstack)
}

func renderExprs(xs []*expr.Expr) [][]byte {
	out := make([][]byte, len(xs))
	for i, e := range xs {
		out[i] = []byte(e.String())
	}
	return out
}

// clone deep-copies this branch's mutable state into a sibling, assigns it
// a fresh path id, and registers it, per spec §4.3 ("every new fork appends
// itself to the registry at construction").
func (b *Branch) clone() *Branch {
	cp := &Branch{
		script:             b.script,
		offset:             b.offset,
		stack:              append([]*expr.Expr(nil), b.stack...),
		altstack:           append([]*expr.Expr(nil), b.altstack...),
		varCounter:         b.varCounter,
		cs:                 b.cs.Clone(),
		registry:           b.registry,
		version:            b.version,
		rules:              b.rules,
		SpendingConditions: append([]*expr.Expr(nil), b.SpendingConditions...),
	}
	cp.Path = b.registry.newPath()
	b.registry.add(cp)
	return cp
}

// run drives this branch's item loop to completion: an error (fail) or a
// successful final check (spec §4.2 "Invariants (per step)").
func (b *Branch) run() {
	for b.offset < len(b.script) {
		it := b.script[b.offset]
		b.offset++
		if !b.step(it) {
			return
		}
		if len(b.stack)+len(b.altstack) > maxStackAndAltStackSize {
			b.fail(scripterr.ErrStackSize)
			return
		}
	}
	if !b.cs.Empty() {
		b.fail(scripterr.ErrUnbalancedConditional)
		return
	}
	if len(b.stack) > 1 {
		b.fail(scripterr.ErrCleanStack)
		return
	}
	b.finalCheck()
}

// finalCheck implements spec §4.2's end-of-script contract: the lone stack
// item (drawing a variable from an empty stack) must not be concretely
// false, and is appended to the spending conditions either way.
func (b *Branch) finalCheck() {
	top := b.read(1)[0]
	if top.IsBytes() && !scriptnum.DecodeBool(top.Bytes) {
		b.fail(scripterr.ErrEvalFalse)
		return
	}
	b.SpendingConditions = append(b.SpendingConditions, top)
}

// step implements the dispatch gate (spec §4.2): pushes are skipped while
// not executing; non-flow-control opcodes are skipped while not executing;
// everything else reaches dispatch.
func (b *Branch) step(it item.Item) bool {
	fExec := b.cs.AllTrue()
	if it.IsPush {
		if !fExec {
			return true
		}
		b.stack = append(b.stack, expr.NewBytes(it.Data))
		return true
	}
	if !fExec && !opcode.IsFlowControl(it.Op) {
		return true
	}
	return b.dispatch(it.Op, fExec)
}

func (b *Branch) dispatch(op opcode.Opcode, fExec bool) bool {
	switch op {
	case opcode.OP_IF, opcode.OP_NOTIF:
		return b.opIf(op, fExec)
	case opcode.OP_ELSE:
		return b.opElse()
	case opcode.OP_ENDIF:
		return b.opEndif()
	}
	if !fExec {
		return true
	}
	return b.dispatchExec(op)
}

// fail records the first terminal error this branch hits; later calls are
// no-ops so the original cause is preserved.
func (b *Branch) fail(code scripterr.ErrorCode) bool {
	if b.Err == nil {
		b.Err = scripterr.New(code, code.String())
	}
	return false
}

// verify implements the shared OP_VERIFY contract (spec §4.2): a concrete
// false fails with code; a concrete true is consumed silently; a symbolic
// value is appended to the spending conditions.
func (b *Branch) verify(e *expr.Expr, code scripterr.ErrorCode) bool {
	if e.IsBytes() {
		if !scriptnum.DecodeBool(e.Bytes) {
			return b.fail(code)
		}
		return true
	}
	b.SpendingConditions = append(b.SpendingConditions, e)
	return true
}

func errTag(code scripterr.ErrorCode) *expr.ErrTag {
	return expr.NewErrTag(int(code), code.String())
}

// freshVar draws the next witness variable for this branch (spec §3's Var
// numbering invariant: monotonically increasing per branch, never reused).
func (b *Branch) freshVar() *expr.Expr {
	v := expr.NewVar(b.varCounter)
	b.varCounter++
	return v
}

// take removes the top k stack items, padding the bottom with fresh
// variables for any the stack lacks, and returns them bottom-to-top (spec
// §4.2 "Stack discipline").
func (b *Branch) take(k int) []*expr.Expr {
	avail := len(b.stack)
	n := k
	missing := 0
	if k > avail {
		missing = k - avail
		n = avail
	}
	out := make([]*expr.Expr, k)
	for i := 0; i < missing; i++ {
		out[i] = b.freshVar()
	}
	copy(out[missing:], b.stack[len(b.stack)-n:])
	b.stack = b.stack[:len(b.stack)-n]
	return out
}

// read non-destructively returns the top k stack items bottom-to-top,
// padding the bottom of the live stack with fresh variables first if it is
// shallower than k (spec §4.2 "Stack discipline").
func (b *Branch) read(k int) []*expr.Expr {
	if len(b.stack) < k {
		missing := k - len(b.stack)
		padded := make([]*expr.Expr, 0, k)
		for i := 0; i < missing; i++ {
			padded = append(padded, b.freshVar())
		}
		b.stack = append(padded, b.stack...)
	}
	out := make([]*expr.Expr, k)
	copy(out, b.stack[len(b.stack)-k:])
	return out
}

// opIf implements OP_IF/OP_NOTIF (spec §4.2). When not executing, it only
// tracks gating. When executing, it pops the condition, forks a sibling
// branch for the opposite outcome, and records the minimal-if or plain
// spending condition in each before running the fork to completion.
func (b *Branch) opIf(op opcode.Opcode, fExec bool) bool {
	if !fExec {
		b.cs.Push(false)
		return true
	}

	e := b.take(1)[0]
	gateThis := op == opcode.OP_IF

	fork := b.clone()
	b.cs.Push(gateThis)
	fork.cs.Push(!gateThis)

	minimalIf := b.version == SegwitV1 || (b.version == SegwitV0 && b.rules == All)
	if minimalIf {
		code := scripterr.ErrMinimalIf
		if b.version == SegwitV1 {
			code = scripterr.ErrTapscriptMinimalIf
		}
		tag := errTag(code)
		trueCond := expr.NewApp(opcode.OP_EQUAL, e, expr.NewBytes(scriptnum.TRUE)).WithErr(tag)
		falseCond := expr.NewApp(opcode.OP_EQUAL, e, expr.NewBytes(scriptnum.FALSE)).WithErr(tag)
		b.SpendingConditions = append(b.SpendingConditions, trueCond)
		fork.SpendingConditions = append(fork.SpendingConditions, falseCond)
	} else {
		notE := expr.NewApp(opcode.InternalNot, e)
		b.SpendingConditions = append(b.SpendingConditions, e)
		fork.SpendingConditions = append(fork.SpendingConditions, notE)
	}

	fork.run()
	return true
}

func (b *Branch) opElse() bool {
	if err := b.cs.ToggleTop(); err != nil {
		return b.fail(scripterr.ErrUnbalancedConditional)
	}
	return true
}

func (b *Branch) opEndif() bool {
	if err := b.cs.Pop(); err != nil {
		return b.fail(scripterr.ErrUnbalancedConditional)
	}
	return true
}

// opIfDup implements OP_IFDUP's fork (spec §4.2): the top is duplicated
// only along the branch where it is truthy; the sibling asserts its
// negation and leaves the stack unchanged.
func (b *Branch) opIfDup() bool {
	e := b.read(1)[0]
	fork := b.clone()

	b.SpendingConditions = append(b.SpendingConditions, e)
	b.stack = append(b.stack, e)

	fork.SpendingConditions = append(fork.SpendingConditions, expr.NewApp(opcode.InternalNot, e))

	fork.run()
	return true
}

// dispatchExec implements every opcode that is not conditional flow
// control, under the invariant that fExec is true (spec §4.2's per-opcode
// semantics table).
func (b *Branch) dispatchExec(op opcode.Opcode) bool {
	if op == opcode.OP_0 {
		b.stack = append(b.stack, expr.NewBytes(nil))
		return true
	}
	if opcode.IsSmallInt(op) {
		b.stack = append(b.stack, expr.NewBytes([]byte{byte(op - opcode.OP_1 + 1)}))
		return true
	}

	switch op {
	case opcode.OP_1NEGATE:
		b.stack = append(b.stack, expr.NewBytes(scriptnum.EncodeInt(-1)))

	case opcode.OP_NOP, opcode.OP_NOP1,
		opcode.OP_NOP4, opcode.OP_NOP5, opcode.OP_NOP6,
		opcode.OP_NOP7, opcode.OP_NOP8, opcode.OP_NOP9, opcode.OP_NOP10:
		// No effect.

	case opcode.OP_VERIFY:
		return b.verify(b.take(1)[0], scripterr.ErrVerify)

	case opcode.OP_RETURN:
		return b.fail(scripterr.ErrOpReturn)

	case opcode.OP_TOALTSTACK:
		b.altstack = append(b.altstack, b.take(1)[0])

	case opcode.OP_FROMALTSTACK:
		if len(b.altstack) == 0 {
			return b.fail(scripterr.ErrInvalidAltStackOperation)
		}
		top := b.altstack[len(b.altstack)-1]
		b.altstack = b.altstack[:len(b.altstack)-1]
		b.stack = append(b.stack, top)

	case opcode.OP_2DROP:
		b.take(2)

	case opcode.OP_2DUP:
		b.stack = append(b.stack, b.read(2)...)

	case opcode.OP_3DUP:
		b.stack = append(b.stack, b.read(3)...)

	case opcode.OP_2OVER:
		xs := b.read(4)
		b.stack = append(b.stack, xs[0], xs[1])

	case opcode.OP_2ROT:
		xs := b.take(6)
		b.stack = append(b.stack, xs[2], xs[3], xs[4], xs[5], xs[0], xs[1])

	case opcode.OP_2SWAP:
		xs := b.take(4)
		b.stack = append(b.stack, xs[2], xs[3], xs[0], xs[1])

	case opcode.OP_IFDUP:
		return b.opIfDup()

	case opcode.OP_DEPTH:
		b.stack = append(b.stack, expr.NewBytes(scriptnum.EncodeInt(int32(len(b.stack)))))

	case opcode.OP_DROP:
		b.take(1)

	case opcode.OP_DUP:
		b.stack = append(b.stack, b.read(1)[0])

	case opcode.OP_NIP:
		xs := b.take(2)
		b.stack = append(b.stack, xs[1])

	case opcode.OP_OVER:
		b.stack = append(b.stack, b.read(2)[0])

	case opcode.OP_PICK:
		return b.opPick()

	case opcode.OP_ROLL:
		return b.opRoll()

	case opcode.OP_ROT:
		xs := b.take(3)
		b.stack = append(b.stack, xs[1], xs[2], xs[0])

	case opcode.OP_SWAP:
		xs := b.take(2)
		b.stack = append(b.stack, xs[1], xs[0])

	case opcode.OP_TUCK:
		xs := b.take(2)
		b.stack = append(b.stack, xs[1], xs[0], xs[1])

	case opcode.OP_SIZE:
		top := b.read(1)[0]
		b.stack = append(b.stack, expr.NewApp(opcode.OP_SIZE, top))

	case opcode.OP_EQUAL:
		xs := b.take(2)
		b.stack = append(b.stack, expr.NewApp(opcode.OP_EQUAL, xs[0], xs[1]))

	case opcode.OP_EQUALVERIFY:
		xs := b.take(2)
		return b.verify(expr.NewApp(opcode.OP_EQUAL, xs[0], xs[1]), scripterr.ErrEqualVerify)

	case opcode.OP_1ADD, opcode.OP_1SUB, opcode.OP_NEGATE, opcode.OP_ABS,
		opcode.OP_NOT, opcode.OP_0NOTEQUAL:
		top := b.take(1)[0]
		b.stack = append(b.stack, expr.NewApp(op, top))

	case opcode.OP_ADD, opcode.OP_SUB, opcode.OP_BOOLAND, opcode.OP_BOOLOR,
		opcode.OP_NUMNOTEQUAL, opcode.OP_LESSTHAN, opcode.OP_GREATERTHAN,
		opcode.OP_LESSTHANOREQUAL, opcode.OP_GREATERTHANOREQUAL,
		opcode.OP_MIN, opcode.OP_MAX:
		xs := b.take(2)
		b.stack = append(b.stack, expr.NewApp(op, xs[0], xs[1]))

	case opcode.OP_NUMEQUAL:
		xs := b.take(2)
		b.stack = append(b.stack, expr.NewApp(opcode.OP_NUMEQUAL, xs[0], xs[1]))

	case opcode.OP_NUMEQUALVERIFY:
		xs := b.take(2)
		return b.verify(expr.NewApp(opcode.OP_NUMEQUAL, xs[0], xs[1]), scripterr.ErrNumEqualVerify)

	case opcode.OP_WITHIN:
		xs := b.take(3)
		b.stack = append(b.stack, expr.NewApp(opcode.OP_WITHIN, xs[0], xs[1], xs[2]))

	case opcode.OP_RIPEMD160, opcode.OP_SHA1, opcode.OP_SHA256,
		opcode.OP_HASH160, opcode.OP_HASH256:
		top := b.take(1)[0]
		b.stack = append(b.stack, expr.NewApp(op, top))

	case opcode.OP_CODESEPARATOR:
		// No effect; the analyzer does not track script-code accounting.

	case opcode.OP_CHECKSIG:
		xs := b.take(2)
		b.stack = append(b.stack, expr.NewApp(opcode.OP_CHECKSIG, xs[0], xs[1]))

	case opcode.OP_CHECKSIGVERIFY:
		xs := b.take(2)
		return b.verify(expr.NewApp(opcode.OP_CHECKSIG, xs[0], xs[1]), scripterr.ErrCheckSigVerify)

	case opcode.OP_CHECKMULTISIG:
		return b.opCheckMultisig(false)

	case opcode.OP_CHECKMULTISIGVERIFY:
		return b.opCheckMultisig(true)

	case opcode.OP_CHECKLOCKTIMEVERIFY, opcode.OP_CHECKSEQUENCEVERIFY:
		top := b.read(1)[0]
		b.SpendingConditions = append(b.SpendingConditions, expr.NewApp(op, top))

	case opcode.OP_CHECKSIGADD:
		return b.opCheckSigAdd()

	default:
		return b.fail(scripterr.ErrBadOpcode)
	}
	return true
}

// pickRollDepth decodes and validates the index argument OP_PICK/OP_ROLL
// consume: a concrete, non-negative, ≤4-byte integer (spec §4.2, §9 "Open
// question — stack-depth argument to OP_PICK/OP_ROLL": symbolic depths are
// rejected with NUM_OVERFLOW, not specially handled).
func (b *Branch) pickRollDepth() (int, bool) {
	e := b.take(1)[0]
	if !e.IsBytes() {
		b.fail(scripterr.ErrNumOverflow)
		return 0, false
	}
	n, err := scriptnum.DecodeInt(e.Bytes)
	if err != nil {
		b.fail(scripterr.ErrNumOverflow)
		return 0, false
	}
	if n < 0 {
		b.fail(scripterr.ErrInvalidStackOperation)
		return 0, false
	}
	if int(n) > maxStackAndAltStackSize {
		b.fail(scripterr.ErrStackSize)
		return 0, false
	}
	return int(n), true
}

func (b *Branch) opPick() bool {
	n, ok := b.pickRollDepth()
	if !ok {
		return false
	}
	xs := b.read(n + 1)
	b.stack = append(b.stack, xs[0])
	return true
}

func (b *Branch) opRoll() bool {
	n, ok := b.pickRollDepth()
	if !ok {
		return false
	}
	xs := b.take(n + 1)
	b.stack = append(b.stack, xs[1:]...)
	b.stack = append(b.stack, xs[0])
	return true
}

// decodeCount decodes a concrete, ≤4-byte, non-negative integer bounded by
// max, used for OP_CHECKMULTISIG's key and signature counts (spec §4.2).
func (b *Branch) decodeCount(e *expr.Expr, rangeErr scripterr.ErrorCode, max int) (int, bool) {
	if !e.IsBytes() {
		b.fail(scripterr.ErrNumOverflow)
		return 0, false
	}
	n, err := scriptnum.DecodeInt(e.Bytes)
	if err != nil {
		b.fail(scripterr.ErrNumOverflow)
		return 0, false
	}
	if n < 0 || int(n) > max {
		b.fail(rangeErr)
		return 0, false
	}
	return int(n), true
}

// opCheckMultisig implements OP_CHECKMULTISIG[VERIFY] (spec §4.2).
func (b *Branch) opCheckMultisig(verify bool) bool {
	if b.version == SegwitV1 {
		return b.fail(scripterr.ErrTapscriptCheckMultisig)
	}

	kExpr := b.take(1)[0]
	k, ok := b.decodeCount(kExpr, scripterr.ErrPubKeyCount, maxPubKeysPerMultisig)
	if !ok {
		return false
	}
	pks := b.take(k)

	sExpr := b.take(1)[0]
	s, ok := b.decodeCount(sExpr, scripterr.ErrSigCount, k)
	if !ok {
		return false
	}
	sigs := b.take(s)

	dummy := b.take(1)[0]
	dummyCond := expr.NewApp(opcode.OP_EQUAL, dummy, expr.NewBytes(scriptnum.FALSE)).
		WithErr(errTag(scripterr.ErrSigNullDummy))
	b.SpendingConditions = append(b.SpendingConditions, dummyCond)

	args := make([]*expr.Expr, 0, len(sigs)+1+len(pks)+1)
	args = append(args, sigs...)
	args = append(args, expr.NewBytes(scriptnum.EncodeInt(int32(s))))
	args = append(args, pks...)
	args = append(args, expr.NewBytes(scriptnum.EncodeInt(int32(k))))
	node := expr.NewApp(opcode.OP_CHECKMULTISIG, args...)

	if verify {
		return b.verify(node, scripterr.ErrCheckMultisigVerify)
	}
	b.stack = append(b.stack, node)
	return true
}

// opCheckSigAdd implements OP_CHECKSIGADD (spec §4.2), valid only under
// tapscript (SegwitV1).
func (b *Branch) opCheckSigAdd() bool {
	if b.version < SegwitV1 {
		return b.fail(scripterr.ErrBadOpcode)
	}
	xs := b.take(3) // [sig, n, pk]
	checksig := expr.NewApp(opcode.OP_CHECKSIG, xs[0], xs[2])
	b.stack = append(b.stack, expr.NewApp(opcode.OP_ADD, xs[1], checksig))
	return true
}
