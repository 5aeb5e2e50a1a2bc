// Copyright (c) 2024 The scriptcond developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package exec

import (
	"testing"

	"github.com/btcsuite/scriptcond/expr"
	"github.com/btcsuite/scriptcond/item"
	"github.com/btcsuite/scriptcond/opcode"
	"github.com/btcsuite/scriptcond/scripterr"
	"github.com/stretchr/testify/require"
)

func push(b ...byte) item.Item { return item.Push(b) }

func op(o opcode.Opcode) item.Item { return item.Op(o) }

func TestSimpleCheckSig(t *testing.T) {
	script := item.Script{
		push(0xaa), // sig
		push(0xbb), // pk
		op(opcode.OP_CHECKSIG),
	}
	reg := Analyze(script, Legacy, All)
	require.Len(t, reg.Branches, 1)
	b := reg.Branches[0]
	require.Nil(t, b.Err)
	require.Len(t, b.SpendingConditions, 1)
	require.Equal(t, "CHECKSIG(aa, bb)", b.SpendingConditions[0].String())
}

func TestDupHash160EqualverifyCheckSigOnEmptyStack(t *testing.T) {
	h := []byte{0x01, 0x02, 0x03}
	script := item.Script{
		op(opcode.OP_DUP),
		op(opcode.OP_HASH160),
		push(h...),
		op(opcode.OP_EQUALVERIFY),
		op(opcode.OP_CHECKSIG),
	}
	reg := Analyze(script, Legacy, All)
	require.Len(t, reg.Branches, 1)
	b := reg.Branches[0]
	require.Nil(t, b.Err)
	require.Len(t, b.SpendingConditions, 2)
	require.Equal(t, "(HASH160(<input0>) == 010203)", b.SpendingConditions[0].String())
	require.Equal(t, "CHECKSIG(<input1>, <input0>)", b.SpendingConditions[1].String())
}

func TestIfElseForksTwoBranches(t *testing.T) {
	script := item.Script{
		push(0x01),
		op(opcode.OP_IF),
		push(0x02),
		op(opcode.OP_ELSE),
		push(0x03),
		op(opcode.OP_ENDIF),
	}
	reg := Analyze(script, Legacy, All)
	require.Len(t, reg.Branches, 2)

	root := reg.Branches[0]
	fork := reg.Branches[1]
	require.Nil(t, root.Err)
	require.Nil(t, fork.Err)

	require.Equal(t, []string{"01", "02"}, stringify(root.SpendingConditions))
	require.Equal(t, []string{"!(01)", "03"}, stringify(fork.SpendingConditions))
}

func TestMinimalIfUnderSegwitV1(t *testing.T) {
	script := item.Script{
		push(0x02),
		op(opcode.OP_IF),
		push(0x01),
		op(opcode.OP_ENDIF),
	}
	reg := Analyze(script, SegwitV1, All)
	require.Len(t, reg.Branches, 2)

	root := reg.Branches[0]
	fork := reg.Branches[1]
	require.Equal(t, "(02 == 01)", root.SpendingConditions[0].String())
	require.Equal(t, int(scripterr.ErrTapscriptMinimalIf), root.SpendingConditions[0].Err.Code)
	require.Equal(t, "(02 == )", fork.SpendingConditions[0].String())
}

func TestOpReturnFailsBranch(t *testing.T) {
	script := item.Script{
		push(0x01),
		op(opcode.OP_NOT),
		op(opcode.OP_IF),
		op(opcode.OP_RETURN),
		op(opcode.OP_ELSE),
		push(0xaa),
		push(0xbb),
		op(opcode.OP_CHECKSIG),
		op(opcode.OP_ENDIF),
	}
	reg := Analyze(script, Legacy, All)
	require.Len(t, reg.Branches, 2)

	var failed, ok *Branch
	for _, b := range reg.Branches {
		if b.Err != nil {
			failed = b
		} else {
			ok = b
		}
	}
	require.NotNil(t, failed)
	require.NotNil(t, ok)
	require.Equal(t, scripterr.ErrOpReturn, failed.Err.Code)
	require.Equal(t, "CHECKSIG(aa, bb)", ok.SpendingConditions[len(ok.SpendingConditions)-1].String())
}

func TestCheckMultisigBuildsAtomicNode(t *testing.T) {
	script := item.Script{
		op(opcode.OP_0),
		push(0x11), // sig1
		push(0x22), // sig2
		push(0x02), // sig count
		push(0x33), // pk1
		push(0x44), // pk2
		push(0x55), // pk3
		push(0x03), // pubkey count
		op(opcode.OP_CHECKMULTISIG),
	}
	reg := Analyze(script, Legacy, All)
	require.Len(t, reg.Branches, 1)
	b := reg.Branches[0]
	require.Nil(t, b.Err)
	require.Len(t, b.SpendingConditions, 2)

	dummyCond := b.SpendingConditions[0]
	require.Equal(t, "( == )", dummyCond.String())
	require.Equal(t, int(scripterr.ErrSigNullDummy), dummyCond.Err.Code)

	require.Equal(t, "CHECKMULTISIG(11, 22, 02, 33, 44, 55, 03)", b.SpendingConditions[1].String())
}

func TestCheckMultisigDisallowedUnderSegwitV1(t *testing.T) {
	script := item.Script{
		op(opcode.OP_0),
		op(opcode.OP_CHECKMULTISIG),
	}
	reg := Analyze(script, SegwitV1, All)
	require.Len(t, reg.Branches, 1)
	require.Equal(t, scripterr.ErrTapscriptCheckMultisig, reg.Branches[0].Err.Code)
}

func TestCheckSigAddRequiresTapscript(t *testing.T) {
	script := item.Script{
		push(0xaa), push(0x00), push(0xbb),
		op(opcode.OP_CHECKSIGADD),
	}
	reg := Analyze(script, Legacy, All)
	require.Equal(t, scripterr.ErrBadOpcode, reg.Branches[0].Err.Code)

	reg2 := Analyze(script, SegwitV1, All)
	require.Nil(t, reg2.Branches[0].Err)
	require.Equal(t, "ADD(00, CHECKSIG(aa, bb))", reg2.Branches[0].SpendingConditions[0].String())
}

func TestPickResidueFailsCleanStack(t *testing.T) {
	script := item.Script{
		push(0x01), push(0x02), push(0x03),
		push(0x01), // pick depth 1 -> duplicates 0x02
		op(opcode.OP_PICK),
	}
	reg := Analyze(script, Legacy, All)
	b := reg.Branches[0]
	require.NotNil(t, b.Err)
	// Final stack: 01 02 03 02 -> CLEANSTACK error since depth > 1 remains.
	require.Equal(t, scripterr.ErrCleanStack, b.Err.Code)
}

func TestPickNegativeIndexFails(t *testing.T) {
	script := item.Script{
		push(0x81), // -1
		op(opcode.OP_PICK),
	}
	reg := Analyze(script, Legacy, All)
	require.Equal(t, scripterr.ErrInvalidStackOperation, reg.Branches[0].Err.Code)
}

func TestPickSymbolicIndexFails(t *testing.T) {
	script := item.Script{
		op(opcode.OP_DUP),
		op(opcode.OP_PICK),
	}
	reg := Analyze(script, Legacy, All)
	require.Equal(t, scripterr.ErrNumOverflow, reg.Branches[0].Err.Code)
}

func TestFromAltStackEmptyFails(t *testing.T) {
	script := item.Script{op(opcode.OP_FROMALTSTACK)}
	reg := Analyze(script, Legacy, All)
	require.Equal(t, scripterr.ErrInvalidAltStackOperation, reg.Branches[0].Err.Code)
}

func TestUnbalancedConditionalFails(t *testing.T) {
	script := item.Script{op(opcode.OP_ENDIF)}
	reg := Analyze(script, Legacy, All)
	require.Equal(t, scripterr.ErrUnbalancedConditional, reg.Branches[0].Err.Code)
}

func TestIfDupForks(t *testing.T) {
	script := item.Script{
		push(0x01),
		op(opcode.OP_IFDUP),
	}
	reg := Analyze(script, Legacy, All)
	require.Len(t, reg.Branches, 2)
	// True branch duplicates, leaving two items -> CLEANSTACK.
	require.Equal(t, scripterr.ErrCleanStack, reg.Branches[0].Err.Code)
	// False branch: single item remains, still a truthy concrete value, so
	// it completes; the exec layer never evaluates whether its recorded
	// negation is itself contradictory, that's the simplifier's job.
	require.Nil(t, reg.Branches[1].Err)
	require.Equal(t, []string{"!(01)", "01"}, stringify(reg.Branches[1].SpendingConditions))
}

func TestDepthPushesStackSize(t *testing.T) {
	script := item.Script{
		push(0x01), push(0x02),
		op(opcode.OP_DEPTH),
	}
	reg := Analyze(script, Legacy, All)
	b := reg.Branches[0]
	require.Equal(t, scripterr.ErrCleanStack, b.Err.Code)
	stack, _ := b.Snapshot()
	require.Equal(t, [][]byte{[]byte("01"), []byte("02"), []byte("02")}, stack)
}

func stringify(xs []*expr.Expr) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = x.String()
	}
	return out
}
