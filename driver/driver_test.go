// Copyright (c) 2024 The scriptcond developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package driver

import (
	"testing"

	"github.com/btcsuite/scriptcond/exec"
	"github.com/btcsuite/scriptcond/opcode"
	"github.com/btcsuite/scriptcond/scripterr"
	"github.com/stretchr/testify/require"
)

// scriptBytes builds a raw script from a mix of opcode.Opcode values and
// []byte data pushes, wrapping each push as an OP_DATA_N item.
func scriptBytes(items ...interface{}) []byte {
	var out []byte
	for _, it := range items {
		switch v := it.(type) {
		case opcode.Opcode:
			out = append(out, byte(v))
		case []byte:
			out = append(out, byte(len(v)))
			out = append(out, v...)
		default:
			panic("scriptBytes: unsupported item type")
		}
	}
	return out
}

func TestAnalyzeCheckSigSingleBranch(t *testing.T) {
	raw := scriptBytes([]byte{0xaa}, []byte{0xbb}, opcode.OP_CHECKSIG)
	res, err := Analyze(raw, Options{Version: exec.Legacy, Rules: exec.All})
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalBranches)
	require.Empty(t, res.PathErrors)
	require.Equal(t, "CHECKSIG(aa, bb)", res.Disjunction)
}

func TestAnalyzeIfElseTwoBranches(t *testing.T) {
	// No initial push: OP_IF draws its condition from an empty stack,
	// matching spec.md §8 scenario 1's "empty stack ⇒ <input0>" case.
	raw := scriptBytes(
		opcode.OP_IF,
		[]byte{0x02}, opcode.OP_ELSE,
		[]byte{0x03}, opcode.OP_ENDIF,
	)
	res, err := Analyze(raw, Options{Version: exec.Legacy, Rules: exec.All})
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalBranches)
	require.Empty(t, res.PathErrors)
	require.Equal(t, "<input0> ||\n!(<input0>)", res.Disjunction)
}

func TestAnalyzeDisabledOpcodeRejectedByPreScan(t *testing.T) {
	raw := scriptBytes(opcode.OP_CAT)
	_, err := Analyze(raw, Options{Version: exec.Legacy, Rules: exec.All})
	require.Error(t, err)
	require.True(t, scripterr.IsErrorCode(err, scripterr.ErrDisabledOpcode))
}

func TestAnalyzeOpReturnBranchReportsPathError(t *testing.T) {
	raw := scriptBytes(
		[]byte{0x01}, opcode.OP_NOT, opcode.OP_IF,
		opcode.OP_RETURN, opcode.OP_ELSE,
		[]byte{0xaa}, []byte{0xbb}, opcode.OP_CHECKSIG, opcode.OP_ENDIF,
	)
	res, err := Analyze(raw, Options{Version: exec.Legacy, Rules: exec.All})
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalBranches)
	require.Len(t, res.PathErrors, 1)
	require.Equal(t, scripterr.ErrOpReturn, res.PathErrors[0].Err.Code)
	require.Equal(t, "CHECKSIG(aa, bb)", res.Disjunction)
}

func TestAnalyzeMaxBranchesSafetyValve(t *testing.T) {
	raw := scriptBytes(
		[]byte{0x01}, opcode.OP_IF,
		[]byte{0x02}, opcode.OP_ELSE,
		[]byte{0x03}, opcode.OP_ENDIF,
	)
	_, err := Analyze(raw, Options{Version: exec.Legacy, Rules: exec.All, MaxBranches: 1})
	require.ErrorIs(t, err, ErrTooManyBranches)

	// Unset (zero) never engages, regardless of how many branches a script
	// produces.
	res, err := Analyze(raw, Options{Version: exec.Legacy, Rules: exec.All, MaxBranches: 0})
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalBranches)
}

func TestAnalyzeCompactDisasm(t *testing.T) {
	raw := scriptBytes(opcode.OP_2, opcode.OP_3, opcode.OP_CHECKMULTISIG)
	res, err := Analyze(raw, Options{Version: exec.Legacy, Rules: exec.All, Compact: true})
	require.NoError(t, err)
	require.Equal(t, "2 3 OP_CHECKMULTISIG", res.Disasm)
}

func TestAnalyzeMinimalIfEmptyDisjunctionUnderSegwitV1(t *testing.T) {
	// Scenario 5 from spec.md §8.
	raw := scriptBytes([]byte{0x02}, opcode.OP_IF, []byte{0x01}, opcode.OP_ENDIF)
	res, err := Analyze(raw, Options{Version: exec.SegwitV1, Rules: exec.All})
	require.NoError(t, err)
	require.Empty(t, res.PathErrors)
	require.Empty(t, res.Disjunction)
}
