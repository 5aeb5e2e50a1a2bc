// Copyright (c) 2024 The scriptcond developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package item

import (
	"testing"

	"github.com/btcsuite/scriptcond/opcode"
	"github.com/stretchr/testify/require"
)

func TestParseDataPush(t *testing.T) {
	raw := []byte{0x01, 0xaa, byte(opcode.OP_CHECKSIG)}
	s, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, s, 2)
	require.True(t, s[0].IsPush)
	require.Equal(t, []byte{0xaa}, s[0].Data)
	require.False(t, s[1].IsPush)
	require.Equal(t, opcode.OP_CHECKSIG, s[1].Op)
}

func TestParsePushData1(t *testing.T) {
	data := make([]byte, 3)
	raw := append([]byte{byte(opcode.OP_PUSHDATA1), 0x03}, data...)
	s, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, s, 1)
	require.True(t, s[0].IsPush)
	require.Len(t, s[0].Data, 3)
}

func TestParseSmallInt(t *testing.T) {
	raw := []byte{byte(opcode.OP_1), byte(opcode.OP_16)}
	s, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, s, 2)
	require.False(t, s[0].IsPush)
	require.Equal(t, opcode.OP_1, s[0].Op)
}

func TestParseTruncatedPushErrors(t *testing.T) {
	raw := []byte{0x05, 0xaa}
	_, err := Parse(raw)
	require.Error(t, err)
}

func TestHasDisabled(t *testing.T) {
	s := Script{Op(opcode.OP_DUP), Op(opcode.OP_CAT)}
	op, found := HasDisabled(s)
	require.True(t, found)
	require.Equal(t, opcode.OP_CAT, op)

	s2 := Script{Op(opcode.OP_DUP), Op(opcode.OP_CHECKSIG)}
	_, found = HasDisabled(s2)
	require.False(t, found)
}

func TestDisasmAndCompact(t *testing.T) {
	s := Script{
		Op(opcode.OP_DUP),
		Op(opcode.OP_HASH160),
		Push([]byte{0xab, 0xcd}),
		Op(opcode.OP_EQUALVERIFY),
		Op(opcode.OP_CHECKSIG),
	}
	require.Equal(t, "OP_DUP OP_HASH160 abcd OP_EQUALVERIFY OP_CHECKSIG", Disasm(s))

	s2 := Script{Op(opcode.OP_2), Op(opcode.OP_3), Op(opcode.OP_CHECKMULTISIG)}
	require.Equal(t, "OP_2 OP_3 OP_CHECKMULTISIG", Disasm(s2))
	require.Equal(t, "2 3 OP_CHECKMULTISIG", DisasmCompact(s2))
}
