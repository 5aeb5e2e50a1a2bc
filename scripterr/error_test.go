// Copyright (c) 2024 The scriptcond developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package scripterr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodeString(t *testing.T) {
	require.Equal(t, "STACK_SIZE", ErrStackSize.String())
	require.Contains(t, ErrorCode(9999).String(), "Unknown ErrorCode")
}

func TestIsErrorCode(t *testing.T) {
	err := New(ErrNumOverflow, "too long")
	require.True(t, IsErrorCode(err, ErrNumOverflow))
	require.False(t, IsErrorCode(err, ErrStackSize))
	require.False(t, IsErrorCode(errors.New("plain"), ErrNumOverflow))
}

func TestCode(t *testing.T) {
	err := New(ErrBadOpcode, "nope")
	code, ok := Code(err)
	require.True(t, ok)
	require.Equal(t, ErrBadOpcode, code)

	_, ok = Code(errors.New("plain"))
	require.False(t, ok)
}

func TestPathErrorString(t *testing.T) {
	pe := &PathError{
		Path:     2,
		Err:      New(ErrEvalFalse, "final value was false"),
		Stack:    [][]byte{{0x01}},
		AltStack: nil,
	}
	s := pe.String()
	require.Contains(t, s, "path 2")
	require.Contains(t, s, "final value was false")
}
