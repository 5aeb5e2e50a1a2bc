// Copyright (c) 2024 The scriptcond developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package scripterr defines the error taxonomy the analyzer reports: an
// ErrorCode enum, a ScriptError carrying a code plus a human description,
// and the per-path diagnostic that bundles an error with the
// stack/altstack snapshot at the point of failure.
//
// The shape mirrors the teacher package's ErrorCode/RuleError idiom (see
// blockchain/error.go's ErrorCode/String/RuleError/ruleError, and
// txscript/error.go's scriptError helper) rather than bare errors.New calls.
package scripterr

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// ErrorCode identifies a kind of analyzer error.
type ErrorCode int

const (
	// Structural.
	ErrBadOpcode ErrorCode = iota
	ErrDisabledOpcode
	ErrUnbalancedConditional

	// Stack.
	ErrInvalidStackOperation
	ErrInvalidAltStackOperation
	ErrStackSize
	ErrCleanStack

	// Verify.
	ErrVerify
	ErrEqualVerify
	ErrNumEqualVerify
	ErrCheckSigVerify
	ErrCheckMultisigVerify

	// Semantic.
	ErrOpReturn
	ErrEvalFalse

	// Numeric.
	ErrNumOverflow

	// Signature shape.
	ErrSigNullDummy
	ErrMinimalIf
	ErrTapscriptMinimalIf
	ErrTapscriptCheckMultisig

	// Quantitative.
	ErrPubKeyCount
	ErrSigCount

	// numErrorCodes is the count of defined codes.
	numErrorCodes
)

// errorCodeStrings maps ErrorCode back to its constant name for pretty
// printing, mirroring blockchain/error.go's errorCodeStrings map.
var errorCodeStrings = map[ErrorCode]string{
	ErrBadOpcode:                "BAD_OPCODE",
	ErrDisabledOpcode:           "DISABLED_OPCODE",
	ErrUnbalancedConditional:    "UNBALANCED_CONDITIONAL",
	ErrInvalidStackOperation:    "INVALID_STACK_OPERATION",
	ErrInvalidAltStackOperation: "INVALID_ALTSTACK_OPERATION",
	ErrStackSize:                "STACK_SIZE",
	ErrCleanStack:               "CLEANSTACK",
	ErrVerify:                   "VERIFY",
	ErrEqualVerify:              "EQUALVERIFY",
	ErrNumEqualVerify:           "NUMEQUALVERIFY",
	ErrCheckSigVerify:           "CHECKSIGVERIFY",
	ErrCheckMultisigVerify:      "CHECKMULTISIGVERIFY",
	ErrOpReturn:                 "OP_RETURN",
	ErrEvalFalse:                "EVAL_FALSE",
	ErrNumOverflow:              "NUM_OVERFLOW",
	ErrSigNullDummy:             "SIG_NULLDUMMY",
	ErrMinimalIf:                "MINIMALIF",
	ErrTapscriptMinimalIf:       "TAPSCRIPT_MINIMALIF",
	ErrTapscriptCheckMultisig:   "TAPSCRIPT_CHECKMULTISIG",
	ErrPubKeyCount:              "PUBKEY_COUNT",
	ErrSigCount:                 "SIG_COUNT",
}

// String returns the ErrorCode as its reference-name spelling, e.g.
// "STACK_SIZE".
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// ScriptError identifies an analyzer failure: the kind of violation plus a
// human-readable description. Callers can type-assert to *ScriptError and
// inspect Code to programmatically distinguish failure kinds.
type ScriptError struct {
	Code        ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e *ScriptError) Error() string {
	return e.Description
}

// New builds a *ScriptError, mirroring txscript's scriptError(code, desc)
// helper.
func New(c ErrorCode, desc string) *ScriptError {
	return &ScriptError{Code: c, Description: desc}
}

// IsErrorCode reports whether err is a *ScriptError carrying code c.
func IsErrorCode(err error, c ErrorCode) bool {
	serr, ok := err.(*ScriptError)
	return ok && serr.Code == c
}

// Code extracts the ErrorCode from err, returning false if err is not a
// *ScriptError.
func Code(err error) (ErrorCode, bool) {
	serr, ok := err.(*ScriptError)
	if !ok {
		return 0, false
	}
	return serr.Code, true
}

// PathError is the per-path diagnostic: the error kind, the
// stack/altstack snapshot at the point of failure, and the id of the
// branch (path) that produced it. Rendered through go-spew, the way the
// teacher's engine.go logs vm.dstack.String() on failure.
type PathError struct {
	Path     int
	Err      *ScriptError
	Stack    [][]byte
	AltStack [][]byte
}

// String renders the diagnostic: the path id, the error, and a spew dump of
// both stacks.
func (p *PathError) String() string {
	return fmt.Sprintf("path %d: %s\nstack:\n%saltstack:\n%s",
		p.Path, p.Err.Error(), spew.Sdump(p.Stack), spew.Sdump(p.AltStack))
}
