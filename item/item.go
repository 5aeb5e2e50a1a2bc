// Copyright (c) 2024 The scriptcond developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package item implements the script item model and its external
// collaborators: parsing a raw byte array into an ordered Push/Op
// sequence, and the reverse — human-readable disassembly. Both sit
// outside the executor's core loop as thin, interface-only collaborators
// that perform no execution semantics.
//
// Grounded on the teacher's tokenizer.go (ScriptTokenizer.Next's
// fixed-length/parsed-length/immediate-value dispatch) for parsing, and
// script.go's disasmOpcode/DisasmScript for the disassembly half.
package item

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/scriptcond/opcode"
	"github.com/btcsuite/scriptcond/scripterr"
)

// Item is a single element of a parsed script: either a raw byte-string
// push or an opcode. Small constants (OP_0, OP_1NEGATE, OP_1..OP_16) are
// represented as Op, not Push, since the executor gives them bespoke
// semantics.
type Item struct {
	IsPush bool
	Data   []byte
	Op     opcode.Opcode
}

// Push builds a raw byte-string push item.
func Push(data []byte) Item {
	return Item{IsPush: true, Data: data}
}

// Op builds an opcode item.
func Op(op opcode.Opcode) Item {
	return Item{Op: op}
}

// Script is an ordered sequence of Item (spec §3).
type Script []Item

// Parse tokenizes raw script bytes into a Script, the mirror image of
// Disasm. Grounded on tokenizer.go's ScriptTokenizer.Next.
func Parse(raw []byte) (Script, error) {
	var out Script
	offset := 0
	for offset < len(raw) {
		op := opcode.Opcode(raw[offset])
		length := opcode.PushDataLen(op)

		switch {
		case length == 1:
			out = append(out, Op(op))
			offset++

		case length > 1:
			if len(raw)-offset < length {
				return nil, scripterr.New(scripterr.ErrBadOpcode, fmt.Sprintf(
					"opcode %s requires %d bytes, but script only has %d remaining",
					opcode.Name(op), length, len(raw)-offset))
			}
			out = append(out, Push(raw[offset+1:offset+length]))
			offset += length

		default: // length < 0: OP_PUSHDATA{1,2,4}.
			lenBytes := -length
			if len(raw)-offset-1 < lenBytes {
				return nil, scripterr.New(scripterr.ErrBadOpcode, fmt.Sprintf(
					"opcode %s requires %d length bytes, but script only has %d remaining",
					opcode.Name(op), lenBytes, len(raw)-offset-1))
			}
			var dataLen int
			switch lenBytes {
			case 1:
				dataLen = int(raw[offset+1])
			case 2:
				dataLen = int(binary.LittleEndian.Uint16(raw[offset+1 : offset+3]))
			case 4:
				dataLen = int(binary.LittleEndian.Uint32(raw[offset+1 : offset+5]))
			}
			start := offset + 1 + lenBytes
			if dataLen < 0 || dataLen > len(raw)-start {
				return nil, scripterr.New(scripterr.ErrBadOpcode, fmt.Sprintf(
					"opcode %s pushes %d bytes, but script only has %d remaining",
					opcode.Name(op), dataLen, len(raw)-start))
			}
			out = append(out, Push(raw[start:start+dataLen]))
			offset = start + dataLen
		}
	}
	return out, nil
}

// HasDisabled reports whether s contains any opcode in the disabled set
// (spec §6's pre-scan), along with the first one found.
func HasDisabled(s Script) (opcode.Opcode, bool) {
	for _, it := range s {
		if !it.IsPush && opcode.IsDisabled(it.Op) {
			return it.Op, true
		}
	}
	return 0, false
}

// Disasm renders s as a newline-free, space-separated sequence of
// mnemonics, one per item, in full form (e.g. "OP_DUP OP_HASH160
// a1b2...OP_EQUALVERIFY"). Grounded on script.go's DisasmScript.
func Disasm(s Script) string {
	return disasm(s, false)
}

// DisasmCompact renders s the way the teacher's disasmOpcode does with its
// compact flag set: OP_0 and OP_1..OP_16 print as the bare number. Data
// pushes print as bare hex in both modes (SPEC_FULL.md SUPPLEMENTED
// FEATURES: "--compact one-line disassembly mode").
func DisasmCompact(s Script) string {
	return disasm(s, true)
}

func disasm(s Script, compact bool) string {
	parts := make([]string, 0, len(s))
	for _, it := range s {
		if it.IsPush {
			parts = append(parts, hex.EncodeToString(it.Data))
			continue
		}
		if compact && opcode.IsSmallInt(it.Op) {
			parts = append(parts, strconv.Itoa(int(it.Op)-int(opcode.OP_1)+1))
			continue
		}
		if it.Op == opcode.OP_0 {
			if compact {
				parts = append(parts, "0")
			} else {
				parts = append(parts, opcode.Name(it.Op))
			}
			continue
		}
		parts = append(parts, opcode.Name(it.Op))
	}
	return strings.Join(parts, " ")
}
