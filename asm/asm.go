// Package asm provides the text assembly surface for RV32 instructions.
//
// One instruction per line: "<mnemonic> <operand>, <operand>, ...".
// Registers are written x0-x31 (or their ABI names) and f0-f31. Immediates
// are decimal, optionally signed, and are range-checked against the field
// they are encoded into. Memory operands are written imm(xN).
package asm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSyntax is returned for malformed lines or operands.
	ErrSyntax = errors.New("syntax error")

	// ErrImmediateRange is returned when an immediate does not fit its field.
	ErrImmediateRange = errors.New("immediate out of range")

	// ErrUnknownMnemonic is returned for mnemonics no operation uses.
	ErrUnknownMnemonic = errors.New("unknown mnemonic")

	// ErrUnknownLabel is returned when a program references an undefined
	// label.
	ErrUnknownLabel = errors.New("unknown label")
)

// Placeholder is what Disassemble renders for unrecognized words.
const Placeholder = "?"

// Assemble encodes a single instruction line.
func Assemble(line string) (uint32, error) {
	return assembleLine(line, 0, nil)
}

// AssembleProgram assembles a multi-line program placed at origin. Blank
// lines and '#' comments are ignored. A line of the form "name:" defines a
// label that branch and jal targets may use in place of an offset.
func AssembleProgram(src string, origin uint32) ([]uint32, error) {
	var (
		lines  []string
		lineNo []int
		labels = map[string]uint32{}
	)

	for i, raw := range strings.Split(src, "\n") {
		text := stripComment(raw)
		for {
			label, rest, ok := cutLabel(text)
			if !ok {
				break
			}
			if _, dup := labels[label]; dup {
				return nil, fmt.Errorf("line %d: %w: duplicate label %q", i+1, ErrSyntax, label)
			}
			labels[label] = origin + uint32(len(lines))*4
			text = rest
		}
		if text == "" {
			continue
		}
		lines = append(lines, text)
		lineNo = append(lineNo, i+1)
	}

	words := make([]uint32, 0, len(lines))
	for i, text := range lines {
		w, err := assembleLine(text, origin+uint32(i)*4, labels)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo[i], err)
		}
		words = append(words, w)
	}

	return words, nil
}

// Bytes lays words out little-endian, ready to be loaded into memory.
func Bytes(words []uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

func cutLabel(text string) (label, rest string, ok bool) {
	i := strings.IndexByte(text, ':')
	if i <= 0 {
		return "", text, false
	}
	label = strings.TrimSpace(text[:i])
	if !isIdent(label) {
		return "", text, false
	}
	return label, strings.TrimSpace(text[i+1:]), true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_' || c == '.' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
