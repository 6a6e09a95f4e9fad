// Package name implements the 6-bits-per-char identifier codec
// described in spec §4.M: identifiers are at most 20 characters drawn
// from a 64-symbol alphabet, packed most-significant-digit-first into
// a 120-bit word so they can live directly in a Lnk's ext/val fields.
package name

import (
	"fmt"

	"kindelia/internal/word"
)

// MaxChars is the largest identifier this codec can pack into 120 bits
// (20 * 6 = 120).
const MaxChars = 20

var sixtyFour = word.FromUint64(64)

// Encode packs an identifier into a U120. It returns an error if the
// identifier is too long or contains a character outside the alphabet.
func Encode(s string) (word.U120, error) {
	if len(s) > MaxChars {
		return word.U120{}, fmt.Errorf("name: %q exceeds %d characters", s, MaxChars)
	}
	acc := word.Zero
	for _, r := range s {
		d, ok := digit(r)
		if !ok {
			return word.U120{}, fmt.Errorf("name: %q contains invalid character %q", s, r)
		}
		acc = acc.Mul(sixtyFour).Add(word.FromUint64(uint64(d)))
	}
	return acc, nil
}

// MustEncode is Encode, panicking on error. Used for compiled-in
// constants such as the IO.* effect tags.
func MustEncode(s string) word.U120 {
	v, err := Encode(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Decode unpacks a U120 back into its source identifier. The zero word
// decodes to the empty string.
func Decode(v word.U120) string {
	if v.IsZero() {
		return ""
	}
	var digits []byte
	cur := v
	for !cur.IsZero() {
		rem, _ := cur.Mod(sixtyFour)
		digits = append(digits, byte(rem.Uint64()))
		cur, _ = cur.Div(sixtyFour)
	}
	buf := make([]byte, len(digits))
	for i, d := range digits {
		buf[len(digits)-1-i] = char(d)
	}
	return string(buf)
}

// digit maps a source character to its 6-bit code, per:
//
//	'.'       =>  0
//	'0' - '9' =>  1 to 10
//	'A' - 'Z' => 11 to 36
//	'a' - 'z' => 37 to 62
//	'_'       => 63
func digit(r rune) (byte, bool) {
	switch {
	case r == '.':
		return 0, true
	case r >= '0' && r <= '9':
		return byte(1 + r - '0'), true
	case r >= 'A' && r <= 'Z':
		return byte(11 + r - 'A'), true
	case r >= 'a' && r <= 'z':
		return byte(37 + r - 'a'), true
	case r == '_':
		return 63, true
	default:
		return 0, false
	}
}

// char is the inverse of digit.
func char(d byte) byte {
	switch {
	case d == 0:
		return '.'
	case d < 11:
		return '0' + (d - 1)
	case d < 37:
		return 'A' + (d - 11)
	case d < 63:
		return 'a' + (d - 37)
	default:
		return '_'
	}
}

// VarScratchSize is the number of slots in the scratch table CreateTerm
// uses to resolve a lambda/dup binder against its later occurrences
// (spec §4.F, the replacement for the original's global VARS_DATA
// array).
const VarScratchSize = 0x3FFFF

// ScratchIndex reduces a variable's packed name to a scratch-table
// slot. The original source does this with `name % 0x3FFFF` — note
// that's a modulus by 2^18-1, not a mask to 18 bits, since it reuses
// the sentinel constant as the divisor. spec §9 "Name truncation in
// parser" flags this as a likely-unintentional asymmetry (constructor
// and function names are never truncated this way) without directing a
// fix; we preserve it exactly rather than silently round it up to a
// power of two — see DESIGN.md.
func ScratchIndex(v word.U120) uint32 {
	return uint32(v.Lo % VarScratchSize)
}

// IsWildcard reports whether a variable name is the "~" erase marker,
// whose packed value is the same 0x3FFFF sentinel used as the scratch
// modulus.
func IsWildcard(v word.U120) bool {
	return v.Lo == VarScratchSize && v.Hi == 0
}

// Wildcard returns the packed sentinel the parser binds a bare "~"
// name to, matching the original's VAR_NONE constant.
func Wildcard() word.U120 {
	return word.FromUint64(VarScratchSize)
}
