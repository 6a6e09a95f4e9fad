// Package word implements the 120-bit unsigned machine word used
// throughout the runtime for names and numeric values.
package word

import (
	"math/big"
	"math/bits"
)

// hiMask keeps only the low 56 bits of Hi significant, so that Hi:Lo
// together hold exactly 120 bits (56 + 64).
const hiMask = uint64(1)<<56 - 1

// U120 is an unsigned 120-bit integer, split into a high 56-bit limb
// and a low 64-bit limb. Values are always kept masked to 120 bits.
type U120 struct {
	Hi uint64
	Lo uint64
}

// Zero is the additive identity.
var Zero = U120{}

// FromUint64 lifts a machine uint64 into a U120.
func FromUint64(v uint64) U120 { return U120{Lo: v} }

// Uint64 returns the low 64 bits, truncating silently. Used for values
// known to fit (heap locations, small counters).
func (u U120) Uint64() uint64 { return u.Lo }

// IsZero reports whether u is the zero value.
func (u U120) IsZero() bool { return u.Hi == 0 && u.Lo == 0 }

// Equal reports bitwise equality.
func (u U120) Equal(v U120) bool { return u.Hi == v.Hi && u.Lo == v.Lo }

// Less is an unsigned comparison.
func (u U120) Less(v U120) bool {
	if u.Hi != v.Hi {
		return u.Hi < v.Hi
	}
	return u.Lo < v.Lo
}

func (u U120) mask() U120 {
	u.Hi &= hiMask
	return u
}

func (u U120) big() *big.Int {
	b := new(big.Int).Lsh(new(big.Int).SetUint64(u.Hi), 64)
	b.Or(b, new(big.Int).SetUint64(u.Lo))
	return b
}

var mod120 = new(big.Int).Lsh(big.NewInt(1), 120)

func fromBig(b *big.Int) U120 {
	m := new(big.Int).Mod(b, mod120)
	if m.Sign() < 0 {
		m.Add(m, mod120)
	}
	lo := new(big.Int).And(m, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(m, 64)
	return U120{Hi: hi.Uint64(), Lo: lo.Uint64()}
}

// Add returns u+v mod 2^120.
func (u U120) Add(v U120) U120 {
	lo, carry := bits.Add64(u.Lo, v.Lo, 0)
	hi, _ := bits.Add64(u.Hi, v.Hi, carry)
	return U120{Hi: hi, Lo: lo}.mask()
}

// Sub returns u-v mod 2^120.
func (u U120) Sub(v U120) U120 {
	lo, borrow := bits.Sub64(u.Lo, v.Lo, 0)
	hi, _ := bits.Sub64(u.Hi, v.Hi, borrow)
	return U120{Hi: hi, Lo: lo}.mask()
}

// Mul returns u*v mod 2^120. Routed through math/big: no pack library
// offers 120-bit-specific multiplication and hand-rolled 128-bit-wide
// carries would just reinvent what big.Int already does correctly.
func (u U120) Mul(v U120) U120 { return fromBig(new(big.Int).Mul(u.big(), v.big())) }

// Div returns u/v. ok is false when v is zero; callers decide how a
// division by zero should surface (see internal/kerr).
func (u U120) Div(v U120) (q U120, ok bool) {
	if v.IsZero() {
		return U120{}, false
	}
	return fromBig(new(big.Int).Div(u.big(), v.big())), true
}

// Mod returns u%v. ok is false when v is zero.
func (u U120) Mod(v U120) (r U120, ok bool) {
	if v.IsZero() {
		return U120{}, false
	}
	return fromBig(new(big.Int).Mod(u.big(), v.big())), true
}

func (u U120) And(v U120) U120 { return U120{Hi: u.Hi & v.Hi, Lo: u.Lo & v.Lo} }
func (u U120) Or(v U120) U120  { return U120{Hi: u.Hi | v.Hi, Lo: u.Lo | v.Lo}.mask() }
func (u U120) Xor(v U120) U120 { return U120{Hi: u.Hi ^ v.Hi, Lo: u.Lo ^ v.Lo}.mask() }

// Shl shifts left by n, where n is itself a U120 (per the operator
// table's uniform signature); n is reduced modulo 120 first, matching
// "shifts are modulo operand" from the numeric semantics.
func (u U120) Shl(n U120) U120 {
	shift := uint(n.Lo % 120)
	return fromBig(new(big.Int).Lsh(u.big(), shift))
}

// Shr shifts right by n, reduced modulo 120.
func (u U120) Shr(n U120) U120 {
	shift := uint(n.Lo % 120)
	return fromBig(new(big.Int).Rsh(u.big(), shift))
}

// Bool lifts a boolean comparison result into {0,1}, per the operator
// table's LTN/LTE/EQL/GTE/GTN/NEQ results.
func Bool(b bool) U120 {
	if b {
		return U120{Lo: 1}
	}
	return U120{}
}

func (u U120) String() string { return u.big().String() }

// FromString parses a base-10 string into a U120, masking to 120 bits.
func FromString(s string) (U120, bool) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return U120{}, false
	}
	return fromBig(b), true
}
