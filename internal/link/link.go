// Package link implements Lnk, the tagged word that is the unit of
// storage in the heap (spec §3 "Link (Lnk)"). Only three projections
// are observable — tag, ext, val — so this package represents a Lnk as
// a small sum-type struct rather than hand-packing bits into a single
// 128-bit integer; spec §9 "Tagged-word representation" names exactly
// this as the clearer re-architecture available to implementations
// that don't need the packed layout for performance.
package link

import "kindelia/internal/word"

// Tag identifies the kind of node a Lnk points at. TagNone is the zero
// value and doubles as the heap's "absent" sentinel (spec §3 invariant
// 1: "tag(cell) == ERA or cell == U128_NONE are the only absent
// values" — TagNone covers the U128_NONE half of that).
type Tag uint8

const (
	TagNone Tag = iota
	DP0
	DP1
	VAR
	ARG
	ERA
	LAM
	APP
	PAR
	CTR
	FUN
	OP2
	NUM
)

func (t Tag) String() string {
	switch t {
	case TagNone:
		return "NONE"
	case DP0:
		return "DP0"
	case DP1:
		return "DP1"
	case VAR:
		return "VAR"
	case ARG:
		return "ARG"
	case ERA:
		return "ERA"
	case LAM:
		return "LAM"
	case APP:
		return "APP"
	case PAR:
		return "PAR"
	case CTR:
		return "CTR"
	case FUN:
		return "FUN"
	case OP2:
		return "OP2"
	case NUM:
		return "NUM"
	default:
		return "?"
	}
}

// Oper is a binary operator code used by OP2 nodes.
type Oper uint8

const (
	ADD Oper = iota
	SUB
	MUL
	DIV
	MOD
	AND
	OR
	XOR
	SHL
	SHR
	LTN
	LTE
	EQL
	GTE
	GTN
	NEQ
)

var operNames = map[Oper]string{
	ADD: "+", SUB: "-", MUL: "*", DIV: "/", MOD: "%",
	AND: "&", OR: "|", XOR: "^", SHL: "<<", SHR: ">>",
	LTN: "<", LTE: "<=", EQL: "==", GTE: ">=", GTN: ">", NEQ: "!=",
}

func (o Oper) String() string {
	if s, ok := operNames[o]; ok {
		return s
	}
	return "?"
}

// OperFromSymbol resolves a textual operator token to its code.
func OperFromSymbol(sym string) (Oper, bool) {
	for o, s := range operNames {
		if s == sym {
			return o, true
		}
	}
	return 0, false
}

// Loc is a heap index: either the location of a node's children, or,
// for NUM, unused (the numeric payload lives in Val instead).
type Loc = uint64

// Lnk is the tagged word stored in every heap cell.
//
//   - Ext carries the duplicator color, the operator code, or the
//     constructor/function identifier (low bits only for colors/opers;
//     the low 64 bits of the packed name for CTR/FUN).
//   - Val carries the heap location of the node's children, or, for
//     NUM, the full 120-bit numeric value (spec §3: "val is a heap
//     index ... or, for NUM, the full 120-bit value").
type Lnk struct {
	Tag Tag
	Ext uint64
	Val word.U120
}

// Absent is the zero Lnk, used as the heap's "nothing here" sentinel.
var Absent = Lnk{}

// IsAbsent reports whether l represents an empty cell.
func (l Lnk) IsAbsent() bool { return l.Tag == TagNone }

// Loc returns l's Val as a heap location, for every tag except NUM.
func (l Lnk) Loc() Loc { return l.Val.Uint64() }

// Num returns l's Val as a 120-bit number. Only meaningful when
// l.Tag == NUM.
func (l Lnk) Num() word.U120 { return l.Val }

func loc(v Loc) word.U120 { return word.FromUint64(v) }

// Constructors, one per node kind (mirrors hvm.rs's Var/Dp0/Dp1/Arg/
// Era/Lam/App/Par/Op2/Num/Ctr/Fun free functions).

func Var(pos Loc) Lnk                { return Lnk{Tag: VAR, Val: loc(pos)} }
func Dp0(color uint64, pos Loc) Lnk  { return Lnk{Tag: DP0, Ext: color, Val: loc(pos)} }
func Dp1(color uint64, pos Loc) Lnk  { return Lnk{Tag: DP1, Ext: color, Val: loc(pos)} }
func Arg(pos Loc) Lnk                { return Lnk{Tag: ARG, Val: loc(pos)} }
func Era() Lnk                       { return Lnk{Tag: ERA} }
func Lam(pos Loc) Lnk                { return Lnk{Tag: LAM, Val: loc(pos)} }
func App(pos Loc) Lnk                { return Lnk{Tag: APP, Val: loc(pos)} }
func Par(color uint64, pos Loc) Lnk  { return Lnk{Tag: PAR, Ext: color, Val: loc(pos)} }
func Op2(op Oper, pos Loc) Lnk       { return Lnk{Tag: OP2, Ext: uint64(op), Val: loc(pos)} }
func Num(v word.U120) Lnk            { return Lnk{Tag: NUM, Val: v} }
func Ctr(fid uint64, pos Loc) Lnk    { return Lnk{Tag: CTR, Ext: fid, Val: loc(pos)} }
func Fun(fid uint64, pos Loc) Lnk    { return Lnk{Tag: FUN, Ext: fid, Val: loc(pos)} }

// IsBinderRef reports whether a Lnk of this tag occupies a binder's
// back-pointer slot and therefore must be re-targeted by link() (the
// Rust original tests get_tag(lnk) <= VAR, i.e. DP0, DP1 or VAR).
func IsBinderRef(t Tag) bool { return t == DP0 || t == DP1 || t == VAR }

// BinderSlot returns which of a binder's two back-pointer cells
// (L+0 for DP0/VAR-as-lambda, L+1 for DP1) this tag addresses.
func BinderSlot(t Tag) uint64 {
	if t == DP1 {
		return 1
	}
	return 0
}
