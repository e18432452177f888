package ems

import (
	"fmt"
)

// Kind discriminates the payload shape a Value carries.
// It is a closed set; consumers can switch over it exhaustively.
type Kind int

const (
	KindNumeric Kind = iota
	KindBoolean
	KindEnum
	KindKennlinie
	KindSystemTime
	KindError
	KindFormatted
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "Numeric"
	case KindBoolean:
		return "Boolean"
	case KindEnum:
		return "Enum"
	case KindKennlinie:
		return "Kennlinie"
	case KindSystemTime:
		return "SystemTime"
	case KindError:
		return "Error"
	case KindFormatted:
		return "Formatted"
	default:
		return "Unknown"
	}
}

// Type tags the measured quantity a Value represents.
type Type int

const (
	TypeUnknown Type = iota
	TypeIstTemp
	TypeSollTemp
	TypeBrennerstarts
	TypeFlammenstrom
	TypePumpeAktiv
	TypeFlammeAktiv
	TypeBrennerAktiv
	TypeTemperaturaenderung
	TypeKennlinie
	TypeSystemTime
	TypeServiceCode
	TypeFehlerCode
	TypeBetriebsart
	TypeZirkulationAktiv
	TypeThermdesinfektAktiv
)

func (t Type) String() string {
	switch t {
	case TypeIstTemp:
		return "IstTemp"
	case TypeSollTemp:
		return "SollTemp"
	case TypeBrennerstarts:
		return "Brennerstarts"
	case TypeFlammenstrom:
		return "Flammenstrom"
	case TypePumpeAktiv:
		return "PumpeAktiv"
	case TypeFlammeAktiv:
		return "FlammeAktiv"
	case TypeBrennerAktiv:
		return "BrennerAktiv"
	case TypeTemperaturaenderung:
		return "Temperaturaenderung"
	case TypeKennlinie:
		return "Kennlinie"
	case TypeSystemTime:
		return "SystemTime"
	case TypeServiceCode:
		return "ServiceCode"
	case TypeFehlerCode:
		return "FehlerCode"
	case TypeBetriebsart:
		return "Betriebsart"
	case TypeZirkulationAktiv:
		return "ZirkulationAktiv"
	case TypeThermdesinfektAktiv:
		return "ThermdesinfektAktiv"
	default:
		return "Unknown"
	}
}

// SubType tags the logical subject of a Value.
type SubType int

const (
	SubTypeNone SubType = iota
	SubTypeKessel
	SubTypeWW
	SubTypeHK1
	SubTypeHK2
	SubTypeRaum
	SubTypeAussen
	SubTypeRuecklauf
	SubTypeAbgas
	SubTypeZirkulation
)

func (s SubType) String() string {
	switch s {
	case SubTypeKessel:
		return "Kessel"
	case SubTypeWW:
		return "WW"
	case SubTypeHK1:
		return "HK1"
	case SubTypeHK2:
		return "HK2"
	case SubTypeRaum:
		return "Raum"
	case SubTypeAussen:
		return "Aussen"
	case SubTypeRuecklauf:
		return "Ruecklauf"
	case SubTypeAbgas:
		return "Abgas"
	case SubTypeZirkulation:
		return "Zirkulation"
	default:
		return "None"
	}
}

// SystemTime is the fixed-layout clock record delivered by the room
// controller.
type SystemTime struct {
	Year      int
	Month     int
	Day       int
	Hour      int
	Minute    int
	Second    int
	DayOfWeek int
	DST       bool
}

// ErrorRecord is one entry of the controller's error log.
type ErrorRecord struct {
	SourceType byte // 0x10 (active) or 0x11 (stored)
	Index      int
	Raw        []byte
}

// Value is an immutable, construct-once reading emitted by the decoder.
// It is a closed tagged union over seven payload shapes; callers switch
// on Kind and use the matching accessor.
type Value struct {
	kind    Kind
	typ     Type
	sub     SubType
	numeric float64
	boolean bool
	enumRaw byte
	low, med, high byte
	sysTime ErrorAwareSystemTime
	errRec  ErrorRecord
	text    string
}

// ErrorAwareSystemTime wraps SystemTime so the zero Value{} (Kind ==
// KindNumeric) never aliases a valid, all-zero SystemTime reading.
type ErrorAwareSystemTime struct {
	Time SystemTime
	set  bool
}

// NewNumeric builds a Numeric Value from a big-endian raw byte slice. If
// the top bit of the first byte is set, raw is interpreted as two's
// complement of its own byte-width before being divided by divider.
func NewNumeric(typ Type, sub SubType, raw []byte, divider int) Value {
	return Value{kind: KindNumeric, typ: typ, sub: sub, numeric: decodeSigned(raw, divider)}
}

// NewBoolean extracts bit `bit` of b.
func NewBoolean(typ Type, sub SubType, b byte, bit uint) Value {
	return Value{kind: KindBoolean, typ: typ, sub: sub, boolean: (b>>bit)&0x01 == 0x01}
}

// NewEnum stores one raw enumeration byte verbatim.
func NewEnum(typ Type, sub SubType, raw byte) Value {
	return Value{kind: KindEnum, typ: typ, sub: sub, enumRaw: raw}
}

// NewKennlinie stores a heating-curve (low, medium, high) triple verbatim.
func NewKennlinie(typ Type, sub SubType, low, medium, high byte) Value {
	return Value{kind: KindKennlinie, typ: typ, sub: sub, low: low, med: medium, high: high}
}

// NewSystemTime stores a clock record verbatim.
func NewSystemTime(t SystemTime) Value {
	return Value{kind: KindSystemTime, typ: TypeSystemTime, sub: SubTypeNone, sysTime: ErrorAwareSystemTime{Time: t, set: true}}
}

// NewError stores one error-log entry.
func NewError(sourceType byte, index int, raw []byte) Value {
	rec := ErrorRecord{SourceType: sourceType, Index: index, Raw: append([]byte(nil), raw...)}
	return Value{kind: KindError, typ: TypeUnknown, sub: SubTypeNone, errRec: rec}
}

// NewFormatted stores an opaque, already-rendered string.
func NewFormatted(typ Type, sub SubType, s string) Value {
	return Value{kind: KindFormatted, typ: typ, sub: sub, text: s}
}

// Kind returns which of the seven shapes this Value carries.
func (v Value) Kind() Kind { return v.kind }

// Type returns the measured-quantity tag.
func (v Value) Type() Type { return v.typ }

// SubType returns the logical-subject tag.
func (v Value) SubType() SubType { return v.sub }

// Numeric returns the scaled floating value and whether Kind is Numeric.
func (v Value) Numeric() (float64, bool) {
	if v.kind != KindNumeric {
		return 0, false
	}
	return v.numeric, true
}

// Boolean returns the extracted bit and whether Kind is Boolean.
func (v Value) Boolean() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.boolean, true
}

// Enum returns the raw enumeration byte and whether Kind is Enum.
func (v Value) Enum() (byte, bool) {
	if v.kind != KindEnum {
		return 0, false
	}
	return v.enumRaw, true
}

// Kennlinie returns the (low, medium, high) triple and whether Kind is
// Kennlinie.
func (v Value) Kennlinie() (low, medium, high byte, ok bool) {
	if v.kind != KindKennlinie {
		return 0, 0, 0, false
	}
	return v.low, v.med, v.high, true
}

// SystemTime returns the clock record and whether Kind is SystemTime.
func (v Value) SystemTime() (SystemTime, bool) {
	if v.kind != KindSystemTime || !v.sysTime.set {
		return SystemTime{}, false
	}
	return v.sysTime.Time, true
}

// Error returns the error-log entry and whether Kind is Error.
func (v Value) Error() (ErrorRecord, bool) {
	if v.kind != KindError {
		return ErrorRecord{}, false
	}
	return v.errRec, true
}

// Formatted returns the opaque rendered string and whether Kind is
// Formatted.
func (v Value) Formatted() (string, bool) {
	if v.kind != KindFormatted {
		return "", false
	}
	return v.text, true
}

// String renders the value the way the command layer embeds it in a TCP
// reply line: "<Type>:<SubType>=<value>", except SystemTime values
// ("SystemTime=YYYY-MM-DD hh:mm:ss") and Error values
// ("Error:<index>=src<source type in hex>").
func (v Value) String() string {
	switch v.kind {
	case KindNumeric:
		return fmt.Sprintf("%s:%s=%g", v.typ, v.sub, v.numeric)
	case KindBoolean:
		return fmt.Sprintf("%s:%s=%t", v.typ, v.sub, v.boolean)
	case KindEnum:
		return fmt.Sprintf("%s:%s=%d", v.typ, v.sub, v.enumRaw)
	case KindKennlinie:
		return fmt.Sprintf("%s:%s=%d/%d/%d", v.typ, v.sub, v.low, v.med, v.high)
	case KindSystemTime:
		t := v.sysTime.Time
		return fmt.Sprintf("SystemTime=%04d-%02d-%02d %02d:%02d:%02d", t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
	case KindError:
		return fmt.Sprintf("Error:%d=src%02x", v.errRec.Index, v.errRec.SourceType)
	case KindFormatted:
		return fmt.Sprintf("%s:%s=%s", v.typ, v.sub, v.text)
	default:
		return "?"
	}
}

// decodeSigned applies the bus's signed-extension rule: if the top bit
// of the first byte is set, the unsigned big-endian integer is
// reinterpreted as two's complement of the slice's own bit-width before
// scaling.
func decodeSigned(raw []byte, divider int) float64 {
	if len(raw) == 0 {
		return 0
	}
	if divider == 0 {
		divider = 1
	}
	var unsigned int64
	for _, b := range raw {
		unsigned = unsigned<<8 | int64(b)
	}
	value := unsigned
	if raw[0]&0x80 != 0 {
		value = unsigned - (int64(1) << uint(8*len(raw)))
	}
	return float64(value) / float64(divider)
}

// EncodeNumeric is decodeSigned's inverse: it scales v by field's
// divider and returns its big-endian two's-complement bytes at field's
// width, ready to embed in an outbound frame payload at field's offset.
func EncodeNumeric(field NumericField, v float64) []byte {
	divider := field.Divider
	if divider == 0 {
		divider = 1
	}
	scaled := uint64(int64(v * float64(divider)))
	out := make([]byte, field.Width)
	for i := field.Width - 1; i >= 0; i-- {
		out[i] = byte(scaled)
		scaled >>= 8
	}
	return out
}
