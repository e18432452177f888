package ems

// numericDescriptor, booleanDescriptor and enumDescriptor are the static
// (offset, width/bit, type, subtype) tuples the Design Notes call
// for: a table-driven description of one field, interpreted by one
// generic applier instead of a dense sequence of constructor calls.
type numericDescriptor struct {
	offset  int
	width   int
	divider int
	typ     Type
	sub     SubType
}

type booleanDescriptor struct {
	offset int
	bit    uint
	typ    Type
	sub    SubType
}

type enumDescriptor struct {
	offset int
	typ    Type
	sub    SubType
}

// NumericField is the (offset, width, divider) triple describing where
// a scaled numeric reading sits in a frame's payload. It is the
// exported counterpart of numericDescriptor, returned by the field
// accessors below so another package can read or encode the same field
// the decoder decodes without re-declaring its layout.
type NumericField struct {
	Offset  int
	Width   int
	Divider int
}

func (nd numericDescriptor) field() NumericField {
	return NumericField{Offset: nd.offset, Width: nd.width, Divider: nd.divider}
}

func fieldByType(set descriptorSet, typ Type) NumericField {
	for _, nd := range set.numerics {
		if nd.typ == typ {
			return nd.field()
		}
	}
	return NumericField{}
}

// HKSollTempField returns the SollTemp field layout of an HK monitor
// frame (RC 0x3E for HK1, RC 0x48 for HK2) — the same offset, width and
// divider parseHKMonitor decodes it with.
func HKSollTempField(sub SubType) NumericField {
	return fieldByType(hkMonitorDescriptors(sub), TypeSollTemp)
}

// WWSollTempField returns the SollTemp field layout of the UBA 0x33
// warm-water parameter frame.
func WWSollTempField() NumericField {
	return fieldByType(wwParametersDescriptors, TypeSollTemp)
}

// descriptorSet is a static field list for one (source, type) combination.
// apply fires every descriptor whose logical range is fully present in
// f's payload.
type descriptorSet struct {
	numerics []numericDescriptor
	booleans []booleanDescriptor
	enums    []enumDescriptor
}

func (d descriptorSet) apply(f Frame, emit func(Value)) {
	for _, nd := range d.numerics {
		if f.CanAccess(nd.offset, nd.width) {
			emit(NewNumeric(nd.typ, nd.sub, f.bytesAt(nd.offset, nd.width), nd.divider))
		}
	}
	for _, bd := range d.booleans {
		if f.CanAccess(bd.offset, 1) {
			emit(NewBoolean(bd.typ, bd.sub, f.byteAt(bd.offset), bd.bit))
		}
	}
	for _, ed := range d.enums {
		if f.CanAccess(ed.offset, 1) {
			emit(NewEnum(ed.typ, ed.sub, f.byteAt(ed.offset)))
		}
	}
}

// parserFunc is the per-(source,type) decode routine. It receives the raw
// Frame and an emit callback; it never mutates the frame and never reads
// outside a descriptor's checked range.
type parserFunc func(f Frame, emit func(Value))

// noop acknowledges a (source,type) combination the controller sends but
// that carries no data of interest.
func noop(Frame, func(Value)) {}

func descriptorParser(d descriptorSet) parserFunc {
	return func(f Frame, emit func(Value)) { d.apply(f, emit) }
}

// ubaParametersDescriptors (UBA 0x16): configured setpoints and
// hysteresis the boiler was programmed with.
var ubaParametersDescriptors = descriptorSet{
	numerics: []numericDescriptor{
		{offset: 0, width: 1, divider: 1, typ: TypeSollTemp, sub: SubTypeKessel},
		{offset: 1, width: 1, divider: 1, typ: TypeSollTemp, sub: SubTypeKessel},
	},
}

// ubaMonitorFastDescriptors (UBA 0x18): the boiler's fast-cycle live
// monitor frame.
var ubaMonitorFastDescriptors = descriptorSet{
	numerics: []numericDescriptor{
		{offset: 0, width: 1, divider: 1, typ: TypeSollTemp, sub: SubTypeKessel},
		{offset: 1, width: 2, divider: 10, typ: TypeIstTemp, sub: SubTypeKessel},
		{offset: 14, width: 1, divider: 1, typ: TypeFlammenstrom, sub: SubTypeKessel},
	},
	booleans: []booleanDescriptor{
		{offset: 8, bit: 0, typ: TypeFlammeAktiv, sub: SubTypeKessel},
		{offset: 8, bit: 1, typ: TypeBrennerAktiv, sub: SubTypeKessel},
		{offset: 8, bit: 2, typ: TypePumpeAktiv, sub: SubTypeKessel},
	},
}

func parseUBAMonitorFast(f Frame, emit func(Value)) {
	ubaMonitorFastDescriptors.apply(f, emit)
	if f.CanAccess(18, 2) {
		b := f.bytesAt(18, 2)
		emit(NewFormatted(TypeServiceCode, SubTypeKessel, string([]byte{b[0], b[1]})))
	}
	if f.CanAccess(20, 2) {
		b := f.bytesAt(20, 2)
		code := int(b[0])<<8 | int(b[1])
		emit(NewFormatted(TypeFehlerCode, SubTypeKessel, itoa(code)))
	}
}

// ubaMonitorSlowDescriptors (UBA 0x19): the slow-cycle monitor frame,
// carrying cumulative counters.
var ubaMonitorSlowDescriptors = descriptorSet{
	numerics: []numericDescriptor{
		{offset: 0, width: 2, divider: 1, typ: TypeBrennerstarts, sub: SubTypeKessel},
		{offset: 4, width: 2, divider: 10, typ: TypeIstTemp, sub: SubTypeAbgas},
	},
}

// wwParametersDescriptors (UBA 0x33): the configured warm-water setpoint.
var wwParametersDescriptors = descriptorSet{
	numerics: []numericDescriptor{
		{offset: 0, width: 1, divider: 1, typ: TypeSollTemp, sub: SubTypeWW},
	},
}

// wwMonitorDescriptors (UBA 0x34): live warm-water temperature and pump
// state.
var wwMonitorDescriptors = descriptorSet{
	numerics: []numericDescriptor{
		{offset: 1, width: 2, divider: 10, typ: TypeIstTemp, sub: SubTypeWW},
	},
	booleans: []booleanDescriptor{
		{offset: 3, bit: 0, typ: TypePumpeAktiv, sub: SubTypeWW},
		{offset: 3, bit: 1, typ: TypeZirkulationAktiv, sub: SubTypeZirkulation},
	},
}

// outdoorTempDescriptors (RC 0xA3).
var outdoorTempDescriptors = descriptorSet{
	numerics: []numericDescriptor{
		{offset: 0, width: 2, divider: 10, typ: TypeIstTemp, sub: SubTypeAussen},
	},
}

// hkMonitorDescriptors builds the generic field list for an HK monitor
// frame (RC 0x3E for HK1, RC 0x48 for HK2); only the room-subtype varies.
func hkMonitorDescriptors(sub SubType) descriptorSet {
	return descriptorSet{
		numerics: []numericDescriptor{
			{offset: 0, width: 2, divider: 10, typ: TypeIstTemp, sub: SubTypeRaum},
			{offset: 2, width: 1, divider: 2, typ: TypeSollTemp, sub: SubTypeRaum},
		},
		booleans: []booleanDescriptor{
			{offset: 4, bit: 0, typ: TypePumpeAktiv, sub: sub},
		},
		enums: []enumDescriptor{
			{offset: 5, typ: TypeBetriebsart, sub: sub},
		},
	}
}

// parseHKMonitor applies the generic HK descriptors plus the two
// spec-mandated special cases: the verbatim Kennlinie triple at logical
// 7..9, and the conditional temperature-change field at logical 10..11
// ("Kennlinie"/"Conditional numeric").
func parseHKMonitor(sub SubType) parserFunc {
	generic := hkMonitorDescriptors(sub)
	return func(f Frame, emit func(Value)) {
		generic.apply(f, emit)
		if f.CanAccess(7, 3) {
			k := f.bytesAt(7, 3)
			emit(NewKennlinie(TypeKennlinie, sub, k[0], k[1], k[2]))
		}
		if f.CanAccess(15, 1) {
			status := f.byteAt(15)
			if status&0x01 == 0 && f.CanAccess(10, 2) {
				emit(NewNumeric(TypeTemperaturaenderung, sub, f.bytesAt(10, 2), 100))
			}
		}
	}
}

// wmTemp1Descriptors (WM10 0x9C): the mixer's flow-side HK1 temperature.
var wmTemp1Descriptors = descriptorSet{
	numerics: []numericDescriptor{
		{offset: 0, width: 2, divider: 10, typ: TypeIstTemp, sub: SubTypeHK1},
	},
}

// wmTemp2Descriptors (WM10 0x1E): the mixer's return-side HK1
// temperature.
var wmTemp2Descriptors = descriptorSet{
	numerics: []numericDescriptor{
		{offset: 0, width: 2, divider: 10, typ: TypeIstTemp, sub: SubTypeRuecklauf},
	},
}

// mmTempDescriptors (MM10 0xAB): the second mixer module's HK2
// temperatures.
var mmTempDescriptors = descriptorSet{
	numerics: []numericDescriptor{
		{offset: 0, width: 2, divider: 10, typ: TypeIstTemp, sub: SubTypeHK2},
		{offset: 2, width: 2, divider: 10, typ: TypeIstTemp, sub: SubTypeRuecklauf},
	},
}

// parseSystemTime (RC 0x06) decodes the room controller's fixed-layout
// clock record.
func parseSystemTime(f Frame, emit func(Value)) {
	if !f.CanAccess(0, 8) {
		return
	}
	b := f.bytesAt(0, 8)
	emit(NewSystemTime(SystemTime{
		Year:      2000 + int(b[0]),
		Month:     int(b[1]),
		Day:       int(b[2]),
		Hour:      int(b[3]),
		Minute:    int(b[4]),
		Second:    int(b[5]),
		DayOfWeek: int(b[6]),
		DST:       b[7]&0x01 != 0,
	}))
}

// parseErrors implements the error-record parser for UBA 0x10 (active
// errors) and UBA 0x11 (stored errors): the first logical offset aligned
// to the record width at or above the frame's own offset, then one Error
// value per full record up to the end of the payload.
func parseErrors(sourceType byte, f Frame, emit func(Value)) {
	for _, rec := range ParseErrorRecords(sourceType, f) {
		emit(rec)
	}
}

// ParseErrorRecords is the pure, reusable half of the error-record
// parser. It is exported so the command layer can apply it directly to
// a bus reply while assembling a multi-request `geterrors` response
// without routing through the full Decoder.
func ParseErrorRecords(sourceType byte, f Frame) []Value {
	const width = ErrorRecordWidth
	start := int(f.Offset)
	aligned := ((start + width - 1) / width) * width
	var out []Value
	for off := aligned; f.CanAccess(off, width); off += width {
		out = append(out, NewError(sourceType, off/width, f.bytesAt(off, width)))
	}
	return out
}

// itoa avoids pulling in strconv for this one call site's exact shape
// (plain non-negative decimal rendering of a 16-bit code).
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// dispatchTable is the two-level (source, type) switch collapsed into
// data per the Design Notes' table-driven guidance.
var dispatchTable = map[byte]map[byte]parserFunc{
	UBA: {
		0x10: func(f Frame, emit func(Value)) { parseErrors(0x10, f, emit) },
		0x11: func(f Frame, emit func(Value)) { parseErrors(0x11, f, emit) },
		0x16: descriptorParser(ubaParametersDescriptors),
		0x18: parseUBAMonitorFast,
		0x19: descriptorParser(ubaMonitorSlowDescriptors),
		0x33: descriptorParser(wwParametersDescriptors),
		0x34: descriptorParser(wwMonitorDescriptors),
		0x07: noop,
		0x1c: noop,
	},
	BC10: {
		0x29: noop,
	},
	RC: {
		0x06: parseSystemTime,
		0x3E: parseHKMonitor(SubTypeHK1),
		0x48: parseHKMonitor(SubTypeHK2),
		0xA3: descriptorParser(outdoorTempDescriptors),
		0x1A: noop,
		0x35: noop,
		0x9D: noop,
		0xA2: noop,
		0xAC: noop,
	},
	WM10: {
		0x9C: descriptorParser(wmTemp1Descriptors),
		0x1E: descriptorParser(wmTemp2Descriptors),
	},
	MM10: {
		0xAB: descriptorParser(mmTempDescriptors),
	},
}
