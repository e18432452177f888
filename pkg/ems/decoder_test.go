package ems_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowiwi/ems-gateway/pkg/ems"
)

func collect(d *ems.Decoder) *[]ems.Value {
	got := []ems.Value{}
	d.SetHandler(func(v ems.Value) { got = append(got, v) })
	return &got
}

func TestDecodeUBAMonitorFast(t *testing.T) {
	raw := []byte{
		ems.UBA, ems.RC, 0x18, 0x00,
		0x00, 0x01, 0x9A, 0x00, 0x00, 0x00, 0xD6, 0x00, 0x00, 0x00,
		0xA8, 0x00, 0x00, 0x00, 0x15, 0x32, 0x38, 0x00, 0x00,
	}
	d := ems.NewDecoder(nil, nil)
	got := collect(d)
	d.Handle(raw)

	require.Len(t, *got, 6)

	byType := map[ems.Type]ems.Value{}
	for _, v := range *got {
		byType[v.Type()] = v
	}

	soll, ok := byType[ems.TypeSollTemp].Numeric()
	require.True(t, ok)
	assert.Equal(t, 0.0, soll)

	ist, ok := byType[ems.TypeIstTemp].Numeric()
	require.True(t, ok)
	assert.Equal(t, 41.0, ist)

	flamm, ok := byType[ems.TypeFlammenstrom].Numeric()
	require.True(t, ok)
	assert.Equal(t, 21.0, flamm)

	flammeAktiv, ok := byType[ems.TypeFlammeAktiv].Boolean()
	require.True(t, ok)
	assert.False(t, flammeAktiv)

	brennerAktiv, ok := byType[ems.TypeBrennerAktiv].Boolean()
	require.True(t, ok)
	assert.False(t, brennerAktiv)

	pumpeAktiv, ok := byType[ems.TypePumpeAktiv].Boolean()
	require.True(t, ok)
	assert.False(t, pumpeAktiv)

	_, hasServiceCode := byType[ems.TypeServiceCode]
	assert.False(t, hasServiceCode, "ServiceCode must not fire on a 19-byte payload")
	_, hasFehlerCode := byType[ems.TypeFehlerCode]
	assert.False(t, hasFehlerCode, "FehlerCode must not fire on a 19-byte payload")
}

func TestDecodeDiscardsPollingFrame(t *testing.T) {
	d := ems.NewDecoder(nil, nil)
	got := collect(d)
	d.Handle([]byte{ems.UBA, ems.WithResponseRequested(ems.RC), 0x18, 0x00})
	assert.Empty(t, *got)
}

func TestDecodeDiscardsAllZeroHeader(t *testing.T) {
	d := ems.NewDecoder(nil, nil)
	got := collect(d)
	d.Handle([]byte{0x00, 0x00, 0x00, 0x00})
	assert.Empty(t, *got)
}

func TestDecodeDiscardsShortFrame(t *testing.T) {
	d := ems.NewDecoder(nil, nil)
	got := collect(d)
	d.Handle([]byte{0x08, 0x10, 0x18})
	assert.Empty(t, *got)
}

func TestDecodeUnknownSourceTypeIsIgnored(t *testing.T) {
	d := ems.NewDecoder(nil, nil)
	got := collect(d)
	d.Handle([]byte{0xFF, 0x10, 0xFF, 0x00, 0x01})
	assert.Empty(t, *got)
}

func TestHKMonitorConditionalTemperaturChangeFieldAbsentWhenShort(t *testing.T) {
	d := ems.NewDecoder(nil, nil)
	got := collect(d)

	// payload present only through logical offset 14, status byte at 15
	// absent: the conditional field must not fire, since CanAccess(15,1)
	// itself fails before the status bit is even inspected.
	raw := []byte{ems.RC, ems.UBA, 0x3E, 0x00, 0x00, 0x96, 0x28, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	d.Handle(raw)
	for _, v := range *got {
		assert.NotEqual(t, ems.TypeTemperaturaenderung, v.Type())
	}
}

func TestHKMonitorConditionalTemperaturChangeFieldSuppressedByStatusBit(t *testing.T) {
	d := ems.NewDecoder(nil, nil)
	got := collect(d)

	// full 16-byte payload (logical 0..15 present), status byte at 15
	// has bit0 set: the field must still be suppressed.
	payload := make([]byte, 16)
	payload[15] = 0x01
	raw := append([]byte{ems.RC, ems.UBA, 0x3E, 0x00}, payload...)
	d.Handle(raw)
	for _, v := range *got {
		assert.NotEqual(t, ems.TypeTemperaturaenderung, v.Type())
	}
}

func TestHKMonitorConditionalTemperaturChangeFieldFiresWhenStatusBitClear(t *testing.T) {
	d := ems.NewDecoder(nil, nil)
	got := collect(d)

	// same 16-byte payload, status byte at 15 has bit0 clear: the field
	// must fire.
	payload := make([]byte, 16)
	payload[10], payload[11] = 0x00, 0x32 // 0x0032 / 100 == 0.5
	raw := append([]byte{ems.RC, ems.UBA, 0x3E, 0x00}, payload...)
	d.Handle(raw)

	var found bool
	for _, v := range *got {
		if v.Type() == ems.TypeTemperaturaenderung {
			found = true
			n, ok := v.Numeric()
			require.True(t, ok)
			assert.Equal(t, 0.5, n)
		}
	}
	assert.True(t, found, "Temperaturaenderung must fire when status byte bit0 is clear")
}

func TestParseErrorRecordsAlignsToFrameOffset(t *testing.T) {
	f, ok := ems.ParseFrame([]byte{ems.UBA, ems.PC, 0x10, 0x02, 0xAA, 0xAA, 0x00, 0x00, 0x11, 0x11})
	require.True(t, ok)
	recs := ems.ParseErrorRecords(0x10, f)
	require.Len(t, recs, 1)
	rec, ok := recs[0].Error()
	require.True(t, ok)
	assert.Equal(t, byte(0x10), rec.SourceType)
}
