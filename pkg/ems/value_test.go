package ems_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geowiwi/ems-gateway/pkg/ems"
)

func TestNewNumericSignedExtension(t *testing.T) {
	cases := []struct {
		name    string
		raw     []byte
		divider int
		want    float64
	}{
		{"positive two-byte", []byte{0x01, 0x9A}, 10, 41.0},
		{"zero", []byte{0x00, 0x00}, 10, 0},
		{"negative single byte", []byte{0xEC}, 2, -10},
		{"positive single byte", []byte{0x14}, 2, 10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := ems.NewNumeric(ems.TypeIstTemp, ems.SubTypeKessel, c.raw, c.divider)
			got, ok := v.Numeric()
			assert.True(t, ok)
			assert.Equal(t, c.want, got)
			assert.Equal(t, ems.KindNumeric, v.Kind())
		})
	}
}

func TestNewBooleanExtractsBit(t *testing.T) {
	v := ems.NewBoolean(ems.TypeBrennerAktiv, ems.SubTypeKessel, 0x05, 0)
	got, ok := v.Boolean()
	assert.True(t, ok)
	assert.True(t, got)

	v2 := ems.NewBoolean(ems.TypeBrennerAktiv, ems.SubTypeKessel, 0x05, 1)
	got2, ok2 := v2.Boolean()
	assert.True(t, ok2)
	assert.False(t, got2)
}

func TestValueAccessorsRejectWrongKind(t *testing.T) {
	v := ems.NewBoolean(ems.TypeBrennerAktiv, ems.SubTypeKessel, 0, 0)
	_, ok := v.Numeric()
	assert.False(t, ok)
	_, _, _, ok2 := v.Kennlinie()
	assert.False(t, ok2)
}

func TestKennlinieRoundTrip(t *testing.T) {
	v := ems.NewKennlinie(ems.TypeKennlinie, ems.SubTypeHK1, 20, 40, 60)
	low, med, high, ok := v.Kennlinie()
	assert.True(t, ok)
	assert.Equal(t, byte(20), low)
	assert.Equal(t, byte(40), med)
	assert.Equal(t, byte(60), high)
}

func TestErrorAwareSystemTimeDoesNotAliasZeroValue(t *testing.T) {
	var zero ems.Value
	_, ok := zero.SystemTime()
	assert.False(t, ok)

	st := ems.SystemTime{Year: 2024, Month: 1, Day: 1}
	v := ems.NewSystemTime(st)
	got, ok := v.SystemTime()
	assert.True(t, ok)
	assert.Equal(t, st, got)
}
