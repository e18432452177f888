package ems_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowiwi/ems-gateway/pkg/ems"
)

func TestBuildSetsResponseBitOnlyWhenRequested(t *testing.T) {
	withReply, err := ems.Build(ems.RC, 0x3E, 0x00, []byte{0x28}, true)
	require.NoError(t, err)
	assert.Equal(t, ems.WithResponseRequested(ems.RC), withReply[0])

	noReply, err := ems.Build(ems.RC, 0x3E, 0x00, []byte{0x28}, false)
	require.NoError(t, err)
	assert.Equal(t, ems.RC, noReply[0])
}

func TestBuildLayout(t *testing.T) {
	out, err := ems.Build(ems.UBA, 0x33, 0x02, []byte{0xAA, 0xBB}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{ems.UBA, 0x33, 0x02, 0xAA, 0xBB}, out)
}

func TestBuildRejectsOversizedPayload(t *testing.T) {
	_, err := ems.Build(ems.UBA, 0x33, 0xFE, make([]byte, 4), false)
	assert.ErrorIs(t, err, ems.ErrPayloadTooLarge)
}

func TestAddressHelpers(t *testing.T) {
	assert.False(t, ems.IsPolling(ems.RC))
	assert.True(t, ems.IsPolling(ems.WithResponseRequested(ems.RC)))
}
