package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowiwi/ems-gateway/pkg/ems"
)

// autoReply drains gw.sent and offers back a canned reply frame shaped
// like the request, letting a dispatch() call run end-to-end without a
// real bus.
func autoReply(t *testing.T, gw *fakeGateway, c *Connection, payload []byte) {
	t.Helper()
	go func() {
		frame := <-gw.sent
		f, ok := ems.ParseFrame(append([]byte{0}, frame...))
		if !ok {
			return
		}
		c.offer(ems.Frame{Source: f.Dest &^ 0x80, Dest: ems.PC, Type: f.Type, Offset: f.Offset, Payload: payload})
	}()
}

func TestDispatchUnknownCommand(t *testing.T) {
	gw := newFakeGateway()
	c, _ := testConnection(t, gw)
	reply := dispatch(context.Background(), c, "bogus")
	assert.Equal(t, "ERR:CMD", reply)
}

func TestDispatchHKGetSollTemp(t *testing.T) {
	gw := newFakeGateway()
	c, _ := testConnection(t, gw)
	c.cfg.ReplyTimeout = time.Second
	autoReply(t, gw, c, []byte{40}) // 40/2 == 20.0

	reply := dispatch(context.Background(), c, "hk1 getsolltemp")
	require.True(t, strings.HasPrefix(reply, "OK "))
	assert.Equal(t, "OK 20.0", reply)
}

// TestDispatchHKGetSollTempUsesDescriptorOffset pins the request's wire
// offset to the decoder's own hkMonitorDescriptors layout (logical 2),
// so a regression back to the field's old, wrong offset 0 fails here
// even though autoReply's offset-agnostic echo would otherwise hide it.
func TestDispatchHKGetSollTempUsesDescriptorOffset(t *testing.T) {
	gw := newFakeGateway()
	c, _ := testConnection(t, gw)
	c.cfg.ReplyTimeout = time.Second

	done := make(chan string, 1)
	go func() { done <- dispatch(context.Background(), c, "hk1 getsolltemp") }()

	frame := <-gw.sent
	field := ems.HKSollTempField(ems.SubTypeHK1)
	require.Equal(t, byte(field.Offset), frame[2], "request must address the SollTemp field's own offset")

	f, ok := ems.ParseFrame(append([]byte{0}, frame...))
	require.True(t, ok)
	c.offer(ems.Frame{Source: f.Dest &^ 0x80, Dest: ems.PC, Type: f.Type, Offset: f.Offset, Payload: []byte{40}})

	select {
	case reply := <-done:
		assert.Equal(t, "OK 20.0", reply)
	case <-time.After(time.Second):
		t.Fatal("dispatch did not return after offer")
	}
}

func TestDispatchHKSetSollTempInvalidArgs(t *testing.T) {
	gw := newFakeGateway()
	c, _ := testConnection(t, gw)
	reply := dispatch(context.Background(), c, "hk1 setsolltemp notanumber")
	assert.Equal(t, "ERR:ARGS", reply)
}

func TestDispatchGetErrorsEmptyLog(t *testing.T) {
	gw := newFakeGateway()
	c, _ := testConnection(t, gw)
	c.cfg.ReplyTimeout = time.Second
	autoReply(t, gw, c, nil)

	reply := dispatch(context.Background(), c, "geterrors")
	assert.Equal(t, "OK ", reply)
}

func TestDispatchWWGetSollTemp(t *testing.T) {
	gw := newFakeGateway()
	c, _ := testConnection(t, gw)
	c.cfg.ReplyTimeout = time.Second
	// WW SollTemp has divider 1, unlike HK's divider 2: the raw byte is
	// the setpoint verbatim.
	autoReply(t, gw, c, []byte{60})

	reply := dispatch(context.Background(), c, "ww getsolltemp")
	assert.Equal(t, "OK 60.0", reply)
}

func TestDispatchZirkPumpGet(t *testing.T) {
	gw := newFakeGateway()
	c, _ := testConnection(t, gw)
	c.cfg.ReplyTimeout = time.Second
	autoReply(t, gw, c, []byte{1})

	reply := dispatch(context.Background(), c, "zirkpump get")
	assert.Equal(t, "OK on", reply)
}
