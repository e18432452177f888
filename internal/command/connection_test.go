package command

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowiwi/ems-gateway/pkg/ems"
)

type fakeGateway struct {
	sent     chan []byte
	sendErr  error
	receiver func(frame []byte, err error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sent: make(chan []byte, 4)}
}

func (g *fakeGateway) Send(ctx context.Context, frame []byte) error {
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sent <- frame
	return nil
}

func (g *fakeGateway) SetReceiver(receiver func(frame []byte, err error)) {
	g.receiver = receiver
}

func testConnection(t *testing.T, gw ems.Gateway) (*Connection, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })
	log := logrus.NewEntry(logrus.New())
	cfg := Config{ListenAddr: ":0", ReplyTimeout: 50 * time.Millisecond}
	c := newConnection(1, server, gw, NewRouter(), cfg, log)
	return c, client
}

func TestRequestMatchesOfferedReply(t *testing.T) {
	gw := newFakeGateway()
	c, _ := testConnection(t, gw)

	done := make(chan struct{})
	var reply ems.Frame
	var err error
	go func() {
		reply, err = c.request(context.Background(), ems.RC, 0x3E, 0x00, nil)
		close(done)
	}()

	<-gw.sent
	c.offer(ems.Frame{Source: ems.RC, Dest: ems.PC, Type: 0x3E, Offset: 0x00, Payload: []byte{0x12}})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("request did not return after matching offer")
	}

	require.NoError(t, err)
	assert.Equal(t, ems.RC, reply.Source)
	assert.Equal(t, []byte{0x12}, reply.Payload)
}

func TestRequestTimesOutWithoutReply(t *testing.T) {
	gw := newFakeGateway()
	c, _ := testConnection(t, gw)

	_, err := c.request(context.Background(), ems.RC, 0x3E, 0x00, nil)
	require.Error(t, err)
	cmdErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, cmdErr.Kind)
}

func TestRequestRejectsOversizedPayload(t *testing.T) {
	gw := newFakeGateway()
	c, _ := testConnection(t, gw)

	_, err := c.request(context.Background(), ems.RC, 0x3E, 0xFE, make([]byte, 4))
	require.Error(t, err)
	cmdErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindInvalidArgs, cmdErr.Kind)
	assert.Empty(t, gw.sent, "an oversized payload must never reach the gateway")
}

func TestRequestRejectsSecondInFlightRequest(t *testing.T) {
	gw := newFakeGateway()
	c, _ := testConnection(t, gw)

	go c.request(context.Background(), ems.RC, 0x3E, 0x00, nil)
	<-gw.sent

	_, err := c.request(context.Background(), ems.UBA, 0x33, 0x00, nil)
	require.Error(t, err)
	cmdErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindInvalidCmd, cmdErr.Kind)
}

func TestOfferIgnoresNonMatchingFrame(t *testing.T) {
	gw := newFakeGateway()
	c, _ := testConnection(t, gw)

	done := make(chan struct{})
	var err error
	go func() {
		_, err = c.request(context.Background(), ems.RC, 0x3E, 0x00, nil)
		close(done)
	}()
	<-gw.sent

	c.offer(ems.Frame{Source: ems.UBA, Dest: ems.PC, Type: 0x33, Offset: 0x00})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("request did not time out after a non-matching offer")
	}
	require.Error(t, err)
	cmdErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, cmdErr.Kind)
}
