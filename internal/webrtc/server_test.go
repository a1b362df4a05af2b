package webrtc

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
)

func fakeClient(t *testing.T, id string) *Client {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	return &Client{
		id:        id,
		peerConn:  pc,
		msgChan:   make(chan []byte, 16),
		closeChan: make(chan struct{}),
	}
}

func TestHandleOfferRejectsMalformedOffers(t *testing.T) {
	srv := NewServer(Config{MaxClients: 1}, nil)
	defer srv.Close()

	_, err := srv.HandleOffer([]byte("not json"))
	assert.Error(t, err)

	_, err = srv.HandleOffer([]byte(`{"type":"answer","sdp":"v=0"}`))
	assert.Error(t, err)
	assert.Equal(t, 0, srv.GetClientCount())
}

func TestHandleOfferEnforcesClientLimit(t *testing.T) {
	m := metrics.New()
	srv := NewServer(Config{MaxClients: 1}, m)

	srv.clients["existing"] = fakeClient(t, "existing")

	_, err := srv.HandleOffer([]byte(`{"type":"offer","sdp":"v=0"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyClients))

	require.NoError(t, srv.Close())
	assert.Equal(t, 0, srv.GetClientCount())
	assert.Equal(t, int64(0), m.WebRTCClients.Load())
}

func TestMessagesBeforeChannelOpenAreDropped(t *testing.T) {
	srv := NewServer(Config{MaxClients: 2}, nil)
	c := fakeClient(t, "pending")
	srv.clients[c.id] = c
	go srv.sendMessages(c)

	srv.Broadcast([]byte(`{"type":"ALERT"}`))
	assert.Eventually(t, func() bool { return c.dropped.Load() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(1), srv.GetClientStats()["pending"]["messages_dropped"])

	srv.RemoveClient(c.id)
	srv.RemoveClient(c.id)
	assert.Equal(t, 0, srv.GetClientCount())
}

func TestDataChannelRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("opens local UDP sockets")
	}
	m := metrics.New()
	srv := NewServer(Config{MaxClients: 2, IncludeLoopback: true}, m)
	defer srv.Close()

	se := webrtc.SettingEngine{}
	se.SetIncludeLoopbackCandidate(true)
	se.SetNetworkTypes([]webrtc.NetworkType{webrtc.NetworkTypeUDP4})
	pc, err := webrtc.NewAPI(webrtc.WithSettingEngine(se)).NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	defer pc.Close()

	dc, err := pc.CreateDataChannel(ChannelLabel, nil)
	require.NoError(t, err)
	opened := make(chan struct{})
	received := make(chan string, 32)
	dc.OnOpen(func() { close(opened) })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) { received <- string(msg.Data) })

	offer, err := pc.CreateOffer(nil)
	require.NoError(t, err)
	gathered := webrtc.GatheringCompletePromise(pc)
	require.NoError(t, pc.SetLocalDescription(offer))
	<-gathered

	offerJSON, err := json.Marshal(pc.LocalDescription())
	require.NoError(t, err)
	answerJSON, err := srv.HandleOffer(offerJSON)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.GetClientCount())
	assert.Equal(t, int64(1), m.WebRTCClients.Load())

	var answer webrtc.SessionDescription
	require.NoError(t, json.Unmarshal(answerJSON, &answer))
	require.NoError(t, pc.SetRemoteDescription(answer))

	select {
	case <-opened:
	case <-time.After(10 * time.Second):
		t.Fatal("data channel did not open")
	}

	require.NoError(t, dc.SendText("PING"))
	var sawPong, sawAlert bool
	require.Eventually(t, func() bool {
		srv.Broadcast([]byte("ALERT"))
		for {
			select {
			case msg := <-received:
				sawPong = sawPong || msg == "PONG"
				sawAlert = sawAlert || msg == "ALERT"
			default:
				return sawPong && sawAlert
			}
		}
	}, 10*time.Second, 100*time.Millisecond)
}
