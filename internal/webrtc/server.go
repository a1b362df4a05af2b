// Package webrtc pushes alert and status messages to browsers over a
// WebRTC data channel, for clients that prefer it to SSE or WebSocket.
package webrtc

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/metrics"
)

// ChannelLabel is the data channel the dashboard opens.
const ChannelLabel = "alerts"

// ErrTooManyClients is returned by HandleOffer when the client limit is hit.
var ErrTooManyClients = errors.New("maximum clients reached")

// Config configures the data channel server.
type Config struct {
	// STUNServers are passed to every peer connection. Empty means host
	// candidates only, which is enough on a LAN.
	STUNServers []string
	MaxClients  int
	// IncludeLoopback adds 127.0.0.1 candidates; used for same-host peers.
	IncludeLoopback bool
}

// DefaultConfig uses Google's public STUN server and four clients.
func DefaultConfig() Config {
	return Config{
		STUNServers: []string{"stun:stun.l.google.com:19302"},
		MaxClients:  4,
	}
}

// Client represents a connected WebRTC client
type Client struct {
	id       string
	peerConn *webrtc.PeerConnection

	mu sync.Mutex
	dc *webrtc.DataChannel

	msgChan   chan []byte
	closeChan chan struct{}
	sent      atomic.Uint64
	dropped   atomic.Uint64
}

func (c *Client) channel() *webrtc.DataChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc
}

// Server manages WebRTC connections
type Server struct {
	clients    map[string]*Client
	clientsMu  sync.RWMutex
	config     webrtc.Configuration
	maxClients int
	api        *webrtc.API
	metrics    *metrics.Metrics
	log        logger.Module
}

// NewServer creates a new WebRTC server
func NewServer(cfg Config, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New()
	}
	iceServers := make([]webrtc.ICEServer, 0, len(cfg.STUNServers))
	for _, url := range cfg.STUNServers {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: []string{url}})
	}

	settingsEngine := webrtc.SettingEngine{}
	settingsEngine.SetDTLSRetransmissionInterval(2 * time.Second)
	settingsEngine.SetNetworkTypes([]webrtc.NetworkType{
		webrtc.NetworkTypeUDP4,
		webrtc.NetworkTypeUDP6,
	})
	if cfg.IncludeLoopback {
		settingsEngine.SetIncludeLoopbackCandidate(true)
	}

	maxClients := cfg.MaxClients
	if maxClients <= 0 {
		maxClients = DefaultConfig().MaxClients
	}

	return &Server{
		clients:    make(map[string]*Client),
		config:     webrtc.Configuration{ICEServers: iceServers},
		maxClients: maxClients,
		api:        webrtc.NewAPI(webrtc.WithSettingEngine(settingsEngine)),
		metrics:    m,
		log:        logger.For("WebRTC"),
	}
}

// HandleOffer handles a WebRTC offer and returns an answer. The offer must
// carry a data channel; the browser creates it with ChannelLabel.
func (s *Server) HandleOffer(offerJSON []byte) ([]byte, error) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(offerJSON, &offer); err != nil {
		return nil, fmt.Errorf("failed to parse offer: %w", err)
	}
	if offer.Type != webrtc.SDPTypeOffer || offer.SDP == "" {
		return nil, fmt.Errorf("failed to parse offer: expected a non-empty %q description", webrtc.SDPTypeOffer)
	}

	s.clientsMu.RLock()
	numClients := len(s.clients)
	s.clientsMu.RUnlock()
	if numClients >= s.maxClients {
		return nil, fmt.Errorf("%w (%d)", ErrTooManyClients, s.maxClients)
	}

	peerConn, err := s.api.NewPeerConnection(s.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	client := &Client{
		id:        "client-" + uuid.NewString()[:8],
		peerConn:  peerConn,
		msgChan:   make(chan []byte, 16),
		closeChan: make(chan struct{}),
	}

	peerConn.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != ChannelLabel {
			s.log.Debugf("Client %s opened unknown channel %q", client.id, dc.Label())
			return
		}
		dc.OnOpen(func() {
			client.mu.Lock()
			client.dc = dc
			client.mu.Unlock()
			s.log.Infof("Client %s data channel open", client.id)
		})
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if msg.IsString && string(msg.Data) == "PING" {
				_ = dc.SendText("PONG")
			}
		})
	})

	peerConn.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.log.Debugf("Client %s connection state: %s", client.id, state.String())
		if state == webrtc.PeerConnectionStateDisconnected ||
			state == webrtc.PeerConnectionStateFailed ||
			state == webrtc.PeerConnectionStateClosed {
			s.RemoveClient(client.id)
		}
	})

	if err := peerConn.SetRemoteDescription(offer); err != nil {
		peerConn.Close()
		return nil, fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := peerConn.CreateAnswer(nil)
	if err != nil {
		peerConn.Close()
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(peerConn)
	if err := peerConn.SetLocalDescription(answer); err != nil {
		peerConn.Close()
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}
	<-gatherComplete

	localDesc := peerConn.LocalDescription()
	if localDesc == nil {
		peerConn.Close()
		return nil, fmt.Errorf("no local description available")
	}
	answerJSON, err := json.Marshal(localDesc)
	if err != nil {
		peerConn.Close()
		return nil, fmt.Errorf("failed to marshal answer: %w", err)
	}

	s.clientsMu.Lock()
	s.clients[client.id] = client
	s.metrics.WebRTCClients.Store(int64(len(s.clients)))
	s.clientsMu.Unlock()

	go s.sendMessages(client)

	s.log.Infof("Client %s connected", client.id)
	return answerJSON, nil
}

// Broadcast queues msg for every client. Clients whose queue is full, or
// whose channel is not open yet, miss the message.
func (s *Server) Broadcast(msg []byte) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		select {
		case client.msgChan <- msg:
		default:
			client.dropped.Add(1)
		}
	}
}

func (s *Server) sendMessages(client *Client) {
	for {
		select {
		case <-client.closeChan:
			return
		case msg := <-client.msgChan:
			dc := client.channel()
			if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
				client.dropped.Add(1)
				continue
			}
			if err := dc.SendText(string(msg)); err != nil {
				s.log.Warnf("Send to client %s failed: %v", client.id, err)
				client.dropped.Add(1)
				continue
			}
			client.sent.Add(1)
		}
	}
}

// RemoveClient removes a client by ID
func (s *Server) RemoveClient(clientID string) {
	s.clientsMu.Lock()
	client, exists := s.clients[clientID]
	if exists {
		delete(s.clients, clientID)
		s.metrics.WebRTCClients.Store(int64(len(s.clients)))
	}
	s.clientsMu.Unlock()
	if !exists {
		return
	}

	close(client.closeChan)
	_ = client.peerConn.Close()

	s.log.Infof("Client %s disconnected (sent: %d, dropped: %d)",
		clientID, client.sent.Load(), client.dropped.Load())
}

// GetClientCount returns the number of connected clients
func (s *Server) GetClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// GetClientStats returns stats for all clients
func (s *Server) GetClientStats() map[string]map[string]uint64 {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	stats := make(map[string]map[string]uint64, len(s.clients))
	for id, client := range s.clients {
		stats[id] = map[string]uint64{
			"messages_sent":    client.sent.Load(),
			"messages_dropped": client.dropped.Load(),
		}
	}
	return stats
}

// Close closes all client connections
func (s *Server) Close() error {
	s.clientsMu.RLock()
	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	s.clientsMu.RUnlock()

	for _, id := range ids {
		s.RemoveClient(id)
	}
	return nil
}
