package webmonitor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
)

// Fanout delivers values to every subscriber without ever blocking the
// producer: a subscriber whose buffer is full misses the value.
type Fanout[T any] struct {
	name    string
	mu      sync.Mutex
	clients map[int]chan T
	nextID  int
	closed  bool
	onCount func(int)
}

// NewFanout creates an empty fanout. name tags log lines.
func NewFanout[T any](name string) *Fanout[T] {
	return &Fanout[T]{name: name, clients: make(map[int]chan T)}
}

// Subscribe adds a new client and returns a channel for receiving values.
func (f *Fanout[T]) Subscribe() (int, <-chan T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan T, 2)
	if f.closed {
		close(ch)
		return id, ch
	}
	f.clients[id] = ch

	logger.Debug(f.name, "Client #%d subscribed (total clients: %d)", id, len(f.clients))
	f.countChangedLocked()
	return id, ch
}

// Unsubscribe removes a client.
func (f *Fanout[T]) Unsubscribe(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ch, ok := f.clients[id]; ok {
		close(ch)
		delete(f.clients, id)
		logger.Debug(f.name, "Client #%d unsubscribed (remaining clients: %d)", id, len(f.clients))
		f.countChangedLocked()
	}
}

// Broadcast sends v to all clients.
func (f *Fanout[T]) Broadcast(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, ch := range f.clients {
		select {
		case ch <- v:
		default:
			logger.Debug(f.name, "Client #%d is slow, dropping", id)
		}
	}
}

// ClientCount returns the number of subscribers.
func (f *Fanout[T]) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects every subscriber; later subscribers get a closed channel.
func (f *Fanout[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.clients {
		close(ch)
		delete(f.clients, id)
	}
	f.countChangedLocked()
}

func (f *Fanout[T]) countChangedLocked() {
	if f.onCount != nil {
		f.onCount(len(f.clients))
	}
}

// SerializedEvent holds an event pre-serialized for both SSE formats, so a
// broadcast encodes once no matter how many clients listen.
type SerializedEvent struct {
	JSONData     []byte
	ProtobufData []byte // google.protobuf.Struct, base64 encoded for SSE
}

// serializeEvent encodes payload as JSON and as a protobuf Struct built
// from that same JSON, so both formats carry identical fields.
func serializeEvent(payload any) (*SerializedEvent, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(jsonData, &fields); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("protobuf struct: %w", err)
	}
	pbData, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("protobuf marshal: %w", err)
	}

	return &SerializedEvent{
		JSONData:     jsonData,
		ProtobufData: []byte(base64.StdEncoding.EncodeToString(pbData)),
	}, nil
}

// decodeProtobufEvent reverses the SSE protobuf encoding.
func decodeProtobufEvent(data []byte) (*structpb.Struct, error) {
	raw, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, err
	}
	st := &structpb.Struct{}
	if err := proto.Unmarshal(raw, st); err != nil {
		return nil, err
	}
	return st, nil
}

// envelope is the message shape used by WebSocket and WebRTC pushes.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func encodeEnvelope(typ string, data any) ([]byte, error) {
	return json.Marshal(envelope{Type: typ, Data: data})
}

// StatusBroadcaster periodically publishes the dashboard status to SSE
// subscribers and message pushers. It only builds a status while someone
// is listening.
type StatusBroadcaster struct {
	events   *Fanout[*SerializedEvent]
	pushers  []Pusher
	build    func() StatusPayload
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	poke    chan struct{}
	stopped bool
}

// NewStatusBroadcaster creates a broadcaster for status events.
func NewStatusBroadcaster(build func() StatusPayload, interval time.Duration, pushers ...Pusher) *StatusBroadcaster {
	return &StatusBroadcaster{
		events:   NewFanout[*SerializedEvent]("StatusBroadcaster"),
		pushers:  pushers,
		build:    build,
		interval: interval,
		stop:     make(chan struct{}),
		poke:     make(chan struct{}, 1),
	}
}

// Subscribe adds an SSE client.
func (sb *StatusBroadcaster) Subscribe() (int, <-chan *SerializedEvent) {
	return sb.events.Subscribe()
}

// Unsubscribe removes an SSE client.
func (sb *StatusBroadcaster) Unsubscribe(id int) {
	sb.events.Unsubscribe(id)
}

// Poke publishes a status right away instead of waiting for the ticker.
func (sb *StatusBroadcaster) Poke() {
	select {
	case sb.poke <- struct{}{}:
	default:
	}
}

// Start begins the status event loop.
func (sb *StatusBroadcaster) Start() {
	go sb.run()
}

// Stop halts the broadcaster and disconnects its SSE clients.
func (sb *StatusBroadcaster) Stop() {
	sb.mu.Lock()
	if !sb.stopped {
		close(sb.stop)
		sb.stopped = true
	}
	sb.mu.Unlock()
	sb.events.Close()
}

func (sb *StatusBroadcaster) run() {
	logger.Info("StatusBroadcaster", "Starting status event broadcaster (interval=%v)...", sb.interval)
	ticker := time.NewTicker(sb.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sb.stop:
			return
		case <-ticker.C:
		case <-sb.poke:
		}
		sb.publish()
	}
}

func (sb *StatusBroadcaster) listeners() int {
	n := sb.events.ClientCount()
	for _, p := range sb.pushers {
		n += p.GetClientCount()
	}
	return n
}

func (sb *StatusBroadcaster) publish() {
	if sb.listeners() == 0 {
		return
	}
	status := sb.build()

	event, err := serializeEvent(status)
	if err != nil {
		logger.Error("StatusBroadcaster", "Serialize error: %v", err)
		return
	}
	sb.events.Broadcast(event)

	if len(sb.pushers) == 0 {
		return
	}
	msg, err := encodeEnvelope(MessageStatus, status)
	if err != nil {
		logger.Error("StatusBroadcaster", "Envelope error: %v", err)
		return
	}
	for _, p := range sb.pushers {
		p.Broadcast(msg)
	}
}
