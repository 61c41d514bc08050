package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/selivandex/regime-watch/pkg/logger"
)

// Conn is the subset of *websocket.Conn the manager needs; narrowed so tests
// can substitute a scripted connection.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer opens the duplex channel
type Dialer func(ctx context.Context, url string) (Conn, error)

// Poller retrieves updates over the request path when the duplex channel is
// unavailable. Implemented on top of the request executor.
type Poller interface {
	Poll(ctx context.Context) ([]Message, error)
}

// Config controls channel lifecycle timing
type Config struct {
	StreamURL            string
	HeartbeatInterval    time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int
	PollInterval         time.Duration
}

// Manager owns the persistent channel lifecycle: connect, heartbeat,
// subscription replay, reconnect with backoff, and the polling fallback.
type Manager struct {
	cfg    Config
	dial   Dialer
	poller Poller
	sleep  func(ctx context.Context, d time.Duration) error

	mu           sync.Mutex
	state        State
	mode         Mode
	conn         Conn
	subs         map[string]time.Time
	handlers     map[string]Handler
	lastSeen     time.Time
	degraded     bool
	pollFailures int

	// writeMu serializes writes to the websocket; it is independent of mu so
	// state lookups never wait on the network
	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// degradedAfterPollFailures is the consecutive-failure count at which the
// polling path reports sustained total connectivity loss
const degradedAfterPollFailures = 3

// NewManager creates a transport manager. poller may be nil only when a
// stream URL is configured and fallback is not desired.
func NewManager(cfg Config, poller Poller) *Manager {
	return &Manager{
		cfg:      cfg,
		dial:     gorillaDial,
		poller:   poller,
		sleep:    sleepCtx,
		state:    StateDisconnected,
		mode:     ModePush,
		subs:     make(map[string]time.Time),
		handlers: make(map[string]Handler),
	}
}

func gorillaDial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// On registers a handler for one message type. Must be called before Start.
func (m *Manager) On(msgType string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[msgType] = h
}

// Start begins delivering updates: over the duplex channel when configured,
// otherwise by polling. It returns immediately.
func (m *Manager) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if m.cfg.StreamURL == "" {
		logger.Info("no stream URL configured, starting in polling mode")
		m.enterPollingMode()
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runPush(m.ctx)
	}()
}

// Close tears down the channel and all timers. Pending subscription changes
// are dropped, not flushed.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.state = StateClosing
	conn := m.conn
	m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}

	m.wg.Wait()

	m.mu.Lock()
	m.state = StateDisconnected
	m.conn = nil
	m.mu.Unlock()

	return nil
}

// Subscribe adds a channel to the subscription set. If the connection is
// open the control message goes out immediately; otherwise it is replayed on
// the next successful open.
func (m *Manager) Subscribe(channel string) error {
	m.mu.Lock()
	m.subs[channel] = time.Now()
	open := m.state == StateOpen
	conn := m.conn
	m.mu.Unlock()

	if open && conn != nil {
		return m.writeControl(conn, "subscribe", channel)
	}
	return nil
}

// Unsubscribe removes a channel from the subscription set
func (m *Manager) Unsubscribe(channel string) error {
	m.mu.Lock()
	delete(m.subs, channel)
	open := m.state == StateOpen
	conn := m.conn
	m.mu.Unlock()

	if open && conn != nil {
		return m.writeControl(conn, "unsubscribe", channel)
	}
	return nil
}

// State returns the current channel state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Mode returns push or polling
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Degraded reports sustained total connectivity loss (both push and poll
// paths failing). It is the only user-visible transport failure signal.
func (m *Manager) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

// Subscriptions returns the currently registered channel names
func (m *Manager) Subscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.subs))
	for name := range m.subs {
		names = append(names, name)
	}
	return names
}

// runPush drives the connect/serve/reconnect cycle until the context is
// cancelled or reconnect attempts are exhausted, at which point it degrades
// permanently to polling.
func (m *Manager) runPush(ctx context.Context) {
	attempts := 0

	for {
		if ctx.Err() != nil {
			return
		}

		m.setState(StateConnecting)

		conn, err := m.dial(ctx, m.cfg.StreamURL)
		if err == nil {
			attempts = 0
			m.onOpen(conn)
			m.serve(ctx, conn)
			m.setState(StateDisconnected)
			if ctx.Err() != nil {
				return
			}
			logger.Warn("channel closed, scheduling reconnect")
		} else {
			m.setState(StateDisconnected)
			logger.Warn("channel open failed",
				zap.String("url", m.cfg.StreamURL),
				zap.Error(err),
			)
		}

		attempts++
		if attempts >= m.cfg.MaxReconnectAttempts {
			logger.Error("reconnect attempts exhausted, falling back to polling",
				zap.Int("attempts", attempts),
			)
			m.enterPollingMode()
			return
		}

		delay := m.backoff(attempts - 1)
		logger.Info("reconnecting",
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
		)
		if err := m.sleep(ctx, delay); err != nil {
			return
		}
	}
}

// backoff returns the jitter-free doubled delay for the zero-indexed attempt,
// capped at the configured maximum
func (m *Manager) backoff(attempt int) time.Duration {
	delay := m.cfg.ReconnectBaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= m.cfg.ReconnectMaxDelay {
			return m.cfg.ReconnectMaxDelay
		}
	}
	return delay
}

// onOpen records the new connection and replays the subscription set
func (m *Manager) onOpen(conn Conn) {
	m.mu.Lock()
	m.conn = conn
	m.state = StateOpen
	m.mode = ModePush
	m.degraded = false
	m.lastSeen = time.Now()
	channels := make([]string, 0, len(m.subs))
	for name := range m.subs {
		channels = append(channels, name)
	}
	m.mu.Unlock()

	for _, ch := range channels {
		if err := m.writeControl(conn, "subscribe", ch); err != nil {
			logger.Warn("failed to replay subscription",
				zap.String("channel", ch),
				zap.Error(err),
			)
		}
	}

	logger.Info("channel open",
		zap.String("url", m.cfg.StreamURL),
		zap.Strings("subscriptions", channels),
	)
}

// serve runs the read loop with a heartbeat alongside; it returns when the
// connection dies for any reason
func (m *Manager) serve(ctx context.Context, conn Conn) {
	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()

	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		m.heartbeat(connCtx, conn)
	}()

	m.readLoop(conn)

	connCancel()
	_ = conn.Close()
	<-hbDone
}

// readLoop delivers inbound messages to handlers in arrival order
func (m *Manager) readLoop(conn Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if m.ctx == nil || m.ctx.Err() == nil {
				logger.Warn("channel read error", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Warn("failed to parse channel message", zap.Error(err))
			continue
		}

		m.markSeen()
		m.dispatch(msg)
	}
}

// dispatch routes one message to exactly one handler by type
func (m *Manager) dispatch(msg Message) {
	if msg.Type == TypePong || msg.Type == TypePing {
		return
	}

	m.mu.Lock()
	h, ok := m.handlers[msg.Type]
	m.mu.Unlock()

	if !ok {
		logger.Warn("unknown message type, dropping",
			zap.String("type", msg.Type),
		)
		return
	}

	h(msg)
}

// heartbeat sends a keepalive every interval and force-closes the connection
// when no liveness signal arrives within twice the interval
func (m *Manager) heartbeat(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.sinceSeen() > 2*m.cfg.HeartbeatInterval {
				logger.Warn("liveness deadline missed, force-closing channel",
					zap.Duration("since_last_message", m.sinceSeen()),
				)
				_ = conn.Close()
				return
			}

			m.writeMu.Lock()
			err := conn.WriteJSON(map[string]string{"type": TypePing})
			m.writeMu.Unlock()
			if err != nil {
				logger.Warn("failed to send keepalive", zap.Error(err))
			}
		}
	}
}

func (m *Manager) writeControl(conn Conn, op, channel string) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := conn.WriteJSON(map[string]string{"type": op, "channel": channel}); err != nil {
		return fmt.Errorf("failed to send %s for %s: %w", op, channel, err)
	}
	return nil
}

func (m *Manager) markSeen() {
	m.mu.Lock()
	m.lastSeen = time.Now()
	m.mu.Unlock()
}

func (m *Manager) sinceSeen() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastSeen)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// enterPollingMode switches delivery to periodic polling through the request
// executor. Once entered from exhausted reconnects the switch is permanent.
func (m *Manager) enterPollingMode() {
	m.mu.Lock()
	m.mode = ModePolling
	m.mu.Unlock()

	if m.poller == nil {
		logger.Error("polling fallback requested but no poller configured")
		m.mu.Lock()
		m.degraded = true
		m.mu.Unlock()
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runPolling(m.ctx)
	}()
}

func (m *Manager) runPolling(ctx context.Context) {
	logger.Info("polling mode active",
		zap.Duration("interval", m.cfg.PollInterval),
	)

	m.pollOnce(ctx)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

// pollOnce retrieves and dispatches one batch of updates, tracking
// consecutive failures for the degraded-state signal
func (m *Manager) pollOnce(ctx context.Context) {
	msgs, err := m.poller.Poll(ctx)
	if err != nil {
		m.mu.Lock()
		m.pollFailures++
		failures := m.pollFailures
		wasDegraded := m.degraded
		if failures >= degradedAfterPollFailures {
			m.degraded = true
		}
		nowDegraded := m.degraded
		m.mu.Unlock()

		if nowDegraded && !wasDegraded {
			logger.Error("total connectivity loss: push and poll paths both failing",
				zap.Int("consecutive_poll_failures", failures),
			)
		} else {
			logger.Warn("poll failed", zap.Error(err))
		}
		return
	}

	m.mu.Lock()
	m.pollFailures = 0
	m.degraded = false
	m.mu.Unlock()

	for _, msg := range msgs {
		m.dispatch(msg)
	}
}
