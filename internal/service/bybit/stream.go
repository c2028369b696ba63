package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"DashPull/internal/domain/models"
	applogger "DashPull/pkg/logger"

	"github.com/gorilla/websocket"
)

// TickerSink receives fresh tickers pushed from the public stream. The data
// manager implements it by priming its market-data cache, so dashboard
// refreshes hit cache instead of the REST budget.
type TickerSink interface {
	PrimeTicker(symbol string, t models.Ticker)
}

// Stream subscribes to public V5 ticker topics over WebSocket.
type Stream struct {
	wsURL          string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	sink           TickerSink
	log            *applogger.Logger

	// mu guards conn and connected; gorilla/websocket allows one concurrent
	// writer, and the ping loop, subscribe and reconnect all write.
	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// NewStream creates a public ticker stream for the given symbols.
func NewStream(wsURL string, symbols []string, reconnectDelay, pingInterval time.Duration, sink TickerSink, l *applogger.Logger) *Stream {
	return &Stream{
		wsURL:          wsURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		sink:           sink,
		log:            l,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	if s.log != nil {
		s.log.Info("stream: connected", applogger.String("url", s.wsURL))
	}
	return nil
}

// Subscribe subscribes to the ticker topic for each configured symbol.
func (s *Stream) Subscribe(ctx context.Context) error {
	args := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		args = append(args, "tickers."+sym)
	}
	if err := s.writeJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if s.log != nil {
		s.log.Info("stream: subscribed", applogger.String("topics", strings.Join(args, ",")))
	}
	return nil
}

type wsFrame struct {
	Topic string    `json:"topic"`
	Data  rawTicker `json:"data"`
}

// Run pumps ticker frames into the sink until ctx is cancelled or the
// connection breaks, reconnecting with a fixed delay.
func (s *Stream) Run(ctx context.Context) {
	go s.pingLoop(ctx)
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		default:
		}
		if err := s.readLoop(ctx); err != nil {
			if s.log != nil {
				s.log.Warn("stream: read loop ended", applogger.Error(err))
			}
		}
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		case <-time.After(s.reconnectDelay):
		}
		if err := s.reconnect(ctx); err != nil && s.log != nil {
			s.log.Warn("stream: reconnect failed", applogger.Error(err))
		}
	}
}

func (s *Stream) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return fmt.Errorf("stream conn nil")
		}
		_, b, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.connected = false
			s.mu.Unlock()
			return fmt.Errorf("stream read: %w", err)
		}
		var frame wsFrame
		if err := json.Unmarshal(b, &frame); err != nil {
			// op acks and pong frames are not ticker data
			continue
		}
		if !strings.HasPrefix(frame.Topic, "tickers.") {
			continue
		}
		symbol := strings.TrimPrefix(frame.Topic, "tickers.")
		t := frame.Data.toModel()
		if t.Symbol == "" {
			t.Symbol = symbol
		}
		if t.LastPrice == 0 {
			// delta frames may omit the price; nothing worth caching
			continue
		}
		s.sink.PrimeTicker(symbol, t)
	}
}

func (s *Stream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.writeJSON(map[string]string{"op": "ping"})
		}
	}
}

func (s *Stream) reconnect(ctx context.Context) error {
	_ = s.Close()
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// writeJSON serializes writes to the connection. One writer at a time.
func (s *Stream) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.connected {
		return fmt.Errorf("stream not connected")
	}
	return s.conn.WriteJSON(v)
}

// Close closes the WebSocket connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
