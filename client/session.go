package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akinalp/dmrelay/ws"
)

// Config, Session ayarları. Sıfır değerler varsayılanlarla doldurulur.
type Config struct {
	URL        string // ör: ws://localhost:9090/ws
	Token      string
	MinBackoff time.Duration // varsayılan 500ms
	MaxBackoff time.Duration // varsayılan 30s
	Heartbeat  time.Duration // varsayılan 30s
	Dialer     *websocket.Dialer
}

func (c *Config) defaults() {
	if c.MinBackoff <= 0 {
		c.MinBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 30 * time.Second
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
}

// ErrNotConnected, bağlantı yokken gönderim denendi.
var ErrNotConnected = errors.New("client: not connected")

// Session, tek bir canlı bağlantıyı ve yeniden bağlanma politikasını yönetir.
type Session struct {
	cfg     Config
	fetcher Fetcher
	state   *State

	writeMu sync.Mutex // gorilla tek eşzamanlı yazıcıya izin verir
	conn    *websocket.Conn

	onEvent   func(Frame, Action)
	onConnect func()
}

// NewSession, constructor.
func NewSession(cfg Config, fetcher Fetcher, state *State) *Session {
	cfg.defaults()
	return &Session{cfg: cfg, fetcher: fetcher, state: state}
}

// OnEvent, her event uygulandıktan sonra çağrılır (UI güncellemesi için).
// Run'dan önce ayarlanmalıdır.
func (s *Session) OnEvent(fn func(Frame, Action)) { s.onEvent = fn }

// OnConnect, her başarılı bağlantı + state yenilemesinden sonra çağrılır.
func (s *Session) OnConnect(fn func()) { s.onConnect = fn }

// State, yerel state.
func (s *Session) State() *State { return s.state }

// Run, ctx iptal edilene kadar bağlı kalmaya çalışır.
//
// Her kopuştan sonra bekleme süresi ikiye katlanır (MaxBackoff'a kadar,
// ±%20 jitter). Başarılı bir bağlantı süreyi sıfırlar.
func (s *Session) Run(ctx context.Context) error {
	backoff := s.cfg.MinBackoff
	for {
		connected, err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = s.cfg.MinBackoff
		}
		log.Printf("[client] connection lost: %v (retry in %s)", err, backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter(backoff)):
		}
		backoff = min(backoff*2, s.cfg.MaxBackoff)
	}
}

// runOnce, bir bağlantı açar, state'i yeniler ve bağlantı kopana kadar okur.
func (s *Session) runOnce(ctx context.Context) (connected bool, err error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return false, err
	}
	q := u.Query()
	q.Set("token", s.cfg.Token)
	u.RawQuery = q.Encode()

	conn, resp, err := s.cfg.Dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()
	defer func() {
		s.writeMu.Lock()
		s.conn = nil
		s.writeMu.Unlock()
	}()

	// Bağlantı açıkken gelen event'ler resync'ten sonra okunur; socket
	// buffer'ında bekler. Resync'in gördüğü state bu event'lerden eskidir,
	// dedupe tekrar gelen mesajları eler.
	if err := s.resync(ctx); err != nil {
		return false, fmt.Errorf("resync: %w", err)
	}
	if active := s.state.Active(); active != "" {
		s.sendEvent(ws.Event{Op: ws.OpFocus, Data: ws.FocusData{PeerID: active}})
	}
	if s.onConnect != nil {
		s.onConnect()
	}

	// ctx iptalinde okuma bloğunu kırmak için bağlantıyı kapat.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(s.cfg.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-stop:
				return
			case <-ticker.C:
				if err := s.sendEvent(ws.Event{Op: ws.OpHeartbeat}); err != nil {
					return
				}
			}
		}
	}()

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			return true, err
		}
		s.handle(ctx, f)
	}
}

// resync, sunucudaki tam state'i çeker ve yereldekinin yerine koyar.
func (s *Session) resync(ctx context.Context) error {
	sidebar, err := s.fetcher.Sidebar(ctx)
	if err != nil {
		return err
	}
	s.state.ReplaceSidebar(sidebar)

	if active := s.state.Active(); active != "" {
		page, err := s.fetcher.Conversation(ctx, active)
		if err != nil {
			return err
		}
		s.state.ReplaceConversation(active, page)
	}
	return nil
}

func (s *Session) handle(ctx context.Context, f Frame) {
	action := s.state.Apply(f)

	if action.MarkSeenPeer != "" {
		if err := s.fetcher.MarkSeen(ctx, action.MarkSeenPeer); err != nil {
			log.Printf("[client] mark seen %s failed: %v", action.MarkSeenPeer, err)
		}
	}
	if action.RefreshSidebar {
		if sidebar, err := s.fetcher.Sidebar(ctx); err != nil {
			log.Printf("[client] sidebar refresh failed: %v", err)
		} else {
			s.state.ReplaceSidebar(sidebar)
		}
	}
	if s.onEvent != nil {
		s.onEvent(f, action)
	}
}

// Select, aktif konuşmayı değiştirir: geçmişi çeker, sunucuya focus
// bildirir ve okunmamış mesajlar varsa okundu işaretler.
// peerID boşsa seçim kaldırılır.
func (s *Session) Select(ctx context.Context, peerID string) error {
	if peerID == "" {
		s.state.Select("", nil)
		s.sendEvent(ws.Event{Op: ws.OpFocus, Data: ws.FocusData{}})
		return nil
	}

	hadUnread := s.state.Unread(peerID) > 0
	s.state.Open(peerID)

	page, err := s.fetcher.Conversation(ctx, peerID)
	if err != nil {
		return err
	}
	s.state.Select(peerID, page)

	// Bağlantı yoksa sorun değil; yeniden bağlanınca focus tekrar gönderilir.
	s.sendEvent(ws.Event{Op: ws.OpFocus, Data: ws.FocusData{PeerID: peerID}})

	if hadUnread {
		return s.fetcher.MarkSeen(ctx, peerID)
	}
	return nil
}

// SendTyping, yazıyor göstergesini gönderir.
func (s *Session) SendTyping(receiverID string, isTyping bool) error {
	return s.sendEvent(ws.Event{Op: ws.OpTyping, Data: ws.TypingData{ReceiverID: receiverID, IsTyping: isTyping}})
}

func (s *Session) sendEvent(ev ws.Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return s.conn.WriteJSON(ev)
}

// jitter, d'yi ±%20 rastgele saptırır; birlikte kopan client'lar aynı anda dönmesin.
func jitter(d time.Duration) time.Duration {
	delta := float64(d) * 0.2
	return d + time.Duration((rand.Float64()*2-1)*delta)
}
