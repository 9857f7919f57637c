package ws

import (
	"encoding/json"
	"log"
	"sync/atomic"

	"github.com/akinalp/dmrelay/models"
)

// EventPublisher, service katmanının event göndermek için kullandığı interface.
//
// Service'ler Hub'ın concrete struct'ına değil bu interface'e bağımlıdır;
// testlerde event'leri kaydeden bir fake verilir.
type EventPublisher interface {
	EmitTo(userID string, event Event)
	EmitToMany(userIDs []string, event Event)
	Broadcast(event Event)
	BroadcastExcept(excludeUserID string, event Event)
	SendDirect(conn Conn, event Event)
	OnlineUserIDs() []string
	IsOnline(userID string) bool
	IsViewing(userID, peerID string) bool
}

// Hub, Registry üzerinde çalışan event fan-out'udur.
//
// Teslimat best-effort'tur: offline kullanıcıya emit sessizce no-op,
// retry ve kalıcılık yok. Buffer'ı dolu (yavaş) bağlantı kapatılır;
// client yeniden bağlanıp state'i HTTP'den tekrar çeker.
//
// Her emit event'i bir kez marshal eder, aynı byte slice'ı tüm
// bağlantılara verir.
type Hub struct {
	registry *Registry

	// seq: her outbound event'e verilen artan sayaç.
	seq atomic.Int64

	// Client → Server op callback'leri. main'deki wire-up'ta set edilir,
	// Client tarafından `go` ile çağrılır; Registry lock'u tutulmaz.
	onTyping         func(userID string, data TypingData)
	onFocus          func(conn Conn, peerID string)
	onUploadProgress func(userID string, data UploadProgressData)
	onMarkAsRead     func(userID, peerID string)
	onCallRequest    func(userID string, data CallRequestData)
	onCallResponse   func(userID string, data CallResponseData)
	onCallEnd        func(userID string, data CallEndData)
	onStatusUpdate   func(userID string, data models.SetStatusRequest)
}

// NewHub, verilen Registry üzerinde bir Hub oluşturur.
func NewHub(registry *Registry) *Hub {
	return &Hub{registry: registry}
}

// Registry, Hub'ın kullandığı Registry'yi döner.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ─── Callback setter'ları ───

func (h *Hub) OnTyping(fn func(userID string, data TypingData)) { h.onTyping = fn }
func (h *Hub) OnFocus(fn func(conn Conn, peerID string))        { h.onFocus = fn }
func (h *Hub) OnUploadProgress(fn func(userID string, data UploadProgressData)) {
	h.onUploadProgress = fn
}
func (h *Hub) OnMarkAsRead(fn func(userID, peerID string))                  { h.onMarkAsRead = fn }
func (h *Hub) OnCallRequest(fn func(userID string, data CallRequestData))   { h.onCallRequest = fn }
func (h *Hub) OnCallResponse(fn func(userID string, data CallResponseData)) { h.onCallResponse = fn }
func (h *Hub) OnCallEnd(fn func(userID string, data CallEndData))           { h.onCallEnd = fn }
func (h *Hub) OnStatusUpdate(fn func(userID string, data models.SetStatusRequest)) {
	h.onStatusUpdate = fn
}

// ─── Bağlantı yaşam döngüsü ───

// Register, bağlantıyı Registry'ye ekler. first: kullanıcının ilk bağlantısı.
func (h *Hub) Register(conn Conn) bool {
	first := h.registry.Register(conn.UserID(), conn)
	log.Printf("[ws] client connected: user=%s conn=%s first=%t", conn.UserID(), conn.ID(), first)
	return first
}

// Unregister, bağlantıyı Registry'den çıkarır.
// last: kullanıcının son bağlantısıydı. Kayıtlı değilse userID boş döner.
func (h *Hub) Unregister(conn Conn) (userID string, last bool) {
	userID, last = h.registry.Unregister(conn)
	if userID == "" {
		return "", false
	}
	if last {
		log.Printf("[ws] user fully disconnected: %s", userID)
	} else {
		log.Printf("[ws] client disconnected: user=%s conn=%s", userID, conn.ID())
	}
	return userID, last
}

// SetViewing, bağlantının aktif konuşmasını kaydeder.
func (h *Hub) SetViewing(conn Conn, peerID string) {
	h.registry.SetViewing(conn, peerID)
}

// DisconnectUser, kullanıcının tüm bağlantılarını kapatır (ör: ban).
// Kapanan bağlantıların ReadPump'ı normal disconnect akışını çalıştırır.
func (h *Hub) DisconnectUser(userID string) {
	for conn := range h.registry.ConnectionsFor(userID) {
		conn.Close()
	}
}

// Shutdown, tüm bağlantıları kapatır (graceful shutdown).
func (h *Hub) Shutdown() {
	for _, conn := range h.registry.allConnections() {
		conn.Close()
	}
	log.Println("[ws] hub shut down, all connections closed")
}

// ─── EventPublisher ───

// EmitTo, kullanıcının tüm bağlantılarına event gönderir. Offline ise no-op.
func (h *Hub) EmitTo(userID string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}
	for conn := range h.registry.ConnectionsFor(userID) {
		h.deliver(conn, data)
	}
}

// EmitToMany, her kullanıcıya EmitTo uygular. Alıcılar arası sıra garantisi yoktur.
// Aynı ID iki kez verilirse event bir kez gider.
func (h *Hub) EmitToMany(userIDs []string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}
	seen := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		for conn := range h.registry.ConnectionsFor(userID) {
			h.deliver(conn, data)
		}
	}
}

// Broadcast, tüm online bağlantılara event gönderir.
func (h *Hub) Broadcast(event Event) {
	h.BroadcastExcept("", event)
}

// BroadcastExcept, bir kullanıcı hariç herkese event gönderir.
func (h *Hub) BroadcastExcept(excludeUserID string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}
	for _, conn := range h.registry.allConnections() {
		if excludeUserID != "" && conn.UserID() == excludeUserID {
			continue
		}
		h.deliver(conn, data)
	}
}

// SendDirect, event'i sadece verilen bağlantıya gönderir (ör: yeni bağlanan tab'a online listesi).
func (h *Hub) SendDirect(conn Conn, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}
	h.deliver(conn, data)
}

func (h *Hub) OnlineUserIDs() []string {
	return h.registry.OnlineUserIDs()
}

func (h *Hub) IsOnline(userID string) bool {
	return h.registry.IsOnline(userID)
}

func (h *Hub) IsViewing(userID, peerID string) bool {
	return h.registry.IsViewing(userID, peerID)
}

func (h *Hub) encode(event Event) ([]byte, bool) {
	event.Seq = h.seq.Add(1)
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal %s event: %v", event.Op, err)
		return nil, false
	}
	return data, true
}

// deliver, veriyi bağlantının buffer'ına koyar. Buffer doluysa bağlantı
// kapatılır; emit eden taraf bloklanmaz.
func (h *Hub) deliver(conn Conn, data []byte) {
	if conn.Send(data) {
		return
	}
	log.Printf("[ws] send buffer full for user %s (conn %s), dropping connection", conn.UserID(), conn.ID())
	go conn.Close()
}
