package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/akinalp/dmrelay/models"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// pongWait: client'ın heartbeat göndermesi için beklenen maksimum süre.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	pongWait = 90 * time.Second

	// maxMessageSize: client'ın gönderebileceği maksimum frame boyutu (byte).
	// Mesaj içeriği HTTP ile gider; WS sadece küçük kontrol op'ları taşır.
	maxMessageSize = 4096

	// DefaultSendBufferSize: send channel buffer'ı. Dolarsa bağlantı kapatılır.
	DefaultSendBufferSize = 256
)

// Client, tek bir WebSocket bağlantısı. Conn interface'ini karşılar.
//
// Her bağlantı için iki goroutine çalışır:
//   - ReadPump: client'tan gelen op'ları okur, Hub callback'lerine iletir
//   - WritePump: send channel'dan gelenleri socket'e yazar
//
// gorilla/websocket aynı anda tek okuyucu ve tek yazıcı destekler;
// iki ayrı goroutine bu kuralı sağlar.
type Client struct {
	id     string
	userID string
	hub    *Hub
	conn   *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient, upgrade edilmiş bağlantı için yeni bir Client oluşturur.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = DefaultSendBufferSize
	}
	return &Client{
		id:     uuid.NewString(),
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

// Send, veriyi buffer'a koyar. Bağlantı kapalıysa veya buffer doluysa false.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close, bağlantıyı kapatma sinyalini verir. WritePump close frame'i yazıp
// socket'i kapatır; ReadPump okuma hatasıyla sonlanır. Birden fazla çağrı güvenlidir.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// ReadPump, bağlantıdan gelen op'ları okur. Bağlantı kapanana kadar bloklar.
// onClose, çıkışta bir kez çağrılır (presence disconnect akışı).
func (c *Client) ReadPump(onClose func(Conn)) {
	defer func() {
		c.Close()
		c.conn.Close()
		if onClose != nil {
			onClose(c)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[ws] failed to set read deadline for user %s: %v", c.userID, err)
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for user %s: %v", c.userID, err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("[ws] invalid message from user %s: %v", c.userID, err)
			continue
		}

		if event.Op == OpHeartbeat {
			if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
				return
			}
		}
		c.hub.dispatch(c, event)
	}
}

// WritePump, send channel'daki mesajları socket'e yazar.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case message := <-c.send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// dispatch, client'tan gelen op'u ilgili callback'e yönlendirir.
//
// Callback'ler `go` ile çağrılır: ReadPump bir sonraki frame'i beklerken
// service katmanı DB'ye gidebilir.
func (h *Hub) dispatch(conn Conn, event Event) {
	userID := conn.UserID()

	switch event.Op {
	case OpHeartbeat:
		h.SendDirect(conn, Event{Op: OpHeartbeatAck})

	case OpTyping:
		var data TypingData
		if !decodeData(event, &data) || data.ReceiverID == "" {
			return
		}
		if h.onTyping != nil {
			go h.onTyping(userID, data)
		}

	case OpFocus:
		var data FocusData
		if !decodeData(event, &data) {
			return
		}
		if h.onFocus != nil {
			go h.onFocus(conn, data.PeerID)
		}

	case OpFileUploadProgress:
		var data UploadProgressData
		if !decodeData(event, &data) || data.ReceiverID == "" {
			return
		}
		if h.onUploadProgress != nil {
			go h.onUploadProgress(userID, data)
		}

	case OpMarkAsRead:
		var data MarkAsReadData
		if !decodeData(event, &data) || data.PeerID == "" {
			return
		}
		if h.onMarkAsRead != nil {
			go h.onMarkAsRead(userID, data.PeerID)
		}

	case OpCallRequest:
		var data CallRequestData
		if !decodeData(event, &data) || data.ReceiverID == "" || data.CallType == "" {
			log.Printf("[ws] callRequest missing fields from user %s", userID)
			return
		}
		if h.onCallRequest != nil {
			go h.onCallRequest(userID, data)
		}

	case OpCallResponse:
		var data CallResponseData
		if !decodeData(event, &data) || data.CallID == "" {
			log.Printf("[ws] callResponse missing callId from user %s", userID)
			return
		}
		if h.onCallResponse != nil {
			go h.onCallResponse(userID, data)
		}

	case OpCallEnd:
		var data CallEndData
		decodeData(event, &data)
		if h.onCallEnd != nil {
			go h.onCallEnd(userID, data)
		}

	case OpStatusUpdate:
		var data models.SetStatusRequest
		if !decodeData(event, &data) || data.Status == "" {
			log.Printf("[ws] statusUpdate missing status from user %s", userID)
			return
		}
		if h.onStatusUpdate != nil {
			go h.onStatusUpdate(userID, data)
		}

	default:
		log.Printf("[ws] unknown op from user %s: %s", userID, event.Op)
	}
}

// decodeData, event.Data'yı (any) hedef struct'a çevirir.
// Data JSON'dan map olarak gelir; Marshal + Unmarshal en sade dönüşümdür.
func decodeData(event Event, dst any) bool {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
