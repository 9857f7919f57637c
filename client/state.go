// Package client, sunucuya bağlanan tarafın canlı oturumunu (ConnectionSession) sağlar.
//
// State, yerel önbelleği tutar ve gelen event'leri uygular. Session,
// WebSocket bağlantısını yönetir: koptuğunda artan bekleme süreleriyle
// yeniden bağlanır ve her bağlantıdan sonra tam state'i HTTP'den çeker.
// Bağlantı yokken kaçırılan event'ler tekrar oynatılmaz.
package client

import (
	"cmp"
	"encoding/json"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/ws"
)

// Frame, sunucudan gelen ham event. Data, op'a göre çözülür.
type Frame struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

// Action, bir event uygulandıktan sonra çağıranın yapması gereken iş.
//
// MarkSeenPeer doluysa o peer'ın mesajları okundu işaretlenmeli.
// RefreshSidebar true ise kişi listesi yeniden çekilmeli.
type Action struct {
	MarkSeenPeer   string
	RefreshSidebar bool
}

// State, tek bir kullanıcının yerel görünümü. Eşzamanlı kullanıma uygundur.
type State struct {
	selfID string

	mu       sync.Mutex
	active   string
	messages []models.Message
	unread   map[string]int
	online   map[string]bool
	typing   map[string]bool
	statuses map[string]userStatus
	sidebar  *models.Sidebar
}

// userStatus, entityChanged{kind: "user", action: "status"} ile gelen son durum.
type userStatus struct {
	status models.UserStatus
	custom *string
}

// NewState, boş bir state oluşturur.
func NewState(selfID string) *State {
	return &State{
		selfID:   selfID,
		unread:   map[string]int{},
		online:   map[string]bool{},
		typing:   map[string]bool{},
		statuses: map[string]userStatus{},
	}
}

// ─── Okuma ───

// Active, seçili konuşmanın peer ID'si.
func (s *State) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Messages, aktif konuşmanın mesajlarının kopyası (eskiden yeniye).
func (s *State) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Unread, peer için yerel okunmamış sayısı.
func (s *State) Unread(peerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread[peerID]
}

// IsOnline, son onlineUsers listesine göre.
func (s *State) IsOnline(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online[userID]
}

// IsTyping, peer'ın şu an yazıyor olup olmadığı.
func (s *State) IsTyping(peerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing[peerID]
}

// Status, kullanıcının manuel durumu ve custom status metni.
// Son status event'i yoksa sidebar'daki değer döner.
func (s *State) Status(userID string) (models.UserStatus, *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.statuses[userID]; ok {
		return st.status, st.custom
	}
	if s.sidebar != nil {
		for _, u := range s.sidebar.Users {
			if u.ID == userID {
				return u.Status, u.CustomStatus
			}
		}
	}
	return "", nil
}

// Sidebar, son çekilen kişi listesi.
func (s *State) Sidebar() *models.Sidebar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sidebar
}

// ─── Tam state yenileme ───

// ReplaceSidebar, kişi listesini ve unread haritasını sunucudakiyle değiştirir.
// Sidebar'daki status değerleri önceki status event'lerinin yerini alır.
func (s *State) ReplaceSidebar(sidebar *models.Sidebar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sidebar = sidebar
	s.statuses = map[string]userStatus{}
	s.unread = map[string]int{}
	for peer, n := range sidebar.UnseenMessages {
		s.unread[peer] = n
	}
	if s.active != "" {
		delete(s.unread, s.active)
	}
}

// Open, geçmiş çekilmeden önce konuşmayı aktif yapar. Fetch sürerken gelen
// mesajlar listeye eklenir ve ardından Select ile page'e katılır.
// Farklı bir peer'a geçişte liste boşaltılır.
func (s *State) Open(peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if peerID != s.active {
		s.messages = nil
	}
	s.active = peerID
	delete(s.unread, peerID)
}

// Select, aktif konuşmayı peerID yapar ve page'i mesaj listesine uygular.
//
// peerID zaten aktifse mevcut liste page ile ID'ye göre birleştirilir:
// page'deki kayıt yerel kopyayı ezer (daha eski version hariç), page'de
// olmayan yerel mesajlar korunur. Aksi halde liste page ile değiştirilir.
// peerID boşsa hiçbir konuşma seçili değildir.
func (s *State) Select(peerID string, page *models.MessagePage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var incoming []models.Message
	if page != nil {
		incoming = page.Messages
	}
	if peerID != s.active || peerID == "" {
		s.messages = slices.Clone(incoming)
	} else {
		s.mergeMessages(incoming)
	}
	s.active = peerID
	delete(s.unread, peerID)
}

// ReplaceConversation, aktif konuşmanın listesini page ile tamamen değiştirir.
// Yeniden bağlandıktan sonraki resync içindir: kaçırılan silmeler yerelde kalmaz.
func (s *State) ReplaceConversation(peerID string, page *models.MessagePage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = peerID
	s.messages = nil
	if page != nil {
		s.messages = slices.Clone(page.Messages)
	}
	delete(s.unread, peerID)
}

// mergeMessages, mu tutulurken çağrılır. Sonuç CreatedAt, sonra ID sırasındadır.
func (s *State) mergeMessages(page []models.Message) {
	for _, msg := range page {
		i := s.indexOf(msg.ID)
		switch {
		case i < 0:
			s.messages = append(s.messages, msg)
		case msg.Version >= s.messages[i].Version:
			s.messages[i] = msg
		}
	}
	slices.SortStableFunc(s.messages, func(a, b models.Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// ─── Event uygulama ───

// Apply, sunucudan gelen tek bir event'i yerel state'e uygular.
func (s *State) Apply(f Frame) Action {
	switch f.Op {
	case ws.OpMessage:
		var msg models.Message
		if !decode(f, &msg) {
			return Action{}
		}
		return s.applyMessage(&msg)

	case ws.OpMessageUpdate:
		var data ws.MessageUpdateData
		if !decode(f, &data) || data.Message == nil {
			return Action{}
		}
		s.applyUpdate(data.Action, data.Message)

	case ws.OpOnlineUsers:
		var ids []string
		if !decode(f, &ids) {
			return Action{}
		}
		s.mu.Lock()
		s.online = make(map[string]bool, len(ids))
		for _, id := range ids {
			s.online[id] = true
		}
		s.mu.Unlock()

	case ws.OpUserTyping:
		var data ws.UserTypingData
		if !decode(f, &data) {
			return Action{}
		}
		s.mu.Lock()
		s.typing[data.UserID] = data.IsTyping
		s.mu.Unlock()

	case ws.OpRefreshUserList:
		return Action{RefreshSidebar: true}

	case ws.OpEntityChanged:
		var data ws.EntityChangedData
		if !decode(f, &data) {
			return Action{}
		}
		if data.Kind == "message" && data.Action == ws.ActionDelivered {
			s.markDelivered(data.UserID)
			return Action{}
		}
		if data.Kind == "user" && data.Action == ws.ActionStatus {
			s.mu.Lock()
			s.statuses[data.UserID] = userStatus{status: data.Status, custom: data.CustomStatus}
			s.mu.Unlock()
			return Action{}
		}
		return Action{RefreshSidebar: true}

	case ws.OpNotification:
		var data struct {
			Type       string    `json:"type"`
			ReaderID   string    `json:"readerId"`
			MessageIDs []string  `json:"messageIds"`
			SeenAt     time.Time `json:"seenAt"`
		}
		if !decode(f, &data) {
			return Action{}
		}
		if data.Type == ws.NotifyMessagesRead {
			s.markRead(data.MessageIDs, data.SeenAt)
		}
	}
	return Action{}
}

// applyMessage: aynı ID ikinci kez gelirse atılır. Aktif konuşmaya aitse
// listeye eklenir (gelen mesajsa okundu işaretlenir), değilse unread artar.
func (s *State) applyMessage(msg *models.Message) Action {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(msg.ID) >= 0 {
		return Action{}
	}
	peer := msg.Peer(s.selfID)
	incoming := msg.ReceiverID == s.selfID
	if incoming {
		s.typing[peer] = false
	}

	if peer == s.active {
		s.messages = append(s.messages, *msg)
		if incoming {
			return Action{MarkSeenPeer: peer}
		}
		return Action{}
	}

	if incoming {
		s.unread[peer]++
	}
	return Action{RefreshSidebar: true}
}

func (s *State) applyUpdate(action string, msg *models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(msg.ID)
	if i < 0 {
		return
	}
	if action == ws.ActionDeleted || msg.IsDeleted {
		s.messages = slices.Delete(s.messages, i, i+1)
		return
	}
	// Eski version'lı update sırası karışmış olabilir; yenisini ezmesin.
	if msg.Version < s.messages[i].Version {
		return
	}
	s.messages[i] = *msg
}

// markDelivered, peer'a gönderilmiş mesajları iletildi yapar.
func (s *State) markDelivered(peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if peerID != s.active {
		return
	}
	for i := range s.messages {
		if s.messages[i].SenderID == s.selfID {
			s.messages[i].Delivered = true
		}
	}
}

func (s *State) markRead(ids []string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if i := s.indexOf(id); i >= 0 {
			s.messages[i].Seen = true
			s.messages[i].Delivered = true
			s.messages[i].SeenAt = &at
		}
	}
}

// indexOf, mu tutulurken çağrılır.
func (s *State) indexOf(id string) int {
	return slices.IndexFunc(s.messages, func(m models.Message) bool { return m.ID == id })
}

func decode(f Frame, dst any) bool {
	if len(f.Data) == 0 {
		return false
	}
	if err := json.Unmarshal(f.Data, dst); err != nil {
		log.Printf("[client] malformed %s event: %v", f.Op, err)
		return false
	}
	return true
}
