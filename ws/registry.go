package ws

import (
	"iter"
	"slices"
	"sync"
)

// Conn, Registry'nin bildiği canlı bağlantı handle'ı.
//
// Client bu interface'i karşılar; testlerde gerçek WebSocket olmadan
// fake bir Conn kullanılabilir.
type Conn interface {
	// ID, bağlantıya özgü sabit kimlik (uuid).
	ID() string
	// UserID, bağlantının sahibi olan doğrulanmış kullanıcı.
	UserID() string
	// Send, hazır JSON'u bağlantının buffer'ına koyar. Buffer doluysa false döner.
	Send(data []byte) bool
	// Close, bağlantıyı kapatır. Birden fazla çağrı güvenlidir.
	Close()
}

// Registry, kullanıcı → canlı bağlantılar eşlemesidir.
//
// Bir kullanıcı en az bir bağlantısı varsa online'dır. Aynı kullanıcı birden
// fazla tab/cihazdan bağlanabilir; her bağlantı ayrı bir entry'dir.
//
// Tüm map mutasyonları tek bir write lock altında serileştirilir.
// Okumalar (IsOnline, OnlineUserIDs) RLock ile paralel çalışır.
type Registry struct {
	mu sync.RWMutex

	// conns: userID → connID → Conn
	conns map[string]map[string]Conn

	// owners: connID → userID. Unregister handle'dan kullanıcıyı bulur.
	owners map[string]string

	// viewing: connID → o bağlantının açık tuttuğu konuşmanın peerID'si.
	viewing map[string]string
}

// NewRegistry, boş bir Registry oluşturur. main'de bir kez kurulur.
func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]map[string]Conn),
		owners:  make(map[string]string),
		viewing: make(map[string]string),
	}
}

// Register, bağlantıyı kullanıcıya ekler.
//
// Aynı handle ikinci kez verilirse hiçbir şey değişmez (idempotent).
// first: bu bağlantı kullanıcının ilk bağlantısıysa true (offline → online geçişi).
func (r *Registry) Register(userID string, conn Conn) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.owners[conn.ID()]; exists {
		return false
	}

	userConns, ok := r.conns[userID]
	if !ok {
		userConns = make(map[string]Conn)
		r.conns[userID] = userConns
	}
	userConns[conn.ID()] = conn
	r.owners[conn.ID()] = userID

	return len(userConns) == 1
}

// Unregister, tam olarak bu bağlantının entry'sini siler.
//
// Bağlantı kayıtlı değilse no-op'tur ve userID boş döner.
// last: kullanıcının başka bağlantısı kalmadıysa true (online → offline geçişi).
func (r *Registry) Unregister(conn Conn) (userID string, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owners[conn.ID()]
	if !ok {
		return "", false
	}

	delete(r.owners, conn.ID())
	delete(r.viewing, conn.ID())

	userConns := r.conns[userID]
	delete(userConns, conn.ID())
	if len(userConns) == 0 {
		delete(r.conns, userID)
		return userID, true
	}
	return userID, false
}

// IsOnline, kullanıcının en az bir canlı bağlantısı olup olmadığını döner.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// ConnectionsFor, kullanıcının bağlantıları üzerinde lazy bir sequence döner.
//
// Her iterasyon başında o anki bağlantıların bir kopyası alınır ve lock
// bırakılır; yield içinde Registry'ye tekrar girmek deadlock yaratmaz.
// Sequence yeniden başlatılabilir; her başlatma güncel durumu görür.
// Kullanıcı offline ise boş sequence döner.
func (r *Registry) ConnectionsFor(userID string) iter.Seq[Conn] {
	return func(yield func(Conn) bool) {
		for _, c := range r.snapshot(userID) {
			if !yield(c) {
				return
			}
		}
	}
}

func (r *Registry) snapshot(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userConns := r.conns[userID]
	if len(userConns) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(userConns))
	for _, c := range userConns {
		out = append(out, c)
	}
	return out
}

// allConnections, tüm bağlantıların kopyasını döner (broadcast için).
func (r *Registry) allConnections() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conn, 0, len(r.owners))
	for _, userConns := range r.conns {
		for _, c := range userConns {
			out = append(out, c)
		}
	}
	return out
}

// OnlineUserIDs, online kullanıcıların ID'lerini sıralı döner.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		ids = append(ids, userID)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// SetViewing, bağlantının şu an hangi konuşmayı açık tuttuğunu kaydeder.
// Boş peerID "hiçbir konuşma açık değil" demektir. Kayıtlı olmayan bağlantı için no-op.
func (r *Registry) SetViewing(conn Conn, peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owners[conn.ID()]; !ok {
		return
	}
	if peerID == "" {
		delete(r.viewing, conn.ID())
		return
	}
	r.viewing[conn.ID()] = peerID
}

// IsViewing, kullanıcının herhangi bir bağlantısında peerID ile olan
// konuşmanın açık olup olmadığını döner. Unread sayacı bu durumda artırılmaz.
func (r *Registry) IsViewing(userID, peerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connID := range r.conns[userID] {
		if r.viewing[connID] == peerID {
			return true
		}
	}
	return false
}

// Len, toplam canlı bağlantı sayısını döner.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}
