// Package models: Sesli/görüntülü arama domain modeli.
//
// Arama state'i ephemeral'dir (in-memory), DB'ye kaydedilmez.
// Medya LiveKit üzerinden akar; sunucu sadece istek/yanıt bildirimlerini
// iletir ve kabul edilen aramalar için room token üretir.
package models

import "time"

// CallType, arama türü.
type CallType string

const (
	CallTypeVoice CallType = "voice"
	CallTypeVideo CallType = "video"
)

// CallStatus, arama durumu.
type CallStatus string

const (
	CallStatusRinging CallStatus = "ringing"
	CallStatusActive  CallStatus = "active"
)

// Call, iki kullanıcı arasındaki bir arama.
type Call struct {
	ID         string     `json:"id"`
	CallerID   string     `json:"callerId"`
	ReceiverID string     `json:"receiverId"`
	Type       CallType   `json:"callType"`
	Status     CallStatus `json:"status"`
	Room       string     `json:"room"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Peer, verilen katılımcının karşı tarafını döner.
func (c *Call) Peer(userID string) string {
	if c.CallerID == userID {
		return c.ReceiverID
	}
	return c.CallerID
}

// CallToken, kabul edilen arama için bir katılımcıya verilen LiveKit bilgisi.
type CallToken struct {
	CallID string `json:"callId"`
	Room   string `json:"room"`
	URL    string `json:"url"`
	Token  string `json:"token"`
}
