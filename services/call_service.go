package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"

	"github.com/akinalp/dmrelay/config"
	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/ws"
)

// ─── ISP Interface'leri ───
//
// CallService tam repository'ler yerine sadece ihtiyaç duyduğu metodlara bağımlıdır.

// RelationReader, iki kullanıcı arasındaki ilişki bayraklarını okuyan minimal interface.
// repository.RelationRepository bu interface'i karşılar.
type RelationReader interface {
	FlagsFor(ctx context.Context, userID, peerID string) (models.RelationFlags, error)
}

// UserInfoGetter, kullanıcı bilgisi almak için minimal interface.
type UserInfoGetter interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// callTokenTTL: kabul edilen arama için üretilen LiveKit token'ının geçerlilik süresi.
const callTokenTTL = 2 * time.Hour

// CallService, iki kullanıcı arasındaki sesli/görüntülü arama bildirimlerini yönetir.
//
// State ephemeral'dir (in-memory):
//   - activeCalls: callID → *Call
//   - userCalls:   userID → callID (kullanıcı başına en fazla bir arama)
//
// Akış:
//  1. Caller → callRequest → receiver'a notification {type: callRequest}
//  2. Receiver → callResponse{accepted} → iki tarafa kendi LiveKit token'ı ile callAccepted
//  3. Herhangi bir taraf → callEnd → karşı tarafa callEnded
//
// Medya LiveKit üzerinden akar; sunucu sadece bildirim ve token üretir.
type CallService interface {
	Request(callerID string, data ws.CallRequestData) error
	Respond(userID string, data ws.CallResponseData) error
	End(userID string, data ws.CallEndData) error
	HandleDisconnect(userID string)
	ActiveCall(userID string) *models.Call
}

type callService struct {
	relations  RelationReader
	userGetter UserInfoGetter
	hub        ws.EventPublisher
	livekitCfg config.LiveKitConfig

	activeCalls map[string]*models.Call
	userCalls   map[string]string
	mu          sync.RWMutex
}

// NewCallService, constructor.
func NewCallService(
	relations RelationReader,
	userGetter UserInfoGetter,
	hub ws.EventPublisher,
	livekitCfg config.LiveKitConfig,
) CallService {
	return &callService{
		relations:   relations,
		userGetter:  userGetter,
		hub:         hub,
		livekitCfg:  livekitCfg,
		activeCalls: make(map[string]*models.Call),
		userCalls:   make(map[string]string),
	}
}

// Request, yeni bir arama başlatır.
//
// Kontroller:
//  1. Kendini arayamaz, arama türü voice/video olmalı
//  2. Taraflardan biri diğerini engellediyse caller'a callUnavailable
//  3. Receiver offline ise caller'a callUnavailable
//  4. Caller aramadaysa hata, receiver aramadaysa caller'a callBusy
func (s *callService) Request(callerID string, data ws.CallRequestData) error {
	receiverID := data.ReceiverID
	callType := models.CallType(data.CallType)

	if callerID == receiverID {
		return fmt.Errorf("%w: cannot call yourself", pkg.ErrBadRequest)
	}
	if callType != models.CallTypeVoice && callType != models.CallTypeVideo {
		return fmt.Errorf("%w: unknown call type %q", pkg.ErrBadRequest, data.CallType)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	blocked, err := s.blockedEitherWay(ctx, callerID, receiverID)
	if err != nil {
		return err
	}
	if blocked {
		s.notify(callerID, ws.NotifyCallUnavailable, map[string]any{"receiverId": receiverID, "reason": "blocked"})
		return fmt.Errorf("%w: user is not reachable", pkg.ErrForbidden)
	}

	if !s.hub.IsOnline(receiverID) {
		s.notify(callerID, ws.NotifyCallUnavailable, map[string]any{"receiverId": receiverID, "reason": "offline"})
		return fmt.Errorf("%w: user is offline", pkg.ErrBadRequest)
	}

	caller, err := s.userGetter.GetByID(ctx, callerID)
	if err != nil {
		return err
	}

	call := &models.Call{
		ID:         uuid.NewString(),
		CallerID:   callerID,
		ReceiverID: receiverID,
		Type:       callType,
		Status:     models.CallStatusRinging,
		CreatedAt:  time.Now().UTC(),
	}
	call.Room = "call-" + call.ID

	s.mu.Lock()
	_, callerBusy := s.userCalls[callerID]
	_, receiverBusy := s.userCalls[receiverID]
	if !callerBusy && !receiverBusy {
		s.activeCalls[call.ID] = call
		s.userCalls[callerID] = call.ID
		s.userCalls[receiverID] = call.ID
	}
	s.mu.Unlock()

	if callerBusy {
		return fmt.Errorf("%w: already in a call", pkg.ErrBadRequest)
	}
	if receiverBusy {
		s.notify(callerID, ws.NotifyCallBusy, map[string]any{"receiverId": receiverID})
		return fmt.Errorf("%w: user is busy", pkg.ErrBadRequest)
	}

	log.Printf("[calls] call requested: %s → %s (type=%s, id=%s)", callerID, receiverID, callType, call.ID)

	payload := map[string]any{
		"callId":     call.ID,
		"callerId":   callerID,
		"callerName": caller.Name(),
		"receiverId": receiverID,
		"callType":   call.Type,
	}
	s.notify(receiverID, ws.NotifyCallRequest, payload)
	s.notify(callerID, ws.NotifyCallRequest, payload)
	return nil
}

// Respond, gelen aramaya yanıt verir.
//
// Kabul sadece receiver tarafından yapılabilir. Red her iki taraftan gelebilir;
// caller'ın reddi çalan aramanın iptalidir.
func (s *callService) Respond(userID string, data ws.CallResponseData) error {
	s.mu.Lock()
	call, exists := s.activeCalls[data.CallID]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: call not found", pkg.ErrNotFound)
	}
	if call.CallerID != userID && call.ReceiverID != userID {
		s.mu.Unlock()
		return fmt.Errorf("%w: not part of this call", pkg.ErrForbidden)
	}
	if call.Status != models.CallStatusRinging {
		s.mu.Unlock()
		return fmt.Errorf("%w: call is not ringing", pkg.ErrInvalidState)
	}

	if !data.Accepted {
		s.removeLocked(call)
		s.mu.Unlock()

		log.Printf("[calls] call declined: %s declined call %s", userID, call.ID)
		s.notifyBoth(call, ws.NotifyCallDeclined, map[string]any{"callId": call.ID, "by": userID})
		return nil
	}

	if call.ReceiverID != userID {
		s.mu.Unlock()
		return fmt.Errorf("%w: only the receiver can accept", pkg.ErrForbidden)
	}
	call.Status = models.CallStatusActive
	s.mu.Unlock()

	callerToken, err := s.mintToken(call, call.CallerID)
	if err == nil {
		var receiverToken *models.CallToken
		receiverToken, err = s.mintToken(call, call.ReceiverID)
		if err == nil {
			log.Printf("[calls] call accepted: %s", call.ID)
			s.notify(call.CallerID, ws.NotifyCallAccepted, tokenFields(callerToken))
			s.notify(call.ReceiverID, ws.NotifyCallAccepted, tokenFields(receiverToken))
			return nil
		}
	}

	s.cleanupCall(call.ID)
	s.notifyBoth(call, ws.NotifyCallEnded, map[string]any{"callId": call.ID, "reason": "error"})
	return err
}

// End, aramayı sonlandırır. CallID boşsa kullanıcının aktif araması kullanılır.
func (s *callService) End(userID string, data ws.CallEndData) error {
	s.mu.Lock()
	callID := data.CallID
	if callID == "" {
		callID = s.userCalls[userID]
	}
	call, exists := s.activeCalls[callID]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: call not found", pkg.ErrNotFound)
	}
	if call.CallerID != userID && call.ReceiverID != userID {
		s.mu.Unlock()
		return fmt.Errorf("%w: not part of this call", pkg.ErrForbidden)
	}
	s.removeLocked(call)
	s.mu.Unlock()

	log.Printf("[calls] call ended: %s ended call %s", userID, call.ID)
	s.notify(call.Peer(userID), ws.NotifyCallEnded, map[string]any{"callId": call.ID, "by": userID})
	return nil
}

// HandleDisconnect, kullanıcı tamamen offline olduğunda çağrılır.
// Aktif araması varsa temizler ve karşı tarafa bildirir.
func (s *callService) HandleDisconnect(userID string) {
	s.mu.Lock()
	call, exists := s.activeCalls[s.userCalls[userID]]
	if !exists {
		s.mu.Unlock()
		return
	}
	s.removeLocked(call)
	s.mu.Unlock()

	log.Printf("[calls] call ended due to disconnect: user=%s, call=%s", userID, call.ID)
	s.notify(call.Peer(userID), ws.NotifyCallEnded, map[string]any{"callId": call.ID, "reason": "disconnect"})
}

// ActiveCall, kullanıcının aktif aramasının kopyasını döner (nil = aramada değil).
func (s *callService) ActiveCall(userID string) *models.Call {
	s.mu.RLock()
	defer s.mu.RUnlock()

	call, ok := s.activeCalls[s.userCalls[userID]]
	if !ok {
		return nil
	}
	cp := *call
	return &cp
}

// ─── Private Helpers ───

func (s *callService) blockedEitherWay(ctx context.Context, a, b string) (bool, error) {
	ab, err := s.relations.FlagsFor(ctx, a, b)
	if err != nil {
		return false, err
	}
	if ab.Blocked {
		return true, nil
	}
	ba, err := s.relations.FlagsFor(ctx, b, a)
	if err != nil {
		return false, err
	}
	return ba.Blocked, nil
}

// mintToken, kullanıcıya arama odası için LiveKit token'ı üretir.
func (s *callService) mintToken(call *models.Call, userID string) (*models.CallToken, error) {
	canPublish := true
	canSubscribe := true
	canPublishData := true

	at := auth.NewAccessToken(s.livekitCfg.APIKey, s.livekitCfg.APISecret)
	at.AddGrant(&auth.VideoGrant{
		RoomJoin:       true,
		Room:           call.Room,
		CanPublish:     &canPublish,
		CanSubscribe:   &canSubscribe,
		CanPublishData: &canPublishData,
	}).
		SetIdentity(userID).
		SetValidFor(callTokenTTL)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("failed to generate livekit token: %w", err)
	}

	return &models.CallToken{
		CallID: call.ID,
		Room:   call.Room,
		URL:    s.livekitCfg.URL,
		Token:  token,
	}, nil
}

func tokenFields(t *models.CallToken) map[string]any {
	return map[string]any{
		"callId": t.CallID,
		"room":   t.Room,
		"url":    t.URL,
		"token":  t.Token,
	}
}

func (s *callService) notify(userID, kind string, fields map[string]any) {
	s.hub.EmitTo(userID, ws.Event{Op: ws.OpNotification, Data: ws.Notification(kind, fields)})
}

func (s *callService) notifyBoth(call *models.Call, kind string, fields map[string]any) {
	s.hub.EmitToMany([]string{call.CallerID, call.ReceiverID}, ws.Event{
		Op:   ws.OpNotification,
		Data: ws.Notification(kind, fields),
	})
}

// removeLocked, aramayı state'ten siler. s.mu tutulurken çağrılmalı.
func (s *callService) removeLocked(call *models.Call) {
	delete(s.activeCalls, call.ID)
	if s.userCalls[call.CallerID] == call.ID {
		delete(s.userCalls, call.CallerID)
	}
	if s.userCalls[call.ReceiverID] == call.ID {
		delete(s.userCalls, call.ReceiverID)
	}
}

// cleanupCall, hata durumunda call state'ini temizler.
func (s *callService) cleanupCall(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if call, ok := s.activeCalls[callID]; ok {
		s.removeLocked(call)
	}
}
