package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/services"
)

// MessageHandler, /api/messages endpoint'lerini yönetir.
type MessageHandler struct {
	messageService services.MessageService
	sidebarService services.SidebarService
}

// NewMessageHandler, constructor.
func NewMessageHandler(messageService services.MessageService, sidebarService services.SidebarService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		sidebarService: sidebarService,
	}
}

// decodeJSON, body'yi parse eder; hatalıysa 400 yazar.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// queryInt, query parametresini int olarak okur; yoksa veya geçersizse 0.
func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// ─── Okuma ───

// Sidebar godoc
// GET /api/messages/users
// Kişi listesi + okunmamış sayaç haritası.
func (h *MessageHandler) Sidebar(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	sidebar, err := h.sidebarService.Sidebar(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, sidebar)
}

// GetConversation godoc
// GET /api/messages/{peerId}?before=&limit=
// Konuşmayı cursor-based pagination ile döner. Mesajları okundu işaretlemez;
// client bunun için ayrıca /seen çağırır.
func (h *MessageHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	page, err := h.messageService.GetConversation(r.Context(), user.ID, r.PathValue("peerId"),
		r.URL.Query().Get("before"), queryInt(r, "limit"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, page)
}

// GetByID godoc
// GET /api/messages/id/{id}
// Silinmiş mesajlar da döner (isDeleted: true).
func (h *MessageHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	msg, err := h.messageService.GetByID(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, msg)
}

// Search godoc
// GET /api/messages/search?q=&peerId=&limit=
func (h *MessageHandler) Search(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	results, err := h.messageService.Search(r.Context(), user.ID, q.Get("q"), q.Get("peerId"), queryInt(r, "limit"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, results)
}

// Stats godoc
// GET /api/messages/stats/{peerId}
func (h *MessageHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	stats, err := h.messageService.Stats(r.Context(), user.ID, r.PathValue("peerId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, stats)
}

// ─── Gönderim ───

// Send godoc
// POST /api/messages/send/{peerId}
// Body: { "content": { "type": "text", "text": "..." }, "priority": "normal" }
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.messageService.Send(r.Context(), user.ID, r.PathValue("peerId"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, msg)
}

// Reply godoc
// POST /api/messages/reply/{id}
func (h *MessageHandler) Reply(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.messageService.Reply(r.Context(), r.PathValue("id"), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, msg)
}

// Forward godoc
// POST /api/messages/forward/{id}
// Body: { "targetUserId": "..." }
func (h *MessageHandler) Forward(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.ForwardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.messageService.Forward(r.Context(), r.PathValue("id"), user.ID, req.TargetUserID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, msg)
}

// ─── Değişiklik ───

// Edit godoc
// PUT /api/messages/edit/{id}
// Body: { "text": "...", "version": 3 }. Version verilirse uyuşmazlıkta 409 döner.
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.EditMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.messageService.Edit(r.Context(), r.PathValue("id"), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, msg)
}

// Delete godoc
// DELETE /api/messages/delete/{id}
// Soft delete: kayıt isDeleted=true ile kalır.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	msg, err := h.messageService.Delete(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, msg)
}

// React godoc
// POST /api/messages/react/{id}
// Body: { "emoji": "👍" }. Kullanıcının önceki tepkisinin yerini alır.
func (h *MessageHandler) React(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.ReactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.messageService.React(r.Context(), r.PathValue("id"), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, msg)
}

// Unreact godoc
// DELETE /api/messages/react/{id}
func (h *MessageHandler) Unreact(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	msg, err := h.messageService.Unreact(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, msg)
}

// ─── Okundu / İletildi ───

// MarkSeen godoc
// POST /api/messages/seen/{peerId}
// Peer'dan gelen tüm okunmamış mesajları okundu işaretler.
func (h *MessageHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	receipt, err := h.messageService.MarkSeen(r.Context(), r.PathValue("peerId"), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, receipt)
}

// MarkOne godoc
// PUT /api/messages/mark/{id}
func (h *MessageHandler) MarkOne(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	msg, err := h.messageService.MarkOneSeen(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, msg)
}
