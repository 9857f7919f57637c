package handlers

import (
	"net/http"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/services"
)

// UserHandler, kullanıcının kendi durumu ve şikayet endpoint'leri.
type UserHandler struct {
	statusService services.StatusService
	reportService services.ReportService
}

// NewUserHandler, constructor.
func NewUserHandler(statusService services.StatusService, reportService services.ReportService) *UserHandler {
	return &UserHandler{statusService: statusService, reportService: reportService}
}

// SetStatus godoc
// PUT /api/users/me/status
// Body: { "status": "away", "customStatus": "lunch" }
func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.SetStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.statusService.SetStatus(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, updated)
}

// ReportUser godoc
// POST /api/users/report/{userId}
// Body: { "reason": "spam", "description": "..." }
func (h *UserHandler) ReportUser(w http.ResponseWriter, r *http.Request) {
	h.report(w, r, models.ReportScopeUser)
}

// ReportChat godoc
// POST /api/users/chat/report/{userId}
func (h *UserHandler) ReportChat(w http.ResponseWriter, r *http.Request) {
	h.report(w, r, models.ReportScopeChat)
}

func (h *UserHandler) report(w http.ResponseWriter, r *http.Request, scope models.ReportScope) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.ReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := h.reportService.Report(r.Context(), user.ID, r.PathValue("userId"), scope, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, report)
}
