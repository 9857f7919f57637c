package handlers

import (
	"net/http"

	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/services"
)

// AdminHandler, platform admin endpoint'leri.
// Route'lar PlatformAdminMiddleware arkasında kayıtlıdır.
type AdminHandler struct {
	moderationService services.ModerationService
	reportService     services.ReportService
}

// NewAdminHandler, constructor.
func NewAdminHandler(moderationService services.ModerationService, reportService services.ReportService) *AdminHandler {
	return &AdminHandler{moderationService: moderationService, reportService: reportService}
}

// SetModeration godoc
// PUT /api/admin/users/{id}/moderation
// Body: { "banned": true, "muted": false }
func (h *AdminHandler) SetModeration(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req services.ModerationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.moderationService.SetModeration(r.Context(), admin.ID, r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, user)
}

// ListReports godoc
// GET /api/admin/reports?limit=
// En yeni şikayetler önce.
func (h *AdminHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reportService.ListRecent(r.Context(), queryInt(r, "limit"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, reports)
}
