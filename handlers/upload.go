package handlers

import (
	"errors"
	"net/http"

	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/services"
)

// UploadHandler, medya yükleme ve servis etme endpoint'leri.
type UploadHandler struct {
	uploadService services.UploadService
	maxUploadSize int64
}

// NewUploadHandler, constructor.
// maxUploadSize, multipart body için üst sınırdır (form overhead'i için +1MB eklenir).
func NewUploadHandler(uploadService services.UploadService, maxUploadSize int64) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		maxUploadSize: maxUploadSize,
	}
}

// Upload godoc
// POST /api/uploads
// Content-Type: multipart/form-data, alan adı "file".
// Response: MediaUpload { url, name, size, type }
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			pkg.ErrorWithMessage(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	media, err := h.uploadService.Upload(r.Context(), user.ID, file, header)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, media)
}

// Serve godoc
// GET /api/uploads/{name}
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	path, err := h.uploadService.Path(r.PathValue("name"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, path)
}
