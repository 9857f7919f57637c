package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
)

// UploadService, medya dosyalarını yerel diske kaydeden blob store.
//
// Dönen MediaUpload, client tarafından bir content variant'ına
// (image/file/audio/video) gömülür; mesaj kaydı sadece URL'yi tutar.
type UploadService interface {
	Upload(ctx context.Context, uploaderID string, file io.Reader, header *multipart.FileHeader) (*models.MediaUpload, error)
	// Path, yüklenmiş dosyanın disk yolunu döner. Geçersiz veya olmayan ad için ErrNotFound.
	Path(name string) (string, error)
}

type uploadService struct {
	uploadDir string
	publicURL string
	maxSize   int64
}

// NewUploadService, constructor. uploadDir yoksa oluşturulur.
//
// publicURL, dönen URL'lerin önekidir (ör: "/api/uploads" veya CDN adresi).
func NewUploadService(uploadDir, publicURL string, maxSize int64) (UploadService, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &uploadService{
		uploadDir: uploadDir,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxSize:   maxSize,
	}, nil
}

// allowedMimeTypes, yüklemeye izin verilen dosya türleri.
var allowedMimeTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"image/webp":         true,
	"video/mp4":          true,
	"video/webm":         true,
	"video/quicktime":    true,
	"audio/mpeg":         true,
	"audio/ogg":          true,
	"audio/webm":         true,
	"audio/wav":          true,
	"audio/mp4":          true,
	"application/pdf":    true,
	"application/zip":    true,
	"text/plain":         true,
	"application/msword": true,
}

// Upload, dosyayı doğrular ve diske kaydeder.
//
// Disk adı uuid + orijinal uzantıdır; orijinal ad sadece MediaUpload.Name'de taşınır.
// Header boyutu yalan söyleyebilir; kopyalama sırasında limit tekrar kontrol edilir.
func (s *uploadService) Upload(ctx context.Context, uploaderID string, file io.Reader, header *multipart.FileHeader) (*models.MediaUpload, error) {
	if header.Size > s.maxSize {
		return nil, fmt.Errorf("%w: file too large (max %dMB)", pkg.ErrBadRequest, s.maxSize/(1024*1024))
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	mimeBase, _, _ := strings.Cut(contentType, ";")
	mimeBase = strings.TrimSpace(mimeBase)

	if !allowedMimeTypes[mimeBase] {
		return nil, fmt.Errorf("%w: file type not allowed: %s", pkg.ErrBadRequest, mimeBase)
	}

	originalName := sanitizeFilename(header.Filename)
	diskName := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	destPath := filepath.Join(s.uploadDir, diskName)

	destFile, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer destFile.Close()

	written, err := io.Copy(destFile, io.LimitReader(file, s.maxSize+1))
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if written > s.maxSize {
		os.Remove(destPath)
		return nil, fmt.Errorf("%w: file too large (max %dMB)", pkg.ErrBadRequest, s.maxSize/(1024*1024))
	}

	log.Printf("[uploads] user %s uploaded %s (%d bytes, %s)", uploaderID, diskName, written, mimeBase)

	return &models.MediaUpload{
		URL:      s.publicURL + "/" + diskName,
		Name:     originalName,
		Size:     written,
		MimeType: mimeBase,
	}, nil
}

func (s *uploadService) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: upload not found", pkg.ErrNotFound)
	}
	p := filepath.Join(s.uploadDir, name)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: upload not found", pkg.ErrNotFound)
	}
	return p, nil
}

// sanitizeFilename, dosya adından dizin yolunu ve tehlikeli karakterleri kaldırır.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\x00' {
			return -1
		}
		return r
	}, name)

	if name == "" || name == "." || name == ".." {
		name = "unnamed"
	}
	return name
}
