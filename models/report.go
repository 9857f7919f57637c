package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akinalp/dmrelay/pkg"
)

// ReportScope, şikayetin neye yönelik olduğu.
type ReportScope string

const (
	ReportScopeUser ReportScope = "user" // Kullanıcının kendisi (profil, davranış)
	ReportScopeChat ReportScope = "chat" // Kullanıcıyla olan sohbetin içeriği
)

const (
	maxReportReasonLength      = 64
	maxReportDescriptionLength = 1000
)

// Report, bir kullanıcının başka bir kullanıcı hakkındaki şikayeti.
//
// (ReporterID, TargetUserID, Scope) başına tek kayıt tutulur; tekrar
// şikayet reason/description ve CreatedAt'i günceller.
type Report struct {
	ID           string      `json:"id"`
	ReporterID   string      `json:"reporterId"`
	TargetUserID string      `json:"targetUserId"`
	Scope        ReportScope `json:"scope"`
	Reason       string      `json:"reason"`
	Description  *string     `json:"description"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// ReportRequest, POST /api/users/report/{userId} ve
// POST /api/users/chat/report/{userId} body'si.
type ReportRequest struct {
	Reason      string  `json:"reason"`
	Description *string `json:"description"`
}

// Validate, reason'ı zorunlu tutar, alanları trim eder; boş description nil olur.
func (r *ReportRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return fmt.Errorf("%w: reason is required", pkg.ErrBadRequest)
	}
	if utf8.RuneCountInString(r.Reason) > maxReportReasonLength {
		return fmt.Errorf("%w: reason must be at most %d characters", pkg.ErrBadRequest, maxReportReasonLength)
	}
	if r.Description != nil {
		d := strings.TrimSpace(*r.Description)
		switch {
		case d == "":
			r.Description = nil
		case utf8.RuneCountInString(d) > maxReportDescriptionLength:
			return fmt.Errorf("%w: description must be at most %d characters", pkg.ErrBadRequest, maxReportDescriptionLength)
		default:
			r.Description = &d
		}
	}
	return nil
}
