package repository

import (
	"context"

	"github.com/akinalp/dmrelay/models"
)

// ReportRepository, kullanıcı/sohbet şikayetleri.
//
// Upsert aynı (reporter, target, scope) için mevcut kaydı günceller;
// report.ID ve CreatedAt saklanan değerle doldurulur.
type ReportRepository interface {
	Upsert(ctx context.Context, report *models.Report) error
	ListRecent(ctx context.Context, limit int) ([]models.Report, error)
}
