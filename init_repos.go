// Package main: Repository katmanı başlatma.
//
// initRepositories, tüm repository implementasyonlarını oluşturur.
// Her repository aynı *sql.DB bağlantısını alır ve interface döner.
package main

import (
	"database/sql"

	"github.com/akinalp/dmrelay/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
type Repositories struct {
	User     repository.UserRepository
	Message  repository.MessageRepository
	Unread   repository.UnreadRepository
	Relation repository.RelationRepository
	Report   repository.ReportRepository
}

// initRepositories, veritabanı bağlantısından tüm repository'leri oluşturur.
//
// sql.DB thread-safe bir connection pool'dur, paylaşılması güvenlidir.
func initRepositories(conn *sql.DB) *Repositories {
	return &Repositories{
		User:     repository.NewSQLiteUserRepo(conn),
		Message:  repository.NewSQLiteMessageRepo(conn),
		Unread:   repository.NewSQLiteUnreadRepo(conn),
		Relation: repository.NewSQLiteRelationRepo(conn),
		Report:   repository.NewSQLiteReportRepo(conn),
	}
}
