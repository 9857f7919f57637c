// Package email, offline alıcılara "kaçırılan mesaj" bildirimi gönderir.
//
// EmailSender interface'i gönderim detayını soyutlar. Üretimde Resend API
// kullanılır; API key tanımlı değilse NoopSender ile email kapalıdır.
package email

import (
	"context"
	"fmt"
	"html"
	"log"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v3"
)

// MissedMessage, email şablonuna giren alanlar.
type MissedMessage struct {
	RecipientName string
	SenderName    string
	SenderID      string
	Preview       string
	Count         int // aynı pencere içinde birikmiş okunmamış mesaj sayısı
}

// EmailSender, email gönderimi için interface.
type EmailSender interface {
	SendMissedMessage(ctx context.Context, toEmail string, msg MissedMessage) error
}

// resendSender, Resend API ile gönderen EmailSender implementasyonu.
type resendSender struct {
	client    *resend.Client
	fromEmail string
	appURL    string
}

// NewResendSender, Resend client'ı ile yeni bir EmailSender oluşturur.
//
// fromEmail Resend'de doğrulanmış bir domain altında olmalı.
// appURL konuşma linklerinde kullanılır.
func NewResendSender(apiKey, fromEmail, appURL string) EmailSender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		appURL:    strings.TrimRight(appURL, "/"),
	}
}

func (s *resendSender) SendMissedMessage(ctx context.Context, toEmail string, msg MissedMessage) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("dmrelay <%s>", s.fromEmail),
		To:      []string{toEmail},
		Subject: Subject(msg),
		Html:    RenderMissedMessage(s.appURL, msg),
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send missed message email: %w", err)
	}
	return nil
}

// Subject, email konu satırını üretir.
func Subject(msg MissedMessage) string {
	if msg.Count > 1 {
		return fmt.Sprintf("%d new messages from %s", msg.Count, msg.SenderName)
	}
	return fmt.Sprintf("New message from %s", msg.SenderName)
}

// RenderMissedMessage, email HTML gövdesini üretir.
// Kullanıcı içeriği (isimler, önizleme) HTML-escape edilir.
func RenderMissedMessage(appURL string, msg MissedMessage) string {
	link := fmt.Sprintf("%s/messages/%s", appURL, url.PathEscape(msg.SenderID))

	more := ""
	if msg.Count > 1 {
		more = fmt.Sprintf(`<p style="color:#64748b;font-size:13px;margin:0 0 16px 0;">and %d more</p>`, msg.Count-1)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#1a1a2e;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="padding:40px 0;">
    <tr>
      <td align="center">
        <table width="480" cellpadding="0" cellspacing="0" style="background-color:#16213e;border-radius:8px;padding:40px;">
          <tr>
            <td>
              <p style="color:#94a3b8;font-size:15px;margin:0 0 8px 0;">Hi %s,</p>
              <h2 style="color:#e2e8f0;font-size:18px;margin:0 0 16px 0;">%s sent you a message</h2>
              <blockquote style="color:#e2e8f0;font-size:15px;line-height:1.6;margin:0 0 16px 0;border-left:3px solid #6366f1;padding-left:12px;">%s</blockquote>
              %s
              <a href="%s" style="color:#6366f1;font-size:15px;">Open conversation</a>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`,
		html.EscapeString(msg.RecipientName),
		html.EscapeString(msg.SenderName),
		html.EscapeString(msg.Preview),
		more,
		html.EscapeString(link),
	)
}

// NoopSender, email kapalıyken kullanılır; sadece log'lar.
type NoopSender struct{}

func (NoopSender) SendMissedMessage(_ context.Context, toEmail string, msg MissedMessage) error {
	log.Printf("[email] disabled, skipping missed message email from %s", msg.SenderID)
	return nil
}
