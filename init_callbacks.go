// Package main: WebSocket Hub callback wire-up.
//
// Hub ws paketinde yaşar, iş kuralları services katmanındadır. Hub'ın
// service'lere bağımlı olmaması için client → server op'ları burada
// callback olarak bağlanır; main package tüm katmanları birbirine bağlar.
//
// Callback'ler bağlantının ReadPump goroutine'inde çalışır; uzun süren
// işler (DB) kendi context timeout'larıyla sınırlandırılır.
package main

import (
	"context"
	"log"
	"time"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/ws"
)

const callbackTimeout = 10 * time.Second

// registerHubCallbacks, tüm Hub callback'lerini register eder.
func registerHubCallbacks(hub *ws.Hub, svcs *Services) {
	// ─── Presence ───
	hub.OnTyping(svcs.Presence.RelayTyping)
	hub.OnFocus(svcs.Presence.Focus)
	hub.OnUploadProgress(svcs.Presence.RelayUploadProgress)
	hub.OnStatusUpdate(func(userID string, data models.SetStatusRequest) {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()
		if _, err := svcs.Status.SetStatus(ctx, userID, &data); err != nil {
			log.Printf("[ws] statusUpdate error user=%s: %v", userID, err)
		}
	})

	// ─── Okundu ───
	hub.OnMarkAsRead(func(userID, peerID string) {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()
		if _, err := svcs.Message.MarkSeen(ctx, peerID, userID); err != nil {
			log.Printf("[ws] markAsRead error user=%s peer=%s: %v", userID, peerID, err)
		}
	})

	// ─── Arama ───
	hub.OnCallRequest(func(userID string, data ws.CallRequestData) {
		logCallErr("request", userID, svcs.Call.Request(userID, data))
	})
	hub.OnCallResponse(func(userID string, data ws.CallResponseData) {
		logCallErr("response", userID, svcs.Call.Respond(userID, data))
	})
	hub.OnCallEnd(func(userID string, data ws.CallEndData) {
		logCallErr("end", userID, svcs.Call.End(userID, data))
	})
}

// logCallErr, arama hatalarını loglar. Karşı tarafa bildirim CallService'te yapılır.
func logCallErr(op, userID string, err error) {
	if err != nil {
		log.Printf("[calls] %s error user=%s: %v", op, userID, err)
	}
}
