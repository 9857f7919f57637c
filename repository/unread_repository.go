package repository

import "context"

// UnreadRepository, (viewer, peer) okunmamış sayaçları.
// Sayaçlar türetilmiş bir cache'tir; Recompute messages tablosundan yeniden üretir.
type UnreadRepository interface {
	Increment(ctx context.Context, viewerID, peerID string) (int, error)
	Reset(ctx context.Context, viewerID, peerID string) error
	Get(ctx context.Context, viewerID, peerID string) (int, error)
	ListForViewer(ctx context.Context, viewerID string) (map[string]int, error)
	Recompute(ctx context.Context, viewerID, peerID string) (int, error)
}
