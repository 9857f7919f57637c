package models

import (
	"fmt"

	"github.com/akinalp/dmrelay/pkg"
)

// RelationKind, bir kullanıcının başka bir kullanıcıya uyguladığı sosyal kontrol.
// İlişkiler tek yönlüdür: A'nın B'yi engellemesi B'nin A'yı engellediği anlamına gelmez.
type RelationKind string

const (
	RelationBlocked  RelationKind = "blocked"
	RelationMuted    RelationKind = "muted"
	RelationPinned   RelationKind = "pinned"
	RelationArchived RelationKind = "archived"
	RelationStarred  RelationKind = "starred"
	RelationHidden   RelationKind = "hidden"
)

// Valid, kind'ın bilinen bir değer olup olmadığını döner.
func (k RelationKind) Valid() bool {
	switch k {
	case RelationBlocked, RelationMuted, RelationPinned, RelationArchived, RelationStarred, RelationHidden:
		return true
	}
	return false
}

// RelationFlags, bir (user, peer) çifti için tüm ilişki bayrakları.
type RelationFlags struct {
	Blocked  bool `json:"blocked"`
	Muted    bool `json:"muted"`
	Pinned   bool `json:"pinned"`
	Archived bool `json:"archived"`
	Starred  bool `json:"starred"`
	Hidden   bool `json:"hidden"`
}

// Set, tek bir bayrağı açar veya kapatır.
func (f *RelationFlags) Set(kind RelationKind, on bool) {
	switch kind {
	case RelationBlocked:
		f.Blocked = on
	case RelationMuted:
		f.Muted = on
	case RelationPinned:
		f.Pinned = on
	case RelationArchived:
		f.Archived = on
	case RelationStarred:
		f.Starred = on
	case RelationHidden:
		f.Hidden = on
	}
}

// SetRelationRequest, PUT /api/relationships/{peerId} body'si.
type SetRelationRequest struct {
	Kind    RelationKind `json:"kind"`
	Enabled bool         `json:"enabled"`
}

// Validate, kind'ı kontrol eder.
func (r *SetRelationRequest) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: unknown relation kind %q", pkg.ErrBadRequest, r.Kind)
	}
	return nil
}
