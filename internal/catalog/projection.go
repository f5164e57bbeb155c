package catalog

import (
	"encoding/hex"
	"time"

	"github.com/zeebo/xxh3"
)

// Projection identity type names. A type selects the shape of the projection
// content and the notification kind emitted when it changes.
const (
	TypeAttribute     = "attribute"
	TypeBrand         = "brand"
	TypeCategory      = "category"
	TypeFieldMetadata = "fieldMetadata"
	TypeOffer         = "offer"
	TypeOption        = "option"
)

// Key is the composite identity of one live projection.
type Key struct {
	Store string
	Type  string
	Code  string
}

// Projection is a denormalized, versioned current-state document for one
// catalog entity. Content is an opaque serialized body; ContentHash is the
// sole signal used to decide whether an incoming write is a real change.
type Projection struct {
	Key                Key
	GUID               string
	Content            []byte
	ContentHash        string
	SchemaVersion      int
	ProjectionDateTime time.Time
	DisableDateTime    *time.Time
	Deleted            bool
}

// New builds a live projection for key, computing the content hash.
func New(key Key, guid string, schemaVersion int, content []byte, projectionDateTime time.Time, disableDateTime *time.Time) Projection {
	return Projection{
		Key:                key,
		GUID:               guid,
		Content:            content,
		ContentHash:        HashContent(content),
		SchemaVersion:      schemaVersion,
		ProjectionDateTime: projectionDateTime,
		DisableDateTime:    disableDateTime,
	}
}

// AsDeleted returns the soft-deleted successor state of p: content, content
// hash and schema version are cleared, Deleted is set, and the projection
// date time advances to now. The row itself is kept so point lookups still
// resolve the tombstone.
func (p Projection) AsDeleted(now time.Time) Projection {
	deleted := p
	deleted.Content = nil
	deleted.ContentHash = ""
	deleted.SchemaVersion = 0
	deleted.Deleted = true
	deleted.ProjectionDateTime = now
	return deleted
}

// Clone returns a value copy of p with its own content buffer. History
// snapshots are written from clones so a later mutation of the live row can
// never alter an already journaled entry.
func (p Projection) Clone() Projection {
	clone := p
	if p.Content != nil {
		clone.Content = make([]byte, len(p.Content))
		copy(clone.Content, p.Content)
	}
	if p.DisableDateTime != nil {
		disableAt := *p.DisableDateTime
		clone.DisableDateTime = &disableAt
	}
	return clone
}

// HashContent returns the hex digest used for change detection. The digest
// covers exactly the content bytes: two projections with byte-identical
// content are the same write.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	sum := xxh3.Hash128(content).Bytes()
	return hex.EncodeToString(sum[:])
}
