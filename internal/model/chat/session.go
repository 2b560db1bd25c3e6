package chat

import (
	"time"

	"github.com/hayasaka/p-tavern/internal/model/asset"
	"github.com/hayasaka/p-tavern/internal/model/persona"
)

// Session owns all state for one interactive user session. Every field
// below AssetID is invalidated together when the uploaded asset identity
// changes; a mixed stale/fresh combination must never be observable.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	AssetID string       `json:"assetId,omitempty"` // identity of the last-seen upload
	Asset   *asset.Asset `json:"-"`

	Persona      *persona.Record `json:"persona,omitempty"`
	Portrait     []byte          `json:"-"` // encoded crop of the image asset, nil for documents
	Conversation Conversation    `json:"-"`
	Transcript   []Message       `json:"-"`
}
