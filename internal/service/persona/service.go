// Package persona orchestrates the creation pipeline: synthesize a persona
// for the session's asset, trim the image to the model-chosen region, and
// seed the conversation that role-plays the result.
package persona

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"
	"time"

	"github.com/hayasaka/p-tavern/internal/analysis/personatext"
	"github.com/hayasaka/p-tavern/internal/imaging"
	"github.com/hayasaka/p-tavern/internal/model/asset"
	chatmodel "github.com/hayasaka/p-tavern/internal/model/chat"
	"github.com/hayasaka/p-tavern/internal/model/persona"
	"github.com/hayasaka/p-tavern/internal/service/ai"
	chatservice "github.com/hayasaka/p-tavern/internal/service/chat"
)

// ModelClient is the slice of the AI client this pipeline needs.
type ModelClient interface {
	SynthesizePersona(ctx context.Context, a *asset.Asset) (string, error)
	SelectRegion(ctx context.Context, a *asset.Asset) (imaging.Box, error)
	AskImage(ctx context.Context, a *asset.Asset, question string) (string, error)
	NewConversation(systemInstruction string) chatmodel.Conversation
}

// ErrImageRequired marks a direct ask against a session whose asset is not
// an image.
var ErrImageRequired = errors.New("direct ask needs an image asset")

// Service runs the Uninitialized -> Active transition for a session.
type Service struct {
	model    ModelClient
	sessions *chatservice.Service
}

// NewService wires the pipeline to the model client and the state store.
func NewService(model ModelClient, sessions *chatservice.Service) *Service {
	return &Service{model: model, sessions: sessions}
}

// Create synthesizes a persona for the session's current asset and
// activates the chat. It fails when no asset is present or a persona
// already exists; model failures leave the session uncreated so the user
// can retry.
func (s *Service) Create(ctx context.Context, sessionID string) (persona.Record, error) {
	a, err := s.sessions.Asset(ctx, sessionID)
	if err != nil {
		return persona.Record{}, err
	}
	if _, err := s.sessions.Persona(ctx, sessionID); err == nil {
		return persona.Record{}, chatservice.ErrPersonaExists
	}

	description, err := s.model.SynthesizePersona(ctx, a)
	if err != nil {
		return persona.Record{}, fmt.Errorf("synthesize persona: %w", err)
	}

	var portrait []byte
	if a.Kind == asset.KindImage {
		portrait = s.trimPortrait(ctx, a)
	}

	record := persona.Record{
		Name:        personatext.ExtractName(description),
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	conv := s.model.NewConversation(ai.SystemInstruction(description))
	if err := s.sessions.SetPersona(ctx, sessionID, record, portrait, conv); err != nil {
		return persona.Record{}, err
	}

	log.Printf("[persona] created persona=%q for session=%s asset=%s", record.Name, sessionID, a.Identity)
	return record, nil
}

// Ask answers a one-off question about the session's image directly,
// bypassing the persona entirely. The question is lowercased, the answer
// sanitized; session state is never touched, so a persona may be created
// before or after without interference.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (string, error) {
	a, err := s.sessions.Asset(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if a.Kind != asset.KindImage {
		return "", ErrImageRequired
	}

	answer, err := s.model.AskImage(ctx, a, strings.ToLower(strings.TrimSpace(question)))
	if err != nil {
		return "", fmt.Errorf("ask image: %w", err)
	}
	return personatext.Sanitize(answer), nil
}

// trimPortrait crops the image asset to the model-selected region. Every
// failure degrades to the untouched original so the pipeline always ends
// with some representative image.
func (s *Service) trimPortrait(ctx context.Context, a *asset.Asset) []byte {
	bounds := a.Bitmap.Bounds()

	box, err := s.model.SelectRegion(ctx, a)
	if err != nil {
		log.Printf("[persona] region selection failed, using whole image: %v", err)
		return encodeOrOriginal(a, a.Bitmap)
	}

	rect := box.Pixels(bounds.Dx(), bounds.Dy())
	if !imaging.Valid(rect) {
		log.Printf("[persona] degenerate region %v, using whole image", rect)
		return encodeOrOriginal(a, a.Bitmap)
	}

	return encodeOrOriginal(a, imaging.Crop(a.Bitmap, rect))
}

func encodeOrOriginal(a *asset.Asset, img image.Image) []byte {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		log.Printf("[persona] encode portrait failed, serving original bytes: %v", err)
		return a.Data
	}
	return data
}
