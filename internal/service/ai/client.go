// Package ai wraps the hosted Gemini service: persona synthesis, region
// selection, and persona-conditioned chat sessions.
package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/hayasaka/p-tavern/internal/config"
	"github.com/hayasaka/p-tavern/internal/imaging"
	"github.com/hayasaka/p-tavern/internal/model/asset"
	chatmodel "github.com/hayasaka/p-tavern/internal/model/chat"
)

// personaTemperature is the fixed sampling setting for persona synthesis,
// deliberately distinct from the chat setting.
const personaTemperature = 0.7

// askTemperature keeps direct image answers factual rather than creative.
const askTemperature = 0.1

// ErrEmptyPersona is returned when the model produced no usable persona
// text, e.g. for a document with no extractable structure.
var ErrEmptyPersona = errors.New("model returned no persona content")

// Client is the process-wide handle to the generative model service.
type Client struct {
	genai *genai.Client
	cfg   config.AIConfig
}

// NewClient dials the model service with the configured credential.
func NewClient(ctx context.Context, cfg config.AIConfig) (*Client, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{genai: c, cfg: cfg}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.genai.Close()
}

// SynthesizePersona asks the model to invent a persona for the uploaded
// asset. Images travel inline; documents are staged as server-side file
// objects and deleted again on every exit path.
func (c *Client) SynthesizePersona(ctx context.Context, a *asset.Asset) (string, error) {
	m := c.genai.GenerativeModel(c.cfg.PersonaModel)
	m.SetTemperature(personaTemperature)

	var part genai.Part
	switch a.Kind {
	case asset.KindImage:
		part = genai.ImageData(a.Format(), a.Data)

	case asset.KindDocument:
		file, err := c.genai.UploadFile(ctx, "", bytes.NewReader(a.Data), &genai.UploadFileOptions{
			MIMEType: a.MIMEType,
		})
		if err != nil {
			return "", fmt.Errorf("stage document: %w", err)
		}
		// Best-effort cleanup of the staged file; failures are logged,
		// never surfaced to the user.
		defer func() {
			if err := c.genai.DeleteFile(ctx, file.Name); err != nil {
				log.Printf("[ai] delete staged file %s: %v", file.Name, err)
			}
		}()
		part = genai.FileData{MIMEType: file.MIMEType, URI: file.URI}

	default:
		return "", fmt.Errorf("%w: %s", asset.ErrUnsupportedMedia, a.Kind)
	}

	resp, err := m.GenerateContent(ctx, part, genai.Text(personaInstruction(a.Kind)))
	if err != nil {
		return "", fmt.Errorf("synthesize persona: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyPersona
	}
	return text, nil
}

// AskImage answers a one-off question about the image in a single
// multimodal call. No conversation state is involved.
func (c *Client) AskImage(ctx context.Context, a *asset.Asset, question string) (string, error) {
	if a.Kind != asset.KindImage {
		return "", fmt.Errorf("image ask needs an image, got %s", a.Kind)
	}

	m := c.genai.GenerativeModel(c.cfg.PersonaModel)
	m.SetTemperature(askTemperature)

	resp, err := m.GenerateContent(ctx, genai.ImageData(a.Format(), a.Data), genai.Text(question))
	if err != nil {
		return "", fmt.Errorf("ask image: %w", err)
	}
	return responseText(resp), nil
}

// SelectRegion asks the model for a representative bounding box over the
// image asset, using schema-constrained JSON output. Callers treat any
// error as non-fatal and fall back to the whole image.
func (c *Client) SelectRegion(ctx context.Context, a *asset.Asset) (imaging.Box, error) {
	if a.Kind != asset.KindImage {
		return imaging.Box{}, fmt.Errorf("region selection needs an image, got %s", a.Kind)
	}

	m := c.genai.GenerativeModel(c.cfg.PersonaModel)
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = regionSchema()

	resp, err := m.GenerateContent(ctx, genai.ImageData(a.Format(), a.Data), genai.Text(regionInstruction))
	if err != nil {
		return imaging.Box{}, fmt.Errorf("select region: %w", err)
	}

	return ParseRegion([]byte(responseText(resp)))
}

// NewConversation opens a stateful chat seeded with the given system
// instruction. An empty instruction yields an unconditioned chat (the
// standalone mode).
func (c *Client) NewConversation(systemInstruction string) chatmodel.Conversation {
	m := c.genai.GenerativeModel(c.cfg.ChatModel)
	if c.cfg.ChatTemperature != nil {
		m.SetTemperature(float32(*c.cfg.ChatTemperature))
	}
	if systemInstruction != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}
	}

	return &conversation{session: m.StartChat(), stream: c.cfg.StreamResponse}
}

type conversation struct {
	session *genai.ChatSession
	stream  bool
}

func (c *conversation) Ask(ctx context.Context, prompt string) (chatmodel.Reply, error) {
	if c.stream {
		it := c.session.SendMessageStream(ctx, genai.Text(prompt))
		return chatmodel.StreamReply(&tokenStream{it: it}), nil
	}

	resp, err := c.session.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return chatmodel.Reply{}, fmt.Errorf("send message: %w", err)
	}
	return chatmodel.TextReply(responseText(resp)), nil
}

// tokenStream adapts the SDK iterator to chatmodel.TokenStream.
type tokenStream struct {
	it *genai.GenerateContentResponseIterator
}

func (s *tokenStream) Next() (string, error) {
	resp, err := s.it.Next()
	if errors.Is(err, iterator.Done) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// responseText flattens the text parts of a generation response.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var b bytes.Buffer
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}
