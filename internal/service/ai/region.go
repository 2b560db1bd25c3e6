package ai

import (
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"

	"github.com/hayasaka/p-tavern/internal/imaging"
)

// regionSchema constrains the region reply to four required integers,
// reducing the chance of malformed JSON reaching the parser.
func regionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"x":      {Type: genai.TypeInteger},
			"y":      {Type: genai.TypeInteger},
			"width":  {Type: genai.TypeInteger},
			"height": {Type: genai.TypeInteger},
		},
		Required: []string{"x", "y", "width", "height"},
	}
}

// ParseRegion decodes a strict-JSON region reply. All four fields must be
// present; anything else is a parse error the caller degrades on.
func ParseRegion(data []byte) (imaging.Box, error) {
	var raw struct {
		X      *int `json:"x"`
		Y      *int `json:"y"`
		Width  *int `json:"width"`
		Height *int `json:"height"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return imaging.Box{}, fmt.Errorf("parse region json: %w", err)
	}
	if raw.X == nil || raw.Y == nil || raw.Width == nil || raw.Height == nil {
		return imaging.Box{}, fmt.Errorf("region json missing fields: %s", data)
	}

	return imaging.Box{X: *raw.X, Y: *raw.Y, Width: *raw.Width, Height: *raw.Height}, nil
}
