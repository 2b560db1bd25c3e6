package main

import (
	"context"
	"strings"

	"github.com/hayasaka/p-tavern/internal/analysis/personatext"
	"github.com/hayasaka/p-tavern/internal/handler/stream"
	chatmodel "github.com/hayasaka/p-tavern/internal/model/chat"
)

type conversation = chatmodel.Conversation

// runTurn handles one chat turn. Input is lowercased before use; the stop
// sentinel ends the conversation without a model call. onFragment fires for
// each reply fragment as it arrives, before the next one is requested; the
// returned reply is the fully accumulated, sanitized text.
func runTurn(ctx context.Context, conv conversation, input string, onFragment func(string)) (reply string, stopped bool, err error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "", false, nil
	}
	if personatext.IsStop(input) {
		return "", true, nil
	}

	reply, err = stream.Respond(ctx, conv, input, onFragment)
	if err != nil {
		return "", false, err
	}
	return reply, false, nil
}
