package chat

import (
	"context"
	"errors"
	"io"
	"strings"
)

// TokenStream yields reply fragments in the order the model emitted them.
// Next returns io.EOF once the stream is exhausted.
type TokenStream interface {
	Next() (string, error)
}

// ReplyKind tags which shape a model reply arrived in.
type ReplyKind int

const (
	// ReplyText is a complete reply delivered in one payload.
	ReplyText ReplyKind = iota
	// ReplyStream is a reply delivered as incremental fragments.
	ReplyStream
)

// Reply is a tagged model response: Text is set for ReplyText, Stream for
// ReplyStream. Callers switch on Kind instead of probing for attributes.
type Reply struct {
	Kind   ReplyKind
	Text   string
	Stream TokenStream
}

// TextReply wraps a complete reply payload.
func TextReply(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

// StreamReply wraps an in-flight fragment stream.
func StreamReply(stream TokenStream) Reply {
	return Reply{Kind: ReplyStream, Stream: stream}
}

// Conversation is the opaque handle to a stateful model-side chat. One
// conversation exists per persona; it is replaced, never mutated, when the
// persona is recreated.
type Conversation interface {
	Ask(ctx context.Context, prompt string) (Reply, error)
}

// Drain pulls every fragment from the stream, invoking onFragment for each
// before requesting the next one, and returns the concatenated text. The
// caller is the only consumer; fragments are never buffered past the
// callback.
func Drain(stream TokenStream, onFragment func(string)) (string, error) {
	var b strings.Builder
	for {
		frag, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		if frag == "" {
			continue
		}
		b.WriteString(frag)
		if onFragment != nil {
			onFragment(frag)
		}
	}
}
