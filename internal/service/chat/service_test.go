package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hayasaka/p-tavern/internal/model/asset"
	chatmodel "github.com/hayasaka/p-tavern/internal/model/chat"
	"github.com/hayasaka/p-tavern/internal/model/persona"
	chat "github.com/hayasaka/p-tavern/internal/service/chat"
)

type nullConversation struct{ id string }

func (n *nullConversation) Ask(context.Context, string) (chatmodel.Reply, error) {
	return chatmodel.TextReply(""), nil
}

func imageAsset(identity string) *asset.Asset {
	return &asset.Asset{Identity: identity, Kind: asset.KindImage, MIMEType: "image/png"}
}

func activeSession(t *testing.T, svc *chat.Service) (string, *nullConversation) {
	t.Helper()
	ctx := context.Background()

	session, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if _, err := svc.AttachAsset(ctx, session.ID, imageAsset("cat.png")); err != nil {
		t.Fatalf("AttachAsset err: %v", err)
	}

	conv := &nullConversation{id: "first"}
	record := persona.Record{Name: "Sunny", Description: "**Name**: Sunny"}
	if err := svc.SetPersona(ctx, session.ID, record, []byte("png-bytes"), conv); err != nil {
		t.Fatalf("SetPersona err: %v", err)
	}
	return session.ID, conv
}

func TestAttachAssetFirstUploadCountsAsChange(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, _ := svc.Create(ctx)
	changed, err := svc.AttachAsset(ctx, session.ID, imageAsset("cat.png"))
	if err != nil {
		t.Fatalf("AttachAsset err: %v", err)
	}
	if !changed {
		t.Fatal("first upload must be reported as a change")
	}
}

func TestAttachAssetEmptyIdentityFirstUploadIsStored(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	// An empty identity must not compare equal to the fresh session's
	// zero AssetID and get silently dropped.
	session, _ := svc.Create(ctx)
	changed, err := svc.AttachAsset(ctx, session.ID, imageAsset(""))
	if err != nil {
		t.Fatalf("AttachAsset err: %v", err)
	}
	if !changed {
		t.Fatal("first upload with empty identity must count as a change")
	}
	if _, err := svc.Asset(ctx, session.ID); err != nil {
		t.Fatalf("asset must be stored: %v", err)
	}
}

func TestAttachAssetSameIdentityIsNoChange(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()
	id, _ := activeSession(t, svc)

	changed, err := svc.AttachAsset(ctx, id, imageAsset("cat.png"))
	if err != nil {
		t.Fatalf("AttachAsset err: %v", err)
	}
	if changed {
		t.Fatal("same identity must not report a change")
	}
	if _, err := svc.Persona(ctx, id); err != nil {
		t.Fatalf("persona must survive a same-identity re-upload: %v", err)
	}
}

func TestAttachAssetNewIdentityInvalidatesEverything(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()
	id, _ := activeSession(t, svc)

	changed, err := svc.AttachAsset(ctx, id, imageAsset("dog.jpg"))
	if err != nil {
		t.Fatalf("AttachAsset err: %v", err)
	}
	if !changed {
		t.Fatal("new identity must report a change")
	}

	// Persona, portrait, conversation, and transcript all reset together.
	if _, err := svc.Persona(ctx, id); !errors.Is(err, chat.ErrPersonaRequired) {
		t.Fatalf("persona err = %v, want ErrPersonaRequired", err)
	}
	if _, err := svc.Conversation(ctx, id); !errors.Is(err, chat.ErrPersonaRequired) {
		t.Fatalf("conversation err = %v, want ErrPersonaRequired", err)
	}
	portrait, err := svc.Portrait(ctx, id)
	if err != nil {
		t.Fatalf("Portrait err: %v", err)
	}
	if portrait != nil {
		t.Fatal("portrait must be cleared")
	}
	transcript, err := svc.Transcript(ctx, id)
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if len(transcript) != 0 {
		t.Fatalf("transcript must be cleared, got %d entries", len(transcript))
	}
}

func TestSetPersonaGates(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, _ := svc.Create(ctx)
	record := persona.Record{Name: "Sunny"}

	// No asset yet.
	err := svc.SetPersona(ctx, session.ID, record, nil, &nullConversation{})
	if !errors.Is(err, chat.ErrAssetRequired) {
		t.Fatalf("err = %v, want ErrAssetRequired", err)
	}

	if _, err := svc.AttachAsset(ctx, session.ID, imageAsset("cat.png")); err != nil {
		t.Fatalf("AttachAsset err: %v", err)
	}
	if err := svc.SetPersona(ctx, session.ID, record, nil, &nullConversation{}); err != nil {
		t.Fatalf("SetPersona err: %v", err)
	}

	// Second creation for the same asset must be rejected.
	err = svc.SetPersona(ctx, session.ID, record, nil, &nullConversation{})
	if !errors.Is(err, chat.ErrPersonaExists) {
		t.Fatalf("err = %v, want ErrPersonaExists", err)
	}
}

func TestSetPersonaSeedsGreetingTranscript(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()
	id, _ := activeSession(t, svc)

	transcript, err := svc.Transcript(ctx, id)
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if len(transcript) != 1 {
		t.Fatalf("expected a single greeting entry, got %d", len(transcript))
	}
	if transcript[0].Role != chatmodel.RoleModel {
		t.Fatalf("greeting role = %s, want model", transcript[0].Role)
	}
	if !strings.Contains(transcript[0].Content, "Sunny") {
		t.Fatalf("greeting must contain persona name: %q", transcript[0].Content)
	}
}

func TestResetTranscriptKeepsPersonaAndConversation(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()
	id, conv := activeSession(t, svc)

	if err := svc.AppendMessage(ctx, id, chatmodel.RoleUser, "hello"); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}
	if err := svc.AppendMessage(ctx, id, chatmodel.RoleModel, "hi there"); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}

	transcript, err := svc.ResetTranscript(ctx, id)
	if err != nil {
		t.Fatalf("ResetTranscript err: %v", err)
	}
	if len(transcript) != 1 {
		t.Fatalf("expected exactly one greeting entry, got %d", len(transcript))
	}
	if !strings.Contains(transcript[0].Content, "Sunny") {
		t.Fatalf("greeting must reuse persona name: %q", transcript[0].Content)
	}

	record, err := svc.Persona(ctx, id)
	if err != nil || record.Name != "Sunny" {
		t.Fatalf("persona altered by reset: %+v, %v", record, err)
	}
	got, err := svc.Conversation(ctx, id)
	if err != nil {
		t.Fatalf("Conversation err: %v", err)
	}
	if got != conv {
		t.Fatal("conversation handle must survive a transcript reset")
	}
}

func TestResetTranscriptWithoutPersonaIsNoop(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, _ := svc.Create(ctx)
	transcript, err := svc.ResetTranscript(ctx, session.ID)
	if err != nil {
		t.Fatalf("ResetTranscript err: %v", err)
	}
	if len(transcript) != 0 {
		t.Fatalf("no-op reset must leave the empty transcript alone, got %d entries", len(transcript))
	}
}

func TestAppendMessageOrdersTurns(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()
	id, _ := activeSession(t, svc)

	_ = svc.AppendMessage(ctx, id, chatmodel.RoleUser, "first")
	_ = svc.AppendMessage(ctx, id, chatmodel.RoleModel, "second")

	transcript, _ := svc.Transcript(ctx, id)
	if len(transcript) != 3 {
		t.Fatalf("expected greeting + 2 turns, got %d", len(transcript))
	}
	if transcript[1].Content != "first" || transcript[2].Content != "second" {
		t.Fatal("turns out of order")
	}
}

func TestUnknownSession(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("Get err = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.AttachAsset(ctx, "missing", imageAsset("cat.png")); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("AttachAsset err = %v, want ErrSessionNotFound", err)
	}
}
