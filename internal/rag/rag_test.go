package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeEmbedder struct {
	embedding []float32
	lastText  string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.lastText = text
	return f.embedding, nil
}

type fakeRetriever struct {
	chunks        []Chunk
	lastEmbedding []float32
	lastThreshold float64
	lastCount     int
}

func (f *fakeRetriever) RelevantChunks(_ context.Context, embedding []float32, threshold float64, count int) ([]Chunk, error) {
	f.lastEmbedding = embedding
	f.lastThreshold = threshold
	f.lastCount = count
	return f.chunks, nil
}

type fakeCompleter struct {
	deltas       []string
	lastMessages []Message
}

func (f *fakeCompleter) StreamCompletion(_ context.Context, messages []Message, out func(string) error) error {
	f.lastMessages = messages
	for _, delta := range f.deltas {
		if err := out(delta); err != nil {
			return err
		}
	}
	return nil
}

func TestPipelineAnswer(t *testing.T) {
	embedder := &fakeEmbedder{embedding: []float32{0.1, 0.2}}
	retriever := &fakeRetriever{chunks: []Chunk{
		{Content: "Article 577 of the Civil Code", URL: "https://law.example/577", DateUpdated: "2024-01-01"},
	}}
	completer := &fakeCompleter{deltas: []string{"Hello", ", ", "world"}}
	pipeline := NewPipeline(embedder, retriever, completer, 0.2, 6)

	var got strings.Builder
	messages := []Message{
		{Role: "user", Content: "first question"},
		{Role: "user", Content: "what does article 577 say?"},
	}
	err := pipeline.Answer(context.Background(), messages, func(delta string) error {
		got.WriteString(delta)
		return nil
	})
	if err != nil {
		t.Fatalf("answer error: %v", err)
	}

	if got.String() != "Hello, world" {
		t.Fatalf("unexpected stream: %q", got.String())
	}
	if embedder.lastText != "what does article 577 say?" {
		t.Fatalf("embedded wrong message: %q", embedder.lastText)
	}
	if retriever.lastThreshold != 0.2 || retriever.lastCount != 6 {
		t.Fatalf("unexpected retrieval params: %v / %d", retriever.lastThreshold, retriever.lastCount)
	}

	// System prompt carries the chunk and the question, then the full history.
	if len(completer.lastMessages) != 3 {
		t.Fatalf("expected system + 2 messages, got %d", len(completer.lastMessages))
	}
	system := completer.lastMessages[0]
	if system.Role != "system" {
		t.Fatalf("expected leading system message, got %q", system.Role)
	}
	for _, want := range []string{"Article 577 of the Civil Code", "https://law.example/577", "2024-01-01", "what does article 577 say?"} {
		if !strings.Contains(system.Content, want) {
			t.Fatalf("system prompt missing %q", want)
		}
	}
}

func TestPipelineEmptyConversation(t *testing.T) {
	pipeline := NewPipeline(&fakeEmbedder{}, &fakeRetriever{}, &fakeCompleter{}, 0.2, 6)
	err := pipeline.Answer(context.Background(), nil, func(string) error { return nil })
	if !errors.Is(err, ErrEmptyConversation) {
		t.Fatalf("expected ErrEmptyConversation, got %v", err)
	}
}

func TestVectorLiteral(t *testing.T) {
	got := vectorLiteral([]float32{0.5, -1, 2.25})
	if got != "[0.5,-1,2.25]" {
		t.Fatalf("unexpected literal: %q", got)
	}
	if vectorLiteral(nil) != "[]" {
		t.Fatalf("expected empty literal")
	}
}
