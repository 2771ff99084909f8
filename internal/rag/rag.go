// Package rag wires the chat endpoint's external collaborators: an embedding
// model, a vector store exposing a similarity RPC, and a streaming chat
// completion model. Each is a small interface so the pipeline is testable
// with fakes.
package rag

import (
	"context"
	"errors"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chunk is one ranked passage returned by the vector store.
type Chunk struct {
	Content     string
	URL         string
	DateUpdated string
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Retriever interface {
	RelevantChunks(ctx context.Context, embedding []float32, threshold float64, count int) ([]Chunk, error)
}

type Completer interface {
	// StreamCompletion calls out once per response delta, in order.
	StreamCompletion(ctx context.Context, messages []Message, out func(delta string) error) error
}

var ErrEmptyConversation = errors.New("empty conversation")

type Pipeline struct {
	embedder  Embedder
	retriever Retriever
	completer Completer
	threshold float64
	count     int
}

func NewPipeline(embedder Embedder, retriever Retriever, completer Completer, threshold float64, count int) *Pipeline {
	return &Pipeline{
		embedder:  embedder,
		retriever: retriever,
		completer: completer,
		threshold: threshold,
		count:     count,
	}
}

// Answer embeds the latest user message, retrieves relevant knowledge-base
// chunks and streams the grounded completion through out.
func (p *Pipeline) Answer(ctx context.Context, messages []Message, out func(delta string) error) error {
	if len(messages) == 0 {
		return ErrEmptyConversation
	}
	latest := messages[len(messages)-1].Content

	embedding, err := p.embedder.Embed(ctx, latest)
	if err != nil {
		return err
	}

	chunks, err := p.retriever.RelevantChunks(ctx, embedding, p.threshold, p.count)
	if err != nil {
		return err
	}

	prompt := buildSystemPrompt(chunks, latest)
	full := append([]Message{prompt}, messages...)
	return p.completer.StreamCompletion(ctx, full, out)
}
