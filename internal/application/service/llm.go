package service

import (
	"context"
)

// SchemaType mirrors the JSON schema primitive types both providers accept.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema is a provider-neutral structured-output schema.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
}

type StructuredRequest struct {
	Prompt      string
	Schema      *Schema
	Temperature float32
}

type HistoryRole string

const (
	HistoryUser  HistoryRole = "user"
	HistoryModel HistoryRole = "model"
)

type HistoryTurn struct {
	Role HistoryRole
	Text string
}

// ChatContext describes what the user is looking at while asking.
type ChatContext struct {
	SelectedDetail string
	Summary        string
	ProfileExcerpt string
}

type ChatRequest struct {
	Question    string
	History     []HistoryTurn
	Context     ChatContext
	Temperature float32
}

// ChatChunk is one streamed fragment. A chunk with Err set is the last one
// sent before the channel closes.
type ChatChunk struct {
	Text string
	Err  error
}

type GenerationService interface {
	// GenerateStructured returns the raw JSON text produced for req.Schema.
	GenerateStructured(ctx context.Context, req StructuredRequest) (string, error)
	// StreamChat starts one streamed reply. The channel is closed when the
	// backend ends the turn, on error, or when ctx is done.
	StreamChat(ctx context.Context, req ChatRequest) (<-chan ChatChunk, error)
}
