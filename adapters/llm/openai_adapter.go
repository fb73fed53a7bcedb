package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/application/service"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

// openAIAdapter talks to any OpenAI-compatible endpoint, Ollama included.
type openAIAdapter struct {
	client    *openai.Client
	modelName string
	log       logger.Logger
}

func NewOllamaAdapter(host, modelName string, log logger.Logger) (*openAIAdapter, error) {
	if host == "" {
		return nil, apperror.NewConfiguration("ollama host is not configured. Please set OLLAMA_HOST.")
	}

	config := openai.DefaultConfig("dummy-key")
	config.BaseURL = host

	log.Info("Ollama LLM Adapter initialized", zap.String("host", host), zap.String("model", modelName))
	return &openAIAdapter{client: openai.NewClientWithConfig(config), modelName: modelName, log: log}, nil
}

func (a *openAIAdapter) GenerateStructured(ctx context.Context, req service.StructuredRequest) (string, error) {
	def := toJSONSchema(req.Schema)
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.modelName,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "roadmap",
				Schema: &def,
			},
		},
	})
	if err != nil {
		a.log.Error("Chat completion failed", err)
		return "", apperror.NewTransport("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *openAIAdapter) StreamChat(ctx context.Context, req service.ChatRequest) (<-chan service.ChatChunk, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemInstruction(req.Context),
	})
	for _, h := range req.History {
		role := openai.ChatMessageRoleUser
		if h.Role == service.HistoryModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: h.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Question})

	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       a.modelName,
		Temperature: req.Temperature,
		Messages:    messages,
		Stream:      true,
	})
	if err != nil {
		return nil, apperror.NewTransport("chat completion stream", err)
	}

	out := make(chan service.ChatChunk)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				a.log.Error("Chat completion stream failed", err)
				send(ctx, out, service.ChatChunk{Err: apperror.NewTransport("chat completion stream", err)})
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !send(ctx, out, service.ChatChunk{Text: resp.Choices[0].Delta.Content}) {
				return
			}
		}
	}()
	return out, nil
}

func toJSONSchema(s *service.Schema) jsonschema.Definition {
	if s == nil {
		return jsonschema.Definition{Type: jsonschema.Object}
	}
	def := jsonschema.Definition{
		Type:        jsonschema.DataType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	if s.Items != nil {
		items := toJSONSchema(s.Items)
		def.Items = &items
	}
	if len(s.Properties) > 0 {
		def.Properties = make(map[string]jsonschema.Definition, len(s.Properties))
		for k, v := range s.Properties {
			def.Properties[k] = toJSONSchema(v)
		}
	}
	return def
}

func (a *openAIAdapter) String() string {
	return fmt.Sprintf("openai-compatible(%s)", a.modelName)
}
