package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/khoahotran/stdtrack/internal/application/service"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type geminiAdapter struct {
	client    *genai.Client
	modelName string
	log       logger.Logger
}

func NewGeminiAdapter(ctx context.Context, apiKey, modelName string, log logger.Logger) (*geminiAdapter, error) {
	if apiKey == "" {
		return nil, apperror.NewConfiguration("API Key not found in environment. Please set GEMINI_API_KEY.")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	log.Info("Gemini LLM Adapter initialized", zap.String("model", modelName))
	return &geminiAdapter{client: client, modelName: modelName, log: log}, nil
}

func (a *geminiAdapter) Close() error {
	return a.client.Close()
}

func (a *geminiAdapter) GenerateStructured(ctx context.Context, req service.StructuredRequest) (string, error) {
	model := a.client.GenerativeModel(a.modelName)
	model.SetTemperature(req.Temperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = toGenaiSchema(req.Schema)

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		a.log.Error("Gemini generate failed", err)
		return "", apperror.NewTransport("gemini generate content", err)
	}
	return responseText(resp), nil
}

func (a *geminiAdapter) StreamChat(ctx context.Context, req service.ChatRequest) (<-chan service.ChatChunk, error) {
	model := a.client.GenerativeModel(a.modelName)
	model.SetTemperature(req.Temperature)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction(req.Context))}}

	cs := model.StartChat()
	cs.History = make([]*genai.Content, 0, len(req.History))
	for _, h := range req.History {
		cs.History = append(cs.History, &genai.Content{
			Role:  string(h.Role),
			Parts: []genai.Part{genai.Text(h.Text)},
		})
	}

	iter := cs.SendMessageStream(ctx, genai.Text(req.Question))

	out := make(chan service.ChatChunk)
	go func() {
		defer close(out)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				a.log.Error("Gemini chat stream failed", err)
				send(ctx, out, service.ChatChunk{Err: apperror.NewTransport("gemini chat stream", err)})
				return
			}
			if text := responseText(resp); text != "" {
				if !send(ctx, out, service.ChatChunk{Text: text}) {
					return
				}
			}
		}
	}()
	return out, nil
}

func send(ctx context.Context, out chan<- service.ChatChunk, c service.ChatChunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break
	}
	return b.String()
}

func toGenaiSchema(s *service.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toGenaiSchema(v)
		}
	}
	return out
}

func genaiType(t service.SchemaType) genai.Type {
	switch t {
	case service.TypeObject:
		return genai.TypeObject
	case service.TypeArray:
		return genai.TypeArray
	case service.TypeInteger:
		return genai.TypeInteger
	case service.TypeNumber:
		return genai.TypeNumber
	case service.TypeBoolean:
		return genai.TypeBoolean
	}
	return genai.TypeString
}
