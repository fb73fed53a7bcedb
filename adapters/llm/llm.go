package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/application/service"
	"github.com/khoahotran/stdtrack/internal/config"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// NewGenerationService builds the configured provider. A missing credential
// does not stop the process: every call then fails with the configuration
// error instead.
func NewGenerationService(ctx context.Context, cfg config.Config, log logger.Logger) (service.GenerationService, func() error) {
	var (
		svc     service.GenerationService
		closeFn = func() error { return nil }
		err     error
	)

	switch strings.ToLower(cfg.LLM.Provider) {
	case ProviderOllama:
		svc, err = NewOllamaAdapter(cfg.Ollama.Host, cfg.LLM.Model, log)
	case ProviderGemini, "":
		var g *geminiAdapter
		g, err = NewGeminiAdapter(ctx, cfg.Gemini.APIKey, cfg.LLM.Model, log)
		if err == nil {
			svc, closeFn = g, g.Close
		}
	default:
		err = apperror.NewConfiguration(fmt.Sprintf("unknown LLM provider %q", cfg.LLM.Provider))
	}

	if err != nil {
		if !errors.Is(err, apperror.ErrConfiguration) {
			err = apperror.NewTransport("initialize LLM provider", err)
		}
		log.Warn("Generation service unavailable", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
		return Unavailable(err), closeFn
	}
	return svc, closeFn
}

type unavailable struct {
	err error
}

// Unavailable is a GenerationService that fails every call with err.
func Unavailable(err error) service.GenerationService {
	return unavailable{err: err}
}

func (u unavailable) GenerateStructured(context.Context, service.StructuredRequest) (string, error) {
	return "", u.err
}

func (u unavailable) StreamChat(context.Context, service.ChatRequest) (<-chan service.ChatChunk, error) {
	return nil, u.err
}

func systemInstruction(c service.ChatContext) string {
	var b strings.Builder
	b.WriteString("You are an expert academic advisor for StdTrack AI. ")
	fmt.Fprintf(&b, "Context: User is viewing %s. ", c.SelectedDetail)
	if c.Summary != "" {
		fmt.Fprintf(&b, "Roadmap summary: %s ", c.Summary)
	}
	if c.ProfileExcerpt != "" {
		fmt.Fprintf(&b, "User profile: %s ", c.ProfileExcerpt)
	}
	b.WriteString("Provide precise, helpful guidance.")
	return b.String()
}
