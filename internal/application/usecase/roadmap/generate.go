package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/application/service"
	"github.com/khoahotran/stdtrack/internal/domain/profile"
	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

var tracer = otel.Tracer("roadmap_usecase")

// GenerateUseCase turns a profile into a new, unsaved AIResult with one
// structured generation call.
type GenerateUseCase struct {
	llm         service.GenerationService
	temperature float32
	logger      logger.Logger
	now         func() time.Time
}

func NewGenerateUseCase(llm service.GenerationService, temperature float32, log logger.Logger) *GenerateUseCase {
	if temperature <= 0 {
		temperature = DefaultBatchTemperature
	}
	return &GenerateUseCase{llm: llm, temperature: temperature, logger: log, now: time.Now}
}

type GenerateInput struct {
	OwnerID uuid.UUID
	Mode    roadmap.Mode
	Profile profile.UserProfile
}

type payload struct {
	Summary           string                          `json:"summary"`
	Courses           []roadmap.CourseSuggestion      `json:"courses"`
	Universities      []roadmap.UniversitySuggestion  `json:"universities"`
	Scholarships      []roadmap.ScholarshipSuggestion `json:"scholarships"`
	Jobs              []roadmap.JobSuggestion         `json:"jobs"`
	WeeklyPlan        []roadmap.WeeklyPlan            `json:"weekly_plan"`
	CareerSuggestions []string                        `json:"career_suggestions"`
}

func (uc *GenerateUseCase) Execute(ctx context.Context, input GenerateInput) (*roadmap.AIResult, error) {
	ctx, span := tracer.Start(ctx, "Generate")
	defer span.End()
	span.SetAttributes(attribute.String("mode", string(input.Mode)))

	prompt, schema, err := promptFor(input.Mode, input.Profile)
	if err != nil {
		return nil, apperror.NewInvalidInput("unknown roadmap mode", err)
	}

	l := uc.logger.With(zap.String("mode", string(input.Mode)), zap.String("owner_id", input.OwnerID.String()))
	l.Info("Generating roadmap")

	raw, err := uc.llm.GenerateStructured(ctx, service.StructuredRequest{
		Prompt:      prompt,
		Schema:      schema,
		Temperature: uc.temperature,
	})
	if err != nil {
		span.RecordError(err)
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.NewTransport("roadmap generation failed", err)
	}

	body := stripFence(raw)
	if body == "" {
		err := apperror.NewGeneration("empty response body", nil)
		span.RecordError(err)
		return nil, err
	}

	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		l.Warn("Malformed roadmap response", zap.Error(err))
		span.RecordError(err)
		return nil, apperror.NewGeneration("response is not valid JSON", err)
	}

	res := &roadmap.AIResult{
		ID:                uuid.NewString(),
		OwnerID:           input.OwnerID,
		Mode:              input.Mode,
		Timestamp:         uc.now().UnixMilli(),
		Profile:           input.Profile,
		Summary:           p.Summary,
		Title:             roadmap.DefaultTitleFor(input.Profile),
		WeeklyPlan:        p.WeeklyPlan,
		CareerSuggestions: p.CareerSuggestions,
	}
	switch input.Mode {
	case roadmap.ModeSkill:
		res.Courses = p.Courses
	case roadmap.ModeUniversity:
		res.Universities = p.Universities
	case roadmap.ModeScholarship:
		res.Scholarships = p.Scholarships
	case roadmap.ModeJob:
		res.Jobs = p.Jobs
	}
	if err := res.Validate(); err != nil {
		span.RecordError(err)
		return nil, apperror.NewGeneration("response has no items for the requested mode", err)
	}

	l.Info("Roadmap generated", zap.String("roadmap_id", res.ID), zap.Int("items", len(res.Items())))
	return res, nil
}

// stripFence removes a markdown code fence some providers wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
