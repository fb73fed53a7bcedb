package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/stdtrack/internal/application/service"
	"github.com/khoahotran/stdtrack/internal/domain/profile"
	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type structuredStub struct {
	body string
	err  error
	last service.StructuredRequest
}

func (s *structuredStub) GenerateStructured(_ context.Context, req service.StructuredRequest) (string, error) {
	s.last = req
	return s.body, s.err
}

func (s *structuredStub) StreamChat(context.Context, service.ChatRequest) (<-chan service.ChatChunk, error) {
	return nil, errors.New("not used")
}

func courses(n int) string {
	list := make([]roadmap.CourseSuggestion, n)
	for i := range list {
		list[i] = roadmap.CourseSuggestion{Title: fmt.Sprintf("Flutter %d", i+1), URL: "https://example.com", Platform: "YouTube", Type: "video"}
	}
	raw, _ := json.Marshal(map[string]any{"summary": "Learn Flutter step by step", "courses": list})
	return string(raw)
}

func TestGenerate_SkillScenario(t *testing.T) {
	stub := &structuredStub{body: courses(10)}
	uc := NewGenerateUseCase(stub, 0, logger.NewNop())
	owner := uuid.New()

	res, err := uc.Execute(context.Background(), GenerateInput{
		OwnerID: owner,
		Mode:    roadmap.ModeSkill,
		Profile: profile.UserProfile{Interests: []string{"Flutter"}, Education: profile.EducationBachelor},
	})
	require.NoError(t, err)

	assert.Equal(t, roadmap.ModeSkill, res.Mode)
	assert.Len(t, res.Courses, 10)
	assert.Equal(t, "Flutter", res.Title)
	assert.Equal(t, owner, res.OwnerID)
	assert.NotEmpty(t, res.ID)
	assert.Empty(t, res.Universities)

	assert.Contains(t, stub.last.Prompt, "learning Flutter")
	assert.Contains(t, stub.last.Prompt, "Bachelor's Degree")
	assert.Contains(t, stub.last.Schema.Required, "courses")
	assert.InDelta(t, DefaultBatchTemperature, stub.last.Temperature, 0.0001)
}

func TestGenerate_EmptyBodyIsGenerationError(t *testing.T) {
	for _, body := range []string{"", "   ", "```json\n```"} {
		uc := NewGenerateUseCase(&structuredStub{body: body}, 0.8, logger.NewNop())
		res, err := uc.Execute(context.Background(), GenerateInput{OwnerID: uuid.New(), Mode: roadmap.ModeSkill})
		assert.Nil(t, res)
		assert.ErrorIs(t, err, apperror.ErrGeneration)
	}
}

func TestGenerate_MalformedAndMismatchedBodies(t *testing.T) {
	cases := map[string]string{
		"not json":      "I cannot help with that",
		"wrong payload": `{"summary":"x","jobs":[{"title":"Dev"}]}`,
		"no items":      `{"summary":"x","courses":[]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			uc := NewGenerateUseCase(&structuredStub{body: body}, 0.8, logger.NewNop())
			_, err := uc.Execute(context.Background(), GenerateInput{OwnerID: uuid.New(), Mode: roadmap.ModeSkill})
			assert.ErrorIs(t, err, apperror.ErrGeneration)
		})
	}
}

func TestGenerate_FencedJSONIsAccepted(t *testing.T) {
	uc := NewGenerateUseCase(&structuredStub{body: "```json\n" + `{"summary":"s","jobs":[{"title":"Go Developer","company":"Acme"}]}` + "\n```"}, 0.8, logger.NewNop())
	res, err := uc.Execute(context.Background(), GenerateInput{
		OwnerID: uuid.New(),
		Mode:    roadmap.ModeJob,
		Profile: profile.UserProfile{TargetJob: "Go Developer"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Go Developer", res.Title)
	assert.Equal(t, "Go Developer", res.Jobs[0].Label())
}

func TestGenerate_BackendErrors(t *testing.T) {
	uc := NewGenerateUseCase(&structuredStub{err: apperror.NewConfiguration("API Key not found")}, 0.8, logger.NewNop())
	_, err := uc.Execute(context.Background(), GenerateInput{Mode: roadmap.ModeUniversity})
	assert.ErrorIs(t, err, apperror.ErrConfiguration)

	uc = NewGenerateUseCase(&structuredStub{err: errors.New("dial tcp: connection refused")}, 0.8, logger.NewNop())
	_, err = uc.Execute(context.Background(), GenerateInput{Mode: roadmap.ModeUniversity})
	assert.ErrorIs(t, err, apperror.ErrTransport)
}

func TestPromptFor(t *testing.T) {
	p := profile.UserProfile{TargetField: "Robotics", Country: "Japan", TargetJob: "ML Engineer", TargetCity: "Berlin"}

	prompt, schema, err := promptFor(roadmap.ModeUniversity, p)
	require.NoError(t, err)
	assert.Contains(t, prompt, "12 universities for Robotics in Japan")
	assert.Contains(t, schema.Required, "universities")

	prompt, _, err = promptFor(roadmap.ModeJob, p)
	require.NoError(t, err)
	assert.Contains(t, prompt, `15 matching job roles for "ML Engineer" in Berlin`)

	prompt, _, err = promptFor(roadmap.ModeScholarship, profile.UserProfile{})
	require.NoError(t, err)
	assert.Contains(t, prompt, "10 global scholarships for students studying Engineering")

	_, _, err = promptFor(roadmap.Mode("POETRY"), p)
	assert.ErrorIs(t, err, roadmap.ErrInvalidMode)
}
