package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/stdtrack/adapters/event"
	"github.com/khoahotran/stdtrack/adapters/persistence/memory"
	"github.com/khoahotran/stdtrack/internal/application/service"
	authUC "github.com/khoahotran/stdtrack/internal/application/usecase/auth"
	chatUC "github.com/khoahotran/stdtrack/internal/application/usecase/chat"
	exportUC "github.com/khoahotran/stdtrack/internal/application/usecase/export"
	profileUC "github.com/khoahotran/stdtrack/internal/application/usecase/profile"
	roadmapUC "github.com/khoahotran/stdtrack/internal/application/usecase/roadmap"
	"github.com/khoahotran/stdtrack/internal/application/usecase/workspace"
	"github.com/khoahotran/stdtrack/internal/domain/profile"
	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
	"github.com/khoahotran/stdtrack/pkg/auth"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

type scriptedLLM struct {
	structured string
	chunks     []string
}

func (s *scriptedLLM) GenerateStructured(context.Context, service.StructuredRequest) (string, error) {
	return s.structured, nil
}

func (s *scriptedLLM) StreamChat(ctx context.Context, _ service.ChatRequest) (<-chan service.ChatChunk, error) {
	out := make(chan service.ChatChunk)
	go func() {
		defer close(out)
		for _, c := range s.chunks {
			select {
			case out <- service.ChatChunk{Text: c}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

type APITestSuite struct {
	suite.Suite
	router *gin.Engine
	llm    *scriptedLLM
	token  string
}

func (s *APITestSuite) SetupTest() {
	log := logger.NewNop()
	users := memory.NewUserStore()
	roadmaps := memory.NewRoadmapStore()
	threads := memory.NewChatStore()
	s.llm = &scriptedLLM{
		structured: `{"summary":"Scholarships for AI","scholarships":[{"name":"Chevening","provider":"UK"},{"name":"Fulbright","provider":"US"}]}`,
		chunks:     []string{"Apply ", "by November."},
	}

	jwtSvc := auth.NewJWTService("api-test-secret", time.Hour)
	profiles := profileUC.NewProfileUseCase(memory.NewProfileStore(), log)
	registry := workspace.NewRegistry(roadmaps, threads, profiles, roadmapUC.NewGenerateUseCase(s.llm, 0.8, log), event.NopPublisher{}, log)
	submit := chatUC.NewSubmitUseCase(threads, roadmaps, s.llm, memory.NewInflightGuard(), chatUC.SubmitConfig{}, log)

	gin.SetMode(gin.TestMode)
	s.router = NewRouter(Handlers{
		Auth:    NewAuthHandler(authUC.NewAuthUseCase(users, jwtSvc, log), registry, log),
		Profile: NewProfileHandler(registry, log),
		Roadmap: NewRoadmapHandler(registry, exportUC.NewExportUseCase(roadmaps, threads, nil, log), log),
		Chat:    NewChatHandler(submit, chatUC.NewManageUseCase(threads, log), threads, log),
		Feed:    NewFeedHandler(roadmapUC.NewProgressFeedUseCase(roadmaps, "http://localhost:5173", log), log),
	}, jwtSvc, []string{"http://localhost:5173"}, log)

	rr := s.do(http.MethodPost, "/api/auth/signup", gin.H{"email": "lan@example.com", "password": "secret1"}, "")
	s.Require().Equal(http.StatusCreated, rr.Code)
	var resp AuthResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	s.token = resp.AccessToken
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *APITestSuite) generate() roadmap.AIResult {
	rr := s.do(http.MethodPost, "/api/roadmaps", gin.H{
		"mode":    "scholarship",
		"profile": gin.H{"interests": []string{"AI"}, "country": "Vietnam"},
	}, s.token)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	var res roadmap.AIResult
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &res))
	return res
}

func (s *APITestSuite) Test_Login_Flow() {
	rr := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "lan@example.com", "password": "wrongpassword"}, "")
	s.Equal(http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "lan@example.com", "password": "secret1"}, "")
	s.Equal(http.StatusOK, rr.Code)

	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/me", nil, "").Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/me", nil, s.token).Code)
}

func (s *APITestSuite) Test_GenerateAndManageRoadmap() {
	res := s.generate()
	s.Equal(roadmap.ModeScholarship, res.Mode)
	s.Equal("AI", res.Title)
	s.Len(res.Scholarships, 2)

	rr := s.do(http.MethodGet, "/api/workspace", nil, s.token)
	s.Require().Equal(http.StatusOK, rr.Code)
	var ws WorkspaceDTO
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &ws))
	s.Equal(res.ID, ws.CurrentID)
	s.Equal("Vietnam", ws.Profile.Country)

	rr = s.do(http.MethodPatch, "/api/roadmaps/"+res.ID, gin.H{"title": "Study abroad"}, s.token)
	s.Equal(http.StatusOK, rr.Code)
	rr = s.do(http.MethodPost, "/api/roadmaps/"+res.ID+"/logs", gin.H{"update": "Drafted essay"}, s.token)
	s.Equal(http.StatusCreated, rr.Code)

	rr = s.do(http.MethodGet, "/api/roadmaps/"+res.ID+"/feed?access_token="+s.token, nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), "Drafted essay")

	rr = s.do(http.MethodPost, "/api/roadmaps/"+res.ID+"/export", nil, s.token)
	s.Equal(http.StatusServiceUnavailable, rr.Code)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/roadmaps/"+res.ID, nil, s.token).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/roadmaps/"+res.ID, nil, s.token).Code)
}

func (s *APITestSuite) Test_ProfilePatchClearsExplicitlyEmptyField() {
	rr := s.do(http.MethodPatch, "/api/profile", gin.H{"targetJob": "Backend Engineer", "country": "Vietnam"}, s.token)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPatch, "/api/profile", gin.H{"targetJob": ""}, s.token)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodGet, "/api/profile", nil, s.token)
	s.Require().Equal(http.StatusOK, rr.Code)
	var p profile.UserProfile
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &p))
	s.Empty(p.TargetJob)
	s.Equal("Vietnam", p.Country)
}

func (s *APITestSuite) Test_InvalidModeAndForm() {
	rr := s.do(http.MethodPost, "/api/roadmaps", gin.H{"mode": "poetry"}, s.token)
	s.Equal(http.StatusBadRequest, rr.Code)
	rr = s.do(http.MethodPost, "/api/roadmaps", gin.H{"mode": "JOB", "profile": gin.H{}}, s.token)
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Contains(rr.Body.String(), "invalid input")
}

func (s *APITestSuite) Test_ChatSubmitStreamsAndPersists() {
	res := s.generate()

	rr := s.do(http.MethodPost, "/api/roadmaps/"+res.ID+"/threads/messages", gin.H{"item": "Fulbright", "question": "When to apply?"}, s.token)
	s.Require().Equal(http.StatusOK, rr.Code)
	body := rr.Body.String()
	s.Contains(body, "event:buffer")
	s.Contains(body, "event:done")
	s.Contains(body, "Apply by November.")

	rr = s.do(http.MethodGet, "/api/roadmaps/"+res.ID+"/threads?item=Fulbright", nil, s.token)
	s.Require().Equal(http.StatusOK, rr.Code)
	var thread ThreadDTO
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &thread))
	s.Equal(res.ID+"_Fulbright", thread.ThreadID)
	s.Require().Len(thread.Messages, 2)
	s.Less(thread.Messages[0].Timestamp, thread.Messages[1].Timestamp)

	rr = s.do(http.MethodDelete, "/api/roadmaps/"+res.ID+"/threads/messages/"+thread.Messages[1].ID.String()+"?item=Fulbright", nil, s.token)
	s.Equal(http.StatusNoContent, rr.Code)
	rr = s.do(http.MethodDelete, "/api/roadmaps/"+res.ID+"/threads?item=Fulbright", nil, s.token)
	s.Equal(http.StatusNoContent, rr.Code)
}

func (s *APITestSuite) Test_ChatEmptyQuestionIsRejected() {
	res := s.generate()
	rr := s.do(http.MethodPost, "/api/roadmaps/"+res.ID+"/threads/messages", gin.H{"question": "   "}, s.token)
	s.Equal(http.StatusConflict, rr.Code)
}

func (s *APITestSuite) Test_ThreadEventsStreamSnapshots() {
	res := s.generate()
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/api/roadmaps/"+res.ID+"/threads/events?access_token="+s.token, nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	nextSnapshot := func() ThreadDTO {
		for {
			line, err := reader.ReadString('\n')
			s.Require().NoError(err)
			if strings.HasPrefix(line, "data:") {
				var dto ThreadDTO
				s.Require().NoError(json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &dto))
				return dto
			}
		}
	}

	initial := nextSnapshot()
	s.Equal(res.ID, initial.ThreadID)
	s.Empty(initial.Messages)

	rr := s.do(http.MethodPost, "/api/roadmaps/"+res.ID+"/threads/messages", gin.H{"question": "Overview?"}, s.token)
	s.Require().Equal(http.StatusOK, rr.Code)

	for snap := nextSnapshot(); len(snap.Messages) < 2; snap = nextSnapshot() {
		s.LessOrEqual(len(snap.Messages), 2)
	}
}

func (s *APITestSuite) Test_CORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/api/roadmaps", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	s.Equal(http.StatusNoContent, rr.Code)
	s.Equal("http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}
