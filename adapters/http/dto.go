package http

import (
	"time"

	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/internal/domain/profile"
	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
	"github.com/khoahotran/stdtrack/internal/domain/user"
)

// Auth DTOs

type SignUpRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type UserDTO struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuthResponse struct {
	AccessToken string  `json:"access_token"`
	User        UserDTO `json:"user"`
}

func ToUserDTO(u *user.User) UserDTO {
	return UserDTO{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

// Roadmap DTOs

type GenerateRoadmapRequest struct {
	Mode    string        `json:"mode" binding:"required"`
	Profile profile.Patch `json:"profile"`
}

type RenameRoadmapRequest struct {
	Title string `json:"title" binding:"required"`
}

type AppendLogRequest struct {
	Update string `json:"update" binding:"required"`
}

type RoadmapSummaryDTO struct {
	ID        string `json:"id"`
	Mode      string `json:"mode"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
	Items     int    `json:"items"`
}

func ToRoadmapSummaryDTO(r *roadmap.AIResult) RoadmapSummaryDTO {
	return RoadmapSummaryDTO{
		ID:        r.ID,
		Mode:      string(r.Mode),
		Title:     r.Title,
		Timestamp: r.Timestamp,
		Items:     len(r.Items()),
	}
}

type WorkspaceDTO struct {
	Roadmaps  []RoadmapSummaryDTO `json:"roadmaps"`
	CurrentID string              `json:"current_id,omitempty"`
	Profile   profile.UserProfile `json:"profile"`
}

type ExportResponse struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// Chat DTOs

type SubmitChatRequest struct {
	Item     string `json:"item"`
	Question string `json:"question"`
}

type ThreadDTO struct {
	ThreadID string         `json:"thread_id"`
	Messages []chat.Message `json:"messages"`
}

type BufferEvent struct {
	Text string `json:"text"`
}

type DoneEvent struct {
	UserMessage      *chat.Message `json:"user_message"`
	AssistantMessage *chat.Message `json:"assistant_message"`
}
