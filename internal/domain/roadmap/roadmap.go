package roadmap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/stdtrack/internal/domain/profile"
)

type Mode string

const (
	ModeSkill       Mode = "SKILL"
	ModeUniversity  Mode = "UNIVERSITY"
	ModeScholarship Mode = "SCHOLARSHIP"
	ModeJob         Mode = "JOB"
)

const DefaultTitle = "AI Strategy"

var (
	ErrRoadmapNotFound = errors.New("roadmap not found")
	ErrInvalidMode     = errors.New("invalid roadmap mode")
	ErrPayloadMismatch = errors.New("roadmap payload does not match its mode")
	ErrItemNotFound    = errors.New("roadmap item not found")
)

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

func (m Mode) Valid() bool {
	switch m {
	case ModeSkill, ModeUniversity, ModeScholarship, ModeJob:
		return true
	}
	return false
}

// ItemLabel is the display string a chat thread about an item is keyed on:
// the name when present, otherwise the title.
func ItemLabel(name, title string) string {
	if name != "" {
		return name
	}
	return title
}

type Item interface {
	Label() string
}

type CourseSuggestion struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Platform    string `json:"platform"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

func (c CourseSuggestion) Label() string { return ItemLabel("", c.Title) }

type UniversitySuggestion struct {
	Name        string `json:"name"`
	Degree      string `json:"degree"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

func (u UniversitySuggestion) Label() string { return ItemLabel(u.Name, "") }

type ScholarshipSuggestion struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Coverage    string `json:"coverage"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

func (s ScholarshipSuggestion) Label() string { return ItemLabel(s.Name, "") }

type JobSuggestion struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

func (j JobSuggestion) Label() string { return ItemLabel("", j.Title) }

type Task struct {
	Title    string `json:"title"`
	Platform string `json:"platform"`
	Duration string `json:"duration"`
	Course   string `json:"course"`
}

type WeeklyPlan struct {
	Week  int    `json:"week"`
	Tasks []Task `json:"tasks"`
}

type DailyLog struct {
	Date   int64  `json:"date"`
	Update string `json:"update"`
}

// AIResult is one persisted generation outcome. Only the title and the
// logs change after creation.
type AIResult struct {
	ID                string                  `json:"id"`
	OwnerID           uuid.UUID               `json:"-"`
	Mode              Mode                    `json:"mode"`
	Timestamp         int64                   `json:"timestamp"`
	Profile           profile.UserProfile     `json:"profile"`
	Summary           string                  `json:"summary"`
	Title             string                  `json:"title,omitempty"`
	Courses           []CourseSuggestion      `json:"courses,omitempty"`
	Universities      []UniversitySuggestion  `json:"universities,omitempty"`
	Scholarships      []ScholarshipSuggestion `json:"scholarships,omitempty"`
	Jobs              []JobSuggestion         `json:"jobs,omitempty"`
	WeeklyPlan        []WeeklyPlan            `json:"weekly_plan,omitempty"`
	CareerSuggestions []string                `json:"career_suggestions,omitempty"`
	Logs              []DailyLog              `json:"logs,omitempty"`
}

func (r *AIResult) CreatedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Validate checks that exactly one payload list is populated and that it
// is the one matching Mode.
func (r *AIResult) Validate() error {
	if !r.Mode.Valid() {
		return ErrInvalidMode
	}
	populated := map[Mode]bool{
		ModeSkill:       len(r.Courses) > 0,
		ModeUniversity:  len(r.Universities) > 0,
		ModeScholarship: len(r.Scholarships) > 0,
		ModeJob:         len(r.Jobs) > 0,
	}
	count := 0
	for _, ok := range populated {
		if ok {
			count++
		}
	}
	if count != 1 || !populated[r.Mode] {
		return ErrPayloadMismatch
	}
	return nil
}

// Items returns the mode's payload as a list of labelled items.
func (r *AIResult) Items() []Item {
	var items []Item
	switch r.Mode {
	case ModeSkill:
		for _, c := range r.Courses {
			items = append(items, c)
		}
	case ModeUniversity:
		for _, u := range r.Universities {
			items = append(items, u)
		}
	case ModeScholarship:
		for _, s := range r.Scholarships {
			items = append(items, s)
		}
	case ModeJob:
		for _, j := range r.Jobs {
			items = append(items, j)
		}
	}
	return items
}

// FindItem looks an item up by its label. Labels compare trimmed, the way
// thread keys store them.
func (r *AIResult) FindItem(label string) (Item, error) {
	label = strings.TrimSpace(label)
	for _, it := range r.Items() {
		if strings.TrimSpace(it.Label()) == label {
			return it, nil
		}
	}
	return nil, ErrItemNotFound
}

func (r *AIResult) AddLog(at time.Time, update string) DailyLog {
	l := DailyLog{Date: at.UnixMilli(), Update: update}
	r.Logs = append(r.Logs, l)
	return l
}

// DefaultTitleFor picks the sidebar title for a roadmap generated from p.
func DefaultTitleFor(p profile.UserProfile) string {
	switch {
	case p.TargetJob != "":
		return p.TargetJob
	case p.TargetField != "":
		return p.TargetField
	case p.FirstInterest() != "":
		return p.FirstInterest()
	}
	return DefaultTitle
}

type Repository interface {
	Save(ctx context.Context, r *AIResult) error
	FindByID(ctx context.Context, id string, ownerID uuid.UUID) (*AIResult, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*AIResult, error)
	Rename(ctx context.Context, id string, ownerID uuid.UUID, title string) error
	AppendLog(ctx context.Context, id string, ownerID uuid.UUID, log DailyLog) error
	Delete(ctx context.Context, id string, ownerID uuid.UUID) error
}
