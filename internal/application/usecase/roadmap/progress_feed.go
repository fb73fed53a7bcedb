package roadmap

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/feeds"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

// ProgressFeedUseCase publishes the daily progress log of one roadmap as a
// feed, newest update first.
type ProgressFeedUseCase struct {
	roadmaps roadmap.Repository
	baseURL  string
	logger   logger.Logger
}

func NewProgressFeedUseCase(roadmaps roadmap.Repository, baseURL string, log logger.Logger) *ProgressFeedUseCase {
	return &ProgressFeedUseCase{
		roadmaps: roadmaps,
		baseURL:  baseURL,
		logger:   log,
	}
}

func (uc *ProgressFeedUseCase) Execute(ctx context.Context, ownerID uuid.UUID, roadmapID string) (*feeds.Feed, error) {
	ctx, span := tracer.Start(ctx, "ProgressFeed")
	defer span.End()

	res, err := uc.roadmaps.FindByID(ctx, roadmapID, ownerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	title := res.Title
	if title == "" {
		title = roadmap.DefaultTitleFor(res.Profile)
	}
	link := fmt.Sprintf("%s/roadmaps/%s", uc.baseURL, res.ID)

	feed := &feeds.Feed{
		Id:          link,
		Title:       title + " - progress",
		Link:        &feeds.Link{Href: link},
		Description: res.Summary,
		Created:     res.CreatedAt(),
	}

	logs := append([]roadmap.DailyLog(nil), res.Logs...)
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Date > logs[j].Date })
	for i, entry := range logs {
		at := time.UnixMilli(entry.Date)
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          fmt.Sprintf("%s#log-%d", link, entry.Date),
			Title:       "Update " + at.UTC().Format("2006-01-02"),
			Link:        &feeds.Link{Href: link},
			Description: entry.Update,
			Created:     at,
		})
		if i == 0 {
			feed.Updated = at
		}
	}

	uc.logger.Info("Progress feed generated", zap.String("roadmap_id", res.ID), zap.Int("item_count", len(feed.Items)))
	return feed, nil
}
