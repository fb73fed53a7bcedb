package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/internal/application/service"
	"github.com/khoahotran/stdtrack/internal/domain/chat"
	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

var tracer = otel.Tracer("export_usecase")

// ExportUseCase uploads one roadmap together with all of its threads as a
// single JSON document.
type ExportUseCase struct {
	roadmaps roadmap.Repository
	threads  chat.Store
	uploader service.Uploader
	logger   logger.Logger
	now      func() time.Time
}

// NewExportUseCase accepts a nil uploader; Execute then reports a
// configuration error.
func NewExportUseCase(roadmaps roadmap.Repository, threads chat.Store, uploader service.Uploader, log logger.Logger) *ExportUseCase {
	return &ExportUseCase{
		roadmaps: roadmaps,
		threads:  threads,
		uploader: uploader,
		logger:   log,
		now:      time.Now,
	}
}

type Archive struct {
	ExportedAt int64                     `json:"exported_at"`
	Roadmap    *roadmap.AIResult         `json:"roadmap"`
	Threads    map[string][]chat.Message `json:"threads"`
}

type ExportOutput struct {
	URL      string
	PublicID string
}

func (uc *ExportUseCase) Execute(ctx context.Context, ownerID uuid.UUID, roadmapID string) (*ExportOutput, error) {
	ctx, span := tracer.Start(ctx, "Export")
	defer span.End()

	if uc.uploader == nil {
		return nil, apperror.NewConfiguration("archive storage is not set up")
	}

	archive, err := uc.Build(ctx, ownerID, roadmapID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	body, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return nil, apperror.NewInternal("failed to encode archive", err)
	}

	timestamp := uc.now().UTC().Format("2006-01-02_15-04-05")
	folder := fmt.Sprintf("exports/%s", ownerID)
	publicID := fmt.Sprintf("roadmap-%s-%s.json", roadmapID, timestamp)

	url, err := uc.uploader.UploadRaw(ctx, bytes.NewReader(body), folder, publicID)
	if err != nil {
		uc.logger.Error("Failed to upload roadmap export", err, zap.String("roadmap_id", roadmapID))
		span.RecordError(err)
		return nil, err
	}

	uc.logger.Info("Roadmap export uploaded",
		zap.String("url", url),
		zap.String("public_id", publicID),
		zap.Int("threads", len(archive.Threads)),
	)
	return &ExportOutput{URL: url, PublicID: folder + "/" + publicID}, nil
}

// Build collects the roadmap-level thread and one thread per item. Empty
// threads are left out.
func (uc *ExportUseCase) Build(ctx context.Context, ownerID uuid.UUID, roadmapID string) (*Archive, error) {
	res, err := uc.roadmaps.FindByID(ctx, roadmapID, ownerID)
	if err != nil {
		return nil, err
	}

	keys := []chat.ThreadKey{chat.NewThreadKey(ownerID, roadmapID, "")}
	seen := map[string]bool{}
	for _, item := range res.Items() {
		label := item.Label()
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		keys = append(keys, chat.NewThreadKey(ownerID, roadmapID, label))
	}

	threads := make(map[string][]chat.Message)
	for _, key := range keys {
		msgs, err := uc.threads.List(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			continue
		}
		chat.SortByTimestamp(msgs)
		threads[key.ID()] = msgs
	}

	return &Archive{ExportedAt: uc.now().UnixMilli(), Roadmap: res, Threads: threads}, nil
}
