package notification

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogDispatcher only logs notification requests. Used in development.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.With("module", "notification")}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, req Request) (string, error) {
	id := uuid.NewString()

	d.logger.InfoContext(ctx, "notification requested",
		"notification_id", id,
		"candidate_id", req.CandidateID,
		"type", req.Type,
		"old_stage", req.OldStage,
		"new_stage", req.NewStage,
	)

	return id, nil
}
