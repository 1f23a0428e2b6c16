package quotation

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TaskCloseExpired sweeps overdue quotations into closed state.
const TaskCloseExpired = "quotation:close_expired"

// NewCloseExpiredTask builds the periodic sweep task.
func NewCloseExpiredTask() *asynq.Task {
	return asynq.NewTask(TaskCloseExpired, nil)
}

// TaskHandler adapts the service to asynq handlers.
type TaskHandler struct {
	Service *Service
	Logger  zerolog.Logger
}

// HandleCloseExpired processes a close-expired sweep.
func (h TaskHandler) HandleCloseExpired(ctx context.Context, _ *asynq.Task) error {
	closed, err := h.Service.CloseExpired(ctx)
	if err != nil {
		h.Logger.Error().Err(err).Msg("close_expired_failed")
		return err
	}
	if closed > 0 {
		h.Logger.Info().Int("closed", closed).Msg("close_expired_done")
	}
	return nil
}
