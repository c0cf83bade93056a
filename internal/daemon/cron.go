package daemon

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/spark-admin/spark-admin/internal/config"
	"github.com/spark-admin/spark-admin/internal/db/controller/activity"
	"github.com/spark-admin/spark-admin/internal/web/session"
)

const day = 24 * time.Hour

// cronLogger writes robfig/cron messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug().Str("component", "cron").Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error().Err(err).Str("component", "cron").Fields(keysAndValues).Msg(msg)
}

// newScheduler registers the retention and session cleanup jobs.
func newScheduler(cfg config.Audit, sink *activity.Sink, storage fiber.Storage) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)

	if cfg.RetentionDays > 0 {
		maxAge := time.Duration(cfg.RetentionDays) * day

		if _, err := c.AddFunc(cfg.PruneSchedule, func() { pruneActivity(context.Background(), sink, maxAge) }); err != nil {
			return nil, err
		}
	}

	if gs, ok := storage.(*session.GormStorage); ok {
		if _, err := c.AddFunc("@hourly", func() { gcSessions(gs) }); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func pruneActivity(ctx context.Context, sink *activity.Sink, maxAge time.Duration) {
	removed, err := sink.Prune(ctx, maxAge)
	if err != nil {
		log.Error().Err(err).Msg("activity log prune failed")
		return
	}

	log.Info().Int64("removed", removed).Dur("max_age", maxAge).Msg("activity log pruned")
}

func gcSessions(s *session.GormStorage) {
	removed, err := s.GC()
	if err != nil {
		log.Error().Err(err).Msg("session cleanup failed")
		return
	}

	log.Debug().Int64("removed", removed).Msg("expired sessions removed")
}
