package scheduler

import (
	"github.com/rs/zerolog/log"

	"github.com/chalklinehq/chalkline/internal/api/auth"
)

// RegisterSessionPruneJob schedules periodic removal of expired sessions.
func RegisterSessionPruneJob(s *Service, cronExpr string) error {
	jobName := "session_prune"
	jobLogger := log.With().
		Str("component", "session_prune_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err := s.AddJob(jobName, cronExpr, func() {
		pruned := auth.PruneExpiredSessions()
		if pruned > 0 {
			jobLogger.Info().Int("pruned", pruned).Msg("Expired sessions removed")
		}
	})
	return err
}
