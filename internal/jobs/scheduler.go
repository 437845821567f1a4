package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// OTPSweeper deletes one-time codes that expired before cutoff.
type OTPSweeper interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Scheduler struct {
	cron      *cron.Cron
	otps      OTPSweeper
	retention time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewScheduler keeps expired codes for retention before sweeping them so a
// late verify still reports the code as expired. A zero retention disables
// the sweep.
func NewScheduler(otps OTPSweeper, retention time.Duration, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:      c,
		otps:      otps,
		retention: retention,
		log:       log,
		now:       time.Now,
	}
}

func (s *Scheduler) Start() error {
	if s.otps == nil || s.retention <= 0 {
		s.log.Info().Msg("otp sweep disabled")
		return nil
	}

	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.sweepExpiredOTPs); err != nil { // hourly
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits up to five seconds for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) sweepExpiredOTPs() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := s.now().Add(-s.retention)
	deleted, err := s.otps.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("otp sweep failed")
		return
	}
	if deleted > 0 {
		s.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("expired otps swept")
	}
}
