package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/streamtrack/streamtrack/keycloak"
	"github.com/streamtrack/streamtrack/users"
)

// stuckAge is how long a registration may sit incomplete before the sweep
// picks it up.
const stuckAge = 10 * time.Minute

// StartSchedules runs the periodic maintenance jobs: a JWKS refresh so key
// rotations are picked up ahead of verification failures, and a sweep that
// repairs registrations stalled between the identity provider and the local
// store. The returned cron must be stopped on shutdown.
func StartSchedules(keys *keycloak.KeyProvider, svc *users.Service, log logrus.FieldLogger) *cron.Cron {
	c := cron.New()

	_, _ = c.AddFunc("@every 10m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := keys.Refresh(ctx); err != nil {
			log.WithError(err).Warn("scheduled jwks refresh failed")
		}
	})

	_, _ = c.AddFunc("@every 5m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := svc.RepairStuck(ctx, stuckAge); err != nil {
			log.WithError(err).Warn("registration sweep failed")
		}
	})

	c.Start()
	return c
}
