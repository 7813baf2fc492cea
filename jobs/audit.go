package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/sirupsen/logrus"
)

// AuthEventArgs records one successful authentication. Events are written
// asynchronously so the hot auth path never waits on the audit table.
type AuthEventArgs struct {
	Subject    string    `json:"subject"`
	Username   string    `json:"username"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"user_agent"`
	ObservedAt time.Time `json:"observed_at"`
}

func (AuthEventArgs) Kind() string { return "auth_event" }

// AuthEventWorker persists queued auth events.
type AuthEventWorker struct {
	river.WorkerDefaults[AuthEventArgs]
	pg *pgxpool.Pool
}

func (w *AuthEventWorker) Work(ctx context.Context, job *river.Job[AuthEventArgs]) error {
	_, err := w.pg.Exec(ctx,
		`INSERT INTO auth_events (subject, username, ip, user_agent, observed_at) VALUES ($1, $2, $3, $4, $5)`,
		job.Args.Subject, job.Args.Username, job.Args.IP, job.Args.UserAgent, job.Args.ObservedAt)
	return err
}

// NewRiverClient assembles the job queue client with all workers registered.
func NewRiverClient(pool *pgxpool.Pool) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, &AuthEventWorker{pg: pool})
	return river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 4},
		},
		Workers: workers,
	})
}

// Auditor enqueues auth events, best-effort. Enqueue failures are logged and
// otherwise ignored; auditing must never fail a request.
type Auditor struct {
	client *river.Client[pgx.Tx]
	log    logrus.FieldLogger
}

func NewAuditor(client *river.Client[pgx.Tx], log logrus.FieldLogger) *Auditor {
	return &Auditor{client: client, log: log}
}

// LogAuth queues an authentication event.
func (a *Auditor) LogAuth(ctx context.Context, subject, username, ip, userAgent string) {
	if a == nil || a.client == nil {
		return
	}
	_, err := a.client.Insert(ctx, AuthEventArgs{
		Subject:    subject,
		Username:   username,
		IP:         ip,
		UserAgent:  userAgent,
		ObservedAt: time.Now().UTC(),
	}, nil)
	if err != nil {
		a.log.WithError(err).Debug("auth event enqueue failed")
	}
}
