package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/service/slack"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
)

// SlackUserLinkWorker periodically resolves the Slack user of directory users
// that have an email address but no Slack user ID yet, so that owner
// notifications can mention them.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
type SlackUserLinkWorker struct {
	repo         interfaces.Repository
	slackService slack.Service
	interval     time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// ErrInvalidInterval is returned for a non-positive link interval
var ErrInvalidInterval = goerr.New("link interval must be positive")

// NewSlackUserLinkWorker creates a new worker for linking Slack users
func NewSlackUserLinkWorker(repo interfaces.Repository, slackSvc slack.Service, interval time.Duration) (*SlackUserLinkWorker, error) {
	if interval <= 0 {
		return nil, goerr.Wrap(ErrInvalidInterval, "invalid Slack user link interval", goerr.V("interval", interval.String()))
	}

	return &SlackUserLinkWorker{
		repo:         repo,
		slackService: slackSvc,
		interval:     interval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins the background link loop. The initial pass runs in the
// background too and does not block server startup.
func (w *SlackUserLinkWorker) Start(ctx context.Context) {
	logging.Default().Info("Slack user link worker starting",
		"interval", w.interval.String())

	go w.run(ctx)
}

// Stop signals the worker to stop and waits for completion
func (w *SlackUserLinkWorker) Stop() {
	logging.Default().Info("Slack user link worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Slack user link worker stopped")
}

func (w *SlackUserLinkWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if _, err := w.Link(ctx); err != nil {
		logging.Default().Error("Initial Slack user link failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Link(ctx); err != nil {
				logging.Default().Error("Slack user link failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Slack user link worker context cancelled")
			return
		}
	}
}

// Link performs a single pass and returns the number of users linked. Users
// whose email cannot be resolved are skipped and retried on the next pass.
func (w *SlackUserLinkWorker) Link(ctx context.Context) (int, error) {
	startTime := time.Now()

	users, err := w.repo.User().List(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list users")
	}

	var linked []*model.User
	for _, u := range users {
		if u.SlackUserID != "" || u.Email == "" {
			continue
		}

		su, err := w.slackService.LookupUserByEmail(ctx, u.Email)
		if err != nil {
			logging.Default().Warn("Slack user not found for email",
				"user_id", u.ID, "error", err.Error())
			continue
		}

		updated := *u
		updated.SlackUserID = su.ID
		linked = append(linked, &updated)
	}

	if len(linked) > 0 {
		if err := w.repo.User().SaveMany(ctx, linked); err != nil {
			return 0, goerr.Wrap(err, "failed to save linked users", goerr.V("count", len(linked)))
		}
	}

	logging.Default().Info("Slack user link completed",
		"linked", len(linked),
		"duration", time.Since(startTime).String())

	return len(linked), nil
}
