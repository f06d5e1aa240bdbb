package usecase

import (
	"time"

	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model/config"
	"github.com/secmon-lab/riskdesk/pkg/service/slack"
	"github.com/secmon-lab/riskdesk/pkg/utils/async"
)

type UseCases struct {
	repo         interfaces.Repository
	catalog      *config.Catalog
	storage      interfaces.DocumentStorage
	slackService slack.Service
	slackChannel string
	dispatcher   *async.Dispatcher
	clock        func() time.Time

	Risk       *RiskUseCase
	Assignment *AssignmentUseCase
	Dashboard  *DashboardUseCase
}

type Option func(*UseCases)

// WithCatalog sets the category catalog used to validate submissions
func WithCatalog(catalog *config.Catalog) Option {
	return func(uc *UseCases) {
		uc.catalog = catalog
	}
}

// WithDocumentStorage enables document uploads
func WithDocumentStorage(storage interfaces.DocumentStorage) Option {
	return func(uc *UseCases) {
		uc.storage = storage
	}
}

// WithSlack enables intake notifications to the given channel
func WithSlack(svc slack.Service, channelID string) Option {
	return func(uc *UseCases) {
		uc.slackService = svc
		uc.slackChannel = channelID
	}
}

// WithDispatcher sets the dispatcher running background notifications
func WithDispatcher(d *async.Dispatcher) Option {
	return func(uc *UseCases) {
		uc.dispatcher = d
	}
}

// WithClock overrides the time source of dashboards
func WithClock(clock func() time.Time) Option {
	return func(uc *UseCases) {
		uc.clock = clock
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:       repo,
		catalog:    config.DefaultCatalog(),
		dispatcher: &async.Dispatcher{},
		clock:      time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Assignment = NewAssignmentUseCase(repo)
	uc.Risk = NewRiskUseCase(repo, uc.Assignment, uc.catalog, uc.storage, &notifier{
		slackService: uc.slackService,
		channelID:    uc.slackChannel,
		users:        repo.User(),
		dispatcher:   uc.dispatcher,
	})
	uc.Dashboard = NewDashboardUseCase(repo, uc.clock)

	return uc
}

// Wait blocks until background notifications have finished
func (uc *UseCases) Wait() {
	uc.dispatcher.Wait()
}
