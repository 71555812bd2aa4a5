package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"merchant-console/internal/gateway"
	"merchant-console/internal/models"

	"github.com/rs/zerolog"
)

// Widget is one independently loaded block of a dashboard. Exactly one of
// Data and Error is meaningful.
type Widget[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

func (w Widget[T]) Failed() bool { return w.Error != "" }

type AdminDashboard struct {
	Supervisors    Widget[int]                           `json:"supervisors"`
	Agents         Widget[int]                           `json:"agents"`
	Merchants      Widget[map[models.MerchantStatus]int] `json:"merchants"`
	RecentActivity Widget[[]models.LogEntry]             `json:"recentActivity"`
}

type SupervisorDashboard struct {
	Stats       Widget[map[models.MerchantStatus]int] `json:"stats"`
	Pending     Widget[[]models.Merchant]             `json:"pendingMerchants"`
	Performance Widget[[]models.Agent]                `json:"agentPerformance"`
}

type DashboardService struct {
	gateway *gateway.Client
	logs    *LogService
	logger  zerolog.Logger
}

func NewDashboardService(gw *gateway.Client, logs *LogService, logger zerolog.Logger) *DashboardService {
	return &DashboardService{
		gateway: gw,
		logs:    logs,
		logger:  logger,
	}
}

// dashboardRun fans widget fetches out and remembers whether any of them
// was refused for an expired session.
type dashboardRun struct {
	wg           sync.WaitGroup
	logger       zerolog.Logger
	unauthorized atomic.Bool
}

func (run *dashboardRun) wait() error {
	run.wg.Wait()
	if run.unauthorized.Load() {
		return gateway.ErrUnauthorized
	}
	return nil
}

// load runs fetch and stores its outcome in w. A failure only affects w.
func load[T any](ctx context.Context, run *dashboardRun, name, fallback string, w *Widget[T], fetch func(context.Context) (T, error)) {
	run.wg.Add(1)
	go func() {
		defer run.wg.Done()
		data, err := fetch(ctx)
		if err != nil {
			if errors.Is(err, gateway.ErrUnauthorized) {
				run.unauthorized.Store(true)
			}
			run.logger.Warn().Err(err).Str("widget", name).Msg("Dashboard widget failed")
			w.Error = gateway.UserMessage(err, fallback)
			return
		}
		w.Data = data
	}()
}

// Admin loads every admin widget concurrently. The only error returned is
// gateway.ErrUnauthorized; anything else stays inside its widget.
func (s *DashboardService) Admin(ctx context.Context) (*AdminDashboard, error) {
	d := &AdminDashboard{}
	run := &dashboardRun{logger: s.logger}

	load(ctx, run, "supervisors", "Impossible de charger les superviseurs.", &d.Supervisors, func(ctx context.Context) (int, error) {
		list, err := s.gateway.ListSupervisors(ctx)
		return len(list), err
	})
	load(ctx, run, "agents", "Impossible de charger les agents.", &d.Agents, func(ctx context.Context) (int, error) {
		list, err := s.gateway.ListAgents(ctx)
		return len(list), err
	})
	load(ctx, run, "merchants", "Impossible de charger les statistiques.", &d.Merchants, func(ctx context.Context) (map[models.MerchantStatus]int, error) {
		stats, err := s.gateway.DashboardStats(ctx)
		if err != nil {
			return nil, err
		}
		return stats.Stats, nil
	})
	load(ctx, run, "recent_activity", "Impossible de charger l'activité récente.", &d.RecentActivity, s.logs.Recent)

	if err := run.wait(); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DashboardService) Supervisor(ctx context.Context) (*SupervisorDashboard, error) {
	d := &SupervisorDashboard{}
	run := &dashboardRun{logger: s.logger}

	var stats Widget[*models.DashboardStats]
	load(ctx, run, "stats", "Impossible de charger les statistiques.", &stats, s.gateway.DashboardStats)
	load(ctx, run, "agent_performance", "Impossible de charger la performance des agents.", &d.Performance, s.gateway.AgentPerformance)
	if err := run.wait(); err != nil {
		return nil, err
	}

	if stats.Failed() {
		d.Stats.Error = stats.Error
		d.Pending.Error = stats.Error
		return d, nil
	}
	d.Stats.Data = stats.Data.Stats
	d.Pending.Data = stats.Data.PendingMerchants
	if d.Pending.Data == nil {
		d.Pending.Data = []models.Merchant{}
	}
	return d, nil
}
