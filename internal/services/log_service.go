package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"merchant-console/internal/gateway"
	"merchant-console/internal/models"

	"github.com/rs/zerolog"
)

const (
	LogsPerPage   = 15
	RecentLogSize = 5
)

type LogFilter struct {
	Page      int
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
}

type LogService struct {
	gateway *gateway.Client
	logger  zerolog.Logger
}

func NewLogService(gw *gateway.Client, logger zerolog.Logger) *LogService {
	return &LogService{
		gateway: gw,
		logger:  logger,
	}
}

// Page returns one page of activity. When the backend hands back everything
// at once the search and paging are done here.
func (s *LogService) Page(ctx context.Context, f LogFilter) (*models.LogPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	listing, err := s.gateway.ListLogs(ctx, gateway.LogQuery{
		Page:      f.Page,
		Limit:     LogsPerPage,
		Search:    f.Search,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load activity logs: %w", err)
	}
	if listing.Paginated {
		page := listing.LogPage
		if page.Logs == nil {
			page.Logs = []models.LogEntry{}
		}
		return &page, nil
	}
	return paginate(filterLogs(listing.Logs, f.Search), f.Page, LogsPerPage), nil
}

func (s *LogService) Recent(ctx context.Context) ([]models.LogEntry, error) {
	page, err := s.Page(ctx, LogFilter{Page: 1})
	if err != nil {
		return nil, err
	}
	if len(page.Logs) > RecentLogSize {
		return page.Logs[:RecentLogSize], nil
	}
	return page.Logs, nil
}

func filterLogs(entries []models.LogEntry, search string) []models.LogEntry {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return entries
	}
	out := make([]models.LogEntry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Matricule), search) || strings.Contains(strings.ToLower(e.Action), search) {
			out = append(out, e)
		}
	}
	return out
}

func paginate(entries []models.LogEntry, page, size int) *models.LogPage {
	total := len(entries)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := min(start+size, total)
	return &models.LogPage{
		Logs:  append([]models.LogEntry{}, entries[start:end]...),
		Page:  page,
		Pages: pages,
		Total: total,
	}
}
