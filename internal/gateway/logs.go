package gateway

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"merchant-console/internal/models"
)

type LogQuery struct {
	Page      int
	Limit     int
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
}

// LogListing is one answer of /api/logs. Older backends send the full array;
// Paginated is false then and the caller pages locally.
type LogListing struct {
	models.LogPage
	Paginated bool
}

func (c *Client) ListLogs(ctx context.Context, q LogQuery) (*LogListing, error) {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.StartDate != nil {
		values.Set("startDate", q.StartDate.UTC().Format(time.RFC3339))
	}
	if q.EndDate != nil {
		values.Set("endDate", q.EndDate.UTC().Format(time.RFC3339))
	}

	cl := call{endpoint: "logs_list", method: http.MethodGet, path: "/api/logs", query: values}
	resp, err := c.send(ctx, cl)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", cl.endpoint, err)
	}
	listing, err := decodeLogs(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", cl.endpoint, err)
	}
	return listing, nil
}

func decodeLogs(raw []byte) (*LogListing, error) {
	raw = bytes.TrimSpace(raw)
	out := &LogListing{}
	if len(raw) == 0 {
		return out, nil
	}

	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &out.Logs); err != nil {
			return nil, err
		}
		sortLogs(out.Logs)
		out.Total = len(out.Logs)
		return out, nil
	}

	if err := json.Unmarshal(raw, &out.LogPage); err != nil {
		return nil, err
	}
	out.Paginated = true
	sortLogs(out.Logs)
	return out, nil
}

func sortLogs(list []models.LogEntry) {
	slices.SortStableFunc(list, func(a, b models.LogEntry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
