package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ExportKind string

const (
	ExportMerchants   ExportKind = "merchants"
	ExportOperators   ExportKind = "operators"
	ExportNearby      ExportKind = "nearby"
	ExportSuivi       ExportKind = "suivi"
	ExportPerformance ExportKind = "performance"
)

type exportSpec struct {
	dateLayout string
	extension  string
	noData     string
}

var exportSpecs = map[ExportKind]exportSpec{
	ExportMerchants:   {time.RFC3339, "xlsx", "Aucun marchand trouvé pour cette période."},
	ExportOperators:   {time.RFC3339, "xlsx", "Aucun opérateur trouvé pour cette période."},
	ExportNearby:      {"2006-01-02", "zip", "Aucun marchand validé à proximité pour cette période."},
	ExportSuivi:       {time.RFC3339, "xlsx", "Aucune donnée de suivi pour cette période."},
	ExportPerformance: {time.RFC3339, "xlsx", "Aucune donnée de performance pour cette période."},
}

func ParseExportKind(s string) (ExportKind, error) {
	k := ExportKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := exportSpecs[k]; !ok {
		return "", fmt.Errorf("%w: unknown export %q", ErrNotFound, s)
	}
	return k, nil
}

// NoDataMessage is the message shown when kind has nothing to export.
func NoDataMessage(kind ExportKind) string {
	return exportSpecs[kind].noData
}

type ExportFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
}

type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Export downloads one report. A JSON body is always an error, whatever the
// status it came with.
func (c *Client) Export(ctx context.Context, kind ExportKind, f ExportFilter) (*ExportFile, error) {
	spec, ok := exportSpecs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown export %q", ErrNotFound, kind)
	}

	q := url.Values{}
	if f.StartDate != nil {
		q.Set("startDate", f.StartDate.Format(spec.dateLayout))
	}
	if f.EndDate != nil {
		q.Set("endDate", f.EndDate.Format(spec.dateLayout))
	}

	cl := call{
		endpoint: "export_" + string(kind),
		method:   http.MethodGet,
		path:     escapedPath("/api/export/%s", string(kind)),
		query:    q,
	}
	resp, err := c.send(ctx, cl)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound && apiErr.Message == "" {
			apiErr.Message = spec.noData
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read file: %w", cl.endpoint, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if isJSONBody(contentType, data) {
		msg := backendMessage(data)
		c.logger.Warn().
			Str("export", string(kind)).
			Int("status", resp.StatusCode).
			Str("message", msg).
			Msg("Export returned JSON instead of a file")
		return nil, fmt.Errorf("%w: %w", ErrNotAFile, &APIError{
			Endpoint: cl.endpoint,
			Status:   resp.StatusCode,
			Message:  msg,
		})
	}
	if len(data) == 0 {
		return nil, &APIError{Endpoint: cl.endpoint, Status: http.StatusNotFound, Message: spec.noData}
	}

	name := dispositionFilename(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = c.exportFilename(kind, extensionFor(contentType, spec.extension))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &ExportFile{Name: name, ContentType: contentType, Data: data}, nil
}

func isJSONBody(contentType string, data []byte) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasSuffix(mediaType, "json") {
		return true
	}
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := filepath.Base(params["filename"])
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

func extensionFor(contentType, fallback string) string {
	switch {
	case strings.Contains(contentType, "zip"):
		return "zip"
	case strings.Contains(contentType, "spreadsheet"), strings.Contains(contentType, "excel"):
		return "xlsx"
	}
	return fallback
}

// exportFilename builds export_<kind>_<YYYYMMDD>_<HHmm>_<suffix>.<ext>.
func (c *Client) exportFilename(kind ExportKind, ext string) string {
	now := c.now()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("export_%s_%s_%s_%s.%s", kind, now.Format("20060102"), now.Format("1504"), suffix, ext)
}
