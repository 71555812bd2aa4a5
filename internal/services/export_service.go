package services

import (
	"context"
	"fmt"

	"merchant-console/internal/gateway"
	"merchant-console/internal/session"

	"github.com/rs/zerolog"
)

type ExportService struct {
	gateway  *gateway.Client
	inflight *Inflight
	logger   zerolog.Logger
}

func NewExportService(gw *gateway.Client, inflight *Inflight, logger zerolog.Logger) *ExportService {
	return &ExportService{
		gateway:  gw,
		inflight: inflight,
		logger:   logger,
	}
}

// Export downloads one report. Two concurrent downloads of the same kind for
// the same session are refused with ErrInProgress.
func (s *ExportService) Export(ctx context.Context, kind string, f gateway.ExportFilter) (*gateway.ExportFile, error) {
	k, err := gateway.ParseExportKind(kind)
	if err != nil {
		return nil, err
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return nil, invalid("endDate", "La date de fin doit être postérieure à la date de début.")
	}

	rec, _ := session.FromContext(ctx)
	var file *gateway.ExportFile
	err = s.inflight.Do(InflightKey(rec.ID, "export", string(k)), func() error {
		var err error
		file, err = s.gateway.Export(ctx, k, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", k, err)
	}

	s.logger.Info().Str("export", string(k)).Str("file", file.Name).Int("bytes", len(file.Data)).Msg("Export downloaded")
	return file, nil
}
