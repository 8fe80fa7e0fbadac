package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vadiminshakov/folio/internal/domain"
	"go.uber.org/zap"
)

// CachingSource wraps a BarSource with a CSV file cache keyed by ticker and
// date range, so repeated runs over the same horizon hit the network once.
type CachingSource struct {
	source BarSource
	dir    string
	logger *zap.Logger
}

// NewCachingSource creates a cache in dir over the given source.
func NewCachingSource(source BarSource, dir string, logger *zap.Logger) *CachingSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingSource{source: source, dir: dir, logger: logger}
}

// Fetch serves from the cache when possible and fills it otherwise.
func (s *CachingSource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	path := s.cachePath(ticker, start, end)

	if _, err := os.Stat(path); err == nil {
		bars, err := readBarsFile(path)
		if err == nil {
			return bars, nil
		}
		s.logger.Warn("corrupted bar cache, refetching",
			zap.String("path", path),
			zap.Error(err))
	}

	bars, err := s.source.Fetch(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	if err := writeBarsFile(path, bars); err != nil {
		s.logger.Warn("failed to write bar cache",
			zap.String("path", path),
			zap.Error(err))
	}
	return bars, nil
}

func (s *CachingSource) cachePath(ticker string, start, end time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.csv", ticker, start.Format(dateLayout), end.Format(dateLayout))
	return filepath.Join(s.dir, name)
}
