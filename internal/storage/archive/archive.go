// Package archive is cold storage for finished backtest reports. Runs
// land in the SQLite history for querying; the full report JSON goes to
// the archive for long-term keeping.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marketlens/marketlens/internal/backtest"
	"github.com/marketlens/marketlens/internal/config"
	"github.com/marketlens/marketlens/internal/core"
)

// Storage is a cold storage backend. The report workflow only ever
// writes a report once, reads it back, and deletes it when the run it
// belongs to is pruned.
type Storage interface {
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// New creates the backend named by the cold storage config.
func New(cfg config.ColdStorage) (Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		path := cfg.Path
		if path == "" {
			path = "archive"
		}
		return NewLocalFS(path)
	case "s3":
		return NewS3(S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type: %s", cfg.Type))
	}
}

func reportPath(runID string) string {
	return fmt.Sprintf("reports/%s.json", runID)
}

// WriteReport archives the full metrics bundle of a run as JSON.
func WriteReport(ctx context.Context, store Storage, runID string, m *backtest.Metrics) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if err := store.Write(ctx, reportPath(runID), data); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

// ReadReport loads an archived report back into a metrics bundle.
func ReadReport(ctx context.Context, store Storage, runID string) (*backtest.Metrics, error) {
	data, err := store.Read(ctx, reportPath(runID))
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	var m backtest.Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return &m, nil
}

// DeleteReport removes an archived report, typically after its run has
// been pruned from the history store.
func DeleteReport(ctx context.Context, store Storage, runID string) error {
	if err := store.Delete(ctx, reportPath(runID)); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}
