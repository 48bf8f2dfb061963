package trialbalance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-reports/internal/export"
	"github.com/odyssey-erp/odyssey-reports/internal/locale"
	"github.com/odyssey-erp/odyssey-reports/jobs"
)

// Exporter turns a table into an artifact; *export.Manager satisfies it.
type Exporter interface {
	Export(ctx context.Context, table export.TableData, opts export.Options) (*export.Artifact, error)
}

// JobRecorder receives job outcomes.
type JobRecorder interface {
	ObserveJob(taskType string, err error)
}

// JobConfig wires dependencies required by the worker job.
type JobConfig struct {
	Loader     Loader
	Exporter   Exporter
	StorageDir string
	Logger     *slog.Logger
	Metrics    JobRecorder
	Clock      func() time.Time
}

// ExportJob processes asynchronous trial balance exports and stores the
// artifact on disk.
type ExportJob struct {
	loader     Loader
	exporter   Exporter
	storageDir string
	logger     *slog.Logger
	metrics    JobRecorder
	now        func() time.Time
}

// NewExportJob constructs an ExportJob handler.
func NewExportJob(cfg JobConfig) *ExportJob {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &ExportJob{
		loader:     cfg.Loader,
		exporter:   cfg.Exporter,
		storageDir: cfg.StorageDir,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        cfg.Clock,
	}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *ExportJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.loader == nil || j.exporter == nil {
		return errors.New("trial balance export job not configured")
	}
	defer func() {
		if j.metrics != nil {
			j.metrics.ObserveJob(task.Type(), err)
		}
	}()
	payload, err := jobs.DecodeTrialBalanceExport(task)
	if err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	logger := j.logger.With(slog.String("request_id", payload.RequestID), slog.String("org_id", payload.OrgID))

	filter, err := ParseFilter(payload.OrgID, payload.ProjectID, payload.From, payload.To, payload.PostedOnly, payload.ActiveOnly, j.now())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	format, err := export.ParseFormat(payload.Format)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	snap, err := j.loader.Load(ctx, filter)
	if err != nil {
		if IsInvalid(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	expansion, err := ParseExpansion(payload.Expand, snap.Forest)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	lang := locale.ParseLanguage(payload.Language)
	art, err := j.exporter.Export(ctx, snap.Table(expansion, TableOptions{Language: lang}), export.Options{
		Format:      format,
		Title:       ExportTitle(payload.Title, lang),
		Subtitle:    snap.CompanyName,
		Language:    lang,
		Orientation: export.Landscape,
		Excel:       export.ExcelOptions{AutoFilter: true, FreezeHeader: true},
	})
	if err != nil {
		if errors.Is(err, export.ErrInvalidOptions) || errors.Is(err, export.ErrInvalidTable) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	path, err := j.save(payload.RequestID, art)
	if err != nil {
		return err
	}
	logger.Info("trial balance export stored",
		slog.String("file", path),
		slog.String("format", string(art.Format)),
		slog.Bool("fallback", art.Fallback),
	)
	return nil
}

func (j *ExportJob) save(requestID string, art *export.Artifact) (string, error) {
	dir := j.storageDir
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "report-exports")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	id := requestID
	if id == "" {
		id = art.ID
	}
	path := filepath.Join(dir, id+"_"+art.Filename)
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ExportTitle returns title or the localized report name.
func ExportTitle(title string, lang locale.Language) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return pick(lang, "ميزان المراجعة", "Trial Balance")
}
