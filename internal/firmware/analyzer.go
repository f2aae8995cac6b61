package firmware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"iifvs/internal/metrics"
	"iifvs/internal/model"
	"iifvs/internal/security"
)

// maxSecretScanSize bounds the files read by the secret scan.
const maxSecretScanSize = 1 << 20

// Report is the result of one firmware analysis.
type Report struct {
	Status              string                `json:"status"`
	Filename            string                `json:"filename"`
	FileSize            int64                 `json:"file_size"`
	SHA256              string                `json:"sha256"`
	ScanID              string                `json:"scan_id,omitempty"`
	ToolOutput          string                `json:"binwalk_output"`
	Components          []model.Component     `json:"components"`
	ExtractedFilesCount int                   `json:"extracted_files_count"`
	DetectedVersions    []string              `json:"detected_versions"`
	PrimeKeyword        string                `json:"prime_keyword"`
	Secrets             []model.SecretFinding `json:"secrets,omitempty"`
}

// SecretScanner finds credentials in an extracted tree.
type SecretScanner interface {
	ScanDir(root string, maxSize int64) ([]security.Finding, error)
}

// ScanRecorder persists analysis summaries.
type ScanRecorder interface {
	SaveScan(ctx context.Context, rec model.ScanRecord) error
}

// VersionNotifier is told about versions detected in an upload.
type VersionNotifier interface {
	NotifyVersions(ctx context.Context, filename string, versions []string) error
}

// Analyzer stores uploads, runs the extractor and builds reports.
type Analyzer struct {
	uploadDir string
	extractor Extractor
	scanner   SecretScanner
	recorder  ScanRecorder
	notifier  VersionNotifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

func WithSecretScanner(s SecretScanner) Option { return func(a *Analyzer) { a.scanner = s } }
func WithRecorder(r ScanRecorder) Option        { return func(a *Analyzer) { a.recorder = r } }
func WithNotifier(n VersionNotifier) Option     { return func(a *Analyzer) { a.notifier = n } }
func WithMetrics(m *metrics.Metrics) Option     { return func(a *Analyzer) { a.metrics = m } }
func WithLogger(l *slog.Logger) Option          { return func(a *Analyzer) { a.logger = l } }

// NewAnalyzer creates an Analyzer writing uploads into uploadDir.
func NewAnalyzer(uploadDir string, extractor Extractor, opts ...Option) *Analyzer {
	a := &Analyzer{
		uploadDir: uploadDir,
		extractor: extractor,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SanitizeFilename reduces a client supplied name to a bare file name.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return "", ErrNoFilename
	}
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." {
		return "", ErrNoFilename
	}
	return base, nil
}

// Analyze saves content under the upload dir and extracts it.
func (a *Analyzer) Analyze(ctx context.Context, filename string, content io.Reader) (*Report, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	imagePath, size, digest, err := a.save(name, content)
	if err != nil {
		return nil, err
	}

	log := a.logger.With("filename", name, "sha256", digest)
	log.Info("Starting extraction", "size", size)

	res, err := a.extractor.Extract(ctx, imagePath)
	if err != nil {
		a.metrics.ObserveExtraction(outcomeOf(err), res.Duration)
		log.Error("Extraction failed", "error", err)
		return nil, err
	}
	a.metrics.ObserveExtraction("success", res.Duration)
	if res.ExitCode != 0 {
		log.Warn("Extraction tool exited non-zero", "exit_code", res.ExitCode, "stderr", res.Stderr)
	}

	report := &Report{
		Status:           "extracted",
		Filename:         name,
		FileSize:         size,
		SHA256:           digest,
		ToolOutput:       res.Stdout,
		Components:       ParseToolOutput(res.Stdout),
		DetectedVersions: DetectVersions(res.Stdout),
	}
	report.PrimeKeyword = PrimeKeyword(report.DetectedVersions)

	walked, root, err := a.walk(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list extracted files: %w", err)
	}
	report.ExtractedFilesCount = len(walked)
	if len(report.Components) == 0 {
		report.Components = walked
	}

	if a.scanner != nil && root != "" {
		report.Secrets = a.scanSecrets(log, root)
	}

	a.record(ctx, log, report)

	if a.notifier != nil && len(report.DetectedVersions) > 0 {
		if err := a.notifier.NotifyVersions(ctx, name, report.DetectedVersions); err != nil {
			log.Warn("Failed to send notification", "error", err)
		}
	}

	log.Info("Extraction finished",
		"components", len(report.Components),
		"extracted_files", report.ExtractedFilesCount,
		"versions", len(report.DetectedVersions))
	return report, nil
}

func (a *Analyzer) save(name string, content io.Reader) (string, int64, string, error) {
	if err := os.MkdirAll(a.uploadDir, 0755); err != nil {
		return "", 0, "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	dir, err := filepath.Abs(a.uploadDir)
	if err != nil {
		return "", 0, "", fmt.Errorf("failed to resolve upload dir: %w", err)
	}
	imagePath := filepath.Join(dir, name)

	f, err := os.Create(imagePath)
	if err != nil {
		return "", 0, "", fmt.Errorf("failed to save upload: %w", err)
	}
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, h), content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(imagePath)
		return "", 0, "", fmt.Errorf("failed to save upload: %w", err)
	}
	if size == 0 {
		os.Remove(imagePath)
		return "", 0, "", ErrEmptyUpload
	}
	return imagePath, size, hex.EncodeToString(h.Sum(nil)), nil
}

// walk lists the first candidate output dir that holds any files.
func (a *Analyzer) walk(imagePath string) ([]model.Component, string, error) {
	for _, dir := range extractionDirs(filepath.Dir(imagePath), imagePath) {
		files, err := WalkExtracted(dir)
		if err != nil {
			return nil, "", err
		}
		if len(files) > 0 {
			return files, dir, nil
		}
	}
	return []model.Component{}, "", nil
}

func (a *Analyzer) scanSecrets(log *slog.Logger, root string) []model.SecretFinding {
	findings, err := a.scanner.ScanDir(root, maxSecretScanSize)
	if err != nil {
		log.Warn("Secret scan incomplete", "error", err)
	}
	var secrets []model.SecretFinding
	for _, f := range findings {
		secrets = append(secrets, model.SecretFinding{File: f.File, Type: f.Type, Line: f.Line})
	}
	return secrets
}

func (a *Analyzer) record(ctx context.Context, log *slog.Logger, report *Report) {
	if a.recorder == nil {
		return
	}
	rec := model.ScanRecord{
		ID:                  uuid.NewString(),
		Filename:            report.Filename,
		SHA256:              report.SHA256,
		FileSize:            report.FileSize,
		ComponentCount:      len(report.Components),
		ExtractedFilesCount: report.ExtractedFilesCount,
		DetectedVersions:    report.DetectedVersions,
		PrimeKeyword:        report.PrimeKeyword,
		CreatedAt:           a.now().UTC(),
	}
	if err := a.recorder.SaveScan(ctx, rec); err != nil {
		log.Warn("Failed to record scan", "error", err)
		return
	}
	report.ScanID = rec.ID
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrToolTimeout):
		return "timeout"
	case errors.Is(err, ErrToolNotFound):
		return "not_found"
	default:
		return "error"
	}
}
