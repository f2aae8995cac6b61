package firmware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iifvs/internal/metrics"
	"iifvs/internal/model"
	"iifvs/internal/security"
)

type stubExtractor struct {
	res   ToolResult
	err   error
	setup func(imagePath string)
	path  string
}

func (s *stubExtractor) Extract(ctx context.Context, imagePath string) (ToolResult, error) {
	s.path = imagePath
	if s.setup != nil {
		s.setup(imagePath)
	}
	return s.res, s.err
}

type memRecorder struct {
	recs []model.ScanRecord
	err  error
}

func (m *memRecorder) SaveScan(ctx context.Context, rec model.ScanRecord) error {
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	return nil
}

type memNotifier struct {
	filename string
	versions []string
}

func (m *memNotifier) NotifyVersions(ctx context.Context, filename string, versions []string) error {
	m.filename = filename
	m.versions = versions
	return errors.New("slack down")
}

func TestAnalyze_EndToEnd(t *testing.T) {
	tool := fakeTool(t, binwalkScript)
	uploadDir := filepath.Join(t.TempDir(), "uploads")
	rec := &memRecorder{}
	notifier := &memNotifier{}
	m := metrics.NewMetrics()

	a := NewAnalyzer(uploadDir, NewLocalExtractor(tool, []string{"-e"}, 10*time.Second),
		WithSecretScanner(security.NewRegexScanner()),
		WithRecorder(rec),
		WithNotifier(notifier),
		WithMetrics(m),
	)

	content := []byte("firmware-bytes")
	report, err := a.Analyze(context.Background(), "router.bin", bytes.NewReader(content))
	require.NoError(t, err)

	sum := sha256.Sum256(content)
	assert.Equal(t, "extracted", report.Status)
	assert.Equal(t, "router.bin", report.Filename)
	assert.Equal(t, int64(len(content)), report.FileSize)
	assert.Equal(t, hex.EncodeToString(sum[:]), report.SHA256)
	assert.Contains(t, report.ToolOutput, "DECIMAL")

	require.Len(t, report.Components, 3)
	assert.Equal(t, "uImage header", report.Components[0].Name)
	assert.Equal(t, 2, report.ExtractedFilesCount)
	assert.Equal(t, []string{"BusyBox v1.31.1", "Linux kernel 4.14.90"}, report.DetectedVersions)
	assert.Equal(t, "BusyBox v1.31.1", report.PrimeKeyword)

	require.Len(t, report.Secrets, 1)
	assert.Equal(t, model.SecretFinding{File: "squashfs-root/etc/shadow", Type: "Password Hash", Line: 1}, report.Secrets[0])

	require.Len(t, rec.recs, 1)
	assert.Equal(t, rec.recs[0].ID, report.ScanID)
	assert.Equal(t, 3, rec.recs[0].ComponentCount)

	assert.Equal(t, "router.bin", notifier.filename)
	assert.Equal(t, report.DetectedVersions, notifier.versions)

	assert.FileExists(t, filepath.Join(uploadDir, "router.bin"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionsTotal.WithLabelValues("success")))
}

func TestAnalyze_FallsBackToWalkedFiles(t *testing.T) {
	uploadDir := t.TempDir()
	ex := &stubExtractor{
		res: ToolResult{Stdout: "nothing useful"},
		setup: func(imagePath string) {
			dir := imagePath + ".extracted"
			require.NoError(t, os.MkdirAll(dir, 0755))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "kernel.bin"), []byte("k"), 0644))
		},
	}

	report, err := NewAnalyzer(uploadDir, ex).Analyze(context.Background(), "fw.img", strings.NewReader("data"))
	require.NoError(t, err)

	require.Len(t, report.Components, 1)
	assert.Equal(t, model.Component{Name: "kernel.bin", Type: "Binary data", Size: "1 B"}, report.Components[0])
	assert.Equal(t, 1, report.ExtractedFilesCount)
	assert.Empty(t, report.DetectedVersions)
	assert.Equal(t, "IoT Firmware", report.PrimeKeyword)
	assert.Empty(t, report.ScanID)
	assert.Nil(t, report.Secrets)
}

func TestAnalyze_SecondCandidateOnlyWhenFirstEmpty(t *testing.T) {
	uploadDir := t.TempDir()
	ex := &stubExtractor{
		setup: func(imagePath string) {
			require.NoError(t, os.MkdirAll(imagePath+".extracted", 0755))
			second := filepath.Join(filepath.Dir(imagePath), "_fw.bin.extracted")
			require.NoError(t, os.MkdirAll(second, 0755))
			require.NoError(t, os.WriteFile(filepath.Join(second, "a.xz"), []byte("a"), 0644))
			require.NoError(t, os.WriteFile(filepath.Join(second, "b.cpio"), []byte("b"), 0644))
		},
	}

	report, err := NewAnalyzer(uploadDir, ex).Analyze(context.Background(), "fw.bin", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, 2, report.ExtractedFilesCount)
	assert.Equal(t, "XZ compressed data", report.Components[0].Type)
}

func TestAnalyze_NoOutputDir(t *testing.T) {
	ex := &stubExtractor{res: ToolResult{ExitCode: 1}}

	report, err := NewAnalyzer(t.TempDir(), ex).Analyze(context.Background(), "fw.bin", strings.NewReader("data"))
	require.NoError(t, err)
	assert.NotNil(t, report.Components)
	assert.Empty(t, report.Components)
	assert.Equal(t, 0, report.ExtractedFilesCount)
}

func TestAnalyze_InputValidation(t *testing.T) {
	ex := &stubExtractor{}
	uploadDir := t.TempDir()
	a := NewAnalyzer(uploadDir, ex)

	_, err := a.Analyze(context.Background(), "", strings.NewReader("data"))
	assert.ErrorIs(t, err, ErrNoFilename)

	_, err = a.Analyze(context.Background(), "empty.bin", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyUpload)
	assert.NoFileExists(t, filepath.Join(uploadDir, "empty.bin"))
	assert.Empty(t, ex.path, "extractor must not run")
}

func TestAnalyze_PathTraversal(t *testing.T) {
	uploadDir := t.TempDir()
	ex := &stubExtractor{}

	report, err := NewAnalyzer(uploadDir, ex).Analyze(context.Background(), "../../etc/evil.bin", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "evil.bin", report.Filename)
	assert.Equal(t, filepath.Join(uploadDir, "evil.bin"), ex.path)
}

func TestAnalyze_ToolErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome string
	}{
		{"Timeout", ErrToolTimeout, "timeout"},
		{"Not Found", ErrToolNotFound, "not_found"},
		{"Other", errors.New("disk full"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.NewMetrics()
			rec := &memRecorder{}
			a := NewAnalyzer(t.TempDir(), &stubExtractor{err: tt.err}, WithMetrics(m), WithRecorder(rec))

			report, err := a.Analyze(context.Background(), "fw.bin", strings.NewReader("data"))
			assert.Nil(t, report)
			assert.ErrorIs(t, err, tt.err)
			assert.Empty(t, rec.recs)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionsTotal.WithLabelValues(tt.outcome)))
		})
	}
}

func TestAnalyze_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &memRecorder{err: errors.New("db locked")}
	a := NewAnalyzer(t.TempDir(), &stubExtractor{}, WithRecorder(rec))

	report, err := a.Analyze(context.Background(), "fw.bin", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Empty(t, report.ScanID)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"fw.bin", "fw.bin", false},
		{"  fw.bin ", "fw.bin", false},
		{"dir/fw.bin", "fw.bin", false},
		{`C:\Users\me\fw.bin`, "fw.bin", false},
		{"../../../etc/passwd", "passwd", false},
		{"", "", true},
		{"..", "", true},
		{"/", "", true},
	}
	for _, tt := range tests {
		got, err := SanitizeFilename(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrNoFilename, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
