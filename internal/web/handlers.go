package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"iifvs/internal/db"
	apierrors "iifvs/internal/errors"
	"iifvs/internal/firmware"
	"iifvs/internal/model"
	"iifvs/internal/nvd"
	"iifvs/internal/utils"
)

const (
	applicationName = "IIFVS - IoT Firmware Vulnerability Detection"
	mockToken       = "mock-jwt-token-iifvs-2024"

	// multipartOverhead covers boundaries and part headers around the file.
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20

	defaultScanLimit = 20
	maxScanLimit     = 100
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"application": applicationName,
		"status":      "running",
		"endpoints": map[string]string{
			"POST /upload":                   "Upload firmware for Binwalk extraction",
			"GET /nvd-search?keyword=openssl": "Search NVD CVE database",
			"POST /api/auth/login":           "Mock authentication",
			"POST /api/auth/register":        "Mock registration",
			"GET /api/scans":                 "Recent firmware analyses",
			"GET /api/scans/{id}":            "One firmware analysis",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadSize + multipartOverhead
	tooLarge := apierrors.BadRequest(fmt.Sprintf("Firmware exceeds maximum upload size of %s", utils.FormatSize(s.cfg.MaxUploadSize)))
	if r.ContentLength > limit {
		s.writeError(w, r, tooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, r, tooLarge)
			return
		}
		s.writeError(w, r, apierrors.BadRequest("No firmware file provided"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("firmware")
	if err != nil {
		// A file input left empty arrives as a part with filename="",
		// which the multipart reader files under plain values.
		if _, ok := r.MultipartForm.Value["firmware"]; ok {
			s.writeError(w, r, apierrors.BadRequest("No file selected"))
			return
		}
		s.writeError(w, r, apierrors.BadRequest("No firmware file provided"))
		return
	}
	defer file.Close()

	if header.Size > s.cfg.MaxUploadSize {
		s.writeError(w, r, tooLarge)
		return
	}

	report, err := s.analyzer.Analyze(r.Context(), header.Filename, file)
	if err != nil {
		s.writeError(w, r, uploadError(err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, firmware.ErrNoFilename):
		return apierrors.BadRequest("No file selected")
	case errors.Is(err, firmware.ErrEmptyUpload):
		return apierrors.BadRequest("Uploaded firmware is empty")
	case errors.Is(err, firmware.ErrToolTimeout):
		return apierrors.Internal("Binwalk extraction timed out", err)
	case errors.Is(err, firmware.ErrToolNotFound):
		return apierrors.Internal("Binwalk not found. Install with: sudo apt install binwalk", err)
	default:
		return apierrors.Internal(err.Error(), err)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		s.writeError(w, r, apierrors.BadRequest("keyword parameter required"))
		return
	}

	result, err := s.searcher.Search(r.Context(), keyword)
	if err != nil {
		s.metrics.ObserveNVDRequest(searchOutcome(err))
		s.writeError(w, r, searchError(err))
		return
	}
	s.metrics.ObserveNVDRequest("success")

	counts := make(map[model.Severity]int)
	for _, f := range result.Vulnerabilities {
		counts[f.Severity]++
	}
	for sev, n := range counts {
		s.metrics.AddFindings(sev.String(), n)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyCriticalFindings(r.Context(), keyword, result.Vulnerabilities); err != nil {
			s.logger.Warn("failed to send critical findings notification", "keyword", keyword, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func searchOutcome(err error) string {
	var upstream *nvd.UpstreamError
	switch {
	case errors.Is(err, nvd.ErrUpstreamTimeout):
		return "timeout"
	case errors.As(err, &upstream):
		return "upstream_error"
	default:
		return "error"
	}
}

func searchError(err error) error {
	var upstream *nvd.UpstreamError
	switch {
	case errors.Is(err, nvd.ErrUpstreamTimeout):
		return apierrors.GatewayTimeout("NVD API request timed out", err)
	case errors.As(err, &upstream):
		return apierrors.BadGateway("NVD API error: "+upstream.Error(), err)
	default:
		return apierrors.Internal(err.Error(), err)
	}
}

// Credentials are accepted as-is; the auth pair only feeds the prototype UI.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(w, r)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Login successful",
		"user": map[string]any{
			"email": field(body, "email", ""),
			"role":  "Security Analyst",
			"token": mockToken,
		},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(w, r)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Registration successful",
		"user": map[string]any{
			"email":        field(body, "email", ""),
			"organization": field(body, "orgName", ""),
			"role":         field(body, "role", "analyst"),
		},
	})
}

// decodeBody reads a JSON object, treating anything else as empty.
func decodeBody(w http.ResponseWriter, r *http.Request) map[string]any {
	var body map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil || body == nil {
		return map[string]any{}
	}
	return body
}

func field(body map[string]any, key string, def any) any {
	if v, ok := body[key]; ok {
		return v
	}
	return def
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, apierrors.Unavailable("Scan history is disabled"))
		return
	}

	limit := defaultScanLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, apierrors.BadRequest("limit must be a positive integer"))
			return
		}
		limit = min(n, maxScanLimit)
	}

	scans, err := s.store.ListScans(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, apierrors.Internal("Failed to list scans", err))
		return
	}
	if scans == nil {
		scans = []model.ScanRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": scans})
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, apierrors.Unavailable("Scan history is disabled"))
		return
	}

	scan, err := s.store.GetScan(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		s.writeError(w, r, apierrors.NotFound("Scan not found"))
		return
	}
	if err != nil {
		s.writeError(w, r, apierrors.Internal("Failed to load scan", err))
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := apierrors.Status(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
