package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"iifvs/internal/firmware"
	"iifvs/internal/model"
	"iifvs/internal/utils"
)

// RenderFindings prints a CVE table ordered by score, highest first.
func RenderFindings(w io.Writer, keyword string, total int, findings []model.Finding) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("NVD results for %q", keyword)))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d total, %d shown", total, len(findings))))
	if len(findings) == 0 {
		fmt.Fprintln(w, "No vulnerabilities found.")
		return
	}

	sorted := append([]model.Finding(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CVSSScore > sorted[j].CVSSScore
	})

	fmt.Fprintf(w, "%-18s %-9s %-6s %s\n", "CVE", "SEVERITY", "SCORE", "DESCRIPTION")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, f := range sorted {
		fmt.Fprintf(w, "%-18s %s %-6.1f %s\n",
			f.CVEID,
			SeverityLabel(f.Severity, 9),
			f.CVSSScore,
			utils.Truncate(oneLine(f.Description), 60),
		)
	}
}

// RenderReport prints a firmware analysis summary.
func RenderReport(w io.Writer, r *firmware.Report) {
	fmt.Fprintln(w, headerStyle.Render("Firmware "+r.Filename))
	fmt.Fprintf(w, "Size:      %s\n", utils.FormatSize(r.FileSize))
	fmt.Fprintf(w, "SHA-256:   %s\n", r.SHA256)
	if r.ScanID != "" {
		fmt.Fprintf(w, "Scan ID:   %s\n", r.ScanID)
	}
	fmt.Fprintf(w, "Extracted: %d files\n", r.ExtractedFilesCount)
	fmt.Fprintf(w, "Keyword:   %s\n", r.PrimeKeyword)

	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionStyle.Render("Components"))
	if len(r.Components) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none"))
	}
	for _, c := range r.Components {
		offset := c.Offset
		if offset == "" {
			offset = "-"
		}
		fmt.Fprintf(w, "  %-10s %-10s %-30s %s\n", offset, c.Size, utils.Truncate(c.Name, 30), mutedStyle.Render(utils.Truncate(c.Type, 40)))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionStyle.Render("Detected versions"))
	if len(r.DetectedVersions) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none"))
	}
	for _, v := range r.DetectedVersions {
		fmt.Fprintf(w, "  %s\n", v)
	}

	if len(r.Secrets) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Possible secrets (%d)", len(r.Secrets))))
		for _, s := range r.Secrets {
			fmt.Fprintf(w, "  %s:%d  %s\n", s.File, s.Line, s.Type)
		}
	}
}

// RenderScans prints the scan history table.
func RenderScans(w io.Writer, scans []model.ScanRecord) {
	if len(scans) == 0 {
		fmt.Fprintln(w, "No scans recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s %-24s %-10s %-8s %-20s %s\n", "ID", "FILENAME", "SIZE", "FILES", "WHEN", "KEYWORD")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, s := range scans {
		fmt.Fprintf(w, "%-36s %-24s %-10s %-8d %-20s %s\n",
			s.ID,
			utils.Truncate(s.Filename, 24),
			utils.FormatSize(s.FileSize),
			s.ExtractedFilesCount,
			utils.FormatSince(s.CreatedAt),
			s.PrimeKeyword,
		)
	}
}

// RenderScan prints one scan record.
func RenderScan(w io.Writer, s *model.ScanRecord) {
	fmt.Fprintln(w, headerStyle.Render("Scan "+s.ID))
	fmt.Fprintf(w, "Filename:   %s\n", s.Filename)
	fmt.Fprintf(w, "SHA-256:    %s\n", s.SHA256)
	fmt.Fprintf(w, "Size:       %s\n", utils.FormatSize(s.FileSize))
	fmt.Fprintf(w, "Components: %d\n", s.ComponentCount)
	fmt.Fprintf(w, "Files:      %d\n", s.ExtractedFilesCount)
	fmt.Fprintf(w, "Versions:   %s\n", strings.Join(s.DetectedVersions, ", "))
	fmt.Fprintf(w, "Keyword:    %s\n", s.PrimeKeyword)
	fmt.Fprintf(w, "Created:    %s\n", s.CreatedAt.Format("2006-01-02 15:04:05 MST"))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
