package firmware

import (
	"regexp"
	"strings"

	"iifvs/internal/model"
)

// signatureLine matches "<decimal> <hex> <description>" rows of the tool's
// signature table.
var signatureLine = regexp.MustCompile(`^(\d+)\s+(0[xX][0-9A-Fa-f]+)\s+(.+)$`)

// ParseToolOutput turns the signature table printed by the extraction tool
// into components. Header, separator and malformed lines are skipped.
func ParseToolOutput(output string) []model.Component {
	components := []model.Component{}
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "DECIMAL") || strings.HasPrefix(line, "-") {
			continue
		}
		m := signatureLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		desc := strings.TrimSpace(m[3])
		name := desc
		if i := strings.Index(desc, ","); i >= 0 {
			name = strings.TrimSpace(desc[:i])
		}
		components = append(components, model.Component{
			Name:   name,
			Type:   desc,
			Offset: m[2],
			Size:   "N/A",
		})
	}
	return components
}

// versionPatterns are applied in order; the first hit becomes the prime keyword.
var versionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)BusyBox\s+v?[\d.]+`),
	regexp.MustCompile(`(?i)OpenSSL\s+[\d.]+[a-z]?`),
	regexp.MustCompile(`(?i)Linux kernel\s+[\d.]+`),
	regexp.MustCompile(`(?i)U-Boot\s+[\d.]+`),
	regexp.MustCompile(`(?i)Dropbear\s+[\d.]+`),
	regexp.MustCompile(`(?i)Dnsmasq\s+[\d.]+`),
}

// DetectVersions returns the software version strings found in output,
// deduplicated in first-seen order.
func DetectVersions(output string) []string {
	versions := []string{}
	seen := make(map[string]bool)
	for _, re := range versionPatterns {
		for _, match := range re.FindAllString(output, -1) {
			if seen[match] {
				continue
			}
			seen[match] = true
			versions = append(versions, match)
		}
	}
	return versions
}

// DefaultKeyword is the search term used when no version was detected.
const DefaultKeyword = "IoT Firmware"

// PrimeKeyword picks the search term suggested for the NVD lookup.
func PrimeKeyword(versions []string) string {
	if len(versions) == 0 {
		return DefaultKeyword
	}
	return versions[0]
}
