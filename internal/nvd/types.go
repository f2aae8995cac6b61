package nvd

import "iifvs/internal/model"

// SearchResult is the normalized answer to a keyword search.
type SearchResult struct {
	Keyword         string          `json:"keyword"`
	TotalResults    int             `json:"total_results"`
	Vulnerabilities []model.Finding `json:"vulnerabilities"`
}

// cveResponse is the CVE API 2.0 envelope.
type cveResponse struct {
	ResultsPerPage  int    `json:"resultsPerPage"`
	StartIndex      int    `json:"startIndex"`
	TotalResults    int    `json:"totalResults"`
	Format          string `json:"format"`
	Version         string `json:"version"`
	Vulnerabilities []struct {
		CVE CVE `json:"cve"`
	} `json:"vulnerabilities"`
}

// CVE is the subset of an NVD CVE record that findings are built from.
type CVE struct {
	ID               string       `json:"id"`
	SourceIdentifier string       `json:"sourceIdentifier"`
	Published        string       `json:"published"`
	LastModified     string       `json:"lastModified"`
	VulnStatus       string       `json:"vulnStatus"`
	Descriptions     []LangString `json:"descriptions"`
	Metrics          Metrics      `json:"metrics"`
}

type LangString struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

// Metrics holds the CVSS assessments per scheme version.
type Metrics struct {
	CvssMetricV31 []CvssMetricV3 `json:"cvssMetricV31,omitempty"`
	CvssMetricV30 []CvssMetricV3 `json:"cvssMetricV30,omitempty"`
	CvssMetricV2  []CvssMetricV2 `json:"cvssMetricV2,omitempty"`
}

type CvssMetricV3 struct {
	Source   string     `json:"source"`
	Type     string     `json:"type"`
	CvssData CvssDataV3 `json:"cvssData"`
}

type CvssDataV3 struct {
	Version      string  `json:"version"`
	VectorString string  `json:"vectorString"`
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity"`
}

type CvssMetricV2 struct {
	Source       string     `json:"source"`
	Type         string     `json:"type"`
	CvssData     CvssDataV2 `json:"cvssData"`
	BaseSeverity string     `json:"baseSeverity"`
}

type CvssDataV2 struct {
	Version      string  `json:"version"`
	VectorString string  `json:"vectorString"`
	BaseScore    float64 `json:"baseScore"`
}
