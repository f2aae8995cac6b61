package model

import "time"

// Finding is one CVE record flattened from the vulnerability database.
type Finding struct {
	CVEID        string   `json:"cve_id"`
	Description  string   `json:"description"`
	CVSSScore    float64  `json:"cvss_score"`
	Severity     Severity `json:"severity"`
	Published    string   `json:"published"`
	LastModified string   `json:"last_modified"`
}

// Component is one entry of a firmware inventory, either a signature hit
// from the extraction tool or a file found in its output directory.
type Component struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset string `json:"offset,omitempty"`
	Size   string `json:"size"`
}

// SecretFinding marks a file in the extracted tree that looks like it embeds
// credentials or key material.
type SecretFinding struct {
	File string `json:"file"`
	Type string `json:"type"`
	Line int    `json:"line"`
}

// ScanRecord is the persisted summary of one firmware analysis.
type ScanRecord struct {
	ID                  string    `json:"id"`
	Filename            string    `json:"filename"`
	SHA256              string    `json:"sha256"`
	FileSize            int64     `json:"file_size"`
	ComponentCount      int       `json:"component_count"`
	ExtractedFilesCount int       `json:"extracted_files_count"`
	DetectedVersions    []string  `json:"detected_versions"`
	PrimeKeyword        string    `json:"prime_keyword"`
	CreatedAt           time.Time `json:"created_at"`
}
