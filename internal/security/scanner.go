package security

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Scanner defines the interface for security scanning
type Scanner interface {
	Scan(content string) []Finding
}

// Finding represents a security issue found in the content.
// The matched text is deliberately not kept.
type Finding struct {
	File string
	Type string
	Line int
}

type pattern struct {
	name string
	re   *regexp.Regexp
}

// RegexScanner implements Scanner using regular expressions
type RegexScanner struct {
	patterns []pattern
}

var (
	rePrivateKey      = regexp.MustCompile(`-----BEGIN (?:[A-Z]+ )?PRIVATE KEY-----`)
	reShadowHash      = regexp.MustCompile(`(?m)^[a-z_][a-z0-9_-]*:\$(?:1|2[aby]?|5|6|y)\$[^:\s]+:`)
	reAWSAccessKey    = regexp.MustCompile(`AKIA[0-9A-Z]{16}`)
	reGenericAPIToken = regexp.MustCompile(`(?i)(api|access)[_-]?key\s*[:=]\s*['"][a-zA-Z0-9_\-]{20,}['"]`)
	reHardcodedPass   = regexp.MustCompile(`(?i)\b(?:password|passwd|pwd)\s*[:=]\s*['"]?[^\s'"$]{4,}`)
)

// NewRegexScanner creates a new scanner with the firmware secret patterns
func NewRegexScanner() *RegexScanner {
	return &RegexScanner{
		patterns: []pattern{
			{"Private Key", rePrivateKey},
			{"Password Hash", reShadowHash},
			{"AWS Access Key", reAWSAccessKey},
			{"Generic API Token", reGenericAPIToken},
			{"Hardcoded Password", reHardcodedPass},
		},
	}
}

// Scan checks the content for security patterns
func (s *RegexScanner) Scan(content string) []Finding {
	var findings []Finding
	var newlines []int
	for _, p := range s.patterns {
		matches := p.re.FindAllStringIndex(content, -1)
		if len(matches) > 0 && newlines == nil {
			newlines = newlineOffsets(content)
		}
		for _, match := range matches {
			findings = append(findings, Finding{
				Type: p.name,
				Line: lineAt(newlines, match[0]),
			})
		}
	}
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Line < findings[j].Line
	})
	return findings
}

// ScanDir scans every regular file under root no larger than maxSize.
// File names in the result are slash-separated and relative to root.
func (s *RegexScanner) ScanDir(root string, maxSize int64) ([]Finding, error) {
	var findings []Finding
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		for _, f := range s.Scan(string(data)) {
			f.File = filepath.ToSlash(rel)
			findings = append(findings, f)
		}
		return nil
	})
	return findings, err
}

func newlineOffsets(content string) []int {
	offsets := make([]int, 0, strings.Count(content, "\n"))
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

// lineAt returns the 1-based line holding offset, given the sorted
// newline offsets of the content.
func lineAt(newlines []int, offset int) int {
	return sort.SearchInts(newlines, offset) + 1
}
