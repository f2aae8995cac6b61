package nvd

import (
	"strings"

	"iifvs/internal/model"
)

// Normalize flattens a CVE record into a finding. CVSS v3.1 wins over v3.0,
// which wins over v2. Records without metrics score 0 and rank low.
func Normalize(cve CVE) model.Finding {
	f := model.Finding{
		CVEID:        cve.ID,
		Published:    cve.Published,
		LastModified: cve.LastModified,
		Severity:     model.SeverityLow,
	}
	if f.CVEID == "" {
		f.CVEID = "Unknown"
	}

	for _, d := range cve.Descriptions {
		if d.Lang == "en" {
			f.Description = d.Value
			break
		}
	}

	switch {
	case len(cve.Metrics.CvssMetricV31) > 0:
		f.CVSSScore, f.Severity = fromV3(cve.Metrics.CvssMetricV31[0].CvssData)
	case len(cve.Metrics.CvssMetricV30) > 0:
		f.CVSSScore, f.Severity = fromV3(cve.Metrics.CvssMetricV30[0].CvssData)
	case len(cve.Metrics.CvssMetricV2) > 0:
		f.CVSSScore = cve.Metrics.CvssMetricV2[0].CvssData.BaseScore
		f.Severity = model.TierForScore(f.CVSSScore)
	}

	return f
}

func fromV3(data CvssDataV3) (float64, model.Severity) {
	if data.BaseSeverity == "" {
		return data.BaseScore, model.TierForScore(data.BaseScore)
	}
	return data.BaseScore, model.Severity(strings.ToLower(data.BaseSeverity))
}
