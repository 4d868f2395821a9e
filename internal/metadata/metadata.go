// Package metadata extracts run identity fields from the descriptor and
// run-info files that accompany each QC run folder.
package metadata

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// SettingsFile is the per-folder descriptor document name
const SettingsFile = ".settings.json"

// FlowcellPending is the placeholder a run summary carries before the
// flowcell is assigned. It counts as "not resolved".
const FlowcellPending = "!!!TBD!!!"

// Settings holds the three required descriptor fields. All three are present
// or the extraction failed as a whole; there is no partial result.
type Settings struct {
	InvestigatorFolder string
	RunLabel           string
	ReleaseDate        string
}

// The descriptor is not assumed to be well-formed JSON, so the fields are
// scraped with literal patterns instead of a JSON decoder. Extra keys,
// reordering, and trailing garbage around the three fields are tolerated.
var (
	reDeliveryFolder = regexp.MustCompile(`"deliveryFolder":\s*"([^"]+)"`)
	reProjectFinal   = regexp.MustCompile(`"projectFinal":\s*"([^"]+)"`)
	reReleaseDate    = regexp.MustCompile(`"releaseDate":\s*"([^"]+)"`)
	reFlowcellTag    = regexp.MustCompile(`<Flowcell>([^<]+)</Flowcell>`)
)

// ExtractSettings scrapes the descriptor document at path. The investigator
// folder is the second-to-last segment of the delivery path. Returns ok=false
// if the file is unreadable or any field is absent; never returns an error.
func ExtractSettings(path string, log *zap.Logger) (Settings, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("failed to read settings file", zap.String("path", path), zap.Error(err))
		return Settings{}, false
	}
	content := string(data)

	var s Settings
	if m := reDeliveryFolder.FindStringSubmatch(content); m != nil {
		s.InvestigatorFolder = secondToLastSegment(m[1])
	}
	if m := reProjectFinal.FindStringSubmatch(content); m != nil {
		s.RunLabel = m[1]
	}
	if m := reReleaseDate.FindStringSubmatch(content); m != nil {
		s.ReleaseDate = m[1]
	}

	if s.InvestigatorFolder == "" || s.RunLabel == "" || s.ReleaseDate == "" {
		return Settings{}, false
	}
	return s, true
}

// secondToLastSegment returns the second-to-last slash-separated segment of a
// delivery path. Delivery paths end with a trailing slash, so the last
// segment is usually empty and the investigator folder sits just before it.
func secondToLastSegment(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// ResolveFlowcell resolves the flowcell identifier for a run folder. Two
// sources are tried in order: the RunInfo.xml flowcell tag, then the first
// data row of the draft run summary. Returns "" when neither yields a value;
// read errors are logged and downgraded, never propagated.
func ResolveFlowcell(folder string, log *zap.Logger) string {
	runInfo := filepath.Join(folder, "RunInfo.xml")
	if data, err := os.ReadFile(runInfo); err == nil {
		if m := reFlowcellTag.FindStringSubmatch(string(data)); m != nil {
			return m[1]
		}
	} else if !os.IsNotExist(err) {
		log.Warn("failed to read RunInfo.xml", zap.String("folder", folder), zap.Error(err))
	}

	summary := filepath.Join(folder, "Run_Metric_Summary.draft.csv")
	if _, err := os.Stat(summary); err != nil {
		return ""
	}
	id, err := flowcellFromSummary(summary)
	if err != nil {
		log.Warn("failed to read flowcell from run summary", zap.String("path", summary), zap.Error(err))
		return ""
	}
	return id
}

// flowcellFromSummary scans the draft run summary for the header row (it is
// not assumed to be the first line), parses from there, and takes the
// flowcell value of the first data row only.
func flowcellFromSummary(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(data), "\n")
	headerIdx := -1
	for i, line := range lines {
		if strings.Contains(line, "MachineID") && strings.Contains(line, "FlowCellID") {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return "", nil
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines[headerIdx:], "\n")))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return "", err
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(name) == "FlowCellID" {
			col = i
			break
		}
	}
	if col < 0 {
		return "", nil
	}

	row, err := r.Read()
	if err != nil {
		return "", nil
	}
	if col >= len(row) {
		return "", nil
	}
	id := strings.TrimSpace(row[col])
	if id == "" || id == FlowcellPending {
		return "", nil
	}
	return id, nil
}
