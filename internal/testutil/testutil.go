package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// RunFolder describes a synthetic QC run folder for tests
type RunFolder struct {
	// Descriptor fields; an empty field is left out of the settings file
	Investigator string
	RunLabel     string
	ReleaseDate  string

	// Flowcell written to RunInfo.xml; empty omits the file
	Flowcell string
	// SummaryFlowcell written to the fallback run summary; empty omits it
	SummaryFlowcell string

	// Application tag used in the report filename (default speciesid)
	Application string
	// Report rows as (sample, value) pairs under the sentinel header;
	// nil omits the report file
	ReportRows [][2]string
	// Preamble lines written above the report header
	Preamble []string

	// NoSettings omits the settings file entirely
	NoSettings bool
}

// WriteRunFolder materializes a run folder under dir and returns its path
func WriteRunFolder(t *testing.T, dir, name string, rf RunFolder) string {
	t.Helper()

	folder := filepath.Join(dir, name)
	if err := os.MkdirAll(folder, 0755); err != nil {
		t.Fatalf("Failed to create run folder: %v", err)
	}

	if !rf.NoSettings {
		settings := "{\n"
		if rf.Investigator != "" {
			settings += fmt.Sprintf("    \"deliveryFolder\": \"/gt/delivery/outbox/%s/\",\n", rf.Investigator)
		}
		if rf.RunLabel != "" {
			settings += fmt.Sprintf("    \"projectFinal\": \"%s\",\n", rf.RunLabel)
		}
		if rf.ReleaseDate != "" {
			settings += fmt.Sprintf("    \"releaseDate\": \"%s\",\n", rf.ReleaseDate)
		}
		settings += "    \"other\": \"stuff\"\n}\n"
		WriteFile(t, folder, ".settings.json", settings)
	}

	if rf.Flowcell != "" {
		runInfo := fmt.Sprintf("<?xml version=\"1.0\"?>\n<RunInfo>\n  <Run>\n    <Flowcell>%s</Flowcell>\n  </Run>\n</RunInfo>\n", rf.Flowcell)
		WriteFile(t, folder, "RunInfo.xml", runInfo)
	}

	if rf.SummaryFlowcell != "" {
		summary := "Run Metric Summary\ngenerated by qifa\nMachineID,RunNumber,FlowCellID\nM0371,42," + rf.SummaryFlowcell + "\nM0371,43,OTHER\n"
		WriteFile(t, folder, "Run_Metric_Summary.draft.csv", summary)
	}

	if rf.ReportRows != nil {
		app := rf.Application
		if app == "" {
			app = "speciesid"
		}
		content := ""
		for _, line := range rf.Preamble {
			content += line + "\n"
		}
		content += "GT_QC_Sample_ID,Reads\n"
		for _, row := range rf.ReportRows {
			content += row[0] + "," + row[1] + "\n"
		}
		reportName := fmt.Sprintf("%s_QCreport.%s.csv", rf.RunLabel, app)
		WriteFile(t, folder, reportName, content)
	}

	return folder
}

// WriteFile writes content to a file under dir and returns its path
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// ReadFile reads content from a file
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(data)
}
