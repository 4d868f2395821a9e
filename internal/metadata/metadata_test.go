package metadata

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/gtcore/qcmet/internal/testutil"
)

func TestExtractSettings_AllFields(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, ".settings.json", `{
    "pipeline": "qifa",
    "deliveryFolder": "/gt/delivery/outbox/LabX/",
    "projectFinal": "RUN1",
    "releaseDate": "2024-01-01"
}`)

	s, ok := ExtractSettings(path, zap.NewNop())
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if s.InvestigatorFolder != "LabX" {
		t.Errorf("investigator folder: expected LabX, got %q", s.InvestigatorFolder)
	}
	if s.RunLabel != "RUN1" {
		t.Errorf("run label: expected RUN1, got %q", s.RunLabel)
	}
	if s.ReleaseDate != "2024-01-01" {
		t.Errorf("release date: expected 2024-01-01, got %q", s.ReleaseDate)
	}
}

func TestExtractSettings_ReorderedAndExtraKeys(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, ".settings.json", `{
    "releaseDate": "2024-06-30",
    "junk": ["a", "b"],
    "projectFinal": "GT24-SmithJ-12-run1",
    "deliveryFolder": "/gt/delivery/outbox/Smith_Lab/"
}`)

	s, ok := ExtractSettings(path, zap.NewNop())
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if s.InvestigatorFolder != "Smith_Lab" {
		t.Errorf("investigator folder: got %q", s.InvestigatorFolder)
	}
}

func TestExtractSettings_MissingFieldIsTotalFailure(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no delivery folder", `{"projectFinal": "RUN1", "releaseDate": "2024-01-01"}`},
		{"no run label", `{"deliveryFolder": "/gt/d/LabX/", "releaseDate": "2024-01-01"}`},
		{"no release date", `{"deliveryFolder": "/gt/d/LabX/", "projectFinal": "RUN1"}`},
		{"not json at all", `deliveryFolder projectFinal releaseDate`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := testutil.WriteFile(t, dir, ".settings.json", tc.content)
			s, ok := ExtractSettings(path, zap.NewNop())
			if ok {
				t.Fatalf("expected extraction to fail, got %+v", s)
			}
			if s != (Settings{}) {
				t.Errorf("expected zero settings on failure, got %+v", s)
			}
		})
	}
}

func TestExtractSettings_UnreadableFile(t *testing.T) {
	_, ok := ExtractSettings(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
	if ok {
		t.Fatal("expected extraction to fail for missing file")
	}
}

func TestResolveFlowcell_FromRunInfo(t *testing.T) {
	dir := t.TempDir()
	folder := testutil.WriteRunFolder(t, dir, "run", testutil.RunFolder{
		Flowcell: "FC001",
		// Summary present too; RunInfo.xml must win
		SummaryFlowcell: "FCFALLBACK",
	})

	if got := ResolveFlowcell(folder, zap.NewNop()); got != "FC001" {
		t.Errorf("expected FC001, got %q", got)
	}
}

func TestResolveFlowcell_FallbackSummary(t *testing.T) {
	dir := t.TempDir()
	folder := testutil.WriteRunFolder(t, dir, "run", testutil.RunFolder{
		SummaryFlowcell: "FC002",
	})

	if got := ResolveFlowcell(folder, zap.NewNop()); got != "FC002" {
		t.Errorf("expected FC002, got %q", got)
	}
}

func TestResolveFlowcell_FallbackOnlyFirstDataRow(t *testing.T) {
	dir := t.TempDir()
	// Placeholder in the first data row means unresolved even though a
	// later row has a real value.
	testutil.WriteFile(t, dir, "Run_Metric_Summary.draft.csv",
		"banner line\nMachineID,RunNumber,FlowCellID\nM0371,42,"+FlowcellPending+"\nM0371,43,FC999\n")

	if got := ResolveFlowcell(dir, zap.NewNop()); got != "" {
		t.Errorf("expected unresolved, got %q", got)
	}
}

func TestResolveFlowcell_NoSources(t *testing.T) {
	if got := ResolveFlowcell(t.TempDir(), zap.NewNop()); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestResolveFlowcell_SummaryWithoutHeader(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "Run_Metric_Summary.draft.csv", "just,some,values\n1,2,3\n")

	if got := ResolveFlowcell(dir, zap.NewNop()); got != "" {
		t.Errorf("expected empty for summary without header, got %q", got)
	}
}
