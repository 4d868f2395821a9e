// Package validate runs each candidate folder through the ordered validation
// gates and produces the folder's parsed report on success.
package validate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gtcore/qcmet/internal/metadata"
	"github.com/gtcore/qcmet/internal/report"
)

// Gate outcomes, one per validation stage. The first failing gate wins and
// nothing past it runs for that folder.
var (
	ErrNoDescriptor       = errors.New("descriptor file missing")
	ErrIncompleteMetadata = errors.New("metadata incomplete")
	ErrNoReport           = errors.New("report file missing")
	ErrNoFlowcell         = errors.New("flowcell id unresolved")
)

// Validator checks candidate folders for the configured application
type Validator struct {
	Application string
	Log         *zap.Logger
}

// Check runs the gates in order: descriptor present, metadata complete,
// report present, flowcell resolved, report parsed. On success the returned
// table already carries the identity columns.
func (v *Validator) Check(folder string) (*report.Table, report.RunIdentity, error) {
	var id report.RunIdentity

	settingsFile := filepath.Join(folder, metadata.SettingsFile)
	if _, err := os.Stat(settingsFile); err != nil {
		return nil, id, fmt.Errorf("%w: %s", ErrNoDescriptor, settingsFile)
	}

	settings, ok := metadata.ExtractSettings(settingsFile, v.Log)
	if !ok {
		return nil, id, fmt.Errorf("%w: %s", ErrIncompleteMetadata, settingsFile)
	}

	reportFile := filepath.Join(folder, fmt.Sprintf("%s_QCreport.%s.csv", settings.RunLabel, v.Application))
	if _, err := os.Stat(reportFile); err != nil {
		return nil, id, fmt.Errorf("%w: %s", ErrNoReport, reportFile)
	}

	flowcell := metadata.ResolveFlowcell(folder, v.Log)
	if flowcell == "" {
		return nil, id, fmt.Errorf("%w: %s", ErrNoFlowcell, folder)
	}

	table, err := report.ReadReport(reportFile)
	if err != nil {
		return nil, id, fmt.Errorf("failed to parse metrics: %w", err)
	}

	id = report.RunIdentity{
		InvestigatorFolder: settings.InvestigatorFolder,
		RunLabel:           settings.RunLabel,
		FlowcellID:         flowcell,
	}
	table.PrependIdentity(id)
	return table, id, nil
}
