// Package groups maintains the investigator-group membership profile: a JSON
// document mapping group name to member emails, with a static HTML view
// rendered beside it.
package groups

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Profile maps group name to member emails
type Profile map[string][]string

// GroupColumn is the metrics-table column the group names come from
const GroupColumn = "Investigator_Folder"

// Load reads the profile at path; a missing file yields an empty profile.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{}, nil
		}
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return p, nil
}

// Save writes the profile as indented JSON and refreshes the HTML view.
func Save(path string, p Profile) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create profile directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile %s: %w", path, err)
	}
	return RenderHTML(path, p)
}

var htmlView = template.Must(template.New("groups").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>User Groups</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 8px 12px; border: 1px solid #ccc; }
        th { background-color: #f2f2f2; }
    </style>
</head>
<body>
    <h1>User Groups</h1>
    <table>
        <thead><tr><th>Group</th><th>Users</th></tr></thead>
        <tbody>
{{- range .}}
        <tr><td>{{.Group}}</td><td>{{.Users}}</td></tr>
{{- end}}
        </tbody>
    </table>
</body>
</html>
`))

// RenderHTML writes the HTML view next to the profile file, swapping the
// .json extension for .html.
func RenderHTML(profilePath string, p Profile) error {
	htmlPath := strings.TrimSuffix(profilePath, filepath.Ext(profilePath)) + ".html"

	type row struct {
		Group string
		Users string
	}
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([]row, 0, len(names))
	for _, name := range names {
		rows = append(rows, row{Group: name, Users: strings.Join(p[name], ", ")})
	}

	f, err := os.Create(htmlPath)
	if err != nil {
		return fmt.Errorf("failed to write HTML view %s: %w", htmlPath, err)
	}
	if err := htmlView.Execute(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to render HTML view: %w", err)
	}
	return f.Close()
}

// AddUsers adds emails to a group, creating the group if needed. Emails
// already present are not duplicated.
func AddUsers(profilePath, group string, emails []string) error {
	p, err := Load(profilePath)
	if err != nil {
		return err
	}
	members := p[group]
	for _, email := range emails {
		if email == "" {
			continue
		}
		exists := false
		for _, m := range members {
			if m == email {
				exists = true
				break
			}
		}
		if !exists {
			members = append(members, email)
		}
	}
	p[group] = members
	return Save(profilePath, p)
}

// RemoveUsers removes emails from a group. An unknown group is a no-op.
func RemoveUsers(profilePath, group string, emails []string) error {
	p, err := Load(profilePath)
	if err != nil {
		return err
	}
	members, ok := p[group]
	if !ok {
		return nil
	}
	remove := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		remove[e] = struct{}{}
	}
	kept := members[:0]
	for _, m := range members {
		if _, drop := remove[m]; !drop {
			kept = append(kept, m)
		}
	}
	p[group] = kept
	return Save(profilePath, p)
}

// Extract walks inputDir for *.metrics.txt tables and collects the distinct
// group names from the Investigator_Folder column. Per-file read errors are
// logged and skipped.
func Extract(inputDir string, log *zap.Logger) []string {
	found := make(map[string]struct{})
	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".metrics.txt") {
			return nil
		}
		if err := extractFile(path, found); err != nil {
			log.Warn("failed to read metrics table", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		log.Warn("failed to walk input directory", zap.String("dir", inputDir), zap.Error(err))
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// extractFile reads one delimited metrics table. The delimiter is sniffed
// from the header line: tab when present, comma otherwise.
func extractFile(path string, found map[string]struct{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	content := string(data)

	comma := ','
	if i := strings.IndexByte(content, '\n'); i >= 0 && strings.ContainsRune(content[:i], '\t') {
		comma = '\t'
	}

	r := csv.NewReader(strings.NewReader(content))
	r.Comma = comma
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	col := -1
	for i, name := range records[0] {
		if strings.TrimSpace(name) == GroupColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return fmt.Errorf("%s column not found in %s", GroupColumn, path)
	}

	for _, row := range records[1:] {
		if col >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[col])
		if name != "" && name != GroupColumn {
			found[name] = struct{}{}
		}
	}
	return nil
}

// MergeGroups adds the given group names to the profile with empty member
// lists, leaving existing groups untouched. Returns the number of groups
// added.
func MergeGroups(profilePath string, names []string) (int, error) {
	p, err := Load(profilePath)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, name := range names {
		if _, ok := p[name]; !ok {
			p[name] = []string{}
			added++
		}
	}
	if added == 0 {
		return 0, nil
	}
	return added, Save(profilePath, p)
}
