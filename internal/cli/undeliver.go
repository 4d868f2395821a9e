package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gtcore/qcmet/internal/dbexport"
)

var undeliverCmd = &cobra.Command{
	Use:   "undeliver",
	Short: "Flip a run's delivery status back to Undelivered",
	Long: `Updates ProjStatus from Delivered to Undelivered for one project run
type in the dashboard database, optionally restricted to specific samples.
The affected rows are exported as TSV for inspection and a diff of the
change is printed.`,
	RunE: runUndeliver,
}

var (
	undeliverRunType    string
	undeliverOut        string
	undeliverSamples    []string
	undeliverSampleFile string
)

func init() {
	rootCmd.AddCommand(undeliverCmd)

	undeliverCmd.Flags().StringVar(&undeliverRunType, "run-type", "", "Project run type (e.g. GT25-CourtoisE-84-run2)")
	undeliverCmd.Flags().StringVar(&undeliverOut, "out", "", "Output TSV file for inspection")
	undeliverCmd.Flags().StringSliceVar(&undeliverSamples, "sample", nil, "Sample names to restrict the update to")
	undeliverCmd.Flags().StringVar(&undeliverSampleFile, "sample-file", "", "File with one sample name per line")
	undeliverCmd.MarkFlagRequired("run-type")
	undeliverCmd.MarkFlagRequired("out")
}

func runUndeliver(cmd *cobra.Command, args []string) error {
	samples, err := collectSamples(undeliverSamples, undeliverSampleFile)
	if err != nil {
		return err
	}

	outPath := undeliverOut
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(cfg.OutputDir, outPath)
	}

	res, err := dbexport.Undeliver(cfg.DBFile(), outPath, undeliverRunType, samples)
	if err != nil {
		return err
	}
	if res.Count == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No rows to update for run type %q.\n", undeliverRunType)
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d rows updated to Undelivered.\n", res.Count)
	if res.Diff != "" {
		fmt.Fprintln(out, res.Diff)
	}
	fmt.Fprintf(out, "Updated rows exported to: %s\n", res.OutPath)
	fmt.Fprintf(out, "Push if correct: rsync -vahP %s %s\n", cfg.DBFile(), cfg.PushDest)
	return nil
}

// collectSamples merges the --sample values with the sample file contents and
// deduplicates the result.
func collectSamples(flagSamples []string, sampleFile string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, s := range flagSamples {
		s = strings.TrimSpace(s)
		if s != "" {
			seen[s] = struct{}{}
		}
	}

	if sampleFile != "" {
		f, err := os.Open(sampleFile)
		if err != nil {
			return nil, fmt.Errorf("sample file not found: %s", sampleFile)
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			s := strings.TrimSpace(scanner.Text())
			if s != "" {
				seen[s] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read sample file: %w", err)
		}
	}

	samples := make([]string, 0, len(seen))
	for s := range seen {
		samples = append(samples, s)
	}
	sort.Strings(samples)
	return samples, nil
}
