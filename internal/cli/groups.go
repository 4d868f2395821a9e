package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gtcore/qcmet/internal/groups"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage the investigator-group membership profile",
	Long: `The membership profile maps each investigator group to the emails
allowed to see its dashboards. Group names are extracted from the
Investigator_Folder column of published metrics tables; members are managed
by hand. Every change also refreshes the HTML view next to the profile.`,
}

var (
	groupsProfile   string
	groupsGroup     string
	groupsEmails    []string
	groupsEmailFile string
	groupsInputDir  string
)

var groupsAddCmd = &cobra.Command{
	Use:   "add-users",
	Short: "Add users to a group",
	RunE: func(cmd *cobra.Command, args []string) error {
		emails, err := collectEmails(groupsEmails, groupsEmailFile)
		if err != nil {
			return err
		}
		if len(emails) == 0 {
			return fmt.Errorf("no emails given (use --emails or --email-file)")
		}
		if err := groups.AddUsers(groupsProfile, groupsGroup, emails); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d users to group %s.\n", len(emails), groupsGroup)
		return nil
	},
}

var groupsRemoveCmd = &cobra.Command{
	Use:   "remove-users",
	Short: "Remove users from a group",
	RunE: func(cmd *cobra.Command, args []string) error {
		emails, err := collectEmails(groupsEmails, groupsEmailFile)
		if err != nil {
			return err
		}
		if len(emails) == 0 {
			return fmt.Errorf("no emails given (use --emails or --email-file)")
		}
		if err := groups.RemoveUsers(groupsProfile, groupsGroup, emails); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d users from group %s.\n", len(emails), groupsGroup)
		return nil
	},
}

var groupsExtractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract group names from metrics tables into the profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := groups.Extract(groupsInputDir, log)
		added, err := groups.MergeGroups(groupsProfile, names)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Found %d groups, %d new.\n", len(names), added)
		return nil
	},
}

var groupsRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Re-render the HTML view of the profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := groups.Load(groupsProfile)
		if err != nil {
			return err
		}
		return groups.RenderHTML(groupsProfile, p)
	},
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	groupsCmd.AddCommand(groupsAddCmd, groupsRemoveCmd, groupsExtractCmd, groupsRenderCmd)

	groupsCmd.PersistentFlags().StringVar(&groupsProfile, "profile", "", "Path to the membership profile JSON")
	groupsCmd.MarkPersistentFlagRequired("profile")

	for _, c := range []*cobra.Command{groupsAddCmd, groupsRemoveCmd} {
		c.Flags().StringVar(&groupsGroup, "group", "", "Group name")
		c.Flags().StringSliceVar(&groupsEmails, "emails", nil, "Email addresses")
		c.Flags().StringVar(&groupsEmailFile, "email-file", "", "File with one email per line")
		c.MarkFlagRequired("group")
	}

	groupsExtractCmd.Flags().StringVar(&groupsInputDir, "input-dir", "", "Directory to scan for *.metrics.txt tables")
	groupsExtractCmd.MarkFlagRequired("input-dir")
}

// collectEmails merges --emails values (comma lists allowed) with the email
// file contents.
func collectEmails(flagEmails []string, emailFile string) ([]string, error) {
	var emails []string
	for _, e := range flagEmails {
		for _, part := range strings.Split(e, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				emails = append(emails, part)
			}
		}
	}

	if emailFile != "" {
		f, err := os.Open(emailFile)
		if err != nil {
			return nil, fmt.Errorf("email file not found: %s", emailFile)
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			e := strings.TrimSpace(scanner.Text())
			if e != "" {
				emails = append(emails, e)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read email file: %w", err)
		}
	}
	return emails, nil
}
