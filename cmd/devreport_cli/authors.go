package main

import (
	"context"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Stone-IT-Cloud/devreport/internal/log"
	"github.com/Stone-IT-Cloud/devreport/pkg/gitcontributors"
	"github.com/Stone-IT-Cloud/devreport/pkg/gitlogs"
)

const dateLayout = "2006-01-02"

func newAuthorsCmd(f *flags) *cobra.Command {
	var aliases string

	cmd := &cobra.Command{
		Use:   "authors",
		Short: "List commit authors in the window, to help pick --aliases",
		Args:  datesArgs(f),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.dates = append(f.dates, args...)
			return runAuthors(cmd.Context(), cmd.OutOrStdout(), f, gitlogs.SplitAliases(aliases))
		},
	}
	cmd.Flags().StringVar(&aliases, "aliases", "", "Mark authors matched by these aliases (comma-separated)")
	return cmd
}

func runAuthors(ctx context.Context, out io.Writer, f *flags, aliases []string) error {
	r, err := resolveRange(f)
	if err != nil {
		return err
	}
	log.Info("Authors from %s", r)

	var data [][]string
	for _, repo := range f.repos {
		contributors, err := gitcontributors.GetContributors(ctx, repo, r)
		if err != nil {
			log.Warn("Skipping %s: %v", repo, err)
			continue
		}
		for _, c := range contributors {
			matched := ""
			if c.MatchesAny(aliases) {
				matched = "yes"
			}
			data = append(data, []string{
				repo,
				c.Name,
				c.Email,
				strconv.Itoa(c.Commits),
				c.FirstCommitDate.Format(dateLayout),
				c.LastCommitDate.Format(dateLayout),
				matched,
			})
		}
	}

	if len(data) == 0 {
		log.Info("No authors found.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header([]string{"Repository", "Name", "Email", "Commits", "First", "Last", "Matched"})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
