package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/cli/config"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/usecase"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const groupsDescriptionWidth = 60

func cmdGroups() *cli.Command {
	var minCount int
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "min-count",
			Usage:       "Only show groups with at least this many reports",
			Value:       1,
			Destination: &minCount,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "groups",
		Aliases: []string{"g"},
		Usage:   "Print groups of risks sharing the same categories",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			groups, err := usecase.New(repo).Dashboard.SimilarGroups(ctx)
			if err != nil {
				return err
			}

			printGroups(c.Root().Writer, groups, minCount)
			return nil
		},
	}
}

func printGroups(w io.Writer, groups []*model.SimilarityGroup, minCount int) {
	header := color.New(color.FgCyan, color.Bold)
	count := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	shown := 0
	for _, g := range groups {
		if g.ReportCount < minCount {
			continue
		}
		shown++

		header.Fprintf(w, "#%d %s", g.DisplayID, g.Key)
		count.Fprintf(w, " (%d reports)\n", g.ReportCount)
		for _, r := range g.Risks {
			owner := "pending"
			if r.IsAssigned() {
				owner = r.OwnerID.String()
			}
			fmt.Fprintf(w, "  - %s  %s  %s ", r.ID, r.Department, truncateText(r.Description, groupsDescriptionWidth))
			faint.Fprintf(w, "[%s, owner: %s]\n", r.Status, owner)
		}
	}

	if shown == 0 {
		fmt.Fprintln(w, "No similar risk groups")
	}
}

func truncateText(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
