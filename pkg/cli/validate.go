package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/cli/config"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var dirCfg config.Directory

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the category catalog and user directory",
		Flags:   dirCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if dirCfg.Path() == "" {
				return goerr.Wrap(config.ErrConfigNotFound, "--directory is required")
			}

			file, err := dirCfg.Load()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			catalog := file.Catalog()
			owners := make(map[string]int)
			for _, u := range file.ToUsers() {
				if u.Role == types.UserRoleRiskOwner {
					owners[u.Department]++
				}
			}

			logger.Info("Configuration validation passed",
				"categories", len(catalog.Categories),
				"users", len(file.Users),
				"fallback_department", catalog.Department(),
			)

			// departments with staff but no risk owner leave risks pending
			for _, u := range file.ToUsers() {
				dept := u.Department
				if dept == "" {
					dept = catalog.Department()
				}
				if owners[dept] == 0 {
					logger.Warn("Department has no risk owner", "department", dept, "user_id", u.ID)
					owners[dept] = -1
				}
			}

			fmt.Fprintf(c.Root().Writer, "OK: %d categories, %d users\n", len(catalog.Categories), len(file.Users))
			return nil
		},
	}
}
