package config

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	domainConfig "github.com/secmon-lab/riskdesk/pkg/domain/model/config"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// DirectoryFile is the TOML document holding the category catalog and the
// user directory.
//
//	fallback_department = "General"
//	categories = ["Fraud", "Compliance"]
//
//	[[users]]
//	id = "u-001"
//	name = "Ann"
//	department = "Retail"
//	role = "risk_owner"
type DirectoryFile struct {
	FallbackDepartment string          `toml:"fallback_department"`
	Categories         []string        `toml:"categories"`
	Users              []DirectoryUser `toml:"users"`
}

// DirectoryUser is one user entry of the directory file
type DirectoryUser struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Email       string `toml:"email"`
	Department  string `toml:"department"`
	Role        string `toml:"role"`
	SlackUserID string `toml:"slack_user_id"`
}

// Validate checks if the user entry is valid
func (u *DirectoryUser) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return goerr.Wrap(ErrMissingUserID, "user entry has no ID")
	}
	role := types.UserRole(u.Role)
	if u.Role == "" {
		role = types.UserRoleStaff
	}
	if !role.IsValid() {
		return goerr.Wrap(ErrInvalidRole, "unknown role", goerr.V(UserIDKey, u.ID), goerr.V(RoleKey, u.Role))
	}
	return nil
}

// Validate checks the catalog and every user entry
func (d *DirectoryFile) Validate() error {
	if err := d.Catalog().Validate(); err != nil {
		return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid category catalog")
	}

	seen := make(map[string]struct{}, len(d.Users))
	for i, u := range d.Users {
		if err := u.Validate(); err != nil {
			return goerr.Wrap(err, "invalid user", goerr.V(UserIndexKey, i))
		}
		if _, ok := seen[u.ID]; ok {
			return goerr.Wrap(ErrDuplicateUserID, "user ID appears twice", goerr.V(UserIDKey, u.ID))
		}
		seen[u.ID] = struct{}{}
	}
	return nil
}

// Catalog converts the file to the domain category catalog. An empty
// category list selects the built-in categories.
func (d *DirectoryFile) Catalog() *domainConfig.Catalog {
	catalog := domainConfig.DefaultCatalog()
	if len(d.Categories) > 0 {
		catalog.Categories = make([]types.Category, len(d.Categories))
		for i, c := range d.Categories {
			catalog.Categories[i] = types.Category(strings.TrimSpace(c))
		}
	}
	if dept := strings.TrimSpace(d.FallbackDepartment); dept != "" {
		catalog.FallbackDepartment = dept
	}
	return catalog
}

// ToUsers converts the user entries to domain users
func (d *DirectoryFile) ToUsers() []*model.User {
	users := make([]*model.User, len(d.Users))
	for i, u := range d.Users {
		role := types.UserRole(u.Role)
		if role == "" {
			role = types.UserRoleStaff
		}
		users[i] = &model.User{
			ID:          types.UserID(strings.TrimSpace(u.ID)),
			Name:        u.Name,
			Email:       u.Email,
			Department:  strings.TrimSpace(u.Department),
			Role:        role,
			SlackUserID: u.SlackUserID,
		}
	}
	return users
}

// LoadDirectory loads and validates a directory file
func LoadDirectory(path string) (*DirectoryFile, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "directory file not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read directory file", goerr.V(ConfigPathKey, path))
	}

	var file DirectoryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "failed to parse TOML directory", goerr.V(ConfigPathKey, path))
	}

	if err := file.Validate(); err != nil {
		return nil, goerr.Wrap(err, "directory validation failed", goerr.V(ConfigPathKey, path))
	}

	return &file, nil
}

// Directory holds the CLI flag pointing at the directory file
type Directory struct {
	path string
}

func (x *Directory) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "directory",
			Aliases:     []string{"d"},
			Usage:       "TOML file with the category catalog and user directory",
			Sources:     cli.EnvVars("RISKDESK_DIRECTORY"),
			Destination: &x.path,
		},
	}
}

func (x Directory) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Path returns the directory file path
func (x *Directory) Path() string {
	return x.path
}

// Load reads the directory file. Without a path the built-in catalog and an
// empty user list are returned.
func (x *Directory) Load() (*DirectoryFile, error) {
	if x.path == "" {
		return &DirectoryFile{}, nil
	}
	return LoadDirectory(x.path)
}

// Configure loads the directory file, stores its users and returns the catalog
func (x *Directory) Configure(ctx context.Context, repo interfaces.Repository) (*domainConfig.Catalog, error) {
	file, err := x.Load()
	if err != nil {
		return nil, err
	}

	if users := file.ToUsers(); len(users) > 0 {
		if err := repo.User().SaveMany(ctx, users); err != nil {
			return nil, goerr.Wrap(err, "failed to import user directory", goerr.V(ConfigPathKey, x.path))
		}
	}

	return file.Catalog(), nil
}
