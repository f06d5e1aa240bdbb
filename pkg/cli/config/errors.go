package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound   = goerr.New("configuration file not found")
	ErrInvalidConfig    = goerr.New("invalid configuration")
	ErrDuplicateUserID  = goerr.New("duplicate user ID")
	ErrInvalidRole      = goerr.New("invalid user role")
	ErrMissingUserID    = goerr.New("user ID is required")
	ErrInvalidLogLevel  = goerr.New("invalid log level")
	ErrInvalidLogFormat = goerr.New("invalid log format")
	ErrInvalidBackend   = goerr.New("invalid repository backend")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	UserIDKey     = "user_id"
	UserIndexKey  = "user_index"
	RoleKey       = "role"
)
