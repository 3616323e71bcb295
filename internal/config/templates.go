package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trade Journal Configuration
# Every key may also be set from the environment as JOURNAL_<SECTION>_<KEY>,
# e.g. JOURNAL_SERVER_PORT=8080.

[server]
# Listen host; empty listens on all interfaces
host = ""
# Listen port (PORT also works)
port = 5001
# Serve the web bundle from static_dir (NODE_ENV=production also enables this)
production = false
static_dir = "dist"
# Maximum request body size in megabytes; chart images are sent inline
body_limit_mb = 50
# Time allowed for in-flight requests on shutdown
shutdown_timeout = "10s"
# Allowed CORS origins
cors_origins = ["*"]

[database]
# PostgreSQL connection string (DATABASE_URL also works).
# When empty the embedded SQLite file is used.
url = ""
# SQLite file; defaults to journal.db in the config directory
# sqlite_path = "/var/lib/trade-journal/journal.db"

[auth]
# Token signing secret (JWT_SECRET also works). Set this in production.
jwt_secret = ""
# Token lifetime; "0s" issues tokens that never expire
token_ttl = "720h"
# bcrypt work factor (4-31)
bcrypt_cost = 10

[security]
# Block creating, editing and deleting trades and rules
read_only_mode = false
# Append auth and journal changes to audit/audit.log
audit_enabled = false
# Enforce the known pattern, quality, stage, status and result values
strict_validation = true

[logging]
# debug, info, warn, error
level = "info"
console = true
# Also write a rotating log file
file = false
max_size = 100
max_backups = 7
max_age = 30

[client]
# Server the CLI talks to
server_url = "http://localhost:5001"
timeout = "30s"
`

// ConfigPath returns the config file path inside configDir.
func ConfigPath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// WriteTemplate writes the commented default config.toml into configDir.
// An existing file is only replaced when force is set.
func WriteTemplate(configDir string, force bool) (string, error) {
	path := ConfigPath(configDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("config file already exists at %s", path)
		}
	}

	// The file may hold the JWT secret once edited.
	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}

	return path, nil
}
