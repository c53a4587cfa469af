package cli

import (
	"github.com/vvka-141/pgjson/internal/config"
	"github.com/vvka-141/pgjson/internal/db"
	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// environment is read once per resolution. Tests replace it.
var environment = db.LoadFromEnvironment

// resolveConnection consolidates connection resolution for the import and
// cleanup commands: connection string and granular flags, cloud flags,
// environment variables and pgjson.yaml.
func resolveConnection(
	connStringFlag string,
	granularFlags *db.GranularConnFlags,
	cloudFlags *db.CloudFlags,
	projectConfig *config.ProjectConfig,
) (*pgjson.ConnectionConfig, error) {
	return db.ResolveConnectionParams(
		connStringFlag,
		granularFlags,
		cloudFlags,
		environment(),
		projectConfig,
	)
}
