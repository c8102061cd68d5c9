// Package platform resolves where fieldboard keeps its TOML config, sqlite database,
// development logs and exported layout snapshots on each operating system.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// DefaultAppName names the config and data directories when no override is set.
const DefaultAppName = "fieldboard"

// snapshotStamp formats export times in snapshot file names.
const snapshotStamp = "20060102T150405Z"

// Paths lists the on-disk locations one fieldboard install reads and writes.
type Paths struct {
	// ConfigPath is the config.toml holding breakpoints, layout limits and key bindings.
	ConfigPath string
	// DataDir holds the database, logs and snapshots.
	DataDir string
	// DBPath is the sqlite file storing dashboards, widgets and packed positions.
	DBPath string
	// LogDir receives dev-mode log files.
	LogDir string
	// ExportDir is the default target of `fieldboard export`.
	ExportDir string
}

// Options selects the directory name; DevMode appends "-dev" so a development build
// never touches a production board.
type Options struct {
	AppName string
	DevMode bool
}

// SnapshotPath returns the default export file for a snapshot taken at exportedAt.
func (p Paths) SnapshotPath(exportedAt time.Time) string {
	return filepath.Join(p.ExportDir, "snapshot-"+exportedAt.UTC().Format(snapshotStamp)+".json")
}

// baseOverride names the environment variables that relocate the config and data bases.
type baseOverride struct {
	configEnv string
	dataEnv   string
}

// baseOverrides maps GOOS to its override variables. macOS and unknown platforms keep
// the os.UserConfigDir defaults.
var baseOverrides = map[string]baseOverride{
	"linux":   {configEnv: "XDG_CONFIG_HOME", dataEnv: "XDG_DATA_HOME"},
	"windows": {configEnv: "APPDATA", dataEnv: "LOCALAPPDATA"},
}

// DefaultPaths resolves the production locations for this machine.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions resolves locations for this machine using the current user's
// home and config directories plus any override variables.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = DefaultAppName
	}
	if opts.DevMode {
		appName += "-dev"
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	switch runtime.GOOS {
	case "linux":
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", homeErr)
		}
		dataDir = filepath.Join(home, ".local", "share")
	case "windows":
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			dataDir = v
		}
	}

	env := map[string]string{}
	if o, ok := baseOverrides[runtime.GOOS]; ok {
		env[o.configEnv] = os.Getenv(o.configEnv)
		env[o.dataEnv] = os.Getenv(o.dataEnv)
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, appName)
}

// PathsFor resolves config, database, log and export locations for one OS and environment.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	if o, ok := baseOverrides[goos]; ok {
		if v := env[o.configEnv]; v != "" {
			configBase = v
		}
		if v := env[o.dataEnv]; v != "" {
			dataBase = v
		}
	}

	dataDir := filepath.Join(dataBase, appName)
	return Paths{
		ConfigPath: filepath.Join(configBase, appName, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
		LogDir:     filepath.Join(dataDir, "log"),
		ExportDir:  filepath.Join(dataDir, "snapshots"),
	}, nil
}
