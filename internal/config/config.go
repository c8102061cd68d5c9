package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Server   ServerConfig   `toml:"server"`
	Layout   LayoutConfig   `toml:"layout"`
	Identity IdentityConfig `toml:"identity"`
	Keys     KeyConfig      `toml:"keys"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"` // debug | info | warn | error
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type LayoutConfig struct {
	MaxRows           int                `toml:"max_rows"`
	DefaultBreakpoint string             `toml:"default_breakpoint"`
	Breakpoints       []BreakpointConfig `toml:"breakpoints"`
}

type BreakpointConfig struct {
	Name     string `toml:"name"`
	Columns  int    `toml:"columns"`
	MinWidth int    `toml:"min_width"`
}

type IdentityConfig struct {
	OwnerID string `toml:"owner_id"`
}

type KeyConfig struct {
	Relayout      string `toml:"relayout"`
	CopyLayout    string `toml:"copy_layout"`
	ToggleDetails string `toml:"toggle_details"`
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

func defaultBreakpoints() []BreakpointConfig {
	return []BreakpointConfig{
		{Name: "desktop", Columns: 12, MinWidth: 1200},
		{Name: "tablet", Columns: 8, MinWidth: 768},
		{Name: "mobile", Columns: 4, MinWidth: 0},
	}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".fieldboard/log",
			},
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:5437",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Layout: LayoutConfig{
			MaxRows:           1000,
			DefaultBreakpoint: "desktop",
			Breakpoints:       defaultBreakpoints(),
		},
		Identity: IdentityConfig{
			OwnerID: "local",
		},
		Keys: KeyConfig{
			Relayout:      "r",
			CopyLayout:    "y",
			ToggleDetails: "i",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	// a file listing breakpoints replaces the default tiers rather than merging into them
	var listed struct {
		Layout struct {
			Breakpoints []BreakpointConfig `toml:"breakpoints"`
		} `toml:"layout"`
	}
	if err := toml.Unmarshal(content, &listed); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if len(listed.Layout.Breakpoints) > 0 {
		cfg.Layout.Breakpoints = nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	level := strings.TrimSpace(strings.ToLower(c.Logging.Level))
	if level != "" && !slices.Contains(validLogLevels, level) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if strings.TrimSpace(c.Server.HTTPBind) == "" {
		return errors.New("server.http_bind is required")
	}
	for name, endpoint := range map[string]string{"server.api_endpoint": c.Server.APIEndpoint, "server.mcp_endpoint": c.Server.MCPEndpoint} {
		if !strings.HasPrefix(strings.TrimSpace(endpoint), "/") {
			return fmt.Errorf("%s must start with /: %q", name, endpoint)
		}
	}

	if c.Layout.MaxRows < 1 {
		return fmt.Errorf("layout.max_rows must be >= 1, got %d", c.Layout.MaxRows)
	}
	if len(c.Layout.Breakpoints) == 0 {
		return errors.New("layout.breakpoints must include at least one breakpoint")
	}
	seen := map[string]struct{}{}
	for idx, bp := range c.Layout.Breakpoints {
		name := strings.TrimSpace(strings.ToLower(bp.Name))
		if name == "" {
			return fmt.Errorf("layout.breakpoints[%d].name is required", idx)
		}
		if bp.Columns < 1 {
			return fmt.Errorf("layout.breakpoints[%d].columns must be >= 1", idx)
		}
		if bp.MinWidth < 0 {
			return fmt.Errorf("layout.breakpoints[%d].min_width must be >= 0", idx)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("layout.breakpoints[%d].name is duplicated: %s", idx, name)
		}
		seen[name] = struct{}{}
	}
	if def := strings.TrimSpace(strings.ToLower(c.Layout.DefaultBreakpoint)); def != "" {
		if _, ok := seen[def]; !ok {
			return fmt.Errorf("layout.default_breakpoint references unknown breakpoint %q", def)
		}
	}

	if strings.TrimSpace(c.Identity.OwnerID) == "" {
		return errors.New("identity.owner_id is required")
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
