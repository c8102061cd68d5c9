package platform

import (
	"path/filepath"
	"testing"
	"time"
)

// TestPathsForLinuxWithXDG verifies XDG variables relocate both config and data.
func TestPathsForLinuxWithXDG(t *testing.T) {
	p, err := PathsFor("linux", map[string]string{
		"XDG_CONFIG_HOME": "/xdg/config",
		"XDG_DATA_HOME":   "/xdg/data",
	}, "/fallback/config", "/fallback/data", "fieldboard")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	wantConfig := filepath.Join("/xdg/config", "fieldboard", "config.toml")
	wantDB := filepath.Join("/xdg/data", "fieldboard", "fieldboard.db")
	if p.ConfigPath != wantConfig {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if p.DBPath != wantDB {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
	if want := filepath.Join("/xdg/data", "fieldboard", "log"); p.LogDir != want {
		t.Fatalf("unexpected log dir %q", p.LogDir)
	}
	if want := filepath.Join("/xdg/data", "fieldboard", "snapshots"); p.ExportDir != want {
		t.Fatalf("unexpected export dir %q", p.ExportDir)
	}
}

// TestPathsForEmptyAppNameFails verifies an app name is required.
func TestPathsForEmptyAppNameFails(t *testing.T) {
	if _, err := PathsFor("linux", nil, "/cfg", "/data", "  "); err == nil {
		t.Fatal("expected error for empty app name")
	}
}

// TestPathsForWindowsUsesAppData verifies roaming config and local data on Windows.
func TestPathsForWindowsUsesAppData(t *testing.T) {
	p, err := PathsFor("windows", map[string]string{
		"APPDATA":      `C:\Users\me\AppData\Roaming`,
		"LOCALAPPDATA": `C:\Users\me\AppData\Local`,
	}, `C:\fallback\config`, `C:\fallback\data`, "fieldboard")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}

	wantConfig := filepath.Join(`C:\Users\me\AppData\Roaming`, "fieldboard", "config.toml")
	wantDB := filepath.Join(`C:\Users\me\AppData\Local`, "fieldboard", "fieldboard.db")
	if p.ConfigPath != wantConfig {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if p.DBPath != wantDB {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
}

// TestPathsForEmptyDirsFails verifies both base dirs are required.
func TestPathsForEmptyDirsFails(t *testing.T) {
	_, err := PathsFor("darwin", nil, "", "/tmp/data", "fieldboard")
	if err == nil {
		t.Fatal("expected error for empty dirs")
	}
}

// TestPathsForDarwinFallback verifies macOS ignores XDG variables.
func TestPathsForDarwinFallback(t *testing.T) {
	p, err := PathsFor("darwin", map[string]string{
		"XDG_CONFIG_HOME": "/ignored",
		"XDG_DATA_HOME":   "/ignored",
	}, "/Users/me/Library/Application Support", "/Users/me/Library/Application Support", "fieldboard")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	wantConfig := filepath.Join("/Users/me/Library/Application Support", "fieldboard", "config.toml")
	wantDB := filepath.Join("/Users/me/Library/Application Support", "fieldboard", "fieldboard.db")
	if p.ConfigPath != wantConfig {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if p.DBPath != wantDB {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
}

// TestPathsForUnknownFallback verifies other platforms use the given base dirs.
func TestPathsForUnknownFallback(t *testing.T) {
	p, err := PathsFor("freebsd", map[string]string{}, "/cfg", "/data", "fieldboard")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	wantConfig := filepath.Join("/cfg", "fieldboard", "config.toml")
	wantData := filepath.Join("/data", "fieldboard")
	if p.ConfigPath != wantConfig {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if p.DataDir != wantData {
		t.Fatalf("unexpected data dir %q", p.DataDir)
	}
}

// TestPathsForLinuxFallbackWithoutXDG verifies ~/.config and ~/.local/share without XDG.
func TestPathsForLinuxFallbackWithoutXDG(t *testing.T) {
	p, err := PathsFor("linux", map[string]string{}, "/home/me/.config", "/home/me/.local/share", "fieldboard")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	wantConfig := filepath.Join("/home/me/.config", "fieldboard", "config.toml")
	wantDB := filepath.Join("/home/me/.local/share", "fieldboard", "fieldboard.db")
	if p.ConfigPath != wantConfig {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if p.DBPath != wantDB {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
}

// TestDefaultPathsSmoke verifies the current machine resolves a database path.
func TestDefaultPathsSmoke(t *testing.T) {
	p, err := DefaultPaths()
	if err != nil {
		t.Fatalf("DefaultPaths() error = %v", err)
	}
	if p.ConfigPath == "" || p.DBPath == "" || p.DataDir == "" {
		t.Fatalf("expected non-empty paths, got %#v", p)
	}
}

// TestDefaultPathsWithOptionsDevMode verifies dev builds get a separate directory and database.
func TestDefaultPathsWithOptionsDevMode(t *testing.T) {
	p, err := DefaultPathsWithOptions(Options{AppName: "fieldboard", DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if filepath.Base(filepath.Dir(p.ConfigPath)) != "fieldboard-dev" {
		t.Fatalf("expected dev config dir suffix, got %q", p.ConfigPath)
	}
	if filepath.Base(p.DBPath) != "fieldboard-dev.db" {
		t.Fatalf("expected dev db name, got %q", p.DBPath)
	}
}

// TestSnapshotPathUsesUTCStamp verifies default export files are named by UTC export time.
func TestSnapshotPathUsesUTCStamp(t *testing.T) {
	p, err := PathsFor("linux", nil, "/cfg", "/data", "fieldboard")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	exportedAt := time.Date(2026, 4, 1, 10, 30, 5, 0, time.FixedZone("CEST", 2*60*60))
	want := filepath.Join("/data", "fieldboard", "snapshots", "snapshot-20260401T083005Z.json")
	if got := p.SnapshotPath(exportedAt); got != want {
		t.Fatalf("SnapshotPath() = %q, want %q", got, want)
	}
}
