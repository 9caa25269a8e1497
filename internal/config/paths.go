package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName    = "serverbuilder"
	configFile = appName + ".json"
)

// Paths are the per-user directories Server Builder reads and writes.
type Paths struct {
	Config string // ~/.config/serverbuilder: serverbuilder.json
	State  string // ~/.local/state/serverbuilder: logs, history, transcripts
}

// GetPaths resolves the directories from the XDG variables, falling back to
// the usual locations under HOME (or APPDATA on Windows).
func GetPaths() *Paths {
	return &Paths{
		Config: xdgDir("XDG_CONFIG_HOME", ".config"),
		State:  xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state")),
	}
}

func xdgDir(env, homeRel string) string {
	base := os.Getenv(env)
	switch {
	case base != "":
	case runtime.GOOS == "windows":
		base = os.Getenv("APPDATA")
	default:
		base = filepath.Join(os.Getenv("HOME"), homeRel)
	}
	return filepath.Join(base, appName)
}

// EnsurePaths creates the config and state directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Config, p.State} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// HistoryDir is where saved creations are kept.
func (p *Paths) HistoryDir() string {
	return filepath.Join(p.State, "history")
}

// TranscriptPath returns where a session's raw model output is recorded.
func (p *Paths) TranscriptPath(sessionID string) string {
	return filepath.Join(p.State, "transcripts", sessionID+".txt")
}

// GlobalConfigPath returns the path of the user-wide config file.
func GlobalConfigPath() string {
	return filepath.Join(GetPaths().Config, configFile)
}
