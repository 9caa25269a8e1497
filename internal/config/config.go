package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// DefaultModel is used when no source sets a model.
const DefaultModel = "google/gemini-2.5-flash"

// Environment variables read by Load.
const (
	EnvConfig        = "SERVERBUILDER_CONFIG"
	EnvConfigContent = "SERVERBUILDER_CONFIG_CONTENT"
	EnvModel         = "SERVERBUILDER_MODEL"
	EnvSmallModel    = "SERVERBUILDER_SMALL_MODEL"
	EnvLogLevel      = "SERVERBUILDER_LOG_LEVEL"
)

// providerEnv lists the API key variables per provider, in preference order.
var providerEnv = map[string][]string{
	"google":    {"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"ark":       {"ARK_API_KEY"},
}

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.config/serverbuilder/)
// 2. Project config (serverbuilder.json[c] in directory)
// 3. SERVERBUILDER_CONFIG file
// 4. SERVERBUILDER_CONFIG_CONTENT inline JSON
// 5. Environment variables
//
// A file that exists but cannot be parsed is an error; missing files are
// skipped.
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
	}

	loaded := make(map[string]bool)
	loadOnce := func(path string, baseDir string) error {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return nil
		}
		if err := loadConfigFile(path, config, baseDir); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
		loaded[absPath] = true
		return nil
	}

	var paths [][2]string
	globalDir := GetPaths().Config
	paths = append(paths,
		[2]string{filepath.Join(globalDir, configFile), globalDir},
		[2]string{filepath.Join(globalDir, configFile+"c"), globalDir},
	)
	if directory != "" {
		paths = append(paths,
			[2]string{filepath.Join(directory, configFile), directory},
			[2]string{filepath.Join(directory, configFile+"c"), directory},
		)
	}
	if configPath := os.Getenv(EnvConfig); configPath != "" {
		paths = append(paths, [2]string{configPath, filepath.Dir(configPath)})
	}
	for _, p := range paths {
		if err := loadOnce(p[0], p[1]); err != nil {
			return nil, err
		}
	}

	if content := os.Getenv(EnvConfigContent); content != "" {
		var inline types.Config
		data := interpolate(jsonc.ToJSON([]byte(content)), directory)
		if err := json.Unmarshal(data, &inline); err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvConfigContent, err)
		}
		mergeConfig(config, &inline)
	}

	applyEnvOverrides(config)
	normalizeProviderConfig(config)

	if config.Model == "" {
		config.Model = DefaultModel
	}
	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data, baseDir)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]
		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match
		}
		// The placeholder sits inside a JSON string; Marshal escapes it and
		// the surrounding quotes are dropped.
		quoted, _ := json.Marshal(strings.TrimRight(string(content), "\r\n"))
		return string(quoted[1 : len(quoted)-1])
	})

	return []byte(str)
}

// normalizeProviderConfig merges Options fields into direct fields.
func normalizeProviderConfig(config *types.Config) {
	for name, provider := range config.Provider {
		if provider.Options != nil {
			if provider.Options.APIKey != "" {
				provider.APIKey = provider.Options.APIKey
			}
			if provider.Options.BaseURL != "" {
				provider.BaseURL = provider.Options.BaseURL
			}
		}
		config.Provider[name] = provider
	}
}

// mergeConfig merges source config into target. Later sources win field by
// field; provider entries are replaced whole.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.SmallModel != "" {
		target.SmallModel = source.SmallModel
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}

	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}

	if g := source.Generation; g != nil {
		if target.Generation == nil {
			target.Generation = &types.GenerationConfig{}
		}
		if g.Temperature != nil {
			target.Generation.Temperature = g.Temperature
		}
		if g.MaxTokens != 0 {
			target.Generation.MaxTokens = g.MaxTokens
		}
		if g.OpenRetries != nil {
			target.Generation.OpenRetries = g.OpenRetries
		}
	}

	if s := source.Server; s != nil {
		if target.Server == nil {
			target.Server = &types.ServerConfig{}
		}
		if s.Port != 0 {
			target.Server.Port = s.Port
		}
		if s.EnableCORS != nil {
			target.Server.EnableCORS = s.EnableCORS
		}
	}
}

// applyEnvOverrides applies environment variable overrides. API keys from
// the environment only fill providers that have no key configured.
func applyEnvOverrides(config *types.Config) {
	for provider, vars := range providerEnv {
		for _, envVar := range vars {
			apiKey := os.Getenv(envVar)
			if apiKey == "" {
				continue
			}
			if config.Provider == nil {
				config.Provider = make(map[string]types.ProviderConfig)
			}
			p := config.Provider[provider]
			if p.APIKey == "" && (p.Options == nil || p.Options.APIKey == "") {
				p.APIKey = apiKey
				config.Provider[provider] = p
			}
			break
		}
	}

	if model := os.Getenv(EnvModel); model != "" {
		config.Model = model
	}
	if smallModel := os.Getenv(EnvSmallModel); smallModel != "" {
		config.SmallModel = smallModel
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		config.LogLevel = level
	}
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
