// Package config provides configuration loading, merging, and path management
// for Server Builder.
//
// # Configuration Loading
//
// Load merges configuration from these sources, later ones winning:
//
//  1. Global config (~/.config/serverbuilder/serverbuilder.json[c])
//  2. Project config (serverbuilder.json[c] in the given directory)
//  3. SERVERBUILDER_CONFIG file
//  4. SERVERBUILDER_CONFIG_CONTENT inline JSON
//  5. Environment variables
//
// Files may be JSON or JSONC; comments are stripped with tidwall/jsonc.
//
// # Variable Interpolation
//
//   - {env:VAR_NAME} expands to the variable's value
//   - {file:path} expands to the file contents, escaped for a JSON string.
//     Relative paths resolve against the config file's directory; ~/ expands
//     to HOME.
//
// Example:
//
//	{
//	  "model": "google/gemini-2.5-flash",
//	  "provider": {
//	    "google": { "apiKey": "{env:GEMINI_API_KEY}" },
//	    "openai": { "apiKey": "{file:~/.secrets/openai}" }
//	  },
//	  "generation": { "temperature": 0.8, "openRetries": 3 }
//	}
//
// # Environment Variable Overrides
//
//   - GEMINI_API_KEY, GOOGLE_API_KEY, API_KEY fill the google provider key
//   - OPENAI_API_KEY, ANTHROPIC_API_KEY, ARK_API_KEY fill their providers
//   - SERVERBUILDER_MODEL, SERVERBUILDER_SMALL_MODEL override the models
//   - SERVERBUILDER_LOG_LEVEL overrides the log level
//
// Keys from the environment never replace a key set in a file.
//
// When nothing sets a model, DefaultModel is used.
package config
