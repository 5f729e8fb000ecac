// Package config loads the froyodesk configuration.
//
// # Overview
//
// The configuration is a YAML document. An embedded default (default.yaml)
// is always decoded first and a user file, when given, is decoded on top of
// it, so a file only needs the sections it changes. Unknown keys are
// rejected. The merged result is validated with struct tags.
//
// # Sections
//
//   - platform: distribution and detector checked before anything runs
//   - packages: package manager and package list location
//   - display_manager, dotfiles, fonts, tools, profile, shell: one step each
//     (tools yield one step per entry); an empty section omits its step
//   - telemetry: logging, metrics textfile and tracing
//   - journal: optional run history database
//
// # Usage Example
//
//	cfg, err := config.Load("/etc/froyodesk/config.yaml")
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Failed to load config")
//	}
package config
