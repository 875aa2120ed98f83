// Package config loads, validates, and normalizes sublingo configuration.
//
// Configuration is TOML, resolved from an explicit path, then
// ~/.config/sublingo/config.toml, then ./sublingo.toml. Defaults cover every
// key so a missing file is not an error. Per-call adjustments are expressed
// as Overrides and merged with WithOverrides, which never mutates the base.
package config
