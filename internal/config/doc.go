// Package config loads, validates, and normalizes vectra's TOML
// configuration.
//
// Configuration resolves from an explicit --config path, then
// ~/.config/vectra/config.toml, then ./vectra.toml, falling back to built-in
// defaults when no file exists. Path fields are tilde-expanded and made
// absolute during normalization so the rest of the daemon never handles
// relative paths.
package config
