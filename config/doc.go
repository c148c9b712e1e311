// Package config loads YAML or JSON configuration files with environment
// substitution and environment overrides.
//
// String values may reference the environment:
//
//	${VAR}          required variable
//	${VAR:-default} variable with a fallback
//	$VAR            short form, required
//
// After decoding, fields tagged with `env` are overridden from the
// environment (prefixed with JAM_ by default) using caarlos0/env. A .env file
// in the working directory is loaded first when present.
//
// Example:
//
//	var cfg jam.Config
//	if err := config.Load("config.yml", &cfg, config.WithPointer("jam")); err != nil {
//		return err
//	}
package config
