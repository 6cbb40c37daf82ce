// Package config provides application configuration management.
//
// Configuration is loaded from environment variables (TERRA_ prefix) merged
// over an optional YAML file. Environment values take precedence. The
// package validates all values at load time so that misconfiguration fails
// fast at startup rather than surfacing as runtime errors.
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
