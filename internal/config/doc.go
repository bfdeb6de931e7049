// Package config handles loading and validating application configuration
// from environment variables and config files, using viper for layered
// sources and validator for struct-level validation.
package config
