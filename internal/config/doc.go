// Package config provides the configuration for bygglarm: defaults for the
// case registry watcher and the address crawler, validation, and the optional
// YAML configuration file.
package config
