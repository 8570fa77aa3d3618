// Package config provides the configuration of a report run.
//
// Settings are layered: built-in defaults, then the YAML config file,
// then environment variables, then command line flags. The result is
// validated once at startup so that missing credentials fail the run
// before any request is made.
package config
