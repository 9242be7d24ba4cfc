// Package config loads storefront settings from YAML and the environment.
package config
