package main

import (
	"testing"
)

func TestNewLogger(t *testing.T) {
	// Both shapes must produce a usable logger.
	for _, env := range []string{"dev", "prod"} {
		log := newLogger(env)
		log.Info().Str("env", env).Msg("logger smoke test")
	}
}
