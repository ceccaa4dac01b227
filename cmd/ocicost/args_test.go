package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeArgs(t *testing.T) {
	in := []string{"-ip", "-cd", "2", "-ds", "2024-01-01", "-days=7", "-report", "product", "-c", "/tmp/config", "-t", "PROD", "-p", "proxy:80", "--no-upload"}
	want := []string{"--ip", "--cd", "2", "--ds", "2024-01-01", "--days=7", "--report", "product", "-c", "/tmp/config", "-t", "PROD", "-p", "proxy:80", "--no-upload"}
	assert.Equal(t, want, normalizeArgs(in))
}

func TestNormalizeArgsStopsAtDoubleDash(t *testing.T) {
	assert.Equal(t, []string{"upload", "--", "-days"}, normalizeArgs([]string{"upload", "--", "-days"}))
}

func TestNormalizeArgsLeavesUnknownFlags(t *testing.T) {
	assert.Equal(t, []string{"-xyz", "history", "--limit", "5"}, normalizeArgs([]string{"-xyz", "history", "--limit", "5"}))
}
