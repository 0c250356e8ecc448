package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmdProperties(t *testing.T) {
	assert.Equal(t, "fastmcp-github-oauth", rootCmd.Use)
	assert.Equal(t, "MCP server with GitHub OAuth authentication", rootCmd.Short)
	assert.Contains(t, rootCmd.Long, "Model Context Protocol")
	assert.Contains(t, rootCmd.Long, "GitHub")
	assert.True(t, rootCmd.SilenceUsage)
}

func TestSetVersion(t *testing.T) {
	originalVersion := rootCmd.Version
	t.Cleanup(func() { rootCmd.Version = originalVersion })

	SetVersion("v1.2.3-test")

	assert.Equal(t, "v1.2.3-test", rootCmd.Version)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	var names []string
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Use)
	}

	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "version")
	assert.Contains(t, names, "self-update")
}
