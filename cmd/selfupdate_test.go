package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Real updates need network access and published releases, so only the
// development-version guard is unit-tested here.
func TestSelfUpdateCmd_RejectsDevVersions(t *testing.T) {
	for _, version := range []string{"dev", ""} {
		t.Run("version "+version, func(t *testing.T) {
			originalVersion := rootCmd.Version
			t.Cleanup(func() { rootCmd.Version = originalVersion })
			rootCmd.Version = version

			err := newSelfUpdateCmd().Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "cannot self-update a development version")
		})
	}
}

func TestSelfUpdateCmdProperties(t *testing.T) {
	cmd := newSelfUpdateCmd()

	assert.Equal(t, "self-update", cmd.Use)
	assert.Equal(t, "Update fastmcp-github-oauth to the latest version", cmd.Short)
	assert.Contains(t, cmd.Long, "fastmcp-github-oauth")
	assert.Contains(t, cmd.Long, "GitHub")
}

func TestGithubRepoSlug(t *testing.T) {
	assert.Equal(t, "liatrio/fastmcp-github-oauth", githubRepoSlug)
}
