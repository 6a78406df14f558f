package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN_PRIMARY", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := newRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "purge-tokens"}, names)
}

func TestMigrateThenPurge(t *testing.T) {
	setTestEnv(t)

	buf := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.Execute())

	cmd.SetArgs([]string{"purge-tokens"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "purged 0 expired refresh token(s)")
}

func TestMigrateFailsWithoutSecrets(t *testing.T) {
	setTestEnv(t)
	t.Setenv("JWT_SECRET", "")

	buf := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"migrate"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
