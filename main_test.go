package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/okx/fake-activity/accounts"
)

func TestLoadAccountsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated-accounts.json")
	accs, err := accounts.Generate(5)
	require.NoError(t, err)
	require.NoError(t, accounts.Save(path, accs))

	got, err := loadAccounts(path, 3)
	require.NoError(t, err)
	require.Equal(t, accs[:3], got)

	got, err = loadAccounts(path, 0)
	require.NoError(t, err)
	require.Len(t, got, 5)

	got, err = loadAccounts(path, 10)
	require.NoError(t, err)
	require.Len(t, got, 5)
}

func TestGenerateAccountsCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "accounts", "out.json")
	configPath = ""
	cmd := generateAccountsCmd()
	cmd.SetArgs([]string{"4", "--out", out})
	require.NoError(t, cmd.Execute())

	accs, err := accounts.Load(out)
	require.NoError(t, err)
	require.Len(t, accs, 4)

	cmd = generateAccountsCmd()
	cmd.SetArgs([]string{"zero"})
	require.Error(t, cmd.Execute())
}

func TestRootCommandReportsErrorOnce(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"generate-accounts", "zero", "--out", filepath.Join(t.TempDir(), "out.json")})

	err := cmd.Execute()
	require.ErrorContains(t, err, `invalid account count "zero"`)
	require.Empty(t, stderr.String())
	require.Empty(t, stdout.String())
}
