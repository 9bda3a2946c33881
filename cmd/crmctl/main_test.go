package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sqlText := `-- leads
CREATE TABLE a (id TEXT);
-- second table
CREATE TABLE b (id TEXT);

;`
	stmts := splitStatements(sqlText)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (id TEXT)", stmts[0])
	assert.Equal(t, "CREATE TABLE b (id TEXT)", stmts[1])
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "crmctl version "+Version)
}

func TestCreateLeadsRequiresTwoArgs(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"create_leads", "leads.csv"})

	assert.Error(t, cmd.Execute())
}

func TestCreateLeadsMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"create_leads", t.TempDir() + "/missing.csv", "org@example.com"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.csv")
}
