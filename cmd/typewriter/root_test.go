package typewriter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd()

	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}

	assert.True(t, names["apply"])
	assert.True(t, names["version"])
	assert.True(t, names["completion"])
	assert.True(t, names["help"])
}

func TestRootWithoutSubcommandFails(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(nil)

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command specified")
}

func TestRootUsageTemplate(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)

	require.NoError(t, root.Usage())

	// Section headers come from the custom template; stdout is not a
	// terminal under test, so they render as plain uppercase
	usage := out.String()
	assert.Contains(t, usage, "USAGE:")
	assert.Contains(t, usage, "COMMANDS:")
	assert.Contains(t, usage, "FLAGS:")
	assert.Contains(t, usage, "apply")
}

func TestApplyCmdFlags(t *testing.T) {
	root := NewRootCmd()
	applyCmd, _, err := root.Find([]string{"apply"})
	require.NoError(t, err)

	config := applyCmd.Flags().Lookup("config")
	require.NotNil(t, config)
	assert.Equal(t, "typewriter.toml", config.DefValue)

	yes := applyCmd.Flags().Lookup("yes")
	require.NotNil(t, yes)
	assert.Equal(t, "false", yes.DefValue)
}
