// -- cmd/root_test.go --
package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharbelDaher34/jarvis/internal/notify"
)

func TestInitializeConfig_DefaultsApplied(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	err := initializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "gemini", viper.GetString("llm.provider"))
	assert.Equal(t, 20, viper.GetInt("agent.max_iterations"))
	assert.True(t, viper.GetBool("browser.headless"))
	assert.Equal(t, "jarvis", viper.GetString("logger.service_name"))
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"], "run command must be registered")
}

func TestRunCommand_Flags(t *testing.T) {
	for _, flag := range []string{"headless", "max-iterations", "single", "start-url"} {
		assert.NotNil(t, runCmd.Flags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestRunCommand_RequiresExactlyOneArg(t *testing.T) {
	assert.Error(t, runCmd.Args(runCmd, nil))
	assert.Error(t, runCmd.Args(runCmd, []string{"a", "b"}))
	assert.NoError(t, runCmd.Args(runCmd, []string{"do the thing"}))
}

func TestConsoleListener_WritesProgress(t *testing.T) {
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)

	listener := consoleListener(c)
	listener("Task started", notify.KindInfo)
	listener("Step 1: open the site", notify.KindStep)

	out := buf.String()
	assert.Contains(t, out, "[info] Task started")
	assert.Contains(t, out, "[step] Step 1: open the site")
}
