package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_RegistersCommands(t *testing.T) {
	for _, name := range []string{"import", "keys", "cleanup", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestConnectionFlags_Shorthands(t *testing.T) {
	for _, cmd := range []string{"import", "cleanup"} {
		c, _, err := rootCmd.Find([]string{cmd})
		require.NoError(t, err)
		for short, long := range map[string]string{"h": "host", "p": "port", "U": "username", "d": "database"} {
			f := c.Flags().ShorthandLookup(short)
			require.NotNil(t, f, "%s -%s", cmd, short)
			assert.Equal(t, long, f.Name)
		}
		assert.NotNil(t, c.Flags().Lookup("google-instance"), cmd)
	}
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	f := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, f)
	assert.Equal(t, "pgjson.yaml", f.DefValue)
}
