package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	serve, _, err := rootCmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())

	sync, _, err := rootCmd.Find([]string{"sync"})
	require.NoError(t, err)
	flag := sync.Flags().Lookup("place")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestSyncRejectsArgs(t *testing.T) {
	assert.Error(t, syncCmd.Args(syncCmd, []string{"extra"}))
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", rootCmd.Version)
}
