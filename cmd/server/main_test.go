package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("LAKEX_CONFIG", "/etc/lakex.yaml")

	f, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "/etc/lakex.yaml", f.configPath)
	assert.Empty(t, f.listen)

	f, err = parseFlags([]string{"-c", "dev.yaml", "--listen", ":9090"})
	require.NoError(t, err)
	assert.Equal(t, "dev.yaml", f.configPath)
	assert.Equal(t, ":9090", f.listen)
}

func TestParseFlags_Errors(t *testing.T) {
	_, err := parseFlags([]string{"--nope"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"--help"})
	assert.ErrorIs(t, err, pflag.ErrHelp)
	assert.Equal(t, 0, run([]string{"--help"}))
}
