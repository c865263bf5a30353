package config_test

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"

	"kadcore/config"
)

func TestRegisterFlagsParsesBootstrapList(t *testing.T) {
	c := config.Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	err := fs.Parse([]string{"-listen", "127.0.0.1:9100", "-bootstrap", "a:1, b:2 ,c:3"})
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9100", c.ListenAddr)
	require.Equal(t, []string{"a:1", "b:2", "c:3"}, c.Bootstrap)
	require.NoError(t, c.Validate())
}

func TestValidateRejectsBadKeyBits(t *testing.T) {
	c := config.Default()
	c.KeyBits = 13
	require.Error(t, c.Validate())
}

func TestValidateRejectsEmptyListen(t *testing.T) {
	c := config.Default()
	c.ListenAddr = ""
	require.Error(t, c.Validate())
}
