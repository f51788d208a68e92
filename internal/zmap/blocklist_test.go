package zmap

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostrand/zmapd/internal/errors"
)

func TestWriteSubnetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "block.txt")
	subnets := []string{"192.168.0.0/16", "10.0.0.0/8", "172.16.0.0/12"}

	require.NoError(t, writeSubnetFile(subnets, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.0.0/16\n10.0.0.0/8\n172.16.0.0/12\n", string(data))
}

// A second write must replace the file contents, not append to them.
func TestWriteSubnetFileRewrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "block.txt")

	require.NoError(t, writeSubnetFile([]string{"10.0.0.0/8", "192.168.0.0/16"}, path))
	require.NoError(t, writeSubnetFile([]string{"172.16.0.0/12"}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "172.16.0.0/12\n", string(data))
}

func TestWriteSubnetFileRejectsInvalidCIDR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "block.txt")

	tests := []string{"10.0.0.1", "not-a-subnet", "10.0.0.0/33", ""}
	for _, subnet := range tests {
		err := writeSubnetFile([]string{subnet}, path)
		require.Error(t, err, "subnet %q", subnet)
		assert.True(t, errors.IsCode(err, errors.CodeConfig))

		// Nothing may be written when validation fails
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	}
}

func TestStandardBlocklist(t *testing.T) {
	// Every entry must be valid CIDR
	for _, subnet := range standardBlocklist {
		_, _, err := net.ParseCIDR(subnet)
		assert.NoError(t, err, "subnet %q", subnet)
	}

	// The well-known reserved ranges must be covered
	for _, expected := range []string{
		"10.0.0.0/8",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"224.0.0.0/4",
		"240.0.0.0/4",
	} {
		assert.Contains(t, standardBlocklist, expected)
	}
}
