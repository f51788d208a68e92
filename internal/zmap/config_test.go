package zmap

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostrand/zmapd/internal/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		config    ScanConfig
		wantErr   bool
		wantField string
	}{
		{
			name:    "empty config is valid",
			config:  ScanConfig{},
			wantErr: false,
		},
		{
			name: "typical config is valid",
			config: ScanConfig{
				TargetPort: Int(80),
				Rate:       Int(10000),
				SourcePort: String("40000-50000"),
				GatewayMAC: String("AA:BB:CC:DD:EE:FF"),
				MaxTargets: String("10%"),
			},
			wantErr: false,
		},
		{
			name:    "target port zero is valid",
			config:  ScanConfig{TargetPort: Int(0)},
			wantErr: false,
		},
		{
			name:    "target port 65535 is valid",
			config:  ScanConfig{TargetPort: Int(65535)},
			wantErr: false,
		},
		{
			name:      "negative target port",
			config:    ScanConfig{TargetPort: Int(-1)},
			wantErr:   true,
			wantField: "target_port",
		},
		{
			name:      "target port above 65535",
			config:    ScanConfig{TargetPort: Int(65536)},
			wantErr:   true,
			wantField: "target_port",
		},
		{
			name:      "rate and bandwidth together",
			config:    ScanConfig{Rate: Int(1000), Bandwidth: String("10M")},
			wantErr:   true,
			wantField: "rate",
		},
		{
			name:    "bandwidth alone is valid",
			config:  ScanConfig{Bandwidth: String("10M")},
			wantErr: false,
		},
		{
			name:    "source port single value",
			config:  ScanConfig{SourcePort: String("40000")},
			wantErr: false,
		},
		{
			name:      "source port range reversed",
			config:    ScanConfig{SourcePort: String("6000-5000")},
			wantErr:   true,
			wantField: "source_port",
		},
		{
			name:      "source port range not numeric",
			config:    ScanConfig{SourcePort: String("abc-100")},
			wantErr:   true,
			wantField: "source_port",
		},
		{
			name:      "source port range above 65535",
			config:    ScanConfig{SourcePort: String("60000-70000")},
			wantErr:   true,
			wantField: "source_port",
		},
		{
			name:    "max targets integer",
			config:  ScanConfig{MaxTargets: String("1000")},
			wantErr: false,
		},
		{
			name:    "max targets percentage",
			config:  ScanConfig{MaxTargets: String("0.5%")},
			wantErr: false,
		},
		{
			name:      "max targets not numeric",
			config:    ScanConfig{MaxTargets: String("lots")},
			wantErr:   true,
			wantField: "max_targets",
		},
		{
			name:      "max targets bad percentage",
			config:    ScanConfig{MaxTargets: String("abc%")},
			wantErr:   true,
			wantField: "max_targets",
		},
		{
			name:    "hyphen-delimited MAC",
			config:  ScanConfig{SourceMAC: String("aa-bb-cc-dd-ee-ff")},
			wantErr: false,
		},
		{
			name:      "truncated MAC",
			config:    ScanConfig{GatewayMAC: String("AA:BB:CC")},
			wantErr:   true,
			wantField: "gateway_mac",
		},
		{
			name:      "MAC with bad octet",
			config:    ScanConfig{TargetMAC: String("AA:BB:CC:DD:EE:GG")},
			wantErr:   true,
			wantField: "target_mac",
		},
		{
			name:    "shard within count",
			config:  ScanConfig{Shards: Int(4), Shard: Int(3)},
			wantErr: false,
		},
		{
			name:      "shard equal to count",
			config:    ScanConfig{Shards: Int(4), Shard: Int(4)},
			wantErr:   true,
			wantField: "shard",
		},
		{
			name:      "shard set without count",
			config:    ScanConfig{Shard: Int(1)},
			wantErr:   true,
			wantField: "shard",
		},
		{
			name:    "shard zero without count",
			config:  ScanConfig{Shard: Int(0)},
			wantErr: false,
		},
		{
			name:      "negative shard",
			config:    ScanConfig{Shards: Int(4), Shard: Int(-1)},
			wantErr:   true,
			wantField: "shard",
		},
		{
			name:      "zero shard count",
			config:    ScanConfig{Shards: Int(0)},
			wantErr:   true,
			wantField: "shards",
		},
		{
			name:      "invalid user metadata",
			config:    ScanConfig{UserMetadata: json.RawMessage(`{"broken`)},
			wantErr:   true,
			wantField: "user_metadata",
		},
		{
			name:    "valid user metadata",
			config:  ScanConfig{UserMetadata: json.RawMessage(`{"owner":"secops"}`)},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var cfgErr *errors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestParseConfig(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`{"target_port": 443, "rate": 5000}`))
		require.NoError(t, err)
		require.NotNil(t, cfg.TargetPort)
		assert.Equal(t, 443, *cfg.TargetPort)
		require.NotNil(t, cfg.Rate)
		assert.Equal(t, 5000, *cfg.Rate)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		_, err := ParseConfig([]byte(`{"target_prot": 443}`))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeConfig))
	})

	t.Run("malformed JSON rejected", func(t *testing.T) {
		_, err := ParseConfig([]byte(`{"target_port":`))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeConfig))
	})

	t.Run("decoded config is validated", func(t *testing.T) {
		_, err := ParseConfig([]byte(`{"target_port": 99999}`))
		require.Error(t, err)

		var cfgErr *errors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "target_port", cfgErr.Field)
	})
}

// Unset fields must survive a serialize/deserialize cycle as unset, not
// as zero values.
func TestJSONRoundTrip(t *testing.T) {
	original := &ScanConfig{
		TargetPort: Int(80),
		Rate:       Int(10000),
		Cooldown:   Int(8),
		SourcePort: String("40000-50000"),
		Seed:       Int64(12345),
		Shards:     Int(2),
		Shard:      Int(0),
		Cores:      []int{0, 1, 2},
		DryRun:     true,
		MinHitrate: Float64(0.1),
		Notes:      String("test sweep"),
	}

	data, err := original.ToJSON()
	require.NoError(t, err)

	// Unset fields stay omitted from the serialized form
	assert.NotContains(t, string(data), "bandwidth")
	assert.NotContains(t, string(data), "gateway_mac")

	decoded, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	assert.Nil(t, decoded.Bandwidth)
	assert.Nil(t, decoded.MaxTargets)
}

func TestToMap(t *testing.T) {
	cfg := &ScanConfig{TargetPort: Int(80), VPN: true}

	m, err := cfg.ToMap()
	require.NoError(t, err)

	assert.Equal(t, float64(80), m["target_port"])
	assert.Equal(t, true, m["vpn"])
	_, present := m["rate"]
	assert.False(t, present, "unset fields must not appear in the map")
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")

	original := &ScanConfig{
		TargetPort: Int(443),
		Bandwidth:  String("10M"),
		MaxTargets: String("10%"),
	}
	require.NoError(t, original.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
