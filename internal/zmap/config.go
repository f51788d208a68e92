// Package zmap provides the control layer around the zmap network scanner:
// a validated scan configuration model, translation of configurations into
// engine command lines, subprocess orchestration, and result parsing.
package zmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ostrand/zmapd/internal/errors"
)

const (
	maxPort = 65535

	configFilePerm = 0644
)

// macPattern matches six colon- or hyphen-delimited hex octet pairs.
var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)

// ScanConfig describes one scan request. Optional fields are pointers so
// that unset fields are omitted from serialized output and contribute no
// engine flags. A ScanConfig is immutable once validated; a changed scan
// is a new instance.
type ScanConfig struct {
	// Core options
	TargetPort *int    `json:"target_port,omitempty"`
	Bandwidth  *string `json:"bandwidth,omitempty"`
	Rate       *int    `json:"rate,omitempty"`
	Cooldown   *int    `json:"cooldown_time,omitempty"`
	Interface  *string `json:"interface,omitempty"`
	SourceIP   *string `json:"source_ip,omitempty"`
	SourcePort *string `json:"source_port,omitempty"`
	GatewayMAC *string `json:"gateway_mac,omitempty"`
	SourceMAC  *string `json:"source_mac,omitempty"`
	TargetMAC  *string `json:"target_mac,omitempty"`
	VPN        bool    `json:"vpn,omitempty"`

	// Scan control options
	MaxTargets *string `json:"max_targets,omitempty"`
	MaxRuntime *int    `json:"max_runtime,omitempty"`
	MaxResults *int    `json:"max_results,omitempty"`
	Probes     *int    `json:"probes,omitempty"`
	Retries    *int    `json:"retries,omitempty"`
	DryRun     bool    `json:"dryrun,omitempty"`
	Seed       *int64  `json:"seed,omitempty"`
	Shards     *int    `json:"shards,omitempty"`
	Shard      *int    `json:"shard,omitempty"`

	// Advanced options
	SenderThreads      *int    `json:"sender_threads,omitempty"`
	Cores              []int   `json:"cores,omitempty"`
	IgnoreInvalidHosts bool    `json:"ignore_invalid_hosts,omitempty"`
	MaxSendtoFailures  *int    `json:"max_sendto_failures,omitempty"`
	MinHitrate         *float64 `json:"min_hitrate,omitempty"`

	// Metadata options
	Notes        *string         `json:"notes,omitempty"`
	UserMetadata json.RawMessage `json:"user_metadata,omitempty"`
}

// Validate checks every field constraint. It is the single source of truth
// for configuration validity: direct construction, JSON decoding, and file
// loading all funnel through it. The first violation is returned as a
// *errors.ConfigError carrying the field, value, and constraint.
func (c *ScanConfig) Validate() error {
	if c.TargetPort != nil {
		if err := validatePort("target_port", *c.TargetPort); err != nil {
			return err
		}
	}

	if c.Rate != nil && c.Bandwidth != nil {
		return errors.NewConfigError("rate", *c.Rate, "rate and bandwidth are mutually exclusive")
	}

	if c.SourcePort != nil {
		if err := validateSourcePort(*c.SourcePort); err != nil {
			return err
		}
	}

	if c.MaxTargets != nil {
		if err := validateMaxTargets(*c.MaxTargets); err != nil {
			return err
		}
	}

	macs := []struct {
		field string
		value *string
	}{
		{"gateway_mac", c.GatewayMAC},
		{"source_mac", c.SourceMAC},
		{"target_mac", c.TargetMAC},
	}
	for _, m := range macs {
		if m.value != nil && !macPattern.MatchString(*m.value) {
			return errors.NewConfigError(m.field, *m.value,
				"must be six colon- or hyphen-delimited hex octets")
		}
	}

	if c.Shards != nil && *c.Shards < 1 {
		return errors.NewConfigError("shards", *c.Shards, "must be at least 1")
	}
	if c.Shard != nil {
		if *c.Shard < 0 {
			return errors.NewConfigError("shard", *c.Shard, "must not be negative")
		}
		// zmap defaults to a single shard when the count is unset
		count := 1
		if c.Shards != nil {
			count = *c.Shards
		}
		if *c.Shard >= count {
			return errors.NewConfigError("shard", *c.Shard,
				fmt.Sprintf("must be less than shard count %d", count))
		}
	}

	if len(c.UserMetadata) > 0 && !json.Valid(c.UserMetadata) {
		return errors.NewConfigError("user_metadata", string(c.UserMetadata), "must be valid JSON")
	}

	return nil
}

func validatePort(field string, port int) error {
	if port < 0 || port > maxPort {
		return errors.NewConfigError(field, port, "must be between 0 and 65535")
	}
	return nil
}

func validateSourcePort(value string) error {
	if start, end, ok := strings.Cut(value, "-"); ok {
		startPort, err1 := strconv.Atoi(start)
		endPort, err2 := strconv.Atoi(end)
		if err1 != nil || err2 != nil {
			return errors.NewConfigError("source_port", value,
				"range bounds must be integers")
		}
		if startPort < 0 || endPort > maxPort || startPort > endPort {
			return errors.NewConfigError("source_port", value,
				"range must lie in 0-65535 with start <= end")
		}
		return nil
	}

	port, err := strconv.Atoi(value)
	if err != nil {
		return errors.NewConfigError("source_port", value, "must be a port or port range")
	}
	return validatePort("source_port", port)
}

func validateMaxTargets(value string) error {
	if strings.HasSuffix(value, "%") {
		if _, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64); err != nil {
			return errors.NewConfigError("max_targets", value,
				"percentage must have a numeric prefix")
		}
		return nil
	}
	if _, err := strconv.Atoi(value); err != nil {
		return errors.NewConfigError("max_targets", value,
			"must be an integer or percentage")
	}
	return nil
}

// ParseConfig decodes a JSON payload into a validated ScanConfig. Unknown
// fields are rejected, and the result passes through Validate before being
// returned, so a decoded configuration is never partially valid.
func ParseConfig(data []byte) (*ScanConfig, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var cfg ScanConfig
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.NewConfigError("config", strings.TrimSpace(string(data)),
			"malformed JSON: "+err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads and validates a scan configuration from a JSON file.
func LoadConfig(path string) (*ScanConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan config: %w", err)
	}
	return ParseConfig(data)
}

// ToJSON serializes the configuration, omitting unset fields.
func (c *ScanConfig) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ToMap converts the configuration to a map with unset fields omitted.
func (c *ScanConfig) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	result := make(map[string]interface{})
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Save writes the configuration to a JSON file.
func (c *ScanConfig) Save(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal scan config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), configFilePerm); err != nil {
		return fmt.Errorf("failed to write scan config: %w", err)
	}
	return nil
}

// Pointer helpers for building configurations literally.

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
