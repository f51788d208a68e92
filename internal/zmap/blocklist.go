package zmap

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/ostrand/zmapd/internal/errors"
)

const listFilePerm = 0644

// standardBlocklist covers reserved and special-purpose IPv4 space that
// should never be probed on the public internet.
var standardBlocklist = []string{
	"0.0.0.0/8",          // "this" network (RFC 1122)
	"10.0.0.0/8",         // private (RFC 1918)
	"100.64.0.0/10",      // carrier-grade NAT (RFC 6598)
	"127.0.0.0/8",        // loopback (RFC 1122)
	"169.254.0.0/16",     // link local (RFC 3927)
	"172.16.0.0/12",      // private (RFC 1918)
	"192.0.0.0/24",       // IETF protocol assignments (RFC 6890)
	"192.0.2.0/24",       // TEST-NET-1 (RFC 5737)
	"192.88.99.0/24",     // 6to4 relay anycast (RFC 3068)
	"192.168.0.0/16",     // private (RFC 1918)
	"198.18.0.0/15",      // benchmarking (RFC 2544)
	"198.51.100.0/24",    // TEST-NET-2 (RFC 5737)
	"203.0.113.0/24",     // TEST-NET-3 (RFC 5737)
	"224.0.0.0/4",        // multicast (RFC 3171)
	"240.0.0.0/4",        // reserved (RFC 1112)
	"255.255.255.255/32", // limited broadcast
}

// writeSubnetFile validates the given CIDR subnets and rewrites path with
// one subnet per line in input order. The file is fully rewritten on every
// call; nothing is appended.
func writeSubnetFile(subnets []string, path string) error {
	for _, subnet := range subnets {
		if _, _, err := net.ParseCIDR(subnet); err != nil {
			return errors.NewConfigError("subnets", subnet, "must be a CIDR subnet")
		}
	}

	var b strings.Builder
	for _, subnet := range subnets {
		b.WriteString(subnet)
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), listFilePerm); err != nil {
		return fmt.Errorf("failed to write subnet file %s: %w", path, err)
	}
	return nil
}
