package wire

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"sort"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // matches original_source's util::ripemd_160 exactly

	"github.com/nimbusact/actorcore/ref"
)

// LocalHostID derives the process-lifetime-constant, 20-byte host
// identifier described in spec.md §3. The original implementation
// (original_source/src/node_id.cpp, via util::ripemd_160 and
// util::get_mac_addresses/util::get_root_uuid) hashes the sorted set of
// hardware MAC addresses together with the root filesystem UUID; we do
// the same, substituting Go's net.Interfaces for the platform-specific
// MAC enumeration and /etc/machine-id (falling back to the hostname) for
// the root filesystem UUID, since neither has a portable stdlib
// equivalent. RIPEMD-160 is picked, exactly as upstream does, because its
// digest size is precisely ref.HostIDSize (20 bytes).
func LocalHostID() (ref.HostID, error) {
	var buf bytes.Buffer

	macs, err := macAddresses()
	if err != nil {
		return ref.HostID{}, fmt.Errorf("wire: enumerate mac addresses: %w", err)
	}
	for _, mac := range macs {
		buf.Write(mac)
	}

	rootID, err := rootFilesystemID()
	if err != nil {
		return ref.HostID{}, fmt.Errorf("wire: read root filesystem id: %w", err)
	}
	buf.WriteString(rootID)

	h := ripemd160.New()
	_, _ = h.Write(buf.Bytes())
	var out ref.HostID
	copy(out[:], h.Sum(nil))
	return out, nil
}

func macAddresses() ([][]byte, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var macs [][]byte
	for _, iface := range ifaces {
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		macs = append(macs, []byte(iface.HardwareAddr))
	}
	sort.Slice(macs, func(i, j int) bool { return bytes.Compare(macs[i], macs[j]) < 0 })
	if len(macs) == 0 {
		// Diskless containers and CI runners often expose no hardware MAC;
		// fall back to the hostname so the hash is still process-stable.
		hostname, err := os.Hostname()
		if err != nil {
			return nil, err
		}
		macs = append(macs, []byte(hostname))
	}
	return macs, nil
}

func rootFilesystemID() (string, error) {
	if data, err := os.ReadFile("/etc/machine-id"); err == nil {
		return string(bytes.TrimSpace(data)), nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return hostname, nil
}
