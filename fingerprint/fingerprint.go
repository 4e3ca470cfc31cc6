package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Unknown is returned by ExtractIP when the request carries no address.
const Unknown = "unknown"

const (
	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"

	fingerprintLength = 16
)

// fingerprintHeaders is the fixed, ordered header set hashed into a device
// fingerprint. Changing the order changes every fingerprint.
var fingerprintHeaders = [...]string{
	"User-Agent",
	"Accept",
	"Accept-Language",
	"Accept-Encoding",
	"Sec-CH-UA",
	"Sec-CH-UA-Platform",
}

// ExtractIP returns the client address of r and whether it is in canonical
// form.
//
// The first entry of X-Forwarded-For wins, then X-Real-IP, then the peer
// address. The first non-empty candidate is used even if it does not parse;
// in that case it is returned unchanged with canonical=false.
func ExtractIP(r *http.Request) (ip string, canonical bool) {
	if r == nil {
		return Unknown, false
	}
	for _, candidate := range candidates(r) {
		if candidate == "" {
			continue
		}
		return Canonicalize(candidate)
	}
	return Unknown, false
}

func candidates(r *http.Request) []string {
	forwarded := r.Header.Get(headerForwardedFor)
	if i := strings.IndexByte(forwarded, ','); i >= 0 {
		forwarded = forwarded[:i]
	}

	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}

	return []string{
		strings.TrimSpace(forwarded),
		strings.TrimSpace(r.Header.Get(headerRealIP)),
		strings.TrimSpace(peer),
	}
}

// Canonicalize returns the canonical textual form of raw. IPv4-mapped IPv6
// addresses collapse to IPv4. Unparseable input is returned unchanged with
// ok=false.
func Canonicalize(raw string) (string, bool) {
	addr, err := netip.ParseAddr(strings.Trim(raw, "[]"))
	if err != nil {
		return raw, false
	}
	return addr.Unmap().String(), true
}

// Info classifies an address for risk scoring.
type Info struct {
	Valid    bool
	Loopback bool
	Private  bool
}

// Suspicious reports whether the address is malformed or sits in a private
// range other than loopback.
func (i Info) Suspicious() bool {
	return !i.Valid || (i.Private && !i.Loopback)
}

// Classify parses ip and reports its address class. The Unknown sentinel is
// treated as malformed.
func Classify(ip string) Info {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return Info{}
	}
	addr = addr.Unmap()
	return Info{
		Valid:    true,
		Loopback: addr.IsLoopback(),
		Private:  addr.IsPrivate() || addr.IsLinkLocalUnicast(),
	}
}

// GenerateDeviceFingerprint hashes the fixed header set of r into a 16 hex
// character identifier. Identical header values always produce identical
// output.
func GenerateDeviceFingerprint(r *http.Request) string {
	var h http.Header
	if r != nil {
		h = r.Header
	}
	return FromHeaders(h)
}

// FromHeaders computes the device fingerprint from a header set.
func FromHeaders(h http.Header) string {
	values := make([]string, len(fingerprintHeaders))
	for i, name := range fingerprintHeaders {
		values[i] = h.Get(name)
	}
	sum := sha256.Sum256([]byte(strings.Join(values, "|")))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}
