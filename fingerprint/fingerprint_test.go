package fingerprint

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractIPPrecedence(t *testing.T) {
	cases := []struct {
		name      string
		headers   map[string]string
		remote    string
		want      string
		canonical bool
	}{
		{
			name:      "forwarded for first entry",
			headers:   map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1", "X-Real-IP": "198.51.100.2"},
			remote:    "192.0.2.1:4321",
			want:      "203.0.113.7",
			canonical: true,
		},
		{
			name:      "real ip when no forwarded for",
			headers:   map[string]string{"X-Real-IP": "198.51.100.2"},
			remote:    "192.0.2.1:4321",
			want:      "198.51.100.2",
			canonical: true,
		},
		{
			name:      "peer address",
			remote:    "192.0.2.1:4321",
			want:      "192.0.2.1",
			canonical: true,
		},
		{
			name:      "ipv6 canonicalized",
			headers:   map[string]string{"X-Forwarded-For": "2001:DB8:0:0:0:0:0:1"},
			want:      "2001:db8::1",
			canonical: true,
		},
		{
			name:      "ipv4 mapped collapses",
			remote:    "[::ffff:192.0.2.5]:80",
			want:      "192.0.2.5",
			canonical: true,
		},
		{
			name:    "malformed returned raw",
			headers: map[string]string{"X-Forwarded-For": "not-an-ip"},
			remote:  "192.0.2.1:4321",
			want:    "not-an-ip",
		},
		{
			name: "nothing present",
			want: Unknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/signup", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			got, canonical := ExtractIP(r)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.canonical, canonical)
		})
	}
}

func TestClassify(t *testing.T) {
	assert.True(t, Classify("127.0.0.1").Loopback)
	assert.False(t, Classify("127.0.0.1").Suspicious())
	assert.True(t, Classify("10.1.2.3").Suspicious())
	assert.True(t, Classify("192.168.1.10").Suspicious())
	assert.True(t, Classify("fe80::1").Suspicious())
	assert.False(t, Classify("203.0.113.7").Suspicious())
	assert.True(t, Classify(Unknown).Suspicious())
	assert.True(t, Classify("999.1.1.1").Suspicious())
}

func TestDeviceFingerprintIsStable(t *testing.T) {
	build := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("User-Agent", "Mozilla/5.0")
		r.Header.Set("Accept", "text/html")
		r.Header.Set("Accept-Language", "en-US")
		r.Header.Set("Accept-Encoding", "gzip")
		r.Header.Set("Sec-CH-UA", `"Chromium";v="130"`)
		r.Header.Set("Sec-CH-UA-Platform", `"Linux"`)
		return r
	}

	a := GenerateDeviceFingerprint(build())
	b := GenerateDeviceFingerprint(build())
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	other := build()
	other.Header.Set("X-Request-ID", "ignored")
	assert.Equal(t, a, GenerateDeviceFingerprint(other), "headers outside the fixed set must not matter")

	changed := build()
	changed.Header.Set("Accept-Language", "de-DE")
	assert.NotEqual(t, a, GenerateDeviceFingerprint(changed))
}

func TestDeviceFingerprintNilRequest(t *testing.T) {
	assert.Equal(t, FromHeaders(http.Header{}), GenerateDeviceFingerprint(nil))
}
