package risk

import "strings"

// dotInsensitiveDomains ignore dots in the local part when routing mail.
var dotInsensitiveDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
}

// NormalizeEmail folds an address to the canonical form used for alias
// detection: lowercase, "+tag" suffix removed and, for dot-insensitive
// providers, dots stripped from the local part. Input without an "@" is
// only lowercased.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return email
	}
	local, domain := email[:at], email[at+1:]
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}
	if _, ok := dotInsensitiveDomains[domain]; ok {
		local = strings.ReplaceAll(local, ".", "")
	}
	return local + "@" + domain
}

// Domain returns the lowercased domain part of email, or "" when absent.
func Domain(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}
