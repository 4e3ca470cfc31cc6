package risk

import "strings"

var disposableDomains = map[string]struct{}{
	"10minutemail.com":  {},
	"anonbox.net":       {},
	"burnermail.io":     {},
	"discard.email":     {},
	"dispostable.com":   {},
	"emailfake.com":     {},
	"emailondeck.com":   {},
	"fakeinbox.com":     {},
	"getnada.com":       {},
	"guerrillamail.com": {},
	"guerrillamail.net": {},
	"mailcatch.com":     {},
	"maildrop.cc":       {},
	"mailinator.com":    {},
	"mailnesia.com":     {},
	"mintemail.com":     {},
	"moakt.com":         {},
	"mohmal.com":        {},
	"mytemp.email":      {},
	"sharklasers.com":   {},
	"spambox.us":        {},
	"spamgourmet.com":   {},
	"temp-mail.org":     {},
	"tempail.com":       {},
	"tempmail.com":      {},
	"tempr.email":       {},
	"throwawaymail.com": {},
	"trash-mail.com":    {},
	"trashmail.com":     {},
	"yopmail.com":       {},
}

type denylist struct {
	extra map[string]struct{}
}

func newDenylist(extra []string) denylist {
	d := denylist{extra: make(map[string]struct{}, len(extra))}
	for _, domain := range extra {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			d.extra[domain] = struct{}{}
		}
	}
	return d
}

// contains matches domain or any parent domain against the list.
func (d denylist) contains(domain string) bool {
	for domain != "" {
		if _, ok := disposableDomains[domain]; ok {
			return true
		}
		if _, ok := d.extra[domain]; ok {
			return true
		}
		dot := strings.IndexByte(domain, '.')
		if dot < 0 {
			return false
		}
		domain = domain[dot+1:]
	}
	return false
}
