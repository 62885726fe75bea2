package utils

import (
	"net/netip"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/publicsuffix"
)

// memo caches publicsuffix lookups. The public suffix table walk is cheap but
// not free, and the whitelist check runs it on every uncached verdict.
var memo, _ = lru.New[string, string](4096)

// RegistrableDomain returns the shortest suffix of name a registrant can
// independently purchase (eTLD+1), honoring multi-label public suffixes such
// as "co.uk". Inputs that have no registrable form (IP literals, bare TLDs,
// single labels) are returned canonicalized but otherwise unchanged.
func RegistrableDomain(name string) string {
	cn := CanonicalHostname(name)
	if v, ok := memo.Get(cn); ok {
		return v
	}
	// IP literals have no registrable form; the public suffix walk would
	// otherwise treat the last octet as a TLD.
	if _, err := netip.ParseAddr(cn); err == nil {
		return cn
	}
	apex, err := publicsuffix.EffectiveTLDPlusOne(cn)
	if err != nil {
		apex = cn
	}
	memo.Add(cn, apex)
	return apex
}
