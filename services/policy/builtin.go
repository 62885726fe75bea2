package policy

// builtinDomains is the vendor-curated whitelist. These are never written to
// user storage and are filtered out of it on load.
var builtinDomains = []string{
	"google.com",
	"gstatic.com",
	"googleapis.com",
	"youtube.com",
	"microsoft.com",
	"live.com",
	"office.com",
	"apple.com",
	"icloud.com",
	"mozilla.org",
	"wikipedia.org",
	"github.com",
	"cloudflare.com",
	"amazon.com",
}

func builtinWhitelist() map[string]struct{} {
	m := make(map[string]struct{}, len(builtinDomains))
	for _, d := range builtinDomains {
		m[d] = struct{}{}
	}
	return m
}
