package sources

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// DefaultAllowedDomains are the registrable domains sources may live under.
var DefaultAllowedDomains = []string{"jamf.com"}

// CheckHost verifies that rawURL is http(s) and that its registrable domain
// is one of allowed. IP literals and single-label hosts must be listed as is.
func CheckHost(rawURL string, allowed []string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid source URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("source URL %q must use http or https", rawURL)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("source URL %q has no host", rawURL)
	}

	registrable := host
	if net.ParseIP(host) == nil && strings.Contains(host, ".") {
		registrable, err = publicsuffix.Domain(host)
		if err != nil {
			return fmt.Errorf("could not determine registrable domain of %q: %w", host, err)
		}
	}

	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), registrable) {
			return nil
		}
	}
	return fmt.Errorf("source host %q (%s) is not in the allowed domains %v", host, registrable, allowed)
}
