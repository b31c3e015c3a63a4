package portal

import (
	"context"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all"
)

// seedCookie is one cookie imported from outside the session. Login replays
// the seeds after its session reset so they survive into the fresh chain.
type seedCookie struct {
	host  string
	name  string
	value string
}

// SeedBrowserCookies imports valid hydroquebec.com cookies from the browsers
// installed on this machine and registers them as session seeds. Login
// replays the seeds into every fresh session, letting the provider skip
// credential submission when the user already has a portal session open in a
// browser. Returns the number of cookies seeded; a cookie-store read failure
// is logged and a cookieless login works regardless.
func (c *Client) SeedBrowserCookies(ctx context.Context) int {
	cookies, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix("hydroquebec.com"))
	if err != nil {
		c.logger.Warn("browser cookie read failed", "error", err)
	}
	for _, ck := range cookies {
		host := ck.Domain
		if len(host) > 0 && host[0] == '.' {
			host = host[1:]
		}
		c.seeds = append(c.seeds, seedCookie{host: host, name: ck.Name, value: ck.Value})
	}
	c.applySeeds()
	if len(cookies) > 0 {
		c.logger.Debug("seeded browser cookies", "count", len(cookies))
	}
	return len(cookies)
}

func (c *Client) applySeeds() {
	for _, s := range c.seeds {
		c.sess.SetCookie(s.host, s.name, s.value)
	}
}
