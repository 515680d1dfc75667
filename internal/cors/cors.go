package cors

import (
	"strings"

	"github.com/garagelab/autodiag/internal/errors"
	"github.com/gin-gonic/gin"
)

// Policy is the immutable browser origin allow-list. It is built once at
// startup from the fixed entries plus an optional deployment-specific extra
// origin, and injected into the middleware; nothing mutates it afterwards.
type Policy struct {
	exact    map[string]struct{}
	suffixes []string
}

// NewPolicy builds a Policy from exact origins and subdomain suffixes.
// A suffix of ".example.com" allows "https://app.example.com" but not
// "https://evilexample.com". Empty entries are ignored.
func NewPolicy(origins []string, suffixes []string, extraOrigin string) *Policy {
	p := &Policy{
		exact: make(map[string]struct{}, len(origins)+1),
	}

	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			p.exact[o] = struct{}{}
		}
	}
	if extraOrigin = strings.TrimSpace(extraOrigin); extraOrigin != "" {
		p.exact[extraOrigin] = struct{}{}
	}

	for _, s := range suffixes {
		if s = strings.TrimSpace(s); s != "" {
			if !strings.HasPrefix(s, ".") {
				s = "." + s
			}
			p.suffixes = append(p.suffixes, s)
		}
	}

	return p
}

// Allows reports whether the given Origin header value is allowed.
func (p *Policy) Allows(origin string) bool {
	if origin == "" {
		return false
	}

	if _, ok := p.exact[origin]; ok {
		return true
	}

	// Suffix matching is restricted to https subdomains.
	host, ok := strings.CutPrefix(origin, "https://")
	if !ok {
		return false
	}
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}

	return false
}

// Middleware enforces the origin allow-list. Preflight requests are answered
// directly; non-OPTIONS requests carrying a disallowed Origin are rejected
// with 403 before any handler runs. Requests without an Origin header
// (non-browser callers) pass through untouched.
func Middleware(policy *Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if policy.Allows(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		if origin != "" && !policy.Allows(origin) {
			errors.AbortWithForbidden(c, errors.OriginNotAllowed())
			return
		}

		c.Next()
	}
}
