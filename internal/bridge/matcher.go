package bridge

import "strings"

// MatchStrength scores how well a credential's stored URL binds to the
// request host, per the integer scale in spec §4.6. A nil/empty credential
// URL is treated as passing origin binding with strength 0 (callers that
// require a bound URL, e.g. TOTP, must check for an empty credentialURL
// themselves).
func MatchStrength(credentialURL, requestHost string) int {
	if credentialURL == "" || requestHost == "" {
		return 0
	}
	credHost := hostOf(credentialURL)
	reqHost := strings.ToLower(requestHost)
	credHost = strings.ToLower(credHost)

	if credHost == reqHost {
		return 100
	}
	if isSubdomain(credHost, reqHost) || isSubdomain(reqHost, credHost) {
		return 90
	}
	if strings.Contains(strings.ToLower(credentialURL), reqHost) {
		return 80
	}
	if registrableDomain(credHost) != "" && registrableDomain(credHost) == registrableDomain(reqHost) {
		return 60
	}
	return 0
}

// hostOf extracts the host component from a URL-or-bare-host string,
// stripping scheme, userinfo, port, and path.
func hostOf(raw string) string {
	s := raw
	if idx := strings.Index(s, "://"); idx != -1 {
		s = s[idx+3:]
	}
	if idx := strings.Index(s, "@"); idx != -1 {
		s = s[idx+1:]
	}
	if idx := strings.IndexAny(s, "/?#"); idx != -1 {
		s = s[:idx]
	}
	if idx := strings.LastIndex(s, ":"); idx != -1 {
		s = s[:idx]
	}
	return s
}

// isSubdomain reports whether sub is a (strict) subdomain of parent.
func isSubdomain(sub, parent string) bool {
	if sub == parent || parent == "" {
		return false
	}
	return strings.HasSuffix(sub, "."+parent)
}

// registrableDomain returns the last two dot-separated labels of host, the
// spec's definition of "same registrable domain" for this scope.
func registrableDomain(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
