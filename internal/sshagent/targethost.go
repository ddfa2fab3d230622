package sshagent

import "strings"

// ResolveTargetHost implements spec.md §4.4 step 2's resolution order. env
// is a lookup function rather than os.Getenv directly, so callers can inject
// test environments.
func ResolveTargetHost(env func(string) string) string {
	if v := env("PERSONA_AGENT_TARGET_HOST"); v != "" {
		return v
	}
	if v := env("PERSONA_AGENT_TARGET_HOST_HINT"); v != "" {
		return v
	}
	if v := env("PERSONA_AGENT_SSH_DEST"); v != "" {
		return v
	}
	for _, name := range []string{"SSH_CONNECTION", "SSH_CLIENT"} {
		if v := env(name); v != "" {
			if tok := firstToken(v); tok != "" {
				return tok
			}
		}
	}
	for _, name := range []string{"PERSONA_AGENT_SSH_COMMAND", "SSH_ORIGINAL_COMMAND", "GIT_SSH_COMMAND"} {
		if v := env(name); v != "" {
			if tok := firstHostnameLikeToken(v); tok != "" {
				return tok
			}
		}
	}
	return ""
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// firstHostnameLikeToken scans whitespace-separated tokens in s, skipping
// flags, paths, and the literal ssh/ssh.exe binary name, preferring a token
// containing "." or ":" (hostnames/host:port) over a bare name.
func firstHostnameLikeToken(s string) string {
	var bareCandidate string
	for _, tok := range strings.Fields(s) {
		if !isHostnameLike(tok) {
			continue
		}
		if strings.Contains(tok, ".") || strings.Contains(tok, ":") {
			return tok
		}
		if bareCandidate == "" {
			bareCandidate = tok
		}
	}
	return bareCandidate
}

func isHostnameLike(tok string) bool {
	if tok == "" || strings.HasPrefix(tok, "-") {
		return false
	}
	if strings.Contains(tok, "/") || strings.Contains(tok, "=") {
		return false
	}
	if tok == "ssh" || tok == "ssh.exe" {
		return false
	}
	for _, r := range tok {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == ':':
		default:
			return false
		}
	}
	return true
}
