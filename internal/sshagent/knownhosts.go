package sshagent

import (
	"bufio"
	"os"
	"strings"
)

// LoadKnownHosts parses an OpenSSH known_hosts file into a set of known
// hostnames. Per spec.md §9, only plain comma-separated host-pattern tokens
// are supported; hashed (`|1|...`) entries are skipped.
func LoadKnownHosts(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hosts := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		hostField := fields[0]
		if strings.HasPrefix(hostField, "@") {
			if len(fields) < 3 {
				continue
			}
			hostField = fields[1]
		}
		for _, tok := range strings.Split(hostField, ",") {
			if strings.HasPrefix(tok, "|1|") {
				continue
			}
			hosts[tok] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hosts, nil
}

// KnownHostsChecker returns a predicate over the hosts loaded from path,
// suitable for policy.Enforcer.SetKnownHostsChecker. If the file cannot be
// read, the predicate treats every host as unknown.
func KnownHostsChecker(path string) func(hostname string) bool {
	hosts, err := LoadKnownHosts(path)
	if err != nil {
		return func(string) bool { return false }
	}
	return func(hostname string) bool { return hosts[hostname] }
}
