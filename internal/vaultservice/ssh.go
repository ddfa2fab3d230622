package vaultservice

import "github.com/persona-vault/persona/internal/sshagent"

// LoadSSHKeys enumerates every SshKey credential and decrypts each into an
// in-memory sshagent.AgentKey, for the SSH agent to serve over its socket.
func (s *Service) LoadSSHKeys() ([]*sshagent.AgentKey, error) {
	creds, err := s.store.Credentials.FindByType("SshKey")
	if err != nil {
		return nil, err
	}
	return sshagent.LoadKeys(creds, s.DecryptSSHKey)
}
