// Package ssh resolves SSH connection parameters for a remote endpoint
// from the user's ssh_config and known_hosts files. It does not dial:
// an actual SSH transport.Transport is out of scope for this module
// (registering "ssh" with transport.Get deliberately returns
// UnknownTransport), but client/server tooling built on top of this
// package still needs host-key and config resolution to prepare a
// connection handed off to another SSH client.
package ssh

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/kevinburke/ssh_config"
	"github.com/skeema/knownhosts"
	"golang.org/x/crypto/ssh"
)

// ResolvedConfig is the subset of ssh_config(5) directives relevant to
// establishing a connection to a host alias.
type ResolvedConfig struct {
	Hostname string
	Port     string
	User     string
	IdentityFiles []string
}

// Resolve reads the user's (and system) ssh_config for alias, following
// Host/Match blocks via github.com/kevinburke/ssh_config.
func Resolve(alias string) (*ResolvedConfig, error) {
	cfg := &ResolvedConfig{Hostname: alias}

	if hostname, err := ssh_config.GetStrict(alias, "HostName"); err == nil && hostname != "" {
		cfg.Hostname = hostname
	}
	if port, err := ssh_config.GetStrict(alias, "Port"); err == nil && port != "" {
		cfg.Port = port
	} else {
		cfg.Port = "22"
	}
	if user, err := ssh_config.GetStrict(alias, "User"); err == nil && user != "" {
		cfg.User = user
	}
	if idFile, err := ssh_config.GetStrict(alias, "IdentityFile"); err == nil && idFile != "" {
		cfg.IdentityFiles = append(cfg.IdentityFiles, expandHome(idFile))
	}
	return cfg, nil
}

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

// HostKeyCallback builds an ssh.HostKeyCallback backed by the user's
// known_hosts file(s), using github.com/skeema/knownhosts so unknown
// hosts are rejected rather than silently accepted.
func HostKeyCallback(knownHostsFiles ...string) (ssh.HostKeyCallback, error) {
	if len(knownHostsFiles) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("ssh: resolving home directory: %w", err)
		}
		knownHostsFiles = []string{filepath.Join(home, ".ssh", "known_hosts")}
	}
	db, err := knownhosts.NewDB(knownHostsFiles...)
	if err != nil {
		return nil, fmt.Errorf("ssh: loading known_hosts: %w", err)
	}
	return db.HostKeyCallback(), nil
}

// DialAddr renders host/port into the "host:port" form net.Dial and
// ssh.Dial expect.
func (c *ResolvedConfig) DialAddr() string {
	return net.JoinHostPort(c.Hostname, c.Port)
}
