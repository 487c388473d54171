package core

import (
	"gomosh/config"
	"gomosh/tunnel"
	"gomosh/util"
)

// Build constructs the appropriate Mode from the given configuration.
// This is the single dispatch point between the CLI surface and the
// session machinery.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Bookmark {
		return &BookmarkMode{Spec: cfg.HostSpec}, nil
	}
	return &AttachMode{
		Config: cfg,
		Logger: logger,
	}, nil
}

// buildTransport assembles the SSH transport from the configuration.
func buildTransport(cfg *config.Config, logger *util.Logger) tunnel.Transport {
	return tunnel.NewSSHTransport(&tunnel.SSHConfig{
		User:                     cfg.User,
		Host:                     cfg.Host,
		Port:                     cfg.SSHPort,
		KeyPath:                  cfg.SSHKeyPath,
		PromptPass:               cfg.SSHPassword,
		UseAgent:                 cfg.UseSSHAgent,
		StrictHostKey:            cfg.StrictHostKey,
		KnownHosts:               cfg.KnownHostsPath,
		ConnTimeout:              cfg.ConnectTimeout,
		AllowKeyboardInteractive: cfg.KeyboardInteractive,
	}, logger)
}
