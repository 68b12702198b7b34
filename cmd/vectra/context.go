package main

import (
	"fmt"
	"strings"
	"sync"

	"vectra/internal/config"
)

// commandContext lazily loads configuration and shares it across commands.
type commandContext struct {
	serverFlag *string
	configFlag *string

	once sync.Once
	cfg  *config.Config
	err  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{serverFlag: serverFlag, configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		path := ""
		if c.configFlag != nil {
			path = *c.configFlag
		}
		c.cfg, _, _, c.err = config.Load(path)
	})
	return c.cfg, c.err
}

// serverURL resolves the API base URL: flag first, then the configured bind.
func (c *commandContext) serverURL() (string, error) {
	if c.serverFlag != nil && strings.TrimSpace(*c.serverFlag) != "" {
		return strings.TrimRight(*c.serverFlag, "/"), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s", cfg.Paths.APIBind), nil
}

func (c *commandContext) client() (*apiClient, error) {
	base, err := c.serverURL()
	if err != nil {
		return nil, err
	}
	return newAPIClient(base), nil
}
