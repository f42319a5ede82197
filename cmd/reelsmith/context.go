package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
	"reelsmith/internal/queue"
)

type commandContext struct {
	addrFlag   *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addrFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// gatewayURL resolves the daemon address from --addr or the config.
func (c *commandContext) gatewayURL() (string, error) {
	if c.addrFlag != nil {
		if addr := strings.TrimSpace(*c.addrFlag); addr != "" {
			if !strings.Contains(addr, "://") {
				addr = "http://" + addr
			}
			return addr, nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(cfg.Paths.APIBind) == "" {
		return "", errors.New("paths.api_bind is empty; the daemon gateway is disabled")
	}
	return cfg.GatewayURL(), nil
}

func (c *commandContext) client() (*api.Client, error) {
	base, err := c.gatewayURL()
	if err != nil {
		return nil, err
	}
	token := ""
	if cfg, err := c.ensureConfig(); err == nil {
		token = cfg.Paths.APIToken
	}
	return api.NewClient(base, token), nil
}

// withClient runs fn against a reachable daemon.
func (c *commandContext) withClient(ctx context.Context, fn func(*api.Client) error) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	if _, err := client.Health(ctx); err != nil {
		return wrapUnavailable(err)
	}
	return fn(client)
}

// withJobs prefers the running daemon and falls back to the local store.
func (c *commandContext) withJobs(ctx context.Context, fn func(jobsAPI) error) error {
	client, err := c.client()
	if err == nil {
		_, err = client.Health(ctx)
		if err == nil {
			return fn(&jobsGatewayAdapter{client: client})
		}
		if !errors.Is(err, api.ErrUnavailable) {
			return err
		}
	}
	cfg, cfgErr := c.ensureConfig()
	if cfgErr != nil {
		return cfgErr
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()
	return fn(&jobsStoreAdapter{store: store})
}

func wrapUnavailable(err error) error {
	if errors.Is(err, api.ErrUnavailable) {
		return fmt.Errorf("connect to daemon: %w; start it with `reelsmith serve`", err)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
