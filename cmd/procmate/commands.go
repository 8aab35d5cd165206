package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dkassen/procmate/pkg/client"
)

type command struct {
	api *client.Client
}

func newCommand(flags APIFlags) *command {
	cfg := client.DefaultConfig()
	if flags.URL != "" {
		cfg.BaseURL = flags.URL
	}
	if flags.Timeout > 0 {
		cfg.Timeout = flags.Timeout
	}
	return &command{api: client.New(cfg)}
}

func (c *command) requireDaemon(ctx context.Context) error {
	if !c.api.IsReachable(ctx) {
		return fmt.Errorf("daemon not reachable - please start it first with 'procmate serve'")
	}
	return nil
}

func (c *command) Status(key string) error {
	ctx := context.Background()
	if err := c.requireDaemon(ctx); err != nil {
		return err
	}
	if key == "" {
		infos, err := c.api.Snapshot(ctx)
		if err != nil {
			return err
		}
		printJSON(infos)
		return nil
	}
	st, err := c.api.Status(ctx, key)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func (c *command) Start(key string) error {
	ctx := context.Background()
	if err := c.requireDaemon(ctx); err != nil {
		return err
	}
	st, err := c.api.Start(ctx, key)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func (c *command) Stop(key string, wait time.Duration) error {
	ctx := context.Background()
	if err := c.requireDaemon(ctx); err != nil {
		return err
	}
	if err := c.api.Stop(ctx, key, wait); err != nil {
		return err
	}
	fmt.Printf("Stopped: %s\n", key)
	return nil
}

func (c *command) Restart(key string, wait time.Duration) error {
	ctx := context.Background()
	if err := c.requireDaemon(ctx); err != nil {
		return err
	}
	st, err := c.api.Restart(ctx, key, wait)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func (c *command) Ensure(key string) error {
	ctx := context.Background()
	if err := c.requireDaemon(ctx); err != nil {
		return err
	}
	st, err := c.api.EnsureRunning(ctx, key)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func (c *command) Logs(key string, limit int) error {
	ctx := context.Background()
	if err := c.requireDaemon(ctx); err != nil {
		return err
	}
	entries, err := c.api.Logs(ctx, key, limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s [%s] %s\n", e.At.Format(time.RFC3339), e.Stream, e.Line)
	}
	return nil
}

func (c *command) Autostart(key string, enabled bool) error {
	ctx := context.Background()
	if err := c.requireDaemon(ctx); err != nil {
		return err
	}
	if err := c.api.SetAutostart(ctx, key, enabled); err != nil {
		return err
	}
	fmt.Printf("Autostart for %s: %v\n", key, enabled)
	return nil
}

func (c *command) Sweep() error {
	ctx := context.Background()
	if err := c.requireDaemon(ctx); err != nil {
		return err
	}
	if err := c.api.Sweep(ctx); err != nil {
		return err
	}
	fmt.Println("Sweep completed")
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Printf("%+v\n", v)
	}
}
