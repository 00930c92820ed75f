package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/corel/internal/cache"
	"github.com/panbanda/corel/internal/output"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the revision cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache statistics",
				Action: runCacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached revision set",
				Action: runCacheClear,
			},
		},
	}
}

func openCache(c *cli.Context) (*env, *cache.Cache, error) {
	e, err := loadEnv(c)
	if err != nil {
		return nil, nil, err
	}
	cc, err := cache.New(e.cfg.Cache.Dir, e.cfg.Cache.TTL, true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return e, cc, nil
}

func runCacheStats(c *cli.Context) error {
	e, cc, err := openCache(c)
	if err != nil {
		return err
	}
	stats, err := cc.GetStats()
	if err != nil {
		return err
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(&output.Summary{
		Title: "Revision Cache",
		Items: []output.KeyValue{
			{Key: "Directory", Value: cc.Dir()},
			{Key: "Entries", Value: fmt.Sprint(stats.Entries)},
			{Key: "Size", Value: fmt.Sprintf("%d bytes", stats.TotalSize)},
			{Key: "Oldest", Value: stats.OldestAge.Round(time.Second).String()},
			{Key: "Newest", Value: stats.NewestAge.Round(time.Second).String()},
		},
		Data: stats,
	})
}

func runCacheClear(c *cli.Context) error {
	e, cc, err := openCache(c)
	if err != nil {
		return err
	}
	if err := cc.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	formatter.Success("Cleared %s", cc.Dir())
	return nil
}
