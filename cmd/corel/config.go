package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/corel/internal/output"
	"github.com/panbanda/corel/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the merged configuration from defaults and config file.

Examples:
  corel config show               # Show effective config
  corel -c corel.toml config show # Show config from specific file`,
				Action: runConfigShow,
			},
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Validates a corel configuration file for syntax errors and invalid values.

Examples:
  corel config validate                   # Validates default config locations
  corel -c .corel/corel.yaml config validate`,
				Action: runConfigValidate,
			},
		},
	}
}

func runConfigShow(c *cli.Context) error {
	cfg, source, err := config.Resolve(c.String("config"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	if source != "" {
		fmt.Fprintf(w, "# Configuration from: %s\n\n", source)
	} else {
		fmt.Fprintln(w, "# Default configuration (no config file found)")
	}

	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(content)
	return err
}

func runConfigValidate(c *cli.Context) error {
	f := output.NewWriterFormatter(output.FormatText, c.App.Writer, !color.NoColor)

	cfg, source, err := config.Resolve(c.String("config"))
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		f.Error("Configuration validation failed:")
		fmt.Fprintf(c.App.Writer, "  - %s\n", err)
		return err
	}

	if source != "" {
		f.Success("Configuration valid: %s", source)
	} else {
		f.Warning("No config file found. Default configuration is valid.")
	}
	return nil
}
