package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/corel/internal/cache"
	"github.com/panbanda/corel/internal/logging"
	"github.com/panbanda/corel/internal/output"
	"github.com/panbanda/corel/pkg/config"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "corel",
		Usage:    "Mine file co-change relations from git history",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: `corel groups the commits of a repository into logical change sets and
derives, for every file, how often it changed together with files in the
same directory and elsewhere, plus a table of co-changing file pairs.

Targets are local paths, git URLs, or GitHub owner/repo[@ref] shorthand.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"COREL_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the revision cache",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Enable pprof profiling and write to specified prefix (creates <prefix>.cpu.pprof and <prefix>.mem.pprof)",
			},
		},
		Before: startProfile,
		After:  stopProfile,
		Commands: []*cli.Command{
			mineCmd(),
			pairsCmd(),
			branchesCmd(),
			configCmd(),
			cacheCmd(),
		},
	}
}

func startProfile(c *cli.Context) error {
	prefix := c.String("pprof")
	if prefix == "" {
		return nil
	}
	cpuFile, err := os.Create(prefix + ".cpu.pprof")
	if err != nil {
		return fmt.Errorf("failed to create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		cpuFile.Close()
		return fmt.Errorf("failed to start CPU profile: %w", err)
	}
	c.App.Metadata["pprofCPU"] = cpuFile
	return nil
}

func stopProfile(c *cli.Context) error {
	prefix := c.String("pprof")
	if prefix == "" {
		return nil
	}

	pprof.StopCPUProfile()
	if cpuFile, ok := c.App.Metadata["pprofCPU"].(*os.File); ok {
		cpuFile.Close()
		color.Green("CPU profile written to %s.cpu.pprof", prefix)
	}

	memFile, err := os.Create(prefix + ".mem.pprof")
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer memFile.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}
	color.Green("Memory profile written to %s.mem.pprof", prefix)
	return nil
}

// env is the per-command state derived from global flags and config.
type env struct {
	cfg    *config.Config
	source string
	logger *logrus.Logger
}

func loadEnv(c *cli.Context) (*env, error) {
	cfg, source, err := config.Resolve(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if f := c.String("format"); f != "" {
		cfg.Output.Format = f
	}
	return &env{
		cfg:    cfg,
		source: source,
		logger: logging.New(c.Bool("verbose"), c.App.ErrWriter),
	}, nil
}

func (e *env) formatter(c *cli.Context) (*output.Formatter, error) {
	format := output.ParseFormat(e.cfg.Output.Format)
	if path := c.String("output"); path != "" {
		return output.NewFormatter(format, path, false)
	}
	return output.NewWriterFormatter(format, c.App.Writer, e.cfg.Output.Color && !color.NoColor), nil
}

// interactive reports whether spinners belong on stderr.
func (e *env) interactive(c *cli.Context) bool {
	return c.String("output") == "" && output.ParseFormat(e.cfg.Output.Format) == output.FormatText && !color.NoColor
}

func (e *env) cache(c *cli.Context) (*cache.Cache, error) {
	enabled := e.cfg.Cache.Enabled && !c.Bool("no-cache")
	return cache.New(e.cfg.Cache.Dir, e.cfg.Cache.TTL, enabled)
}
