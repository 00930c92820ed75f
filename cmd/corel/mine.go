package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/corel/internal/export"
	"github.com/panbanda/corel/internal/output"
	"github.com/panbanda/corel/internal/service/mining"
	"github.com/panbanda/corel/pkg/analyzer/extract"
	"github.com/panbanda/corel/pkg/analyzer/merge"
	"github.com/panbanda/corel/pkg/models"
)

func collectFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "branch",
			Aliases: []string{"b"},
			Usage:   "Branch to mine (default: master, else the first branch)",
		},
		&cli.StringFlag{
			Name:  "git-temp-dir",
			Usage: "Directory that receives remote clones",
		},
		&cli.BoolFlag{
			Name:  "preserve-git-temp-dir",
			Usage: "Keep the clone of a remote repository",
		},
		&cli.StringFlag{
			Name:  "from",
			Usage: "Ignore commits before this time (" + models.DateLayout + ", UTC)",
		},
		&cli.StringFlag{
			Name:  "to",
			Usage: "Ignore commits after this time (" + models.DateLayout + ", UTC)",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "Examine at most this many commits, newest first (0 = all)",
		},
		&cli.StringSliceFlag{
			Name:    "allowed-extensions",
			Aliases: []string{"e"},
			Usage:   "Keep only files with these extensions",
		},
		&cli.StringSliceFlag{
			Name:    "ignore-strings",
			Aliases: []string{"i"},
			Usage:   "Drop files whose path contains any of these strings",
		},
	}
}

func mergeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "sliding-window-size",
			Aliases: []string{"w"},
			Usage:   "Merge window in seconds",
		},
		&cli.StringFlag{
			Name:    "merge-method",
			Aliases: []string{"m"},
			Usage:   "Merge method: window, duplicated-window, distance, none",
		},
		&cli.StringFlag{
			Name:  "distance-mode",
			Usage: "Distance merge bound: faithful, corrected",
		},
		&cli.BoolFlag{
			Name:  "ignore-single-file-group",
			Usage: "Drop groups that touch a single file",
		},
		&cli.IntFlag{
			Name:  "max-distinct-packages",
			Usage: "Drop groups spanning more directories than this (0 = no limit)",
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "Number of pairs and files shown in the report",
		},
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "export-file-name",
			Usage: "Export path (default derived from the target)",
		},
		&cli.StringFlag{
			Name:    "export-type",
			Aliases: []string{"t"},
			Usage:   "Export type: csv, sqlite",
		},
		&cli.StringFlag{
			Name:  "duplicated-file-handling",
			Usage: "When the export path exists: error, override, numbering",
		},
	}
}

func mineCmd() *cli.Command {
	return &cli.Command{
		Name:      "mine",
		Usage:     "Mine co-change relations and export them",
		ArgsUsage: "<target>",
		Flags:     append(append(collectFlags(), mergeFlags()...), exportFlags()...),
		Action: func(c *cli.Context) error {
			return runMine(c, true)
		},
	}
}

func pairsCmd() *cli.Command {
	return &cli.Command{
		Name:      "pairs",
		Usage:     "Mine co-change relations and show the strongest pairs",
		ArgsUsage: "<target>",
		Flags:     append(collectFlags(), mergeFlags()...),
		Action: func(c *cli.Context) error {
			return runMine(c, false)
		},
	}
}

func targetArg(c *cli.Context) (string, error) {
	if c.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one target, got %d", c.Args().Len())
	}
	return c.Args().First(), nil
}

func runMine(c *cli.Context, withExport bool) error {
	target, err := targetArg(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	opts, err := miningOptions(c, e, target, withExport)
	if err != nil {
		return err
	}

	revCache, err := e.cache(c)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	svc := mining.New(
		mining.WithLogger(e.logger),
		mining.WithCache(revCache),
		mining.WithProgress(e.interactive(c)),
	)

	res, err := svc.Run(c.Context, opts)
	if err != nil {
		return err
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(buildReport(res)); err != nil {
		return err
	}
	if res.ExportPath != "" && formatter.Format() == output.FormatText {
		formatter.Success("Relations exported to %s", res.ExportPath)
	}
	return nil
}

// miningOptions merges config values with flags; flags win when set.
func miningOptions(c *cli.Context, e *env, target string, withExport bool) (mining.Options, error) {
	cfg := e.cfg

	opts := mining.Options{
		Target:       target,
		TempDir:      cfg.Collect.TempDir,
		PreserveTemp: cfg.Collect.PreserveTemp,
		Top:          cfg.Output.Top,
	}
	opts.Collect.Branch = cfg.Collect.Branch
	opts.Collect.Limit = cfg.Collect.Limit
	opts.Collect.Extensions = cfg.Collect.Extensions
	opts.Collect.IgnoreStrings = cfg.Collect.IgnoreStrings

	method := cfg.Merge.Method
	window := cfg.Merge.WindowSeconds
	distanceMode := cfg.Merge.DistanceMode
	opts.IgnoreSingleFileGroups = cfg.Merge.IgnoreSingleFileGroups
	opts.MaxDistinctPackages = cfg.Merge.MaxDistinctPackages

	if c.IsSet("branch") {
		opts.Collect.Branch = c.String("branch")
	}
	if c.IsSet("git-temp-dir") {
		opts.TempDir = c.String("git-temp-dir")
	}
	if c.IsSet("preserve-git-temp-dir") {
		opts.PreserveTemp = c.Bool("preserve-git-temp-dir")
	}
	if c.IsSet("limit") {
		opts.Collect.Limit = c.Int("limit")
		if opts.Collect.Limit < 0 {
			return opts, fmt.Errorf("--limit must not be negative: %w", models.ErrInvalidArgument)
		}
	}
	if c.IsSet("allowed-extensions") {
		opts.Collect.Extensions = c.StringSlice("allowed-extensions")
	}
	if c.IsSet("ignore-strings") {
		opts.Collect.IgnoreStrings = c.StringSlice("ignore-strings")
	}
	for name, dst := range map[string]*int64{"from": &opts.Collect.From, "to": &opts.Collect.To} {
		if !c.IsSet(name) {
			continue
		}
		ms, err := models.ParseDate(c.String(name))
		if err != nil {
			return opts, fmt.Errorf("--%s: expected %q: %w", name, models.DateLayout, err)
		}
		*dst = ms
	}

	if c.IsSet("merge-method") {
		method = c.String("merge-method")
	}
	if c.IsSet("sliding-window-size") {
		window = c.Int("sliding-window-size")
	}
	if c.IsSet("distance-mode") {
		distanceMode = c.String("distance-mode")
	}
	if c.IsSet("ignore-single-file-group") {
		opts.IgnoreSingleFileGroups = c.Bool("ignore-single-file-group")
	}
	if c.IsSet("max-distinct-packages") {
		opts.MaxDistinctPackages = c.Int("max-distinct-packages")
	}
	if c.IsSet("top") {
		opts.Top = c.Int("top")
	}

	var err error
	if opts.Method, err = merge.ParseMethod(method); err != nil {
		return opts, err
	}
	if opts.Merge.DistanceMode, err = merge.ParseDistanceMode(distanceMode); err != nil {
		return opts, err
	}
	opts.Merge.Window = time.Duration(window) * time.Second

	if !withExport {
		return opts, nil
	}

	eo := &mining.ExportOptions{Path: cfg.Export.Path}
	exportType, onExists := cfg.Export.Type, cfg.Export.OnExists
	if c.IsSet("export-type") {
		exportType = c.String("export-type")
	}
	if c.IsSet("duplicated-file-handling") {
		onExists = c.String("duplicated-file-handling")
	}
	if c.IsSet("export-file-name") {
		eo.Path = c.String("export-file-name")
	}
	if eo.Type, err = export.ParseType(exportType); err != nil {
		return opts, err
	}
	if eo.OnExists, err = export.ParseOnExists(onExists); err != nil {
		return opts, err
	}
	opts.Export = eo
	return opts, nil
}

// reportData is the serialized form of a mining run.
type reportData struct {
	Target     string                   `json:"target" toon:"target"`
	Head       string                   `json:"head" toon:"head"`
	Revisions  int                      `json:"revisions" toon:"revisions"`
	FromCache  bool                     `json:"from_cache" toon:"from_cache"`
	ExportPath string                   `json:"export_path,omitempty" toon:"export_path"`
	ElapsedMS  int64                    `json:"elapsed_ms" toon:"elapsed_ms"`
	Summary    *extract.RelationSummary `json:"summary" toon:"summary"`
}

func buildReport(res *mining.Result) *output.Report {
	s := res.Summary

	period := "-"
	if s.FirstTime > 0 {
		period = models.FormatMillis(s.FirstTime) + " .. " + models.FormatMillis(s.LastTime)
	}
	items := []output.KeyValue{
		{Key: "Target", Value: res.Target},
		{Key: "Head", Value: res.Head},
		{Key: "Revisions", Value: strconv.Itoa(res.Revisions)},
		{Key: "Groups", Value: strconv.Itoa(s.Groups)},
		{Key: "Files", Value: strconv.Itoa(s.Files)},
		{Key: "Pairs", Value: strconv.Itoa(s.Pairs)},
		{Key: "Period", Value: period},
		{Key: "Pair count", Value: fmt.Sprintf("mean %.2f, stddev %.2f, median %.1f, p90 %.1f, max %d",
			s.MeanPairCount, s.StdDevPairCount, s.MedianPairCount, s.P90PairCount, s.MaxPairCount)},
		{Key: "Cached", Value: strconv.FormatBool(res.FromCache)},
		{Key: "Elapsed", Value: res.Elapsed.Round(time.Millisecond).String()},
	}
	if res.ExportPath != "" {
		items = append(items, output.KeyValue{Key: "Export", Value: res.ExportPath})
	}

	var pairRows [][]string
	for _, p := range s.TopPairs {
		count := strconv.Itoa(p.Count)
		pairRows = append(pairRows, []string{
			p.Higher.String(),
			p.Lower.String(),
			output.CountColor(p.Count, s.MaxPairCount, count),
		})
	}

	var growthRows [][]string
	for _, g := range s.TopGrowth {
		growthRows = append(growthRows, []string{
			g.File,
			strconv.Itoa(g.Points),
			strconv.Itoa(g.Total),
			fmt.Sprintf("%.2f", g.Slope),
			fmt.Sprintf("%.2f", g.RSquared),
		})
	}

	return &output.Report{
		Title: "Co-change Relations",
		Sections: []output.Renderable{
			&output.Summary{Title: "Summary", Items: items},
			output.NewTable("Top Pairs", []string{"File", "Co-changed With", "Count"}, pairRows, nil, nil),
			output.NewTable("Fastest Growing Files", []string{"File", "Points", "Total", "Slope", "R²"}, growthRows, nil, nil),
		},
		Data: reportData{
			Target:     res.Target,
			Head:       res.Head,
			Revisions:  res.Revisions,
			FromCache:  res.FromCache,
			ExportPath: res.ExportPath,
			ElapsedMS:  res.Elapsed.Milliseconds(),
			Summary:    s,
		},
	}
}
