package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/corel/internal/output"
	"github.com/panbanda/corel/internal/service/mining"
)

func branchesCmd() *cli.Command {
	return &cli.Command{
		Name:      "branches",
		Usage:     "List the branches of a repository",
		ArgsUsage: "<target>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "git-temp-dir",
				Usage: "Directory that receives remote clones",
			},
		},
		Action: runBranchesCmd,
	}
}

func runBranchesCmd(c *cli.Context) error {
	target, err := targetArg(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	tempDir := e.cfg.Collect.TempDir
	if c.IsSet("git-temp-dir") {
		tempDir = c.String("git-temp-dir")
	}

	svc := mining.New(mining.WithLogger(e.logger), mining.WithProgress(e.interactive(c)))
	branches, err := svc.Branches(c.Context, target, tempDir)
	if err != nil {
		return fmt.Errorf("failed to list branches: %w", err)
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	rows := make([][]string, len(branches))
	for i, b := range branches {
		rows[i] = []string{b}
	}
	return formatter.Output(output.NewTable(
		"Branches",
		[]string{"Branch"},
		rows,
		[]string{fmt.Sprintf("Total: %d", len(branches))},
		map[string][]string{"branches": branches},
	))
}
