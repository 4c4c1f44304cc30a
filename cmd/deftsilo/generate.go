package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rescrv/deftsilo/pkg/archive"
	"github.com/rescrv/deftsilo/pkg/config"
	"github.com/rescrv/deftsilo/pkg/errors"
	"github.com/rescrv/deftsilo/pkg/filesystem"
	"github.com/rescrv/deftsilo/pkg/logging"
	"github.com/rescrv/deftsilo/pkg/scanner"
	"github.com/rescrv/deftsilo/pkg/script"
	"github.com/rescrv/deftsilo/pkg/vcs"
)

var summaryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))

// runGenerate is the root command: scan, hash, render, package.
func runGenerate(cmd *cobra.Command) error {
	logger := logging.GetLogger("cmd.generate")
	start := time.Now()

	root, err := filepath.Abs(sourceFlag)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "cannot resolve source directory %s", sourceFlag)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	output := cfg.Output
	if outputFlag != "" {
		output = outputFlag
	}
	logger.Info().
		Str("root", root).
		Str("output", output).
		Msg("Starting generation")

	fsys := filesystem.NewOS()
	provider := vcs.NewGit(root)

	result, err := scanner.Scan(cmd.Context(), fsys, provider, root, scanner.Options{
		OutputName: filepath.Base(output),
		Exclude:    cfg.Exclude,
	})
	if err != nil {
		return err
	}

	text, err := script.Generate(result.Directories, result.Files)
	if err != nil {
		return err
	}

	outputPath := output
	if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(root, output)
	}
	if err := archive.Write(fsys, root, outputPath, result.Directories, result.Files, text); err != nil {
		return err
	}

	logging.LogDuration(start, "generate")
	fmt.Fprintln(cmd.OutOrStdout(), summaryStyle.Render(fmt.Sprintf(
		"packaged %d files and %d directories into %s",
		len(result.Files), len(result.Directories), outputPath)))
	return nil
}
