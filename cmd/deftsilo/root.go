package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/rescrv/deftsilo/internal/version"
	"github.com/rescrv/deftsilo/pkg/config"
	"github.com/rescrv/deftsilo/pkg/errors"
	"github.com/rescrv/deftsilo/pkg/logging"
	"github.com/rescrv/deftsilo/pkg/script"
)

var (
	verbosity  int
	outputFlag string
	sourceFlag string

	rootCmd = &cobra.Command{
		Use:   "deftsilo",
		Short: "Package dotfiles into a portable, conflict-safe installer",
		Long: `deftsilo scans a git-tracked dotfiles directory and generates a
self-contained POSIX shell installer (optionally bundled into a
tarball). The installer copies or symlinks files into a target
directory and refuses to overwrite any file whose content does not
match a hash the file has held somewhere in its git history - so edits
made outside version control are never silently destroyed.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd)
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func init() {
	// Verbosity flag for logging
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")

	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "",
		"Output filename; suffix selects compression, literally \"install.sh\" writes the raw script (default from config, "+config.DefaultOutput+")")
	rootCmd.Flags().StringVarP(&sourceFlag, "path", "C", ".", "Source dotfiles directory")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(manCmd)
	rootCmd.AddCommand(selftestCmd)
	rootCmd.AddCommand(configCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print version information for deftsilo`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("deftsilo version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `To load completions:

Bash:
  $ source <(deftsilo completion bash)

Zsh:
  $ deftsilo completion zsh > "${fpath[1]}/_deftsilo"

Fish:
  $ deftsilo completion fish | source

PowerShell:
  PS> deftsilo completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			if err := cmd.Root().GenBashCompletion(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate bash completion")
			}
		case "zsh":
			if err := cmd.Root().GenZshCompletion(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate zsh completion")
			}
		case "fish":
			if err := cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true); err != nil {
				log.Error().Err(err).Msg("Failed to generate fish completion")
			}
		case "powershell":
			if err := cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate powershell completion")
			}
		}
	},
}

var manCmd = &cobra.Command{
	Use:   "man",
	Short: "Generate man page",
	Long:  `Generate man page for deftsilo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		header := &doc.GenManHeader{
			Title:   "DEFTSILO",
			Section: "1",
		}
		return doc.GenManTree(rootCmd, header, "/tmp")
	},
}

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Print the installer runtime's shell test suite",
	Long: `Print the installer runtime concatenated with a POSIX test suite
that exercises every copy, link, and mkdir branch in a temporary
sandbox. The runtime consumes one positional argument before the suite
runs, so run it with a placeholder:

    deftsilo selftest | sh -s -- placeholder

on the target machine to validate the platform before trusting a
generated installer there.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), script.SelfTest())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage deftsilo configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented " + config.ConfigFileName + " template",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(sourceFlag, config.ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return errors.Newf(errors.ErrInvalidInput, "%s already exists", path)
		}
		content, err := config.GenerateConfigContent()
		if err != nil {
			return errors.Wrap(err, errors.ErrInternal, "cannot render config template")
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return errors.Wrapf(err, errors.ErrConfigLoad, "cannot write %s", path)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVarP(&sourceFlag, "path", "C", ".", "Source dotfiles directory")
	configCmd.AddCommand(configInitCmd)
}
