// Package cmd implements the mimetree command, a tool for looking inside MIME
// messages.
package cmd

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zostay/go-mailmime/cmd/mimetree/config"
	"github.com/zostay/go-mailmime/message"
)

// app holds the state shared by the subcommands of one invocation.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewRootCommand returns the mimetree command with all of its subcommands.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "mimetree",
		Short:         "Inspect the structure and content of MIME messages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(cmd)
			if err != nil {
				return err
			}

			a.cfg = cfg
			a.logger = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
	}

	config.RegisterFlags(rootCmd)

	rootCmd.AddCommand(
		newTreeCommand(a),
		newCatCommand(a),
		newExtractCommand(a),
		newMboxCommand(a),
		newDiffCommand(a),
	)

	return rootCmd
}

// Execute runs the mimetree command.
func Execute() error {
	return NewRootCommand().Execute()
}

// openMessage parses the named file, or standard input when the name is "-".
func (a *app) openMessage(name string, stdin io.Reader) (*message.Message, error) {
	opts := a.cfg.ParseOptions(a.logger)
	if name == "-" {
		return message.Parse(stdin, opts...)
	}

	a.logger.Debug("parsing message", "file", name)
	return message.ParseFile(name, opts...)
}
