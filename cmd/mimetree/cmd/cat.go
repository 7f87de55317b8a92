package cmd

import (
	"io"

	"github.com/spf13/cobra"
)

func newCatCommand(a *app) *cobra.Command {
	var raw, decoded bool

	cmd := &cobra.Command{
		Use:   "cat FILE [PATH]",
		Short: "Print the content of one part of a message",
		Long: `Print the content of one part of a message.

PATH is the dotted path shown by the tree command, e.g., 0.1 for the second
part inside the first part. Without a PATH the body of the message itself is
printed. Text parts are printed in the target charset unless --raw or
--decoded is given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dotted string
			if len(args) > 1 {
				dotted = args[1]
			}

			path, err := parsePath(dotted)
			if err != nil {
				return err
			}

			m, err := a.openMessage(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			p, err := m.PartByPath(path...)
			if err != nil {
				return err
			}

			var r io.Reader
			switch {
			case raw:
				r = p.RawReader()
			case decoded || !p.IsText():
				r = p.Reader()
			default:
				var fallback bool
				r, fallback = p.TextReader()
				if fallback {
					a.logger.Warn("charset not recognized, printing bytes as-is",
						"charset", p.Charset())
				}
			}

			_, err = io.Copy(cmd.OutOrStdout(), r)
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the body exactly as it appears in the message")
	cmd.Flags().BoolVar(&decoded, "decoded", false, "Print the body with only the transfer encoding decoded")
	cmd.MarkFlagsMutuallyExclusive("raw", "decoded")

	return cmd
}
