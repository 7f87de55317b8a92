package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	mboxlib "github.com/emersion/go-mbox"
	"github.com/spf13/cobra"

	"github.com/zostay/go-mailmime/message"
)

func newMboxCommand(a *app) *cobra.Command {
	var showTree bool

	cmd := &cobra.Command{
		Use:   "mbox FILE",
		Short: "Summarize each message of an mbox file",
		Long: `Parse every message of an mbox file and print one line for each:
its position, subject, number of parts, number of attachments and number of
defects found. With --tree the parts of each message are listed as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open mbox: %w", err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			return a.summarizeMbox(cmd.OutOrStdout(), in, showTree)
		},
	}

	cmd.Flags().BoolVar(&showTree, "tree", false, "List the parts of each message")

	return cmd
}

// summarizeMbox writes a summary of each message read from the mbox in r.
func (a *app) summarizeMbox(w io.Writer, r io.Reader, showTree bool) error {
	reader := mboxlib.NewReader(r)
	opts := a.cfg.ParseOptions(a.logger)

	for idx := 0; ; idx++ {
		msgReader, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("message %d: %w", idx, err)
		}

		m, err := message.Parse(msgReader, opts...)
		if err != nil {
			return fmt.Errorf("message %d: %w", idx, err)
		}

		err = writeSummary(w, idx, m, showTree)
		_ = m.Close()
		if err != nil {
			return err
		}
	}
}

func writeSummary(w io.Writer, idx int, m *message.Message, showTree bool) error {
	subject, _ := m.GetSubject()

	parts := m.AllParts()
	defects := 0
	for _, p := range parts {
		defects += len(p.Defects())
	}

	_, err := fmt.Fprintf(w, "%d\t%q\tparts=%d\tattachments=%d\tdefects=%d\n",
		idx, subject, len(parts), len(m.Attachments()), defects)
	if err != nil || !showTree {
		return err
	}

	return writeTree(w, m.Part)
}
