package cmd

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

// ErrDifferent is returned by the diff command when the trees differ.
var ErrDifferent = errors.New("message structures differ")

func newDiffCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff A B",
		Short: "Compare the part trees of two messages",
		Long: `Compare the part trees of two messages as printed by the tree command.

Nothing is printed when the trees are the same. Otherwise the differing lines
are printed prefixed with - and + and the command fails.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trees := make([]string, 2)
			for i, name := range args {
				m, err := a.openMessage(name, cmd.InOrStdin())
				if err != nil {
					return err
				}

				buf := &bytes.Buffer{}
				err = writeTree(buf, m.Part)
				_ = m.Close()
				if err != nil {
					return err
				}

				trees[i] = buf.String()
			}

			return writeDiff(cmd.OutOrStdout(), trees[0], trees[1])
		},
	}
}

// writeDiff writes a line diff of two texts. It returns ErrDifferent if they
// are not the same.
func writeDiff(w io.Writer, a, b string) error {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	out := &strings.Builder{}
	same := true
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
			same = false
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
			same = false
		}

		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line != "" {
				out.WriteString(prefix + line)
			}
		}
	}

	if same {
		return nil
	}

	if _, err := io.WriteString(w, out.String()); err != nil {
		return err
	}

	return ErrDifferent
}
