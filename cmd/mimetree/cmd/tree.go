package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zostay/go-mailmime/message"
	"github.com/zostay/go-mailmime/message/walker"
)

func newTreeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree FILE",
		Short: "Show the parts of a message",
		Long: `Show the parts of a message, one per line, indented by depth.

Each line starts with the path of the part, which may be given to the cat
command. Defects found while parsing are listed below the part they belong
to.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.openMessage(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			return writeTree(cmd.OutOrStdout(), m.Part)
		},
	}
}

// formatPath renders a list of part indexes as a dotted path. The message
// itself is ".".
func formatPath(path []int) string {
	if len(path) == 0 {
		return "."
	}

	s := make([]string, len(path))
	for i, ix := range path {
		s[i] = strconv.Itoa(ix)
	}
	return strings.Join(s, ".")
}

// parsePath reads a dotted path as written by formatPath.
func parsePath(s string) ([]int, error) {
	s = strings.Trim(s, ".")
	if s == "" {
		return nil, nil
	}

	fs := strings.Split(s, ".")
	path := make([]int, len(fs))
	for i, f := range fs {
		ix, err := strconv.Atoi(f)
		if err != nil || ix < 0 {
			return nil, fmt.Errorf("bad part path %q", s)
		}
		path[i] = ix
	}
	return path, nil
}

// describe summarizes a part on a single line.
func describe(p *message.Part) string {
	var sb strings.Builder
	sb.WriteString(p.MediaType())

	if p.IsText() {
		fmt.Fprintf(&sb, " charset=%s", p.TextCharset())
	}
	if p.TransferEncoding() != "7bit" {
		fmt.Fprintf(&sb, " encoding=%s", p.TransferEncoding())
	}
	if p.Disposition() != "" {
		fmt.Fprintf(&sb, " disposition=%s", p.Disposition())
	}
	if fn := p.Filename(); fn != "" {
		fmt.Fprintf(&sb, " filename=%q", fn)
	}
	if !p.IsMultipart() {
		fmt.Fprintf(&sb, " size=%d", p.Size())
	}

	return sb.String()
}

// writeTree writes one line for each part below and including root.
func writeTree(w io.Writer, root *message.Part) error {
	path := make([]int, 0, 10)

	var tw walker.Parts = func(depth, i int, p *message.Part) error {
		if depth > 0 {
			path = append(path[:depth-1], i)
		}

		indent := strings.Repeat("  ", depth)
		if _, err := fmt.Fprintf(w, "%s%s %s\n", indent, formatPath(path), describe(p)); err != nil {
			return err
		}

		for _, d := range p.Defects() {
			if _, err := fmt.Fprintf(w, "%s  ! %s\n", indent, d); err != nil {
				return err
			}
		}

		return nil
	}

	return tw.Walk(root)
}
