package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zostay/go-mailmime/message"
)

func newExtractCommand(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Save the attachments of a message",
		Long: `Save the attachments of a message into a directory.

Each attachment is written under its own file name, or a name made from its
position in the message when it has none. Existing files are never
overwritten. Embedded messages are saved whole with the .eml extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.openMessage(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			for i, p := range m.Attachments() {
				name, err := saveAttachment(dir, i, p)
				if err != nil {
					return fmt.Errorf("attachment %d: %w", i, err)
				}

				a.logger.Info("saved attachment", "file", name, "type", p.MediaType())
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to save attachments in")

	return cmd
}

// attachmentName picks a safe file name for the i-th attachment.
func attachmentName(i int, p *message.Part) string {
	name := filepath.Base(strings.ReplaceAll(p.Filename(), `\`, "/"))
	switch name {
	case "", ".", "/", "..":
		ext := ".bin"
		switch {
		case p.IsEmbedded() || p.Type() == "message":
			ext = ".eml"
		case p.Subtype() == "plain":
			ext = ".txt"
		case p.Subtype() == "html":
			ext = ".html"
		}
		name = fmt.Sprintf("attachment-%d%s", i+1, ext)
	}
	return name
}

// saveAttachment writes the content of the part into dir and returns the
// path written.
func saveAttachment(dir string, i int, p *message.Part) (string, error) {
	base := attachmentName(i, p)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for n := 0; ; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s-%d%s", stem, n, ext)
		}

		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		} else if err != nil {
			return "", err
		}

		_, err = io.Copy(f, p.Reader())
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return path, err
	}
}
