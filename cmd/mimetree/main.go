package main

import (
	"github.com/spf13/cobra"

	"github.com/zostay/go-mailmime/cmd/mimetree/cmd"
)

func main() {
	err := cmd.Execute()
	cobra.CheckErr(err)
}
