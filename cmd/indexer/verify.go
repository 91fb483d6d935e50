package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/buyingguide/internal/usecase/builder"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <index>",
		Short: "Check an index against its manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := builder.Verify(cmd.Context(), args[0], a.logger)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "build:      %s\n", rep.Manifest.BuildID)
			fmt.Fprintf(out, "valid:      %d/%d\n", rep.Valid, rep.Manifest.Products)
			fmt.Fprintf(out, "invalid:    %d\n", rep.Invalid)
			fmt.Fprintf(out, "duplicates: %d\n", rep.Duplicates)
			fmt.Fprintf(out, "sha256:     %s\n", rep.SHA256)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "OK")
			return nil
		},
	}
}
