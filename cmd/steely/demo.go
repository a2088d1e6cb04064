// cmd/steely/demo.go
package main

import (
	"github.com/spf13/cobra"

	"go-steely/internal/demo"
)

func newDemoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the sample functions through every decorator",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, stop, err := a.startLogging(cmd)
			if err != nil {
				return err
			}
			defer stop()
			return demo.Run(cmd.Context(), demo.Options{
				Out:     cmd.OutOrStdout(),
				Palette: a.palette(),
				Logger:  opts,
				AppName: a.cfg.AppName,
			})
		},
	}
}
