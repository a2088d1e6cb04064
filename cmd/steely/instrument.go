// cmd/steely/instrument.go
package main

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/spf13/cobra"

	"go-steely/internal/tracer"
)

func newInstrumentCmd(a *app) *cobra.Command {
	var (
		file, fn, out, imp string
		color              bool
	)
	cmd := &cobra.Command{
		Use:   "instrument",
		Short: "Insert TrackAt checkpoints into a function",
		Long: `Rewrites one function so that every binding is reported to the active scan
session. The function needs a context.Context parameter. The result is printed,
or written to --out; the input file is never modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fset, f, err := tracer.ParseFile(file)
			if err != nil {
				return err
			}
			var opts []tracer.InstrumentOption
			if imp != "" {
				opts = append(opts, tracer.WithImport(tracer.Import{Path: imp, Name: path.Base(imp)}))
			}
			src, err := tracer.Instrument(fset, f, fn, opts...)
			if err != nil {
				return err
			}
			a.log.Debug("instrumented", "file", file, "func", fn)

			if out != "" {
				if err := os.WriteFile(out, []byte(src), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				a.log.Info("wrote instrumented source", "path", out)
				return nil
			}
			return printSource(cmd.OutOrStdout(), src, color && !a.cfg.NoColor)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Go source file (required)")
	cmd.Flags().StringVarP(&fn, "target", "t", "", "Function or Type.Method to instrument (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the result to this file instead of stdout")
	cmd.Flags().StringVar(&imp, "import", "", "Import path of the package providing TrackAt (default go-steely)")
	cmd.Flags().BoolVar(&color, "color", false, "Syntax-highlight the printed source")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func printSource(w io.Writer, src string, color bool) error {
	if !color {
		_, err := io.WriteString(w, src)
		return err
	}
	return quick.Highlight(w, src, "go", "terminal256", "monokai")
}
