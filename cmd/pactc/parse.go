package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pactlang/pactc/spec"
)

var parseFlags = struct {
	format *string
}{}

const (
	outputFormatText = "text"
	outputFormatTree = "tree"
)

func init() {
	cmd := &cobra.Command{
		Use:     "parse <input.pct>",
		Short:   "Parse a Pact source file and print its concrete syntax tree",
		Example: `  pactc parse user_service.pct -f tree`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runParse,
	}
	parseFlags.format = cmd.Flags().StringP("format", "f", "tree", "output format: one of text|tree")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) (retErr error) {
	if *parseFlags.format != outputFormatText && *parseFlags.format != outputFormatTree {
		return fmt.Errorf("invalid output format: %v", *parseFlags.format)
	}

	src, sourceName, err := openSource(args)
	if err != nil {
		return err
	}
	defer src.Close()
	defer func() {
		retErr = decorate(retErr, sourceName)
	}()

	forms, err := spec.Parse(src)
	if err != nil {
		return err
	}
	for _, form := range forms {
		switch *parseFlags.format {
		case outputFormatTree:
			fmt.Fprintln(os.Stdout, string(form.Format()))
		default:
			fmt.Fprintln(os.Stdout, form)
		}
	}
	return nil
}
