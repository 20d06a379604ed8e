package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pactlang/pactc/generator"
)

var generateFlags = struct {
	output *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "generate <spec.yaml>",
		Short:   "Generate Pact source from a YAML spec document",
		Example: `  pactc generate user_service.yaml -o user_service.pct`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runGenerate,
	}
	generateFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	rootCmd.AddCommand(cmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	src, _, err := openSource(args)
	if err != nil {
		return err
	}
	defer src.Close()

	doc, err := generator.Load(src)
	if err != nil {
		return err
	}
	out, err := generator.Generate(doc)
	if err != nil {
		return err
	}

	if *generateFlags.output == "" {
		fmt.Fprint(os.Stdout, out)
		return nil
	}
	if err := os.WriteFile(*generateFlags.output, []byte(out), 0644); err != nil {
		return &internalError{err: fmt.Errorf("cannot write the output file: %w", err)}
	}
	return nil
}
