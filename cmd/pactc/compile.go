package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pactlang/pactc/analyzer"
	"github.com/pactlang/pactc/emitter"
	"github.com/pactlang/pactc/spec"
)

var compileFlags = struct {
	outDir *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "compile <input.pct>",
		Short:   "Compile a Pact module into target-language source",
		Example: `  pactc compile user_service.pct -o gen/`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
	compileFlags.outDir = cmd.Flags().StringP("output", "o", ".", "output directory")
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) (retErr error) {
	src, sourceName, err := openSource(args)
	if err != nil {
		return err
	}
	defer src.Close()
	defer func() {
		retErr = decorate(retErr, sourceName)
	}()

	mod, err := spec.ParseModule(src)
	if err != nil {
		return err
	}
	an, err := analyzer.Analyze(mod)
	if err != nil {
		return err
	}
	printWarnings(an.Warnings, sourceName)

	out, err := emitter.Emit(an)
	if err != nil {
		return &internalError{err: err}
	}

	if err := os.MkdirAll(*compileFlags.outDir, 0755); err != nil {
		return &internalError{err: fmt.Errorf("cannot create the output directory: %w", err)}
	}
	outPath := filepath.Join(*compileFlags.outDir, emitter.OutputFileName(mod))
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return &internalError{err: fmt.Errorf("cannot write the output file: %w", err)}
	}
	fmt.Fprintf(os.Stdout, "%v\n", outPath)
	return nil
}
