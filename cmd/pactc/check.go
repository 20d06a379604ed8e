package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pactlang/pactc/analyzer"
	verr "github.com/pactlang/pactc/error"
	"github.com/pactlang/pactc/spec"
)

func init() {
	cmd := &cobra.Command{
		Use:     "check <input.pct>",
		Short:   "Run a Pact module through semantic analysis and report diagnostics",
		Example: `  pactc check user_service.pct`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCheck,
	}
	rootCmd.AddCommand(cmd)
}

func runCheck(cmd *cobra.Command, args []string) (retErr error) {
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

	fmt.Fprintf(os.Stdout, "ok: module %v: %v types, %v effect sets, %v fns\n",
		mod.Name, len(an.Types), len(an.EffectSets), len(an.Fns))
	return nil
}

func printWarnings(warnings verr.SpecErrors, sourceName string) {
	for _, w := range warnings {
		w.FilePath = sourceName
		w.SourceName = sourceName
		fmt.Fprintf(os.Stderr, "%v\n", w)
	}
}
