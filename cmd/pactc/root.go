package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	verr "github.com/pactlang/pactc/error"
)

var rootCmd = &cobra.Command{
	Use:   "pactc",
	Short: "Compile Pact modules into target-language source",
	Long: `pactc is the Pact compiler:
- Compiles .pct modules into target-language source code.
- Checks modules through semantic analysis without emitting.
- Prints concrete syntax trees for debugging.
- Generates Pact source from YAML spec documents.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}

// internalError marks failures of the compiler itself, as opposed to
// diagnostics or bad input.
type internalError struct {
	err error
}

func (e *internalError) Error() string {
	return e.err.Error()
}

func (e *internalError) Unwrap() error {
	return e.err
}

func isInternalError(err error) bool {
	var ie *internalError
	return errors.As(err, &ie)
}

// openSource opens the path argument, falling back to stdin when the
// path is omitted.
func openSource(args []string) (io.ReadCloser, string, error) {
	if len(args) == 0 {
		return io.NopCloser(os.Stdin), "stdin", nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("cannot open the source file %s: %w", args[0], err)
	}
	return f, args[0], nil
}

// decorate stamps the source name onto every diagnostic in an error
// bundle before it reaches the user.
func decorate(err error, sourceName string) error {
	if specErrs, ok := err.(verr.SpecErrors); ok {
		for _, e := range specErrs {
			e.FilePath = sourceName
			e.SourceName = sourceName
		}
	}
	return err
}
