package main

import "os"

func main() {
	err := Execute()
	if err == nil {
		return
	}
	// Diagnostics and argv mistakes are the user's problem; only
	// failures of the compiler itself report exit code 2.
	if isInternalError(err) {
		os.Exit(2)
	}
	os.Exit(1)
}
