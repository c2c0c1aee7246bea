package main

import (
	"fmt"
	"os"

	"github.com/quailyquaily/morphgate/internal/clifmt"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, clifmt.Error(err.Error()))
		os.Exit(1)
	}
}
