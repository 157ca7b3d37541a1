package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chazu/wardlang/compilectx"
	"github.com/chazu/wardlang/diag"
)

func cmdCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	_, source, err := readSource(args, fs)
	if err != nil {
		return err
	}

	p, err := buildPipeline(source, compilectx.Options{})
	if err != nil {
		return err
	}

	f := diag.NewFormatter(source)
	fmt.Print(f.FormatAll(p.CC.Diags.Diagnostics()))

	if p.CC.Diags.HasErrors() {
		os.Exit(1)
	}
	return nil
}
