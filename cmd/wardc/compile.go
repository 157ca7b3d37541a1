package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chazu/wardlang/compilectx"
	"github.com/chazu/wardlang/diag"
	"github.com/chazu/wardlang/wire"
)

func cmdCompile(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	out := fs.String("out", "", "output path for the CBOR-encoded module (required)")
	_, source, err := readSource(args, fs)
	if err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("-out is required")
	}

	p, err := buildPipeline(source, compilectx.Options{})
	if err != nil {
		return err
	}
	if p.CC.Diags.HasErrors() {
		f := diag.NewFormatter(source)
		fmt.Fprint(os.Stderr, f.FormatAll(p.CC.Diags.Diagnostics()))
		return fmt.Errorf("compilation produced errors, refusing to write %s", *out)
	}

	data, err := wire.Marshal(p.Bytecode)
	if err != nil {
		return fmt.Errorf("encoding module: %w", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	fmt.Printf("wrote %d function(s) to %s\n", len(p.Bytecode.Functions), *out)
	return nil
}
