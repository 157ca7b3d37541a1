package main

import (
	"flag"
	"fmt"

	"github.com/chazu/wardlang/token"
)

func cmdTokens(args []string) error {
	fs := flag.NewFlagSet("tokens", flag.ContinueOnError)
	_, source, err := readSource(args, fs)
	if err != nil {
		return err
	}

	for _, t := range token.Tokenize(source) {
		fmt.Printf("%-14s %-20q %s\n", t.Kind, t.Value, t.Span)
	}
	return nil
}
