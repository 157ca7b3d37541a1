// wardc is ward's external-collaborator CLI driver (spec.md §6): a thin
// binary wiring compilectx.Context/codegen/vm over the four core
// operations (tokenize, parse, register_module, inspect) plus compile/run
// conveniences, matching the teacher's cmd/mag hand-rolled flag dispatch
// rather than a cobra-style framework.
package main

import (
	"flag"
	"fmt"
	"os"
)

const usage = `wardc - the ward compiler/VM CLI

Usage:
  wardc <command> [arguments]

Commands:
  tokens   <file>              print the token stream
  check    <file>              register a module and print diagnostics
  inspect  [flags] <file>      print a versions/security/diagnostics report
  compile  -out <path> <file>  compile every versioned function, write a
                                CBOR module to -out
  run      -fn <name[:version]> [-args a,b,c] [-role r1,r2] <file>
                                compile and execute one function

Exit codes: 0 on success, 1 on any emitted error diagnostic or thrown
parse/compile error, matching spec.md §6.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "tokens":
		err = cmdTokens(os.Args[2:])
	case "check":
		err = cmdCheck(os.Args[2:])
	case "inspect":
		err = cmdInspect(os.Args[2:])
	case "compile":
		err = cmdCompile(os.Args[2:])
	case "run":
		err = cmdRun(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stderr, usage)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "wardc: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "wardc: %v\n", err)
		os.Exit(1)
	}
}

func readSource(args []string, fs *flag.FlagSet) (string, string, error) {
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if fs.NArg() < 1 {
		return "", "", fmt.Errorf("missing source file")
	}
	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", path, err)
	}
	return path, string(data), nil
}
