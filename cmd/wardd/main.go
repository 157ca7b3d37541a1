// wardd is the ward language server daemon (spec.md §6's external
// collaborator CLI, SPEC_FULL.md §4.21): it loads compiler options from
// an optional ward.toml, constructs a compilectx.Context, and serves
// LSP requests over stdio via server.LspServer, matching the teacher's
// cmd/mag "--serve" mode but as its own small binary rather than a flag
// on the main CLI. When ward.toml sets [server] sqlite_dsn, its effect
// registry's audit log is also durably persisted via storage.AuditStore
// (SPEC_FULL.md §4.18) across the document-preview evaluations
// server.LspServer runs on every clean re-registration.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chazu/wardlang/compilectx"
	"github.com/chazu/wardlang/config"
	"github.com/chazu/wardlang/effect"
	"github.com/chazu/wardlang/server"
	"github.com/chazu/wardlang/storage"
)

func main() {
	configDir := flag.String("config-dir", ".", "directory to search upward for ward.toml")
	flag.Parse()

	doc, err := config.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wardd: loading ward.toml: %v\n", err)
		os.Exit(1)
	}
	if doc == nil {
		doc = config.Default()
	}

	registry := effect.New()
	effect.RegisterStandard(registry)

	if doc.Server.SqliteDSN != "" {
		store, err := storage.Open(doc.Server.SqliteDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wardd: opening audit store %s: %v\n", doc.Server.SqliteDSN, err)
			os.Exit(1)
		}
		defer store.Close()
		registry.SetSink(store)
	}

	ctx := compilectx.New(doc.Compiler.ToCompilectxOptions())
	lsp := server.NewLSP(ctx, registry)

	if err := lsp.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "wardd: %v\n", err)
		os.Exit(1)
	}
}
