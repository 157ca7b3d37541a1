package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeWardToml(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "ward.toml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDecodesCompilerAndServerSections(t *testing.T) {
	dir := t.TempDir()
	writeWardToml(t, dir, `
[compiler]
strict_versioning = true
warn_on_deprecated = true
allow_unstable_versions = false

[server]
listen_address = "127.0.0.1:7777"
sqlite_dsn = "file:audit.db"
`)

	doc, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !doc.Compiler.StrictVersioning || !doc.Compiler.WarnOnDeprecated {
		t.Fatalf("unexpected compiler section: %+v", doc.Compiler)
	}
	if doc.Server.ListenAddress != "127.0.0.1:7777" || doc.Server.SqliteDSN != "file:audit.db" {
		t.Fatalf("unexpected server section: %+v", doc.Server)
	}
}

func TestToCompilectxOptionsMirrorsFields(t *testing.T) {
	c := Compiler{StrictVersioning: true, AllowUnstableVersions: true}
	opts := c.ToCompilectxOptions()
	if !opts.StrictVersioning || !opts.AllowUnstableVersions {
		t.Fatalf("expected fields to carry over, got %+v", opts)
	}
}

func TestFindAndLoadWalksUpToAncestor(t *testing.T) {
	root := t.TempDir()
	writeWardToml(t, root, "[compiler]\nstrict_versioning = true\n")
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	doc, err := FindAndLoad(nested)
	if err != nil {
		t.Fatal(err)
	}
	if doc == nil || !doc.Compiler.StrictVersioning {
		t.Fatalf("expected to find ward.toml in an ancestor, got %+v", doc)
	}
}

func TestFindAndLoadReturnsNilWhenNotFound(t *testing.T) {
	dir := t.TempDir()
	doc, err := FindAndLoad(dir)
	if err != nil {
		t.Fatal(err)
	}
	if doc != nil {
		t.Fatalf("expected nil document, got %+v", doc)
	}
}

func TestValidateAgainstSchemaAcceptsValidDocument(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.cue")
	if err := os.WriteFile(schemaPath, []byte(DefaultSchema), 0o644); err != nil {
		t.Fatal(err)
	}

	doc := Default()
	doc.Compiler.StrictVersioning = true
	if err := ValidateAgainstSchema(doc, schemaPath); err != nil {
		t.Fatal(err)
	}
}
