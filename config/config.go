// Package config loads ward's compiler/server options from a TOML
// document (spec.md SPEC_FULL.md §4.16), mirroring the teacher's
// manifest/manifest.go TOML-loading idiom: a single struct tagged for
// github.com/BurntSushi/toml, a Load that reads a file off disk, and a
// handful of derived accessors.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/wardlang/compilectx"
)

// Compiler mirrors compilectx.Options' recognized knobs (spec.md §4.10)
// for TOML decoding.
type Compiler struct {
	StrictVersioning      bool `toml:"strict_versioning"`
	WarnOnDeprecated      bool `toml:"warn_on_deprecated"`
	RequireMigrations     bool `toml:"require_migrations"`
	AllowUnstableVersions bool `toml:"allow_unstable_versions"`
}

// ToCompilectxOptions converts the decoded TOML section into the struct
// compilectx.New expects.
func (c Compiler) ToCompilectxOptions() compilectx.Options {
	return compilectx.Options{
		StrictVersioning:      c.StrictVersioning,
		WarnOnDeprecated:      c.WarnOnDeprecated,
		RequireMigrations:     c.RequireMigrations,
		AllowUnstableVersions: c.AllowUnstableVersions,
	}
}

// Server holds the LSP/audit-persistence knobs that have no analog in
// compilectx.Options (spec.md SPEC_FULL.md §4.16).
type Server struct {
	ListenAddress string `toml:"listen_address"` // decoded only; wardd always serves LSP over stdio
	SqliteDSN     string `toml:"sqlite_dsn"`      // audit/coverage persistence
}

// Document is the top-level decoded ward.toml shape.
type Document struct {
	Compiler Compiler `toml:"compiler"`
	Server   Server   `toml:"server"`

	// Dir is the directory containing the loaded file, set at load time.
	Dir string `toml:"-"`
}

// Load parses a ward.toml file from dir.
func Load(dir string) (*Document, error) {
	path := filepath.Join(dir, "ward.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	doc.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return &doc, nil
}

// FindAndLoad walks up from startDir looking for a ward.toml file, the
// same upward search teacher's manifest.FindAndLoad performs for
// maggie.toml. Returns nil, nil if none is found.
func FindAndLoad(startDir string) (*Document, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, "ward.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Default returns a Document with every option at its spec.md-documented
// default (matching compilectx.Options' zero value, plus stdio transport
// and no persistence).
func Default() *Document {
	return &Document{}
}
