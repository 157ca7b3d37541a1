package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ValidateAgainstSchema unifies doc against the CUE schema at schemaPath
// and reports any constraint violation. This is optional: callers only
// invoke it when a schema path is supplied (spec.md SPEC_FULL.md §4.16),
// giving cuelang.org/go — present but unused in the teacher's own
// tree — a genuine job validating the decoded options document.
func ValidateAgainstSchema(doc *Document, schemaPath string) error {
	schemaSrc, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("config: cannot read schema %s: %w", schemaPath, err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSrc)
	if schema.Err() != nil {
		return fmt.Errorf("config: invalid schema %s: %w", schemaPath, schema.Err())
	}

	data := ctx.Encode(doc)
	if data.Err() != nil {
		return fmt.Errorf("config: cannot encode document for validation: %w", data.Err())
	}

	unified := schema.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config: document violates schema %s: %w", schemaPath, err)
	}
	return nil
}

// DefaultSchema is the built-in CUE schema matching Document's shape. It
// is not applied automatically: ValidateAgainstSchema validates only
// against the schema file at the path it is given.
const DefaultSchema = `
compiler: {
	strict_versioning?:       bool
	warn_on_deprecated?:      bool
	require_migrations?:      bool
	allow_unstable_versions?: bool
}
server: {
	listen_address?: string
	sqlite_dsn?:     string
}
`
