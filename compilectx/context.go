// Package compilectx implements the compiler context (spec.md §4.10):
// the orchestration layer that drives per-entity version/compatibility
// validation over a module, aggregates diagnostics under the VER001-VER010
// codes, and owns the function/type version registries plus the
// migration registry.
package compilectx

import (
	"fmt"
	"log/slog"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/compat"
	"github.com/chazu/wardlang/diag"
	"github.com/chazu/wardlang/migration"
	"github.com/chazu/wardlang/version"
	"github.com/chazu/wardlang/versionreg"
)

// Options are the compiler context's recognized knobs (spec.md §4.10).
type Options struct {
	// StrictVersioning is reserved; currently unused but must be accepted.
	StrictVersioning bool
	// WarnOnDeprecated emits VER005 when registering a deprecated version.
	WarnOnDeprecated bool
	// RequireMigrations is reserved; currently unused.
	RequireMigrations bool
	// AllowUnstableVersions suppresses VER006 for alpha/beta versions.
	AllowUnstableVersions bool
}

// Context owns the registries and diagnostics builder a module
// registration pass accumulates state into.
type Context struct {
	Functions  *versionreg.Registry
	Types      *versionreg.Registry
	Migrations *migration.Registry
	Diags      *diag.Builder
	Modules    map[string]*ast.Module
	Options    Options
	Logger     *slog.Logger
}

// New returns an empty Context, logging registration activity to the
// default slog logger.
func New(opts Options) *Context {
	return &Context{
		Functions:  versionreg.New(),
		Types:      versionreg.New(),
		Migrations: migration.New(),
		Diags:      diag.NewBuilder(),
		Modules:    make(map[string]*ast.Module),
		Options:    opts,
		Logger:     slog.Default(),
	}
}

// RegisterModule implements spec.md §4.10's register_module: validate
// every versioned function/type, register the survivors, and store the
// module under its name regardless.
func (c *Context) RegisterModule(m *ast.Module) {
	for _, el := range m.Elements {
		switch e := el.(type) {
		case *ast.Function:
			c.registerFunction(e)
		case *ast.TypeDef:
			c.registerType(e)
		}
	}
	c.Modules[m.Name] = m
}

func (c *Context) registerFunction(fn *ast.Function) {
	if fn.Version == nil {
		return
	}
	v, err := version.Parse(fn.Version.Version)
	if err != nil {
		c.Diags.AddCode(diag.Error, "VER001", fmt.Sprintf("function %q: %v", fn.Name, err), fn.Sp)
		return
	}

	blocked := false
	if fn.Version.Replaces != "" {
		predV, err := version.Parse(fn.Version.Replaces)
		if err != nil {
			c.Diags.AddCode(diag.Error, "VER002", fmt.Sprintf("function %q: invalid replaces version %q: %v", fn.Name, fn.Version.Replaces, err), fn.Sp)
			return
		}
		if pred, ok := c.Functions.Lookup(fn.Name, predV.Key()); ok {
			if predFn, ok := pred.Node.(*ast.Function); ok {
				report := compat.CompareFunctions(predFn, fn)
				if report.Level == compat.Breaking {
					for _, ch := range report.Changes {
						if ch.Severity == compat.SevError {
							c.Diags.AddCode(diag.Warning, "VER004", fmt.Sprintf("function %q: %s", fn.Name, ch.Description), fn.Sp)
						}
					}
					if v.Major <= predV.Major {
						c.Diags.AddCode(diag.Error, "VER003", fmt.Sprintf("function %q: breaking change from %s to %s without a major version bump", fn.Name, predV, v), fn.Sp)
						blocked = true
					}
				}
			}
		}
	}
	if blocked {
		return
	}

	c.checkStability(fn.Version, fn.Name, fn.Sp)
	c.Functions.Register(fn.Name, fn.Version.Version, fn.Version.Stability, fn, fn.Version.Replaces, fn.Version.RollbackSafe)
	c.Logger.Debug("registered function version", "name", fn.Name, "version", fn.Version.Version)
}

func (c *Context) registerType(td *ast.TypeDef) {
	if td.Version == nil {
		return
	}
	v, err := version.Parse(td.Version.Version)
	if err != nil {
		c.Diags.AddCode(diag.Error, "VER001", fmt.Sprintf("type %q: %v", td.Name, err), td.Sp)
		return
	}

	blocked := false
	if td.Version.Replaces != "" {
		predV, err := version.Parse(td.Version.Replaces)
		if err != nil {
			c.Diags.AddCode(diag.Error, "VER002", fmt.Sprintf("type %q: invalid replaces version %q: %v", td.Name, td.Version.Replaces, err), td.Sp)
			return
		}
		if pred, ok := c.Types.Lookup(td.Name, predV.Key()); ok {
			if predTd, ok := pred.Node.(*ast.TypeDef); ok {
				report := compat.CompareTypes(predTd, td)
				if report.Level == compat.Breaking {
					for _, ch := range report.Changes {
						if ch.Severity == compat.SevError {
							c.Diags.AddCode(diag.Warning, "VER004", fmt.Sprintf("type %q: %s", td.Name, ch.Description), td.Sp)
						}
					}
					if v.Major <= predV.Major {
						c.Diags.AddCode(diag.Error, "VER007", fmt.Sprintf("type %q: breaking change from %s to %s without a major version bump", td.Name, predV, v), td.Sp)
						blocked = true
					}
				}
			}
		}
	}
	if blocked {
		return
	}

	c.checkStability(td.Version, td.Name, td.Sp)
	c.Types.Register(td.Name, td.Version.Version, td.Version.Stability, td, td.Version.Replaces, td.Version.RollbackSafe)
	c.Logger.Debug("registered type version", "name", td.Name, "version", td.Version.Version)
}

func (c *Context) checkStability(vi *ast.VersionInfo, name string, sp diag.Span) {
	if vi.Stability == ast.StabilityDeprecated && c.Options.WarnOnDeprecated {
		c.Diags.AddCode(diag.Warning, "VER005", fmt.Sprintf("%q: registering a deprecated version", name), sp)
		c.Logger.Warn("registering deprecated version", "name", name, "version", vi.Version)
	}
	if (vi.Stability == ast.StabilityAlpha || vi.Stability == ast.StabilityBeta) && !c.Options.AllowUnstableVersions {
		c.Diags.AddCode(diag.Warning, "VER006", fmt.Sprintf("%q: registering an unstable (%s) version", name, vi.Stability), sp)
		c.Logger.Warn("registering unstable version", "name", name, "version", vi.Version, "stability", vi.Stability.String())
	}
}

// ResolveFunctionVersion implements spec.md §4.10's resolve_function_version:
// parse the constraint, resolve against the registry, return the AST node.
func (c *Context) ResolveFunctionVersion(name, constraintStr string) (*ast.Function, error) {
	con, err := version.ParseConstraint(constraintStr)
	if err != nil {
		c.Diags.AddCode(diag.Error, "VER008", fmt.Sprintf("function %q: invalid version constraint %q: %v", name, constraintStr, err), diag.Span{})
		return nil, err
	}
	ve, ok := c.Functions.Resolve(name, con)
	if !ok {
		err := fmt.Errorf("no version of function %q satisfies %q", name, constraintStr)
		c.Diags.AddCode(diag.Error, "VER009", err.Error(), diag.Span{})
		return nil, err
	}
	return ve.Node.(*ast.Function), nil
}

// ResolveTypeVersion is ResolveFunctionVersion's type-registry analog.
func (c *Context) ResolveTypeVersion(name, constraintStr string) (*ast.TypeDef, error) {
	con, err := version.ParseConstraint(constraintStr)
	if err != nil {
		c.Diags.AddCode(diag.Error, "VER008", fmt.Sprintf("type %q: invalid version constraint %q: %v", name, constraintStr, err), diag.Span{})
		return nil, err
	}
	ve, ok := c.Types.Resolve(name, con)
	if !ok {
		err := fmt.Errorf("no version of type %q satisfies %q", name, constraintStr)
		c.Diags.AddCode(diag.Error, "VER010", err.Error(), diag.Span{})
		return nil, err
	}
	return ve.Node.(*ast.TypeDef), nil
}
