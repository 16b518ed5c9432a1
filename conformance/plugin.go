package conformance

import "github.com/ctxtpl/ctxtpl/ast"

// Finding is one diagnostic a Plugin reports: a message plus the offending
// node, for Check to turn into a located diag.Diagnostic.
type Finding struct {
	Node    ast.Node
	Message string
}

// Plugin implements a Custom rule's logic. It is registered by an opaque
// identifier string and, given the full file AST and its identity, returns
// a list of findings. Plugins must not mutate the AST, and must be
// stateless or synchronize internally, since Check may run concurrently
// across files.
type Plugin interface {
	Check(file *ast.SoyFileNode, fileIdentity string) []Finding
}

// PluginFunc adapts a function to Plugin.
type PluginFunc func(file *ast.SoyFileNode, fileIdentity string) []Finding

func (f PluginFunc) Check(file *ast.SoyFileNode, fileIdentity string) []Finding {
	return f(file, fileIdentity)
}

// PluginRegistry resolves the opaque identifier named by a Custom rule to
// the Plugin implementing it.
type PluginRegistry map[string]Plugin
