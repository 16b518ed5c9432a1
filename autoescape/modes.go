package autoescape

import "github.com/ctxtpl/ctxtpl/ast"

// AutoescapeType is an alias for ast.AutoescapeType, kept so existing
// references to autoescape.AutoescapeOn and friends keep working now that
// the parser builds ast.NamespaceNode/ast.TemplateNode with the ast-level
// type directly.
type AutoescapeType = ast.AutoescapeType

const (
	AutoescapeUnspecified = ast.AutoescapeUnspecified
	AutoescapeContextual  = ast.AutoescapeContextual
	AutoescapeOn          = ast.AutoescapeOn
	AutoescapeOff         = ast.AutoescapeOff
)
