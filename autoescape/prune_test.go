package autoescape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxtpl/ctxtpl/ast"
	"github.com/ctxtpl/ctxtpl/check"
	"github.com/ctxtpl/ctxtpl/diag"
	"github.com/ctxtpl/ctxtpl/parse"
	"github.com/ctxtpl/ctxtpl/template"
)

func mustPruneRegistry(t *testing.T, src string) (*template.Registry, *ast.Annotations) {
	t.Helper()
	var reg template.Registry
	tree, err := parse.SoyFile("t.soy", src, nil)
	require.NoError(t, err)
	require.NoError(t, reg.Add(tree))

	var ann = ast.NewAnnotations()
	var reporter = diag.NewReporter()
	require.NoError(t, check.New(&reg, ann, reporter, nil).Check())
	return &reg, ann
}

func findFirstPrint(n ast.Node) *ast.PrintNode {
	if n == nil {
		return nil
	}
	if p, ok := n.(*ast.PrintNode); ok {
		return p
	}
	if parent, ok := n.(ast.ParentNode); ok {
		for _, child := range parent.Children() {
			if found := findFirstPrint(child); found != nil {
				return found
			}
		}
	}
	return nil
}

// TestPrune_ElidesKindSafeDirective covers boundary scenario 3: a value
// statically typed trusted_resource_uri, printed into a trusted-resource-uri
// slot, needs no URI filtering directive -- the kind already guarantees it.
func TestPrune_ElidesKindSafeDirective(t *testing.T) {
	reg, ann := mustPruneRegistry(t, `
{namespace test}

/**
 * @param u {trusted_resource_uri}
 */
{template .main}
<script src="{$u}"></script>
{/template}`)

	require.NoError(t, Strict(reg, ann))
	Prune(reg, ann)

	tmpl, ok := reg.Template("test.main")
	require.True(t, ok)
	print := findFirstPrint(tmpl.Node.Body)
	require.NotNil(t, print)

	var names []string
	for _, d := range print.Directives {
		names = append(names, d.Name)
	}
	assert.NotContains(t, names, "filterNormalizeUri")
	assert.NotContains(t, names, "normalizeUri")
}

// TestPrune_KeepsDirectiveForUnrelatedKind confirms Prune leaves the
// directive chain alone when the printed value has no statically-known
// content kind at all (a plain string still needs full URI filtering).
func TestPrune_KeepsDirectiveForUnrelatedKind(t *testing.T) {
	reg, ann := mustPruneRegistry(t, `
{namespace test}

/**
 * @param u {string}
 */
{template .main}
<a href="{$u}"></a>
{/template}`)

	require.NoError(t, Strict(reg, ann))
	Prune(reg, ann)

	tmpl, ok := reg.Template("test.main")
	require.True(t, ok)
	print := findFirstPrint(tmpl.Node.Body)
	require.NotNil(t, print)

	var names []string
	for _, d := range print.Directives {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "filterNormalizeUri")
}

// TestStrictEscapeRequired_TrustedResourceSlot covers the StrictEscapeRequired
// half of boundary scenario 3: an unknown-kind value may not be printed into
// a trusted-resource-uri slot.
func TestStrictEscapeRequired_TrustedResourceSlot(t *testing.T) {
	reg, ann := mustPruneRegistry(t, `
{namespace test}

/**
 * @param u {string}
 */
{template .main}
<script src="{$u}"></script>
{/template}`)

	err := Strict(reg, ann)
	require.Error(t, err)
	aerr, ok := err.(interface{ Error() string })
	require.True(t, ok)
	assert.Contains(t, aerr.Error(), "trusted-resource-uri")
}

// TestStrictEscapeRequired_AllowsDeclaredKind confirms the positive half of
// boundary scenario 3: a value actually declared trusted_resource_uri
// compiles without error.
func TestStrictEscapeRequired_AllowsDeclaredKind(t *testing.T) {
	reg, ann := mustPruneRegistry(t, `
{namespace test}

/**
 * @param u {trusted_resource_uri}
 */
{template .main}
<script src="{$u}"></script>
{/template}`)

	assert.NoError(t, Strict(reg, ann))
}
