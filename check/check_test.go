package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxtpl/ctxtpl/ast"
	"github.com/ctxtpl/ctxtpl/diag"
	"github.com/ctxtpl/ctxtpl/parse"
	"github.com/ctxtpl/ctxtpl/template"
	"github.com/ctxtpl/ctxtpl/types"
)

func mustRegistry(t *testing.T, soyFiles ...string) *template.Registry {
	t.Helper()
	var reg template.Registry
	for i, src := range soyFiles {
		tree, err := parse.SoyFile("test", src, nil)
		require.NoError(t, err, "file %d", i)
		require.NoError(t, reg.Add(tree))
	}
	return &reg
}

func TestInferExpr_Literals(t *testing.T) {
	reg := mustRegistry(t, `
{namespace test}

/**
 * @param cond
 */
{template .main}
{if $cond}1{else}2{/if}
{/template}`)

	ann := ast.NewAnnotations()
	reporter := diag.NewReporter()
	c := New(reg, ann, reporter, nil)
	require.NoError(t, c.Check())
	assert.False(t, reporter.HasErrors())
}

func TestInferDataRef_TypedParam(t *testing.T) {
	reg := mustRegistry(t, `
{namespace test}

/**
 * @param name {string}
 */
{template .greet}
Hello {$name}
{/template}`)

	ann := ast.NewAnnotations()
	reporter := diag.NewReporter()
	c := New(reg, ann, reporter, nil)
	require.NoError(t, c.Check())
	assert.False(t, reporter.HasErrors())
}

func TestCheckCall_TypeMismatch(t *testing.T) {
	reg := mustRegistry(t, `
{namespace test}

/**
 * @param name {string}
 */
{template .greet}
Hello {$name}
{/template}

/**
 * @param age {int}
 */
{template .caller}
{call .greet}{param name: $age /}{/call}
{/template}`)

	ann := ast.NewAnnotations()
	reporter := diag.NewReporter()
	c := New(reg, ann, reporter, nil)
	c.Check()
	assert.True(t, reporter.HasErrors())
	found := false
	for _, d := range reporter.Diagnostics() {
		if d.Code == CodeTypeMismatch {
			found = true
		}
	}
	assert.True(t, found, "expected a TypeMismatch diagnostic, got %v", reporter.Diagnostics())
}

func TestCheckCall_UnknownTemplate(t *testing.T) {
	reg := mustRegistry(t, `
{namespace test}

/** */
{template .caller}
{call .missing/}
{/template}`)

	ann := ast.NewAnnotations()
	reporter := diag.NewReporter()
	c := New(reg, ann, reporter, nil)
	c.Check()
	assert.True(t, reporter.HasErrors())
}

func TestParseTypeExpr(t *testing.T) {
	tests := []struct {
		expr string
		want types.Type
	}{
		{"int", types.Int},
		{"string", types.String},
		{"list<int>", types.List{Elem: types.Int}},
		{"map<string,int>", types.Map{Key: types.String, Value: types.Int}},
		{"html", types.HTML()},
		{"", types.Dynamic{}},
		{"?", types.Dynamic{}},
	}
	for _, test := range tests {
		got := parseTypeExpr(test.expr, nil)
		assert.Equal(t, test.want, got, "parseTypeExpr(%q)", test.expr)
	}
}
