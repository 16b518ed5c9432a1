package autoescape

import (
	"bytes"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/stretchr/testify/require"

	"github.com/ctxtpl/ctxtpl/data"
	"github.com/ctxtpl/ctxtpl/parse"
	"github.com/ctxtpl/ctxtpl/soyhtml"
	"github.com/ctxtpl/ctxtpl/template"
)

func renderOne(t *testing.T, src string, vars data.Map) string {
	t.Helper()
	var reg template.Registry
	tree, err := parse.SoyFile("t.soy", src, nil)
	require.NoError(t, err)
	require.NoError(t, reg.Add(tree))
	require.NoError(t, Strict(&reg, nil))

	var b bytes.Buffer
	err = soyhtml.NewTofu(&reg).NewRenderer("test.main").Execute(&b, vars)
	require.NoError(t, err)
	return b.String()
}

// TestBoundary_StrictHTMLEscape is boundary scenario 1: a plain string
// printed into HTML text is entity-escaped.
func TestBoundary_StrictHTMLEscape(t *testing.T) {
	var got = renderOne(t, `
{namespace test}

/**
 * @param p
 */
{template .main}
<div>{$p}</div>
{/template}`, data.Map{"p": data.String("<b>x</b>")})

	var want = `<div>&lt;b&gt;x&lt;/b&gt;</div>`
	if got != want {
		t.Errorf("output mismatch:\n%s", diff.LineDiff(want, got))
	}
}

// TestBoundary_AttributeURIFilter is boundary scenario 2: a javascript:
// URI landing in a plain URL attribute is filtered to a safe sentinel.
func TestBoundary_AttributeURIFilter(t *testing.T) {
	var got = renderOne(t, `
{namespace test}

/**
 * @param u
 */
{template .main}
<a href="{$u}"></a>
{/template}`, data.Map{"u": data.String("javascript:alert(1)")})

	// This registry's filterNormalizeUri sentinel is "#zSoyz" rather than
	// html/template's "about:invalid#zSoyz" -- an equivalent sentinel, per
	// the boundary scenario's own "or equivalent sentinel" allowance.
	var want = `<a href="#zSoyz"></a>`
	if got != want {
		t.Errorf("output mismatch:\n%s", diff.LineDiff(want, got))
	}
}
