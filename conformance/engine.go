package conformance

import (
	"regexp"
	"strings"

	"github.com/ctxtpl/ctxtpl/ast"
	"github.com/ctxtpl/ctxtpl/diag"
	"github.com/ctxtpl/ctxtpl/template"
)

// htmlTagPattern extracts a literal HTML tag name from raw template text,
// mirroring parsepasses/msgids.go's htmlTagPattern but capturing the tag
// name for BannedHTMLTag matching instead of just splitting the text.
var htmlTagPattern = regexp.MustCompile(`</?([A-Za-z][A-Za-z0-9]*)`)

// ViolationCode is the diag.Code every conformance diagnostic is reported
// under, matching the "ConformanceViolation" entry in the compile-time
// error taxonomy.
const ViolationCode diag.Code = "ConformanceViolation"

// Check traverses every template in reg once, dispatching each node to the
// rules applicable to its kind, and reports violations to reporter. Custom
// rules are resolved through plugins by name; a Custom rule naming a plugin
// absent from plugins is itself reported as a violation, rather than
// silently skipped, so a misconfigured rule set is visible.
func Check(reg template.Registry, rules []Rule, plugins PluginRegistry, reporter *diag.Reporter) {
	var byKind = groupByKind(rules)

	for _, t := range reg.Templates {
		var file = reg.Filename(t.Node.Name)
		var c = &checker{reg: reg, templateName: t.Node.Name, file: file, byKind: byKind, reporter: reporter}
		c.walk(t.Node.Body)
	}

	if len(byKind[Custom]) == 0 {
		return
	}
	for _, sf := range reg.SoyFiles {
		for _, rule := range byKind[Custom] {
			if rule.whitelisted(sf.Name) {
				continue
			}
			var plugin, ok = plugins[rule.Name]
			if !ok {
				reporter.Add(diag.Diagnostic{
					Location: diag.Location{File: sf.Name},
					Severity: diag.Error,
					Code:     ViolationCode,
					Message:  "custom rule " + rule.Name + ": no plugin registered",
				})
				continue
			}
			for _, finding := range plugin.Check(sf, sf.Name) {
				reporter.Add(diag.Diagnostic{
					Location: location(reg, sf.Name, finding.Node),
					Severity: diag.Error,
					Code:     ViolationCode,
					Message:  finding.Message,
				})
			}
		}
	}
}

func groupByKind(rules []Rule) map[Kind][]Rule {
	var m = make(map[Kind][]Rule)
	for _, r := range rules {
		m[r.Kind] = append(m[r.Kind], r)
	}
	return m
}

type checker struct {
	reg          template.Registry
	templateName string
	file         string
	byKind       map[Kind][]Rule
	reporter     *diag.Reporter
}

func (c *checker) report(rule Rule, node ast.Node, matched string) {
	if rule.whitelisted(c.file) {
		return
	}
	c.reporter.Add(diag.Diagnostic{
		Location: location(c.reg, c.templateName, node),
		Severity: diag.Error,
		Code:     ViolationCode,
		Message:  rule.message(matched),
	})
}

func location(reg template.Registry, templateName string, node ast.Node) diag.Location {
	return diag.Location{
		File:      templateName,
		StartLine: reg.LineNumber(templateName, node),
		StartCol:  reg.ColNumber(templateName, node),
	}
}

func (c *checker) walk(node ast.Node) {
	switch node := node.(type) {
	case *ast.FunctionNode:
		for _, rule := range c.byKind[BannedFunction] {
			if rule.Name == node.Name {
				c.report(rule, node, node.Name)
			}
		}
	case *ast.PrintDirectiveNode:
		for _, rule := range c.byKind[BannedDirective] {
			if rule.Name == node.Name {
				c.report(rule, node, node.Name)
			}
		}
	case *ast.RawTextNode:
		for _, rule := range c.byKind[BannedRawText] {
			if strings.Contains(string(node.Text), rule.Name) {
				c.report(rule, node, rule.Name)
			}
		}
		for _, rule := range c.byKind[BannedTextEverywhereExceptComments] {
			if strings.Contains(string(node.Text), rule.Name) {
				c.report(rule, node, rule.Name)
			}
		}
		c.checkHTMLTags(node, string(node.Text))
	case *ast.LiteralNode:
		for _, rule := range c.byKind[BannedTextEverywhereExceptComments] {
			if strings.Contains(node.Body, rule.Name) {
				c.report(rule, node, rule.Name)
			}
		}
		c.checkHTMLTags(node, node.Body)
	case *ast.CssNode:
		for _, rule := range c.byKind[BannedCSSSelector] {
			if strings.Contains(node.Suffix, rule.Name) {
				c.report(rule, node, rule.Name)
			}
		}
	}

	if parent, ok := node.(ast.ParentNode); ok {
		for _, child := range parent.Children() {
			if child != nil {
				c.walk(child)
			}
		}
	}
}

func (c *checker) checkHTMLTags(node ast.Node, text string) {
	var rules = c.byKind[BannedHTMLTag]
	if len(rules) == 0 {
		return
	}
	for _, loc := range htmlTagPattern.FindAllStringSubmatch(text, -1) {
		var tag = strings.ToLower(loc[1])
		for _, rule := range rules {
			if strings.ToLower(rule.Name) == tag {
				c.report(rule, node, tag)
			}
		}
	}
}
