package grammar

import (
	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

var predefinedRuleAttrs = map[string]struct{}{
	"text":  {},
	"start": {},
	"stop":  {},
	"ctx":   {},
}

var predefinedTokenAttrs = map[string]struct{}{
	"text":    {},
	"type":    {},
	"line":    {},
	"pos":     {},
	"index":   {},
	"channel": {},
	"int":     {},
}

// AttributeChecks is pass 12: every $x and $x.y inside a rule's actions and
// predicates must resolve against the rule's parameters, return values,
// locals, labels, or the elements of its alternatives.
func AttributeChecks(g *Grammar) {
	for _, r := range g.Rules() {
		refs := r.referencedNames()
		spec.Walk(r.AST, func(n *spec.Node) bool {
			if n.Kind != spec.KindAction && n.Kind != spec.KindPredicate {
				return true
			}
			g.checkActionAttrs(r, n, refs)
			return true
		})
	}
}

// referencedNames gathers the token and rule names the rule's alternatives
// mention, which $-expressions may refer to alongside declared attributes.
func (r *Rule) referencedNames() map[string]*spec.Node {
	names := map[string]*spec.Node{}
	spec.Walk(r.AST, func(n *spec.Node) bool {
		switch n.Kind {
		case spec.KindTerminal, spec.KindRuleRef:
			if _, ok := names[n.Text]; !ok {
				names[n.Text] = n
			}
		}
		return true
	})
	return names
}

func (g *Grammar) checkActionAttrs(r *Rule, action *spec.Node, refs map[string]*spec.Node) {
	for _, ref := range scanAttrRefs(action.Text) {
		g.checkAttrRef(r, action, ref, refs)
	}
}

type attrRef struct {
	name string
	attr string
}

// scanAttrRefs extracts $name and $name.attr occurrences from an action
// body.
func scanAttrRefs(body string) []attrRef {
	var out []attrRef
	rns := []rune(body)
	for i := 0; i < len(rns); i++ {
		if rns[i] != '$' {
			continue
		}
		j := i + 1
		for j < len(rns) && isAttrIDPart(rns[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		ref := attrRef{name: string(rns[i+1 : j])}
		if j+1 < len(rns) && rns[j] == '.' && isAttrIDPart(rns[j+1]) {
			k := j + 1
			for k < len(rns) && isAttrIDPart(rns[k]) {
				k++
			}
			ref.attr = string(rns[j+1 : k])
			j = k
		}
		out = append(out, ref)
		i = j - 1
	}
	return out
}

func isAttrIDPart(rn rune) bool {
	return rn == '_' || (rn >= 'a' && rn <= 'z') || (rn >= 'A' && rn <= 'Z') ||
		(rn >= '0' && rn <= '9')
}

func (g *Grammar) checkAttrRef(r *Rule, action *spec.Node, ref attrRef, refs map[string]*spec.Node) {
	scalar := r.Args.Has(ref.name) || r.Retvals.Has(ref.name) || r.Locals.Has(ref.name)
	_, labeled := r.Labels[ref.name]
	elem, referenced := refs[ref.name]

	if ref.attr == "" {
		if scalar || labeled || referenced || ref.name == r.Name {
			return
		}
		g.mgr.Emit(issue.CodeUnknownSimpleAttribute, g.fileName, pos(action),
			"$"+ref.name, r.Name)
		return
	}

	// Qualified: resolve the qualifier to a rule or token target.
	var target *spec.Node
	if labeled {
		target = r.Labels[ref.name][0].Node
	} else if referenced {
		target = elem
	}
	switch {
	case target != nil && target.Kind == spec.KindRuleRef:
		callee := g.Rule(target.Text)
		if callee != nil &&
			(callee.Retvals.Has(ref.attr) || callee.Args.Has(ref.attr)) {
			return
		}
		if _, ok := predefinedRuleAttrs[ref.attr]; ok {
			return
		}
		g.mgr.Emit(issue.CodeUnknownRuleAttribute, g.fileName, pos(action),
			ref.attr, target.Text, "$"+ref.name+"."+ref.attr)
	case target != nil:
		if _, ok := predefinedTokenAttrs[ref.attr]; ok {
			return
		}
		g.mgr.Emit(issue.CodeUnknownAttributeInScope, g.fileName, pos(action),
			ref.attr, "$"+ref.name+"."+ref.attr)
	case ref.name == r.Name:
		if r.Retvals.Has(ref.attr) || r.Args.Has(ref.attr) {
			return
		}
		if _, ok := predefinedRuleAttrs[ref.attr]; ok {
			return
		}
		g.mgr.Emit(issue.CodeUnknownRuleAttribute, g.fileName, pos(action),
			ref.attr, r.Name, "$"+ref.name+"."+ref.attr)
	case scalar:
		g.mgr.Emit(issue.CodeUnknownAttributeInScope, g.fileName, pos(action),
			ref.attr, "$"+ref.name+"."+ref.attr)
	default:
		g.mgr.Emit(issue.CodeUnknownSimpleAttribute, g.fileName, pos(action),
			"$"+ref.name, r.Name)
	}
}
