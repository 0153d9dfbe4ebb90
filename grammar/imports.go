package grammar

import (
	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

// MergeImports folds delegate grammar ASTs into the root AST so the rest of
// the pipeline sees one self-contained grammar. The root always wins on
// conflict.
func MergeImports(root *spec.Node, delegates []*spec.Node, fileName string, mgr *issue.Manager) {
	rootRules := declaredRuleNames(root)
	rootModes := map[string]*spec.Node{}
	for _, m := range root.ChildrenOfKind(spec.KindMode) {
		rootModes[m.Text] = m
	}

	for _, del := range delegates {
		mergeOptions(root, del, fileName, mgr)
		mergeNameList(root, del, spec.KindTokens, false)
		mergeNameList(root, del, spec.KindChannels, true)

		for _, act := range del.ChildrenOfKind(spec.KindNamedAction) {
			root.AddChild(act.Dup())
		}

		for _, r := range del.ChildrenOfKind(spec.KindRule) {
			if _, ok := rootRules[r.Text]; ok {
				continue
			}
			rootRules[r.Text] = struct{}{}
			root.AddChild(r.Dup())
		}

		for _, m := range del.ChildrenOfKind(spec.KindMode) {
			target, exists := rootModes[m.Text]
			if !exists {
				target = spec.NewTextNode(spec.KindMode, m.Pos, m.Text)
				target.Origin = m.Origin
			}
			added := false
			for _, r := range m.ChildrenOfKind(spec.KindRule) {
				if _, ok := rootRules[r.Text]; ok {
					continue
				}
				rootRules[r.Text] = struct{}{}
				target.AddChild(r.Dup())
				added = true
			}
			if !exists && added {
				rootModes[m.Text] = target
				root.AddChild(target)
			}
		}
	}

	root.SanityCheckParentAndChildIndexes()
}

func declaredRuleNames(root *spec.Node) map[string]struct{} {
	names := map[string]struct{}{}
	for _, r := range root.ChildrenOfKind(spec.KindRule) {
		names[r.Text] = struct{}{}
	}
	for _, m := range root.ChildrenOfKind(spec.KindMode) {
		for _, r := range m.ChildrenOfKind(spec.KindRule) {
			names[r.Text] = struct{}{}
		}
	}
	return names
}

// mergeOptions only diagnoses: a delegate option differing from the root's
// value is ignored with a warning.
func mergeOptions(root, del *spec.Node, fileName string, mgr *issue.Manager) {
	rootOpts := map[string]string{}
	for _, opts := range root.ChildrenOfKind(spec.KindOptions) {
		for k, v := range opts.Opts {
			rootOpts[k] = v
		}
	}
	for _, opts := range del.ChildrenOfKind(spec.KindOptions) {
		for _, opt := range opts.ChildrenOfKind(spec.KindOption) {
			if rv, ok := rootOpts[opt.Text]; ok && rv != opt.Value {
				mgr.Emit(issue.CodeOptionsInDelegate, fileName, pos(opt), del.Text)
			}
		}
	}
}

// mergeNameList concatenates a delegate's tokens or channels block into the
// root's, creating the block when the root has none.
func mergeNameList(root, del *spec.Node, kind spec.NodeKind, dedup bool) {
	var names []*spec.Node
	for _, blk := range del.ChildrenOfKind(kind) {
		names = append(names, blk.Children...)
	}
	if len(names) == 0 {
		return
	}

	target := root.FirstChildOfKind(kind)
	if target == nil {
		target = spec.NewNode(kind, root.Pos)
		root.InsertChild(0, target)
	}
	have := map[string]struct{}{}
	for _, c := range target.Children {
		have[c.Text] = struct{}{}
	}
	for _, n := range names {
		if dedup {
			if _, ok := have[n.Text]; ok {
				continue
			}
			have[n.Text] = struct{}{}
		}
		target.AddChild(n.Dup())
	}
}
