package grammar

import (
	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

// AssignChannels is pass 7: validate every channels{} entry and number the
// survivors after the predefined channels.
func AssignChannels(g *Grammar) {
	tokens := g.declaredTokenNames()
	for _, blk := range g.AST.ChildrenOfKind(spec.KindChannels) {
		for _, ch := range blk.Children {
			name := ch.Text
			if _, reserved := commonConstants[name]; reserved {
				g.mgr.Emit(issue.CodeChannelConflictsWithCommonConstants,
					g.fileName, pos(ch), name)
				continue
			}
			if _, isToken := tokens[name]; isToken {
				g.mgr.Emit(issue.CodeChannelConflictsWithToken, g.fileName, pos(ch), name)
				continue
			}
			if g.HasMode(name) {
				g.mgr.Emit(issue.CodeChannelConflictsWithMode, g.fileName, pos(ch), name)
				continue
			}
			g.DefineChannel(name)
		}
	}
}
