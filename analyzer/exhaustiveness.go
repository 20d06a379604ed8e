package analyzer

import (
	"fmt"
	"strings"

	"github.com/pactlang/pactc/spec"
)

// A variant universe is keyed by "ok" for success variants (patterns
// cannot tell ok variants apart) and "err :tag" per error variant.
type variantID string

const variantOk = variantID("ok")

func errVariantID(tag string) variantID {
	return variantID(fmt.Sprintf("err :%v", tag))
}

func universeOf(union *spec.ReturnUnion) []variantID {
	var ids []variantID
	sawOk := false
	for _, v := range union.Variants {
		if v.Ok {
			if !sawOk {
				ids = append(ids, variantOk)
				sawOk = true
			}
			continue
		}
		ids = append(ids, errVariantID(v.Tag))
	}
	return ids
}

// checkExhaustiveness verifies every match inside a :total fn against
// the scrutinee's variant universe, when that universe is statically
// discoverable.
func (a *analyzer) checkExhaustiveness() {
	for _, d := range a.mod.Decls {
		fn, ok := d.(*spec.FnDef)
		if !ok || !fn.Total {
			continue
		}
		a.walkMatches(fn.Body, map[string]*spec.ReturnUnion{})
	}
}

func (a *analyzer) walkMatches(e spec.Expr, bound map[string]*spec.ReturnUnion) {
	switch e := e.(type) {
	case *spec.LetExpr:
		inner := bound
		for _, b := range e.Bindings {
			a.walkMatches(b.Value, inner)
			if u := a.unionOf(b.Value, inner); u != nil {
				// Copy-on-write keeps outer bindings visible to
				// sibling scopes untouched.
				next := make(map[string]*spec.ReturnUnion, len(inner)+1)
				for k, v := range inner {
					next[k] = v
				}
				next[b.Name] = u
				inner = next
			} else if _, shadowed := inner[b.Name]; shadowed {
				next := make(map[string]*spec.ReturnUnion, len(inner))
				for k, v := range inner {
					next[k] = v
				}
				delete(next, b.Name)
				inner = next
			}
		}
		a.walkMatches(e.Body, inner)
	case *spec.MatchExpr:
		a.checkMatch(e, bound)
		a.walkMatches(e.Scrutinee, bound)
		for _, arm := range e.Arms {
			a.walkMatches(arm.Body, bound)
		}
	case *spec.IfExpr:
		a.walkMatches(e.Cond, bound)
		a.walkMatches(e.Then, bound)
		a.walkMatches(e.Else, bound)
	case *spec.CallExpr:
		for _, arg := range e.Args {
			a.walkMatches(arg, bound)
		}
	case *spec.FieldAccessExpr:
		a.walkMatches(e.Obj, bound)
	case *spec.CtorExpr:
		for _, arg := range e.Args {
			a.walkMatches(arg, bound)
		}
	case *spec.MapLitExpr:
		for _, ent := range e.Entries {
			a.walkMatches(ent.Val, bound)
		}
	case *spec.VecLitExpr:
		for _, el := range e.Elems {
			a.walkMatches(el, bound)
		}
	}
}

// unionOf conservatively discovers the variant universe an expression
// produces: a direct call to an in-module fn, or a symbol let-bound to
// the result of one.
func (a *analyzer) unionOf(e spec.Expr, bound map[string]*spec.ReturnUnion) *spec.ReturnUnion {
	switch e := e.(type) {
	case *spec.CallExpr:
		if e.Qualified() {
			return nil
		}
		if callee, ok := a.an.Fns[e.Callee]; ok {
			return callee.Returns
		}
	case *spec.RefExpr:
		return bound[e.Name]
	}
	return nil
}

func (a *analyzer) checkMatch(m *spec.MatchExpr, bound map[string]*spec.ReturnUnion) {
	union := a.unionOf(m.Scrutinee, bound)
	if union == nil {
		a.warnAt(m.Pos, semWarnUnknownDomain, "")
		// The universe is unknown, but anything after a catch-all arm
		// is still dead.
		sawCatchAll := false
		for _, arm := range m.Arms {
			if sawCatchAll {
				a.warnAt(arm.Pattern.PatPos(), semWarnUnreachableArm, "an earlier arm matches everything")
				continue
			}
			if patternIsCatchAll(arm.Pattern) {
				sawCatchAll = true
			}
		}
		return
	}

	universe := universeOf(union)
	covered := map[variantID]struct{}{}
	for _, arm := range m.Arms {
		armSet := coverage(arm.Pattern, universe)
		if len(armSet) > 0 && subset(armSet, covered) {
			a.warnAt(arm.Pattern.PatPos(), semWarnUnreachableArm, "earlier arms already cover it")
		}
		for _, id := range armSet {
			covered[id] = struct{}{}
		}
	}

	var missing []string
	for _, id := range universe {
		if _, ok := covered[id]; !ok {
			missing = append(missing, string(id))
		}
	}
	if len(missing) > 0 {
		a.errorAt(m.Pos, semErrNonExhaustiveMatch,
			fmt.Sprintf("[%v]", strings.Join(missing, ", ")),
			"add arms for the missing variants or a wildcard")
	}
}

func patternIsCatchAll(p spec.Pattern) bool {
	switch p.(type) {
	case *spec.WildcardPattern, *spec.BindingPattern:
		return true
	}
	return false
}

// coverage returns the subset of the universe a pattern matches.
func coverage(p spec.Pattern, universe []variantID) []variantID {
	switch p := p.(type) {
	case *spec.WildcardPattern, *spec.BindingPattern:
		return universe
	case *spec.CtorPattern:
		switch p.Kind {
		case spec.CtorKindOk:
			return pick(universe, func(id variantID) bool { return id == variantOk })
		case spec.CtorKindErr:
			if p.Tag == "" {
				// err with no tag covers every err variant.
				return pick(universe, func(id variantID) bool { return id != variantOk })
			}
			want := errVariantID(p.Tag)
			return pick(universe, func(id variantID) bool { return id == want })
		}
	}
	return nil
}

func pick(universe []variantID, keep func(variantID) bool) []variantID {
	var ids []variantID
	for _, id := range universe {
		if keep(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func subset(ids []variantID, covered map[variantID]struct{}) bool {
	for _, id := range ids {
		if _, ok := covered[id]; !ok {
			return false
		}
	}
	return true
}
