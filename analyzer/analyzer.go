package analyzer

import (
	"fmt"
	"sort"
	"strings"

	verr "github.com/pactlang/pactc/error"
	"github.com/pactlang/pactc/spec"
)

// Analysis is the result of a clean semantic pass: the module, its
// symbol tables, and any warnings. The emitter consumes it.
type Analysis struct {
	Module     *spec.Module
	Types      map[string]*spec.TypeDef
	EffectSets map[string]*spec.EffectSetDef
	Fns        map[string]*spec.FnDef
	Warnings   verr.SpecErrors
}

type effectKey struct {
	kind     spec.EffectKind
	resource string
}

func (k effectKey) String() string {
	return fmt.Sprintf("%v %v", k.kind, k.resource)
}

type effectSet map[effectKey]struct{}

func (s effectSet) subsumes(other effectSet) []effectKey {
	var missing []effectKey
	for k := range other {
		if _, ok := s[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		if missing[i].kind != missing[j].kind {
			return missing[i].kind < missing[j].kind
		}
		return missing[i].resource < missing[j].resource
	})
	return missing
}

// Analyze runs name resolution, effect checking, and exhaustiveness
// checking over a lowered module. When any error-severity diagnostic
// is produced the returned error is the full verr.SpecErrors bundle;
// warnings alone land in Analysis.Warnings.
func Analyze(mod *spec.Module) (*Analysis, error) {
	a := &analyzer{
		mod: mod,
		an: &Analysis{
			Module:     mod,
			Types:      map[string]*spec.TypeDef{},
			EffectSets: map[string]*spec.EffectSetDef{},
			Fns:        map[string]*spec.FnDef{},
		},
		fnEffects: map[string]effectSet{},
	}
	a.collectDecls()
	if !a.errs.HasError() {
		a.resolveNames()
		a.checkEffects()
		a.checkExhaustiveness()
	}

	a.errs.Sort()
	a.an.Warnings = a.errs.Warnings()
	if a.errs.HasError() {
		return nil, a.errs
	}
	return a.an, nil
}

type analyzer struct {
	mod       *spec.Module
	an        *Analysis
	fnEffects map[string]effectSet
	errs      verr.SpecErrors
}

func (a *analyzer) errorAt(pos spec.Position, cause error, detail string, hint string) {
	a.errs = append(a.errs, &verr.SpecError{
		Cause:    cause,
		Detail:   detail,
		Severity: verr.SeverityError,
		Row:      pos.Row,
		Col:      pos.Col,
		Hint:     hint,
	})
}

func (a *analyzer) warnAt(pos spec.Position, cause error, detail string) {
	a.errs = append(a.errs, &verr.SpecError{
		Cause:    cause,
		Detail:   detail,
		Severity: verr.SeverityWarning,
		Row:      pos.Row,
		Col:      pos.Col,
	})
}

func (a *analyzer) collectDecls() {
	seen := map[string]spec.Decl{}
	for _, d := range a.mod.Decls {
		name := d.DeclName()
		if _, ok := seen[name]; ok {
			a.errorAt(d.DeclPos(), semErrDuplicateDecl, name, "")
			continue
		}
		seen[name] = d
		switch d := d.(type) {
		case *spec.TypeDef:
			a.an.Types[name] = d
			fields := map[string]struct{}{}
			for _, f := range d.Fields {
				if _, ok := fields[f.Name]; ok {
					a.errorAt(f.Pos, semErrDuplicateField, fmt.Sprintf("%v in type %v", f.Name, name), "")
				}
				fields[f.Name] = struct{}{}
			}
		case *spec.EffectSetDef:
			a.an.EffectSets[name] = d
		case *spec.FnDef:
			a.an.Fns[name] = d
			params := map[string]struct{}{}
			for _, p := range d.Params {
				if _, ok := params[p.Name]; ok {
					a.errorAt(p.Pos, semErrDuplicateParam, fmt.Sprintf("%v in fn %v", p.Name, name), "")
				}
				params[p.Name] = struct{}{}
			}
		}
	}
}

// scope is one frame of the lexical scope chain.
type scope struct {
	parent *scope
	names  map[string]struct{}
}

func newScope(parent *scope) *scope {
	return &scope{
		parent: parent,
		names:  map[string]struct{}{},
	}
}

func (s *scope) bind(name string) {
	s.names[name] = struct{}{}
}

func (s *scope) resolve(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.names[name]; ok {
			return true
		}
	}
	return false
}

func (a *analyzer) moduleScope() *scope {
	sc := newScope(nil)
	for _, d := range a.mod.Decls {
		sc.bind(d.DeclName())
	}
	return sc
}

func (a *analyzer) resolveNames() {
	modScope := a.moduleScope()
	for _, d := range a.mod.Decls {
		switch d := d.(type) {
		case *spec.TypeDef:
			// Invariant expressions see the type's own fields.
			sc := newScope(modScope)
			for _, f := range d.Fields {
				sc.bind(f.Name)
			}
			for _, inv := range d.Invariants {
				a.resolveExpr(inv, sc)
			}
		case *spec.FnDef:
			for i, ref := range d.EffectSets {
				if _, ok := a.an.EffectSets[ref]; !ok {
					pos := d.Pos
					if i < len(d.EffectSetPos) {
						pos = d.EffectSetPos[i]
					}
					a.errorAt(pos, semErrUnknownEffectSet, ref,
						"declare an (effect-set ...) with this name in the module")
				}
			}
			sc := newScope(modScope)
			for _, p := range d.Params {
				sc.bind(p.Name)
			}
			if d.IdempotencyKey != nil {
				a.resolveExpr(d.IdempotencyKey, sc)
			}
			a.resolveExpr(d.Body, sc)
		}
	}
}

func (a *analyzer) resolveExpr(e spec.Expr, sc *scope) {
	switch e := e.(type) {
	case *spec.RefExpr:
		if e.Qualified() {
			return
		}
		if !sc.resolve(e.Name) {
			a.errorAt(e.Pos, semErrUnresolvedSymbol, e.Name, "")
		}
	case *spec.CallExpr:
		// Unknown unqualified heads are opaque external operations;
		// only arguments resolve against the scope chain. The leading
		// operand of an effect intrinsic names a resource, not a
		// binding.
		args := e.Args
		if isEffectIntrinsic(e.Callee) && len(args) > 0 {
			if _, ok := args[0].(*spec.RefExpr); ok {
				args = args[1:]
			}
		}
		for _, arg := range args {
			a.resolveExpr(arg, sc)
		}
	case *spec.FieldAccessExpr:
		a.resolveExpr(e.Obj, sc)
	case *spec.LetExpr:
		inner := newScope(sc)
		for _, b := range e.Bindings {
			a.resolveExpr(b.Value, inner)
			inner.bind(b.Name)
		}
		a.resolveExpr(e.Body, inner)
	case *spec.MatchExpr:
		a.resolveExpr(e.Scrutinee, sc)
		for _, arm := range e.Arms {
			armScope := newScope(sc)
			bindPattern(arm.Pattern, armScope)
			a.resolveExpr(arm.Body, armScope)
		}
	case *spec.IfExpr:
		a.resolveExpr(e.Cond, sc)
		a.resolveExpr(e.Then, sc)
		a.resolveExpr(e.Else, sc)
	case *spec.CtorExpr:
		for _, arg := range e.Args {
			a.resolveExpr(arg, sc)
		}
	case *spec.MapLitExpr:
		for _, ent := range e.Entries {
			a.resolveExpr(ent.Val, sc)
		}
	case *spec.VecLitExpr:
		for _, el := range e.Elems {
			a.resolveExpr(el, sc)
		}
	}
}

func isEffectIntrinsic(callee string) bool {
	switch callee {
	case "query", "insert!", "update!", "send":
		return true
	}
	return false
}

func bindPattern(p spec.Pattern, sc *scope) {
	switch p := p.(type) {
	case *spec.BindingPattern:
		sc.bind(p.Name)
	case *spec.CtorPattern:
		for _, sub := range p.Subs {
			bindPattern(sub, sc)
		}
	}
}

func (a *analyzer) effectEnv(fn *spec.FnDef) effectSet {
	if env, ok := a.fnEffects[fn.Name]; ok {
		return env
	}
	env := effectSet{}
	for _, ref := range fn.EffectSets {
		es, ok := a.an.EffectSets[ref]
		if !ok {
			continue
		}
		for _, e := range es.Effects {
			env[effectKey{kind: e.Kind, resource: e.Resource}] = struct{}{}
		}
	}
	a.fnEffects[fn.Name] = env
	return env
}

func (a *analyzer) checkEffects() {
	for _, d := range a.mod.Decls {
		fn, ok := d.(*spec.FnDef)
		if !ok {
			continue
		}
		env := a.effectEnv(fn)
		a.checkCallEffects(fn, fn.Body, env)
	}
}

func (a *analyzer) checkCallEffects(caller *spec.FnDef, e spec.Expr, env effectSet) {
	switch e := e.(type) {
	case *spec.CallExpr:
		if !e.Qualified() {
			if callee, ok := a.an.Fns[e.Callee]; ok {
				missing := env.subsumes(a.effectEnv(callee))
				if len(missing) > 0 {
					var names []string
					for _, k := range missing {
						names = append(names, k.String())
					}
					a.errorAt(e.Pos, semErrEffectEscape,
						fmt.Sprintf("%v calls %v without {%v}", caller.Name, callee.Name, strings.Join(names, ", ")),
						fmt.Sprintf("extend the :effects of %v to cover %v", caller.Name, callee.Name))
				}
			}
		}
		for _, arg := range e.Args {
			a.checkCallEffects(caller, arg, env)
		}
	case *spec.LetExpr:
		for _, b := range e.Bindings {
			a.checkCallEffects(caller, b.Value, env)
		}
		a.checkCallEffects(caller, e.Body, env)
	case *spec.MatchExpr:
		a.checkCallEffects(caller, e.Scrutinee, env)
		for _, arm := range e.Arms {
			a.checkCallEffects(caller, arm.Body, env)
		}
	case *spec.IfExpr:
		a.checkCallEffects(caller, e.Cond, env)
		a.checkCallEffects(caller, e.Then, env)
		a.checkCallEffects(caller, e.Else, env)
	case *spec.FieldAccessExpr:
		a.checkCallEffects(caller, e.Obj, env)
	case *spec.CtorExpr:
		for _, arg := range e.Args {
			a.checkCallEffects(caller, arg, env)
		}
	case *spec.MapLitExpr:
		for _, ent := range e.Entries {
			a.checkCallEffects(caller, ent.Val, env)
		}
	case *spec.VecLitExpr:
		for _, el := range e.Elems {
			a.checkCallEffects(caller, el, env)
		}
	}
}
