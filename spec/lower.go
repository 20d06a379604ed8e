package spec

import (
	"fmt"
	"io"

	verr "github.com/pactlang/pactc/error"
)

// ParseModule runs the frontend end to end: lex, parse, and lower into
// the typed AST.
func ParseModule(src io.Reader) (*Module, error) {
	forms, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Lower(forms)
}

// Lower transforms a CST forest into a typed Module. The forest must
// consist of exactly one top-level (module ...) form.
func Lower(forms []*Form) (*Module, error) {
	lo := &lowerer{}
	mod := lo.lowerRoot(forms)
	if len(lo.errs) > 0 {
		lo.errs.Sort()
		return nil, lo.errs
	}
	return mod, nil
}

type lowerer struct {
	errs verr.SpecErrors
}

func (lo *lowerer) lowerRoot(forms []*Form) (mod *Module) {
	defer func() {
		err := recover()
		if err == nil {
			return
		}
		specErr, ok := err.(*verr.SpecError)
		if !ok {
			panic(err)
		}
		lo.errs = append(lo.errs, specErr)
	}()

	if len(forms) != 1 {
		pos := Position{}
		if len(forms) > 1 {
			pos = forms[1].Pos
		}
		raiseSyntaxErrorWithDetail(pos, synErrNoModule, fmt.Sprintf("%v top-level forms found", len(forms)))
	}
	root := forms[0]
	if head, ok := root.Head(); !ok || head != "module" {
		raiseSyntaxErrorWithDetail(root.Pos, synErrNoModule, unexpectedFormDetail("expected (module ...)", root))
	}
	return lo.lowerModule(root)
}

var moduleAttrTable = map[string]func(lo *lowerer, m *Module, val *Form){
	"provenance": func(lo *lowerer, m *Module, val *Form) {
		m.Provenance = lo.lowerProvenance(val)
	},
	"version": func(lo *lowerer, m *Module, val *Form) {
		n := lo.expectInteger(val)
		m.Version = &n
	},
	"parent-version": func(lo *lowerer, m *Module, val *Form) {
		n := lo.expectInteger(val)
		m.ParentVersion = &n
	},
	"delta": func(lo *lowerer, m *Module, val *Form) {
		if val.Kind != FormKindList {
			raiseSyntaxErrorWithDetail(val.Pos, synErrTypeMismatch, unexpectedFormDetail(":delta takes a list", val))
		}
		m.Delta = val
	},
}

func (lo *lowerer) lowerModule(root *Form) *Module {
	if len(root.Children) < 2 {
		raiseSyntaxErrorWithDetail(root.Pos, synErrMalformedDecl, "a module needs a name")
	}
	name, ok := root.Children[1].SymbolText()
	if !ok {
		raiseSyntaxErrorWithDetail(root.Children[1].Pos, synErrExpectedSymbol,
			unexpectedFormDetail("a module name must be a symbol", root.Children[1]))
	}
	mod := &Module{
		Name: name,
		Pos:  root.Pos,
	}

	rest := root.Children[2:]
	i := 0
	// Attributes run until the first declaration list.
	for i < len(rest) {
		kw, ok := rest[i].KeywordText()
		if !ok {
			break
		}
		handler, ok := moduleAttrTable[kw]
		if !ok {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrUnknownAttr, fmt.Sprintf(":%v on module", kw))
		}
		if i+1 >= len(rest) {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrOddAttributeList, fmt.Sprintf(":%v", kw))
		}
		handler(lo, mod, rest[i+1])
		i += 2
	}
	for ; i < len(rest); i++ {
		decl := lo.lowerDecl(rest[i])
		if decl != nil {
			mod.Decls = append(mod.Decls, decl)
		}
	}
	return mod
}

// lowerDecl dispatches one declaration form. Errors inside a
// declaration are recorded and lowering resumes with the next one.
func (lo *lowerer) lowerDecl(form *Form) (decl Decl) {
	defer func() {
		err := recover()
		if err == nil {
			return
		}
		specErr, ok := err.(*verr.SpecError)
		if !ok {
			panic(err)
		}
		lo.errs = append(lo.errs, specErr)
		decl = nil
	}()

	head, ok := form.Head()
	if !ok {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl,
			unexpectedFormDetail("a declaration must be a list headed by a symbol", form))
	}
	switch head {
	case "type":
		return lo.lowerTypeDef(form)
	case "effect-set":
		return lo.lowerEffectSetDef(form)
	case "fn":
		return lo.lowerFnDef(form)
	default:
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl,
			fmt.Sprintf("unknown declaration kind %v", head))
		return nil
	}
}

func (lo *lowerer) lowerTypeDef(form *Form) *TypeDef {
	if len(form.Children) < 2 {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl, "a type needs a name")
	}
	name := lo.expectSymbol(form.Children[1], "a type name")
	td := &TypeDef{
		Name: name,
		Pos:  form.Pos,
	}

	rest := form.Children[2:]
	i := 0
	for i < len(rest) {
		kw, ok := rest[i].KeywordText()
		if !ok {
			break
		}
		if kw != "invariants" {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrUnknownAttr, fmt.Sprintf(":%v on type %v", kw, name))
		}
		if i+1 >= len(rest) {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrOddAttributeList, ":invariants")
		}
		val := rest[i+1]
		if val.Kind != FormKindVector {
			raiseSyntaxErrorWithDetail(val.Pos, synErrTypeMismatch, unexpectedFormDetail(":invariants takes a vector", val))
		}
		for _, inv := range val.Children {
			td.Invariants = append(td.Invariants, lo.lowerExpr(inv))
		}
		i += 2
	}
	for ; i < len(rest); i++ {
		if head, ok := rest[i].Head(); !ok || head != "field" {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrMalformedDecl,
				unexpectedFormDetail("a type body holds (field ...) forms", rest[i]))
		}
		td.Fields = append(td.Fields, lo.lowerField(rest[i]))
	}
	return td
}

type fieldAnnHandler struct {
	hasValue bool
	apply    func(lo *lowerer, f *Field, val *Form)
}

var fieldAnnTable = map[string]fieldAnnHandler{
	"immutable": {apply: func(lo *lowerer, f *Field, val *Form) { f.Immutable = true }},
	"generated": {apply: func(lo *lowerer, f *Field, val *Form) { f.Generated = true }},
	"min-len": {hasValue: true, apply: func(lo *lowerer, f *Field, val *Form) {
		n := lo.expectInteger(val)
		f.MinLen = &n
	}},
	"max-len": {hasValue: true, apply: func(lo *lowerer, f *Field, val *Form) {
		n := lo.expectInteger(val)
		f.MaxLen = &n
	}},
	"format": {hasValue: true, apply: func(lo *lowerer, f *Field, val *Form) {
		f.Format = lo.expectKeyword(val, ":format")
	}},
	"unique-within": {hasValue: true, apply: func(lo *lowerer, f *Field, val *Form) {
		f.UniqueWithin = lo.expectSymbol(val, ":unique-within")
	}},
}

func (lo *lowerer) lowerField(form *Form) *Field {
	if len(form.Children) < 3 {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl, "a field needs a name and a type")
	}
	f := &Field{
		Name: lo.expectSymbol(form.Children[1], "a field name"),
		Type: lo.expectSymbol(form.Children[2], "a field type"),
		Pos:  form.Pos,
	}
	rest := form.Children[3:]
	for i := 0; i < len(rest); {
		kw, ok := rest[i].KeywordText()
		if !ok {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrExpectedKeyword,
				unexpectedFormDetail("field annotations are keywords", rest[i]))
		}
		h, ok := fieldAnnTable[kw]
		if !ok {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrUnknownAttr, fmt.Sprintf(":%v on field %v", kw, f.Name))
		}
		if !h.hasValue {
			h.apply(lo, f, nil)
			i++
			continue
		}
		if i+1 >= len(rest) {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrOddAttributeList, fmt.Sprintf(":%v", kw))
		}
		h.apply(lo, f, rest[i+1])
		i += 2
	}
	return f
}

func (lo *lowerer) lowerEffectSetDef(form *Form) *EffectSetDef {
	if len(form.Children) != 3 {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl,
			"an effect-set needs a name and a vector of effect pairs")
	}
	es := &EffectSetDef{
		Name: lo.expectSymbol(form.Children[1], "an effect-set name"),
		Pos:  form.Pos,
	}
	vec := form.Children[2]
	if vec.Kind != FormKindVector {
		raiseSyntaxErrorWithDetail(vec.Pos, synErrTypeMismatch, unexpectedFormDetail("effects form a vector", vec))
	}
	if len(vec.Children)%2 != 0 {
		raiseSyntaxErrorWithDetail(vec.Pos, synErrOddAttributeList, "effect kinds pair with resources")
	}
	for i := 0; i < len(vec.Children); i += 2 {
		kw := lo.expectKeyword(vec.Children[i], "an effect kind")
		kind := EffectKind(kw)
		switch kind {
		case EffectKindReads, EffectKindWrites, EffectKindSends:
		default:
			raiseSyntaxErrorWithDetail(vec.Children[i].Pos, synErrUnknownEffectKind, fmt.Sprintf(":%v", kw))
		}
		es.Effects = append(es.Effects, &Effect{
			Kind:     kind,
			Resource: lo.expectSymbol(vec.Children[i+1], "an effect resource"),
			Pos:      vec.Children[i].Pos,
		})
	}
	return es
}

var fnAttrTable = map[string]func(lo *lowerer, fn *FnDef, val *Form){
	"provenance": func(lo *lowerer, fn *FnDef, val *Form) {
		fn.Provenance = lo.lowerProvenance(val)
	},
	"effects": func(lo *lowerer, fn *FnDef, val *Form) {
		if val.Kind != FormKindVector {
			raiseSyntaxErrorWithDetail(val.Pos, synErrTypeMismatch, unexpectedFormDetail(":effects takes a vector", val))
		}
		for _, c := range val.Children {
			fn.EffectSets = append(fn.EffectSets, lo.expectSymbol(c, "an effect-set reference"))
			fn.EffectSetPos = append(fn.EffectSetPos, c.Pos)
		}
	},
	"total": func(lo *lowerer, fn *FnDef, val *Form) {
		fn.Total = lo.expectBoolean(val)
	},
	"latency-budget": func(lo *lowerer, fn *FnDef, val *Form) {
		d := lo.expectDuration(val)
		fn.LatencyBudget = &d
	},
	"called-by": func(lo *lowerer, fn *FnDef, val *Form) {
		if val.Kind != FormKindVector {
			raiseSyntaxErrorWithDetail(val.Pos, synErrTypeMismatch, unexpectedFormDetail(":called-by takes a vector", val))
		}
		for _, c := range val.Children {
			fn.CalledBy = append(fn.CalledBy, lo.expectSymbol(c, "a caller reference"))
		}
	},
	"idempotency-key": func(lo *lowerer, fn *FnDef, val *Form) {
		fn.IdempotencyKey = lo.lowerExpr(val)
	},
}

func (lo *lowerer) lowerFnDef(form *Form) *FnDef {
	if len(form.Children) < 2 {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl, "a fn needs a name")
	}
	fn := &FnDef{
		Name: lo.expectSymbol(form.Children[1], "a fn name"),
		Pos:  form.Pos,
	}

	rest := form.Children[2:]
	i := 0
	for i < len(rest) {
		kw, ok := rest[i].KeywordText()
		if !ok {
			break
		}
		handler, ok := fnAttrTable[kw]
		if !ok {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrUnknownAttr, fmt.Sprintf(":%v on fn %v", kw, fn.Name))
		}
		if i+1 >= len(rest) {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrOddAttributeList, fmt.Sprintf(":%v", kw))
		}
		handler(lo, fn, rest[i+1])
		i += 2
	}
	for i < len(rest) {
		if head, ok := rest[i].Head(); ok && head == "param" {
			fn.Params = append(fn.Params, lo.lowerParam(rest[i]))
			i++
			continue
		}
		break
	}
	if i < len(rest) {
		if head, ok := rest[i].Head(); ok && head == "returns" {
			fn.Returns = lo.lowerReturns(rest[i])
			i++
		}
	}
	if fn.Returns == nil {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl,
			fmt.Sprintf("fn %v needs a (returns (union ...)) form", fn.Name))
	}
	if i >= len(rest) {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl,
			fmt.Sprintf("fn %v needs a body expression", fn.Name))
	}
	fn.Body = lo.lowerExpr(rest[i])
	i++
	if i < len(rest) {
		raiseSyntaxErrorWithDetail(rest[i].Pos, synErrMalformedDecl,
			fmt.Sprintf("fn %v has forms after its body", fn.Name))
	}
	return fn
}

var paramAnnTable = map[string]func(p *Param, kw string){
	"source":       func(p *Param, kw string) { p.Source = kw },
	"content-type": func(p *Param, kw string) { p.ContentType = kw },
	"validated-at": func(p *Param, kw string) { p.ValidatedAt = kw },
}

func (lo *lowerer) lowerParam(form *Form) *Param {
	if len(form.Children) < 3 {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl, "a param needs a name and a type")
	}
	p := &Param{
		Name: lo.expectSymbol(form.Children[1], "a param name"),
		Type: lo.lowerTypeRef(form.Children[2]),
		Pos:  form.Pos,
	}
	rest := form.Children[3:]
	if len(rest)%2 != 0 {
		raiseSyntaxErrorWithDetail(form.Pos, synErrOddAttributeList,
			fmt.Sprintf("annotations on param %v", p.Name))
	}
	for i := 0; i < len(rest); i += 2 {
		kw, ok := rest[i].KeywordText()
		if !ok {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrExpectedKeyword,
				unexpectedFormDetail("param annotations are keywords", rest[i]))
		}
		apply, ok := paramAnnTable[kw]
		if !ok {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrUnknownAttr, fmt.Sprintf(":%v on param %v", kw, p.Name))
		}
		apply(p, lo.expectKeyword(rest[i+1], fmt.Sprintf(":%v", kw)))
	}
	return p
}

// lowerTypeRef accepts an atomic type symbol or an inline record shape
// {name type ...}.
func (lo *lowerer) lowerTypeRef(form *Form) *TypeRef {
	if name, ok := form.SymbolText(); ok {
		return &TypeRef{
			Name: name,
			Pos:  form.Pos,
		}
	}
	if form.Kind == FormKindMap {
		ref := &TypeRef{
			Pos: form.Pos,
		}
		for _, e := range form.Entries {
			ref.Record = append(ref.Record, &RecordField{
				Name: lo.expectName(e.Key, "a record field name"),
				Type: lo.expectSymbol(e.Val, "a record field type"),
				Pos:  e.Key.Pos,
			})
		}
		return ref
	}
	raiseSyntaxErrorWithDetail(form.Pos, synErrTypeMismatch,
		unexpectedFormDetail("a type reference is a symbol or a record shape", form))
	return nil
}

func (lo *lowerer) lowerReturns(form *Form) *ReturnUnion {
	if len(form.Children) != 2 {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl, "(returns ...) wraps a single (union ...)")
	}
	union := form.Children[1]
	if head, ok := union.Head(); !ok || head != "union" {
		raiseSyntaxErrorWithDetail(union.Pos, synErrMalformedDecl,
			unexpectedFormDetail("(returns ...) wraps a single (union ...)", union))
	}
	ru := &ReturnUnion{
		Pos: union.Pos,
	}
	for _, v := range union.Children[1:] {
		ru.Variants = append(ru.Variants, lo.lowerVariant(v))
	}
	if len(ru.Variants) == 0 {
		raiseSyntaxError(union.Pos, synErrEmptyUnion)
	}
	return ru
}

func (lo *lowerer) lowerVariant(form *Form) *Variant {
	head, ok := form.Head()
	if !ok {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl,
			unexpectedFormDetail("a union variant is (ok ...) or (err ...)", form))
	}
	v := &Variant{
		Pos: form.Pos,
	}
	rest := form.Children[1:]
	switch head {
	case "ok":
		v.Ok = true
		if len(rest) > 0 {
			if _, isKw := rest[0].KeywordText(); !isKw {
				v.PayloadType = lo.lowerTypeRef(rest[0])
				rest = rest[1:]
			}
		}
	case "err":
		if len(rest) == 0 {
			raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl, "an err variant needs a tag keyword")
		}
		v.Tag = lo.expectKeyword(rest[0], "an err tag")
		rest = rest[1:]
		if len(rest) > 0 {
			if _, isKw := rest[0].KeywordText(); !isKw {
				v.PayloadShape = rest[0]
				rest = rest[1:]
			}
		}
	default:
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl,
			fmt.Sprintf("a union variant is (ok ...) or (err ...), but found (%v ...)", head))
	}

	if len(rest)%2 != 0 {
		raiseSyntaxErrorWithDetail(form.Pos, synErrOddAttributeList, "variant attributes")
	}
	sawHTTP := false
	for i := 0; i < len(rest); i += 2 {
		kw, ok := rest[i].KeywordText()
		if !ok {
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrExpectedKeyword,
				unexpectedFormDetail("variant attributes are keywords", rest[i]))
		}
		switch kw {
		case "http":
			v.HTTP = lo.expectInteger(rest[i+1])
			if v.HTTP < 100 || v.HTTP > 599 {
				raiseSyntaxErrorWithDetail(rest[i+1].Pos, synErrHTTPCodeRange, fmt.Sprintf("%v", v.HTTP))
			}
			sawHTTP = true
		case "serialize":
			if !v.Ok {
				raiseSyntaxErrorWithDetail(rest[i].Pos, synErrUnknownAttr, ":serialize on an err variant")
			}
			v.Serialize = lo.expectKeyword(rest[i+1], ":serialize")
		default:
			raiseSyntaxErrorWithDetail(rest[i].Pos, synErrUnknownAttr, fmt.Sprintf(":%v on a union variant", kw))
		}
	}
	if !sawHTTP {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl, "a union variant needs an :http code")
	}
	return v
}

func (lo *lowerer) lowerProvenance(form *Form) []*ProvEntry {
	if form.Kind != FormKindMap {
		raiseSyntaxErrorWithDetail(form.Pos, synErrTypeMismatch, unexpectedFormDetail(":provenance takes a map", form))
	}
	var entries []*ProvEntry
	for _, e := range form.Entries {
		entries = append(entries, &ProvEntry{
			Key: lo.expectName(e.Key, "a provenance key"),
			Val: e.Val,
			Pos: e.Key.Pos,
		})
	}
	return entries
}

func (lo *lowerer) lowerExpr(form *Form) Expr {
	switch form.Kind {
	case FormKindAtom:
		tok := form.Token
		if tok.Kind == TokenKindSymbol {
			return &RefExpr{
				Name: tok.Text,
				Pos:  tok.Pos,
			}
		}
		return &LitExpr{
			Token: tok,
		}
	case FormKindVector:
		ve := &VecLitExpr{
			Pos: form.Pos,
		}
		for _, c := range form.Children {
			ve.Elems = append(ve.Elems, lo.lowerExpr(c))
		}
		return ve
	case FormKindMap:
		me := &MapLitExpr{
			Pos: form.Pos,
		}
		for _, e := range form.Entries {
			me.Entries = append(me.Entries, &MapLitEntry{
				Key: lo.expectName(e.Key, "a map key"),
				Val: lo.lowerExpr(e.Val),
				Pos: e.Key.Pos,
			})
		}
		return me
	}

	head, ok := form.Head()
	if !ok {
		raiseSyntaxErrorWithDetail(form.Pos, synErrExpectedSymbol,
			unexpectedFormDetail("an expression list is headed by a symbol", form))
	}
	rest := form.Children[1:]
	switch head {
	case "let":
		return lo.lowerLet(form, rest)
	case "match":
		return lo.lowerMatch(form, rest)
	case "if":
		if len(rest) != 3 {
			raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl, "(if cond then else) takes three forms")
		}
		return &IfExpr{
			Cond: lo.lowerExpr(rest[0]),
			Then: lo.lowerExpr(rest[1]),
			Else: lo.lowerExpr(rest[2]),
			Pos:  form.Pos,
		}
	case ".":
		if len(rest) != 2 {
			raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl, "(. obj field) takes two forms")
		}
		return &FieldAccessExpr{
			Obj:   lo.lowerExpr(rest[0]),
			Field: lo.expectSymbol(rest[1], "a field name"),
			Pos:   form.Pos,
		}
	case "ok", "some", "none":
		ce := &CtorExpr{
			Kind: CtorKind(head),
			Pos:  form.Pos,
		}
		for _, c := range rest {
			ce.Args = append(ce.Args, lo.lowerExpr(c))
		}
		return ce
	case "err":
		if len(rest) == 0 {
			raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl, "(err ...) needs a tag keyword")
		}
		ce := &CtorExpr{
			Kind: CtorKindErr,
			Tag:  lo.expectKeyword(rest[0], "an err tag"),
			Pos:  form.Pos,
		}
		for _, c := range rest[1:] {
			ce.Args = append(ce.Args, lo.lowerExpr(c))
		}
		return ce
	default:
		call := &CallExpr{
			Callee: head,
			Pos:    form.Pos,
		}
		for _, c := range rest {
			call.Args = append(call.Args, lo.lowerExpr(c))
		}
		return call
	}
}

func (lo *lowerer) lowerLet(form *Form, rest []*Form) Expr {
	if len(rest) != 2 {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl, "(let [bindings] body) takes two forms")
	}
	vec := rest[0]
	if vec.Kind != FormKindVector {
		raiseSyntaxErrorWithDetail(vec.Pos, synErrTypeMismatch, unexpectedFormDetail("let bindings form a vector", vec))
	}
	if len(vec.Children)%2 != 0 {
		raiseSyntaxErrorWithDetail(vec.Pos, synErrOddAttributeList, "let bindings pair names with expressions")
	}
	le := &LetExpr{
		Pos: form.Pos,
	}
	for i := 0; i < len(vec.Children); i += 2 {
		le.Bindings = append(le.Bindings, &LetBinding{
			Name:  lo.expectSymbol(vec.Children[i], "a binding name"),
			Value: lo.lowerExpr(vec.Children[i+1]),
			Pos:   vec.Children[i].Pos,
		})
	}
	le.Body = lo.lowerExpr(rest[1])
	return le
}

func (lo *lowerer) lowerMatch(form *Form, rest []*Form) Expr {
	if len(rest) < 3 || len(rest)%2 != 1 {
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl,
			"(match scrutinee pattern body ...) pairs patterns with bodies")
	}
	me := &MatchExpr{
		Scrutinee: lo.lowerExpr(rest[0]),
		Pos:       form.Pos,
	}
	for i := 1; i < len(rest); i += 2 {
		me.Arms = append(me.Arms, &MatchArm{
			Pattern: lo.lowerPattern(rest[i]),
			Body:    lo.lowerExpr(rest[i+1]),
		})
	}
	return me
}

func (lo *lowerer) lowerPattern(form *Form) Pattern {
	if form.Kind == FormKindAtom {
		name, ok := form.SymbolText()
		if !ok {
			raiseSyntaxErrorWithDetail(form.Pos, synErrExpectedSymbol,
				unexpectedFormDetail("a pattern atom is a symbol", form))
		}
		if name == "_" {
			return &WildcardPattern{
				Pos: form.Pos,
			}
		}
		return &BindingPattern{
			Name: name,
			Pos:  form.Pos,
		}
	}
	head, ok := form.Head()
	if !ok {
		raiseSyntaxErrorWithDetail(form.Pos, synErrExpectedSymbol,
			unexpectedFormDetail("a pattern list is headed by a constructor", form))
	}
	switch head {
	case "ok", "some", "none", "err":
		pat := &CtorPattern{
			Kind: CtorKind(head),
			Pos:  form.Pos,
		}
		rest := form.Children[1:]
		if head == "err" && len(rest) > 0 {
			if tag, ok := rest[0].KeywordText(); ok {
				pat.Tag = tag
				rest = rest[1:]
			}
		}
		for _, c := range rest {
			pat.Subs = append(pat.Subs, lo.lowerPattern(c))
		}
		return pat
	default:
		raiseSyntaxErrorWithDetail(form.Pos, synErrMalformedDecl,
			fmt.Sprintf("unknown pattern constructor %v", head))
		return nil
	}
}

func (lo *lowerer) expectSymbol(form *Form, what string) string {
	name, ok := form.SymbolText()
	if !ok {
		raiseSyntaxErrorWithDetail(form.Pos, synErrExpectedSymbol,
			unexpectedFormDetail(fmt.Sprintf("%v must be a symbol", what), form))
	}
	return name
}

func (lo *lowerer) expectKeyword(form *Form, what string) string {
	kw, ok := form.KeywordText()
	if !ok {
		raiseSyntaxErrorWithDetail(form.Pos, synErrExpectedKeyword,
			unexpectedFormDetail(fmt.Sprintf("%v must be a keyword", what), form))
	}
	return kw
}

// expectName accepts a keyword or symbol atom, the two key shapes a map
// permits.
func (lo *lowerer) expectName(form *Form, what string) string {
	if kw, ok := form.KeywordText(); ok {
		return kw
	}
	if name, ok := form.SymbolText(); ok {
		return name
	}
	raiseSyntaxErrorWithDetail(form.Pos, synErrExpectedKeyword,
		unexpectedFormDetail(fmt.Sprintf("%v must be a keyword or symbol", what), form))
	return ""
}

func (lo *lowerer) expectInteger(form *Form) int64 {
	if form.Kind == FormKindAtom && form.Token.Kind == TokenKindInteger {
		return form.Token.Num
	}
	raiseSyntaxErrorWithDetail(form.Pos, synErrTypeMismatch,
		unexpectedFormDetail("an integer is required here", form))
	return 0
}

func (lo *lowerer) expectBoolean(form *Form) bool {
	if form.Kind == FormKindAtom && form.Token.Kind == TokenKindBoolean {
		return form.Token.Bool
	}
	raiseSyntaxErrorWithDetail(form.Pos, synErrTypeMismatch,
		unexpectedFormDetail("a boolean is required here", form))
	return false
}

func (lo *lowerer) expectDuration(form *Form) Duration {
	if form.Kind == FormKindAtom && form.Token.Kind == TokenKindDuration {
		return Duration{
			Magnitude: form.Token.Num,
			Unit:      form.Token.Unit,
		}
	}
	raiseSyntaxErrorWithDetail(form.Pos, synErrTypeMismatch,
		unexpectedFormDetail("a duration is required here", form))
	return Duration{}
}
