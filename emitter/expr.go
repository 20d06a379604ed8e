package emitter

import (
	"fmt"
	"strings"

	"github.com/pactlang/pactc/spec"
)

const indentUnit = "    "

func ind(depth int) string {
	return strings.Repeat(indentUnit, depth)
}

func (e *emitter) exprStr(x spec.Expr, depth int) string {
	switch x := x.(type) {
	case *spec.LitExpr:
		return litStr(x.Token)
	case *spec.RefExpr:
		if e.selfFields != nil {
			if _, ok := e.selfFields[x.Name]; ok {
				return "self." + snakeCase(x.Name)
			}
		}
		if x.Qualified() {
			return qualifiedPath(x.Name)
		}
		return snakeCase(x.Name)
	case *spec.FieldAccessExpr:
		return fmt.Sprintf("%v.%v", e.exprStr(x.Obj, depth), snakeCase(x.Field))
	case *spec.CtorExpr:
		return e.ctorStr(x, depth)
	case *spec.CallExpr:
		return e.callStr(x, depth)
	case *spec.VecLitExpr:
		var elems []string
		for _, el := range x.Elems {
			elems = append(elems, e.exprStr(el, depth))
		}
		return fmt.Sprintf("vec![%v]", strings.Join(elems, ", "))
	case *spec.MapLitExpr:
		return e.valueStr(x)
	case *spec.LetExpr:
		return e.letStr(x, depth)
	case *spec.IfExpr:
		return fmt.Sprintf("if %v {\n%v%v\n%v} else {\n%v%v\n%v}",
			e.exprStr(x.Cond, depth),
			ind(depth+1), e.exprStr(x.Then, depth+1),
			ind(depth),
			ind(depth+1), e.exprStr(x.Else, depth+1),
			ind(depth))
	case *spec.MatchExpr:
		return e.matchStr(x, depth)
	}
	return ""
}

func (e *emitter) letStr(x *spec.LetExpr, depth int) string {
	saved := e.boundFns
	e.boundFns = map[string]*spec.FnDef{}
	for k, v := range saved {
		e.boundFns[k] = v
	}

	var b strings.Builder
	b.WriteString("{\n")
	for _, bind := range x.Bindings {
		fmt.Fprintf(&b, "%vlet %v = %v;\n", ind(depth+1), snakeCase(bind.Name), e.exprStr(bind.Value, depth+1))
		if fn := e.unionFnOf(bind.Value); fn != nil {
			e.boundFns[bind.Name] = fn
		} else {
			delete(e.boundFns, bind.Name)
		}
	}
	fmt.Fprintf(&b, "%v%v\n%v}", ind(depth+1), e.exprStr(x.Body, depth+1), ind(depth))

	e.boundFns = saved
	return b.String()
}

func (e *emitter) matchStr(x *spec.MatchExpr, depth int) string {
	fn := e.unionFnOf(x.Scrutinee)
	var b strings.Builder
	fmt.Fprintf(&b, "match %v {\n", e.exprStr(x.Scrutinee, depth))
	for _, arm := range x.Arms {
		fmt.Fprintf(&b, "%v%v => %v,\n", ind(depth+1), e.patStr(arm.Pattern, fn), e.exprStr(arm.Body, depth+1))
	}
	fmt.Fprintf(&b, "%v}", ind(depth))
	return b.String()
}

// unionFnOf mirrors the analyzer's conservative scrutinee discovery:
// a direct in-module call, or a name let-bound to the result of one.
func (e *emitter) unionFnOf(x spec.Expr) *spec.FnDef {
	switch x := x.(type) {
	case *spec.CallExpr:
		if x.Qualified() {
			return nil
		}
		return e.an.Fns[x.Callee]
	case *spec.RefExpr:
		return e.boundFns[x.Name]
	}
	return nil
}

func (e *emitter) ctorStr(x *spec.CtorExpr, depth int) string {
	var args []string
	for _, a := range x.Args {
		args = append(args, e.exprStr(a, depth))
	}
	switch x.Kind {
	case spec.CtorKindSome:
		if len(args) == 0 {
			return "Some(())"
		}
		return fmt.Sprintf("Some(%v)", strings.Join(args, ", "))
	case spec.CtorKindNone:
		return "None"
	}

	if e.curFn == nil {
		if x.Kind == spec.CtorKindOk {
			return fmt.Sprintf("Ok(%v)", strings.Join(args, ", "))
		}
		return fmt.Sprintf("Err(%v)", strings.Join(args, ", "))
	}

	enumName := pascalCase(e.curFn.Name) + "Result"
	v := e.lookupVariant(x)
	if v == nil {
		// No declared variant matches; fall back to the bare name so
		// the mismatch is visible in the output.
		if x.Kind == spec.CtorKindOk {
			return fmt.Sprintf("%v::Ok(%v)", enumName, strings.Join(args, ", "))
		}
		return fmt.Sprintf("%v::Err%v(%v)", enumName, pascalCase(x.Tag), strings.Join(args, ", "))
	}
	name := variantName(e.curFn, v)
	if variantPayload(e.curFn, v) == "" || len(args) == 0 {
		return fmt.Sprintf("%v::%v", enumName, name)
	}
	// A map argument to a struct-shaped err payload becomes the named
	// payload struct.
	if !v.Ok && v.PayloadShape != nil && v.PayloadShape.Kind == spec.FormKindMap && len(v.PayloadShape.Entries) > 0 {
		if m, ok := x.Args[0].(*spec.MapLitExpr); ok {
			return fmt.Sprintf("%v::%v(%v)", enumName, name, e.payloadStructLit(v, m, depth))
		}
	}
	return fmt.Sprintf("%v::%v(%v)", enumName, name, strings.Join(args, ", "))
}

func (e *emitter) payloadStructLit(v *spec.Variant, m *spec.MapLitExpr, depth int) string {
	var fields []string
	for _, ent := range m.Entries {
		fields = append(fields, fmt.Sprintf("%v: %v", snakeCase(ent.Key), e.exprStr(ent.Val, depth)))
	}
	return fmt.Sprintf("%v { %v }", errPayloadStructName(e.curFn, v), strings.Join(fields, ", "))
}

func (e *emitter) lookupVariant(x *spec.CtorExpr) *spec.Variant {
	for _, v := range e.curFn.Returns.Variants {
		if x.Kind == spec.CtorKindOk && v.Ok {
			return v
		}
		if x.Kind == spec.CtorKindErr && !v.Ok && v.Tag == x.Tag {
			return v
		}
	}
	return nil
}

var effectMethods = map[string]string{
	"query":   "read",
	"insert!": "insert",
	"update!": "update",
	"send":    "send",
}

func (e *emitter) callStr(x *spec.CallExpr, depth int) string {
	if method, ok := effectMethods[x.Callee]; ok && len(x.Args) > 0 {
		if res, ok := x.Args[0].(*spec.RefExpr); ok && !res.Qualified() {
			return fmt.Sprintf("ctx.%v_%v(%v)", method, snakeCase(res.Name), e.effectPayload(x.Args[1:], depth))
		}
	}
	if x.Callee == "build" && len(x.Args) == 2 {
		if s := e.buildStr(x, depth); s != "" {
			return s
		}
	}
	if x.Callee == "matches" && len(x.Args) == 2 {
		if pat := patternArg(x.Args[1]); pat != "" {
			return fmt.Sprintf("matches_pattern(&%v, %v)", e.exprStr(x.Args[0], depth), pat)
		}
	}

	var args []string
	for _, a := range x.Args {
		args = append(args, e.exprStr(a, depth))
	}
	callee := snakeCase(x.Callee)
	if x.Qualified() {
		callee = qualifiedPath(x.Callee)
	}
	return fmt.Sprintf("%v(%v)", callee, strings.Join(args, ", "))
}

func (e *emitter) effectPayload(args []spec.Expr, depth int) string {
	if len(args) == 0 {
		return "Vec::new()"
	}
	if m, ok := args[0].(*spec.MapLitExpr); ok && len(args) == 1 {
		return e.pairsStr(m)
	}
	var out []string
	for _, a := range args {
		out = append(out, e.exprStr(a, depth))
	}
	return strings.Join(out, ", ")
}

// buildStr lowers (build T {..}) into a struct literal when T is a
// type the module declares; otherwise the caller falls back to a plain
// call.
func (e *emitter) buildStr(x *spec.CallExpr, depth int) string {
	ref, ok := x.Args[0].(*spec.RefExpr)
	if !ok {
		return ""
	}
	if _, ok := e.an.Types[ref.Name]; !ok {
		return ""
	}
	m, ok := x.Args[1].(*spec.MapLitExpr)
	if !ok {
		return ""
	}
	var fields []string
	for _, ent := range m.Entries {
		fields = append(fields, fmt.Sprintf("%v: %v", snakeCase(ent.Key), e.exprStr(ent.Val, depth)))
	}
	return fmt.Sprintf("%v { %v }", pascalCase(ref.Name), strings.Join(fields, ", "))
}

func (e *emitter) pairsStr(m *spec.MapLitExpr) string {
	var pairs []string
	for _, ent := range m.Entries {
		pairs = append(pairs, fmt.Sprintf("(%q.to_string(), %v)", snakeCase(ent.Key), e.valueStrOf(ent.Val)))
	}
	return fmt.Sprintf("vec![%v]", strings.Join(pairs, ", "))
}

func (e *emitter) valueStr(m *spec.MapLitExpr) string {
	return fmt.Sprintf("Value::Map(%v)", e.pairsStr(m))
}

func (e *emitter) valueStrOf(x spec.Expr) string {
	switch x := x.(type) {
	case *spec.LitExpr:
		tok := x.Token
		switch tok.Kind {
		case spec.TokenKindString:
			return fmt.Sprintf("Value::Str(%v.to_string())", rustQuote(tok.Text))
		case spec.TokenKindKeyword:
			return fmt.Sprintf("Value::Str(%v.to_string())", rustQuote(tok.Text))
		case spec.TokenKindInteger:
			return fmt.Sprintf("Value::Int(%v)", tok.Num)
		case spec.TokenKindBoolean:
			return fmt.Sprintf("Value::Bool(%v)", tok.Bool)
		case spec.TokenKindDuration:
			return fmt.Sprintf("Value::Int(%v)", durationMillis(tok))
		case spec.TokenKindRegex:
			return fmt.Sprintf("Value::Str(%v.to_string())", rawQuote(tok.Text))
		}
	case *spec.MapLitExpr:
		return fmt.Sprintf("Value::Map(%v)", e.pairsStr(x))
	case *spec.VecLitExpr:
		var elems []string
		for _, el := range x.Elems {
			elems = append(elems, e.valueStrOf(el))
		}
		return fmt.Sprintf("Value::List(vec![%v])", strings.Join(elems, ", "))
	}
	return fmt.Sprintf("Value::Str(format!(\"{:?}\", %v))", e.exprStr(x, 0))
}

func (e *emitter) patStr(p spec.Pattern, fn *spec.FnDef) string {
	switch p := p.(type) {
	case *spec.WildcardPattern:
		return "_"
	case *spec.BindingPattern:
		return snakeCase(p.Name)
	case *spec.CtorPattern:
		return e.ctorPatStr(p, fn)
	}
	return "_"
}

func (e *emitter) ctorPatStr(p *spec.CtorPattern, fn *spec.FnDef) string {
	var subs []string
	for _, s := range p.Subs {
		subs = append(subs, e.patStr(s, nil))
	}
	subPat := strings.Join(subs, ", ")
	if subPat == "" {
		subPat = "_"
	}

	switch p.Kind {
	case spec.CtorKindSome:
		return fmt.Sprintf("Some(%v)", subPat)
	case spec.CtorKindNone:
		return "None"
	}

	if fn == nil {
		// The scrutinee's union is unknown; Ok/Err read as the target's
		// standard result type, which is exactly what an opaque
		// external call returns.
		if p.Kind == spec.CtorKindOk {
			return fmt.Sprintf("Ok(%v)", subPat)
		}
		return fmt.Sprintf("Err(%v)", subPat)
	}

	enumName := pascalCase(fn.Name) + "Result"
	if p.Kind == spec.CtorKindOk {
		for _, v := range fn.Returns.Variants {
			if !v.Ok {
				continue
			}
			if variantPayload(fn, v) == "" {
				return fmt.Sprintf("%v::Ok", enumName)
			}
			return fmt.Sprintf("%v::Ok(%v)", enumName, subPat)
		}
		return fmt.Sprintf("%v::Ok(%v)", enumName, subPat)
	}

	// An untagged err pattern covers every error variant; the target's
	// match needs a catch-all for that.
	if p.Tag == "" {
		return "_"
	}
	for _, v := range fn.Returns.Variants {
		if v.Ok || v.Tag != p.Tag {
			continue
		}
		name := variantName(fn, v)
		if variantPayload(fn, v) == "" {
			return fmt.Sprintf("%v::%v", enumName, name)
		}
		return fmt.Sprintf("%v::%v(%v)", enumName, name, subPat)
	}
	return fmt.Sprintf("%v::Err%v(%v)", enumName, pascalCase(p.Tag), subPat)
}

func patternArg(x spec.Expr) string {
	if lit, ok := x.(*spec.LitExpr); ok {
		switch lit.Token.Kind {
		case spec.TokenKindRegex:
			return rawQuote(lit.Token.Text)
		case spec.TokenKindString:
			return rustQuote(lit.Token.Text)
		}
	}
	return ""
}

func litStr(tok *spec.Token) string {
	switch tok.Kind {
	case spec.TokenKindString:
		return fmt.Sprintf("%v.to_string()", rustQuote(tok.Text))
	case spec.TokenKindKeyword:
		return fmt.Sprintf("%v.to_string()", rustQuote(tok.Text))
	case spec.TokenKindInteger:
		return fmt.Sprintf("%v", tok.Num)
	case spec.TokenKindBoolean:
		return fmt.Sprintf("%v", tok.Bool)
	case spec.TokenKindDuration:
		return fmt.Sprintf("%v", durationMillis(tok))
	case spec.TokenKindRegex:
		return rawQuote(tok.Text)
	}
	return ""
}

func durationMillis(tok *spec.Token) int64 {
	switch tok.Unit {
	case spec.DurationUnitMillisecond:
		return tok.Num
	case spec.DurationUnitSecond:
		return tok.Num * 1000
	case spec.DurationUnitMinute:
		return tok.Num * 60 * 1000
	case spec.DurationUnitHour:
		return tok.Num * 60 * 60 * 1000
	}
	return tok.Num
}

// rustQuote escapes a string for a double-quoted target literal.
func rustQuote(s string) string {
	var b strings.Builder
	b.WriteString(`"`)
	for _, c := range s {
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteString(`"`)
	return b.String()
}

// rawQuote renders a raw string literal, picking a hash guard when the
// pattern itself contains a quote.
func rawQuote(s string) string {
	if strings.Contains(s, `"`) {
		return fmt.Sprintf(`r#"%v"#`, s)
	}
	return fmt.Sprintf(`r"%v"`, s)
}

// exprDoc reconstructs the surface syntax of an expression for doc
// comments; metadata is preserved rather than re-typed.
func exprDoc(x spec.Expr) string {
	switch x := x.(type) {
	case *spec.LitExpr:
		f := &spec.Form{Kind: spec.FormKindAtom, Token: x.Token}
		return f.String()
	case *spec.RefExpr:
		return x.Name
	case *spec.FieldAccessExpr:
		return fmt.Sprintf("(. %v %v)", exprDoc(x.Obj), x.Field)
	case *spec.CallExpr:
		parts := []string{x.Callee}
		for _, a := range x.Args {
			parts = append(parts, exprDoc(a))
		}
		return fmt.Sprintf("(%v)", strings.Join(parts, " "))
	case *spec.CtorExpr:
		parts := []string{string(x.Kind)}
		if x.Tag != "" {
			parts = append(parts, ":"+x.Tag)
		}
		for _, a := range x.Args {
			parts = append(parts, exprDoc(a))
		}
		return fmt.Sprintf("(%v)", strings.Join(parts, " "))
	case *spec.MapLitExpr:
		var parts []string
		for _, ent := range x.Entries {
			parts = append(parts, fmt.Sprintf(":%v %v", ent.Key, exprDoc(ent.Val)))
		}
		return fmt.Sprintf("{%v}", strings.Join(parts, " "))
	case *spec.VecLitExpr:
		var parts []string
		for _, el := range x.Elems {
			parts = append(parts, exprDoc(el))
		}
		return fmt.Sprintf("[%v]", strings.Join(parts, " "))
	case *spec.LetExpr:
		var binds []string
		for _, b := range x.Bindings {
			binds = append(binds, fmt.Sprintf("%v %v", b.Name, exprDoc(b.Value)))
		}
		return fmt.Sprintf("(let [%v] %v)", strings.Join(binds, " "), exprDoc(x.Body))
	case *spec.IfExpr:
		return fmt.Sprintf("(if %v %v %v)", exprDoc(x.Cond), exprDoc(x.Then), exprDoc(x.Else))
	case *spec.MatchExpr:
		parts := []string{"match", exprDoc(x.Scrutinee)}
		for _, arm := range x.Arms {
			parts = append(parts, patDoc(arm.Pattern), exprDoc(arm.Body))
		}
		return fmt.Sprintf("(%v)", strings.Join(parts, " "))
	}
	return ""
}

func patDoc(p spec.Pattern) string {
	switch p := p.(type) {
	case *spec.WildcardPattern:
		return "_"
	case *spec.BindingPattern:
		return p.Name
	case *spec.CtorPattern:
		parts := []string{string(p.Kind)}
		if p.Tag != "" {
			parts = append(parts, ":"+p.Tag)
		}
		for _, s := range p.Subs {
			parts = append(parts, patDoc(s))
		}
		return fmt.Sprintf("(%v)", strings.Join(parts, " "))
	}
	return ""
}
