package emitter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pactlang/pactc/analyzer"
	"github.com/pactlang/pactc/spec"
)

// Emit renders a semantically valid module as target-language source
// text. Output is deterministic: declarations in source order, map
// entries in source order; map iteration never decides output order.
func Emit(an *analyzer.Analysis) ([]byte, error) {
	e := &emitter{
		an:  an,
		mod: an.Module,
	}
	err := e.emitHeader()
	if err != nil {
		return nil, err
	}
	e.emitSupport()
	for _, d := range e.mod.Decls {
		switch d := d.(type) {
		case *spec.TypeDef:
			e.emitTypeDef(d)
		case *spec.EffectSetDef:
			e.emitEffectSetDef(d)
		case *spec.FnDef:
			e.emitFnDef(d)
		}
	}
	return e.b.Bytes(), nil
}

// OutputFileName returns the target file name for a module.
func OutputFileName(mod *spec.Module) string {
	return snakeCase(mod.Name) + ".rs"
}

type emitter struct {
	b   bytes.Buffer
	an  *analyzer.Analysis
	mod *spec.Module

	// selfFields is non-nil while emitting a validate() body; field
	// references resolve through the receiver.
	selfFields map[string]struct{}
	// curFn is the fn whose body is being emitted; ok/err constructors
	// name its result enum.
	curFn *spec.FnDef
	// boundFns maps let-bound names to the in-module fn whose result
	// they hold, for naming enums in match patterns.
	boundFns map[string]*spec.FnDef
}

const headerTmpl = `//! Code generated by pactc from module ` + "`{{ .name }}`" + `. DO NOT EDIT.
{{- range .meta }}
//! {{ . }}
{{- end }}

`

func (e *emitter) emitHeader() error {
	var meta []string
	for _, p := range e.mod.Provenance {
		meta = append(meta, fmt.Sprintf("provenance: %v = %v", p.Key, p.Val))
	}
	if e.mod.Version != nil {
		meta = append(meta, fmt.Sprintf("version: %v", *e.mod.Version))
	}
	if e.mod.ParentVersion != nil {
		meta = append(meta, fmt.Sprintf("parent-version: %v", *e.mod.ParentVersion))
	}
	if e.mod.Delta != nil {
		meta = append(meta, fmt.Sprintf("delta: %v", e.mod.Delta))
	}

	t, err := template.New("").Parse(headerTmpl)
	if err != nil {
		return err
	}
	return t.Execute(&e.b, map[string]interface{}{
		"name": e.mod.Name,
		"meta": meta,
	})
}

// supportSrc is the fixed runtime-free scaffolding every module gets:
// the validation error type, the dynamic value crossing effect
// boundaries, and the query/record aliases effect traits use.
const supportSrc = `/// One failed validation check.
#[derive(Debug, Clone, PartialEq)]
pub struct ValidationError {
    pub field: String,
    pub message: String,
}

impl ValidationError {
    pub fn new(field: &str, message: &str) -> Self {
        ValidationError {
            field: field.to_string(),
            message: message.to_string(),
        }
    }
}

/// Dynamic value crossing an effect boundary.
#[derive(Debug, Clone, PartialEq)]
pub enum Value {
    Str(String),
    Int(i64),
    Bool(bool),
    List(Vec<Value>),
    Map(Vec<(String, Value)>),
}

/// Query shape accepted by effect readers.
pub type Query = Vec<(String, Value)>;

/// Record shape accepted by effect writers and senders.
pub type Record = Vec<(String, Value)>;

fn matches_pattern(value: &str, pattern: &str) -> bool {
    regex::Regex::new(pattern)
        .map(|re| re.is_match(value))
        .unwrap_or(false)
}

fn matches_format(value: &str, format: &str) -> bool {
    match format {
        "email" => matches_pattern(value, r"^[^@\s]+@[^@\s]+\.[^@\s]+$"),
        "url" => matches_pattern(value, r"^https?://\S+$"),
        "uuid" => {
            matches_pattern(value, r"^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$")
        }
        _ => !value.is_empty(),
    }
}

`

func (e *emitter) emitSupport() {
	e.b.WriteString(supportSrc)
}

func (e *emitter) emitTypeDef(d *spec.TypeDef) {
	fmt.Fprintf(&e.b, "/// Pact type `%v`.\n", d.Name)
	for _, inv := range d.Invariants {
		fmt.Fprintf(&e.b, "/// invariant: %v\n", exprDoc(inv))
	}
	typeName := pascalCase(d.Name)
	fmt.Fprintf(&e.b, "#[derive(Debug, Clone, PartialEq)]\n")
	fmt.Fprintf(&e.b, "pub struct %v {\n", typeName)
	for _, f := range d.Fields {
		if doc := fieldDoc(f); doc != "" {
			fmt.Fprintf(&e.b, "    /// %v\n", doc)
		}
		fmt.Fprintf(&e.b, "    pub %v: %v,\n", snakeCase(f.Name), rustType(f.Type))
	}
	fmt.Fprintf(&e.b, "}\n\n")

	e.emitValidate(d, typeName)
}

func fieldDoc(f *spec.Field) string {
	var parts []string
	if f.Immutable {
		parts = append(parts, "immutable")
	}
	if f.Generated {
		parts = append(parts, "generated")
	}
	if f.MinLen != nil {
		parts = append(parts, fmt.Sprintf("min-len %v", *f.MinLen))
	}
	if f.MaxLen != nil {
		parts = append(parts, fmt.Sprintf("max-len %v", *f.MaxLen))
	}
	if f.Format != "" {
		parts = append(parts, fmt.Sprintf("format :%v", f.Format))
	}
	if f.UniqueWithin != "" {
		parts = append(parts, fmt.Sprintf("unique within %v", f.UniqueWithin))
	}
	return strings.Join(parts, ", ")
}

func (e *emitter) emitValidate(d *spec.TypeDef, typeName string) {
	fmt.Fprintf(&e.b, "impl %v {\n", typeName)
	fmt.Fprintf(&e.b, "    pub fn validate(&self) -> Result<(), Vec<ValidationError>> {\n")
	fmt.Fprintf(&e.b, "        let mut errors: Vec<ValidationError> = Vec::new();\n")
	for _, f := range d.Fields {
		name := snakeCase(f.Name)
		if f.MinLen != nil {
			fmt.Fprintf(&e.b, "        if self.%v.len() < %v {\n", name, *f.MinLen)
			fmt.Fprintf(&e.b, "            errors.push(ValidationError::new(%q, %q));\n", name, fmt.Sprintf("shorter than min-len %v", *f.MinLen))
			fmt.Fprintf(&e.b, "        }\n")
		}
		if f.MaxLen != nil {
			fmt.Fprintf(&e.b, "        if self.%v.len() > %v {\n", name, *f.MaxLen)
			fmt.Fprintf(&e.b, "            errors.push(ValidationError::new(%q, %q));\n", name, fmt.Sprintf("longer than max-len %v", *f.MaxLen))
			fmt.Fprintf(&e.b, "        }\n")
		}
		if f.Format != "" {
			fmt.Fprintf(&e.b, "        if !matches_format(&self.%v, %q) {\n", name, f.Format)
			fmt.Fprintf(&e.b, "            errors.push(ValidationError::new(%q, %q));\n", name, fmt.Sprintf("does not match format :%v", f.Format))
			fmt.Fprintf(&e.b, "        }\n")
		}
	}
	if len(d.Invariants) > 0 {
		e.selfFields = map[string]struct{}{}
		for _, f := range d.Fields {
			e.selfFields[f.Name] = struct{}{}
		}
		for _, inv := range d.Invariants {
			fmt.Fprintf(&e.b, "        if !(%v) {\n", e.exprStr(inv, 2))
			fmt.Fprintf(&e.b, "            errors.push(ValidationError::new(\"invariant\", %q));\n", exprDoc(inv))
			fmt.Fprintf(&e.b, "        }\n")
		}
		e.selfFields = nil
	}
	fmt.Fprintf(&e.b, "        if errors.is_empty() {\n")
	fmt.Fprintf(&e.b, "            Ok(())\n")
	fmt.Fprintf(&e.b, "        } else {\n")
	fmt.Fprintf(&e.b, "            Err(errors)\n")
	fmt.Fprintf(&e.b, "        }\n")
	fmt.Fprintf(&e.b, "    }\n")
	fmt.Fprintf(&e.b, "}\n\n")
}

func (e *emitter) emitEffectSetDef(d *spec.EffectSetDef) {
	fmt.Fprintf(&e.b, "/// Pact effect set `%v`.\n", d.Name)
	for _, eff := range d.Effects {
		fmt.Fprintf(&e.b, "/// %v %v\n", eff.Kind, eff.Resource)
	}
	fmt.Fprintf(&e.b, "pub trait %v {\n", pascalCase(d.Name))
	for _, eff := range d.Effects {
		res := snakeCase(eff.Resource)
		switch eff.Kind {
		case spec.EffectKindReads:
			fmt.Fprintf(&e.b, "    fn read_%v(&self, query: Query) -> Vec<Record>;\n", res)
		case spec.EffectKindWrites:
			fmt.Fprintf(&e.b, "    fn insert_%v(&mut self, record: Record);\n", res)
			fmt.Fprintf(&e.b, "    fn update_%v(&mut self, record: Record);\n", res)
		case spec.EffectKindSends:
			fmt.Fprintf(&e.b, "    fn send_%v(&mut self, message: Record);\n", res)
		}
	}
	fmt.Fprintf(&e.b, "}\n\n")
}

func (e *emitter) emitFnDef(d *spec.FnDef) {
	fnPascal := pascalCase(d.Name)

	// Inline record parameter shapes become named input structs.
	for _, p := range d.Params {
		if p.Type.IsRecord() {
			fmt.Fprintf(&e.b, "/// Input shape of `%v` parameter `%v`.\n", d.Name, p.Name)
			fmt.Fprintf(&e.b, "#[derive(Debug, Clone, PartialEq)]\n")
			fmt.Fprintf(&e.b, "pub struct %v {\n", fnPascal+pascalCase(p.Name))
			for _, rf := range p.Type.Record {
				fmt.Fprintf(&e.b, "    pub %v: %v,\n", snakeCase(rf.Name), rustType(rf.Type))
			}
			fmt.Fprintf(&e.b, "}\n\n")
		}
	}

	// Inline record ok payloads get a named struct too.
	for _, v := range d.Returns.Variants {
		if !v.Ok || v.PayloadType == nil || !v.PayloadType.IsRecord() {
			continue
		}
		fmt.Fprintf(&e.b, "/// Payload of the `%v` success variant.\n", d.Name)
		fmt.Fprintf(&e.b, "#[derive(Debug, Clone, PartialEq)]\n")
		fmt.Fprintf(&e.b, "pub struct %vOk {\n", fnPascal)
		for _, rf := range v.PayloadType.Record {
			fmt.Fprintf(&e.b, "    pub %v: %v,\n", snakeCase(rf.Name), rustType(rf.Type))
		}
		fmt.Fprintf(&e.b, "}\n\n")
		break
	}

	// Err payload shapes that carry fields become named payload structs.
	for _, v := range d.Returns.Variants {
		if v.Ok || v.PayloadShape == nil || v.PayloadShape.Kind != spec.FormKindMap || len(v.PayloadShape.Entries) == 0 {
			continue
		}
		fmt.Fprintf(&e.b, "/// Payload of the `%v` error variant `:%v`.\n", d.Name, v.Tag)
		fmt.Fprintf(&e.b, "#[derive(Debug, Clone, PartialEq)]\n")
		fmt.Fprintf(&e.b, "pub struct %v {\n", errPayloadStructName(d, v))
		for _, ent := range v.PayloadShape.Entries {
			fmt.Fprintf(&e.b, "    pub %v: %v,\n", snakeCase(keyName(ent.Key)), payloadFieldType(ent.Val))
		}
		fmt.Fprintf(&e.b, "}\n\n")
	}

	e.emitResultEnum(d)

	e.emitFnDoc(d)
	bounds := effectBounds(d)
	params := e.fnParams(d, bounds != "")
	if bounds == "" {
		fmt.Fprintf(&e.b, "pub fn %v(%v) -> %vResult {\n", snakeCase(d.Name), params, fnPascal)
	} else {
		fmt.Fprintf(&e.b, "pub fn %v<C: %v>(%v) -> %vResult {\n", snakeCase(d.Name), bounds, params, fnPascal)
	}
	e.curFn = d
	body := e.exprStr(d.Body, 1)
	e.curFn = nil
	fmt.Fprintf(&e.b, "    %v\n", body)
	fmt.Fprintf(&e.b, "}\n\n")
}

func (e *emitter) emitFnDoc(d *spec.FnDef) {
	fmt.Fprintf(&e.b, "/// Pact fn `%v`.\n", d.Name)
	for _, p := range d.Provenance {
		fmt.Fprintf(&e.b, "/// provenance: %v = %v\n", p.Key, p.Val)
	}
	if len(d.EffectSets) > 0 {
		fmt.Fprintf(&e.b, "/// effects: %v\n", strings.Join(d.EffectSets, ", "))
	}
	if d.Total {
		fmt.Fprintf(&e.b, "/// total: true\n")
	}
	if d.LatencyBudget != nil {
		fmt.Fprintf(&e.b, "/// latency-budget: %v\n", d.LatencyBudget)
	}
	if len(d.CalledBy) > 0 {
		fmt.Fprintf(&e.b, "/// called-by: %v\n", strings.Join(d.CalledBy, ", "))
	}
	if d.IdempotencyKey != nil {
		fmt.Fprintf(&e.b, "/// idempotency-key: %v\n", exprDoc(d.IdempotencyKey))
	}
	for _, p := range d.Params {
		if p.Source != "" || p.ContentType != "" || p.ValidatedAt != "" {
			var anns []string
			if p.Source != "" {
				anns = append(anns, fmt.Sprintf("source :%v", p.Source))
			}
			if p.ContentType != "" {
				anns = append(anns, fmt.Sprintf("content-type :%v", p.ContentType))
			}
			if p.ValidatedAt != "" {
				anns = append(anns, fmt.Sprintf("validated-at :%v", p.ValidatedAt))
			}
			fmt.Fprintf(&e.b, "/// param %v: %v\n", p.Name, strings.Join(anns, ", "))
		}
	}
}

func effectBounds(d *spec.FnDef) string {
	var bounds []string
	seen := map[string]struct{}{}
	for _, ref := range d.EffectSets {
		name := pascalCase(ref)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		bounds = append(bounds, name)
	}
	return strings.Join(bounds, " + ")
}

func (e *emitter) fnParams(d *spec.FnDef, hasCtx bool) string {
	var params []string
	if hasCtx {
		params = append(params, "ctx: &mut C")
	}
	for _, p := range d.Params {
		t := ""
		if p.Type.IsRecord() {
			t = pascalCase(d.Name) + pascalCase(p.Name)
		} else {
			t = rustType(p.Type.Name)
		}
		params = append(params, fmt.Sprintf("%v: %v", snakeCase(p.Name), t))
	}
	return strings.Join(params, ", ")
}

// variantName gives the deterministic enum variant name: Ok for the
// first success variant, Ok2/Ok3 for later ones, Err<Tag> per error.
func variantName(d *spec.FnDef, v *spec.Variant) string {
	if v.Ok {
		nth := 0
		for _, other := range d.Returns.Variants {
			if !other.Ok {
				continue
			}
			nth++
			if other == v {
				break
			}
		}
		if nth <= 1 {
			return "Ok"
		}
		return fmt.Sprintf("Ok%v", nth)
	}
	return "Err" + pascalCase(v.Tag)
}

func errPayloadStructName(d *spec.FnDef, v *spec.Variant) string {
	return pascalCase(d.Name) + pascalCase(v.Tag) + "Payload"
}

func keyName(key *spec.Form) string {
	if kw, ok := key.KeywordText(); ok {
		return kw
	}
	return key.String()
}

// payloadFieldType maps one entry of an err payload shape: a type
// symbol maps like any type reference, anything richer stays dynamic.
func payloadFieldType(val *spec.Form) string {
	if name, ok := val.SymbolText(); ok {
		return rustType(name)
	}
	return "Value"
}

// variantPayload returns the Rust payload type of a variant, or ""
// for unit variants.
func variantPayload(d *spec.FnDef, v *spec.Variant) string {
	if v.Ok {
		if v.PayloadType == nil {
			return ""
		}
		if v.PayloadType.IsRecord() {
			// Inline record ok payloads reuse the input-struct policy.
			return pascalCase(d.Name) + "Ok"
		}
		return rustType(v.PayloadType.Name)
	}
	shape := v.PayloadShape
	if shape == nil {
		return ""
	}
	switch shape.Kind {
	case spec.FormKindAtom:
		if name, ok := shape.SymbolText(); ok {
			return rustType(name)
		}
	case spec.FormKindMap:
		if len(shape.Entries) == 0 {
			return ""
		}
		return errPayloadStructName(d, v)
	case spec.FormKindList:
		if head, ok := shape.Head(); ok && head == "list" && len(shape.Children) == 2 {
			if elem, ok := shape.Children[1].SymbolText(); ok {
				return fmt.Sprintf("Vec<%v>", rustType(elem))
			}
		}
	}
	return "Value"
}

func (e *emitter) emitResultEnum(d *spec.FnDef) {
	enumName := pascalCase(d.Name) + "Result"
	fmt.Fprintf(&e.b, "/// Return union of `%v`.\n", d.Name)
	fmt.Fprintf(&e.b, "#[derive(Debug, Clone, PartialEq)]\n")
	fmt.Fprintf(&e.b, "pub enum %v {\n", enumName)
	for _, v := range d.Returns.Variants {
		name := variantName(d, v)
		payload := variantPayload(d, v)
		if payload == "" {
			fmt.Fprintf(&e.b, "    %v,\n", name)
		} else {
			fmt.Fprintf(&e.b, "    %v(%v),\n", name, payload)
		}
	}
	fmt.Fprintf(&e.b, "}\n\n")

	fmt.Fprintf(&e.b, "impl %v {\n", enumName)
	fmt.Fprintf(&e.b, "    pub fn http_status(&self) -> u16 {\n")
	fmt.Fprintf(&e.b, "        match self {\n")
	for _, v := range d.Returns.Variants {
		fmt.Fprintf(&e.b, "            %v => %v,\n", variantMatchPat(enumName, d, v), v.HTTP)
	}
	fmt.Fprintf(&e.b, "        }\n")
	fmt.Fprintf(&e.b, "    }\n\n")
	fmt.Fprintf(&e.b, "    pub fn describe(&self) -> &'static str {\n")
	fmt.Fprintf(&e.b, "        match self {\n")
	for _, v := range d.Returns.Variants {
		var desc string
		if v.Ok {
			desc = fmt.Sprintf("ok (%v)", v.HTTP)
			if v.Serialize != "" {
				desc = fmt.Sprintf("ok (%v, :%v)", v.HTTP, v.Serialize)
			}
		} else {
			desc = fmt.Sprintf("err :%v (%v)", v.Tag, v.HTTP)
		}
		fmt.Fprintf(&e.b, "            %v => %q,\n", variantMatchPat(enumName, d, v), desc)
	}
	fmt.Fprintf(&e.b, "        }\n")
	fmt.Fprintf(&e.b, "    }\n")
	fmt.Fprintf(&e.b, "}\n\n")
}

func variantMatchPat(enumName string, d *spec.FnDef, v *spec.Variant) string {
	name := variantName(d, v)
	if variantPayload(d, v) == "" {
		return fmt.Sprintf("%v::%v", enumName, name)
	}
	return fmt.Sprintf("%v::%v(..)", enumName, name)
}
