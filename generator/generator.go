// Package generator turns a YAML SpecDoc into Pact source. The phrase
// set it accepts is deliberately small: field descriptors and
// constraints are restricted English, listed in SPEC_FULL.md (section 7).
package generator

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pactlang/pactc/spec"
)

type kv struct {
	Key string
	Val string
}

type FieldDesc struct {
	Name   string
	Phrase string
}

type DomainType struct {
	Name   string
	Fields []*FieldDesc
}

type Endpoint struct {
	Name        string
	Description string
	Input       []kv
	Outputs     []string
	Constraints []string
}

// SpecDoc is the parsed YAML document. Mapping order is preserved so
// generated Pact source is deterministic.
type SpecDoc struct {
	Spec         string
	Title        string
	Owner        string
	Domain       []*DomainType
	Endpoints    []*Endpoint
	Quality      []kv
	Traceability []kv
}

// Load decodes a SpecDoc through the yaml node API; a plain Unmarshal
// would lose mapping order.
func Load(r io.Reader) (*SpecDoc, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("the spec document is empty")
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("the spec document must be a mapping")
	}

	doc := &SpecDoc{}
	for i := 0; i < len(top.Content); i += 2 {
		key := top.Content[i].Value
		val := top.Content[i+1]
		switch key {
		case "spec":
			doc.Spec = val.Value
		case "title":
			doc.Title = val.Value
		case "owner":
			doc.Owner = val.Value
		case "domain":
			types, err := loadDomain(val)
			if err != nil {
				return nil, err
			}
			doc.Domain = types
		case "endpoints":
			eps, err := loadEndpoints(val)
			if err != nil {
				return nil, err
			}
			doc.Endpoints = eps
		case "quality":
			doc.Quality = loadPairs(val)
		case "traceability":
			doc.Traceability = loadPairs(val)
		default:
			return nil, fmt.Errorf("unknown top-level key %q", key)
		}
	}
	if doc.Spec == "" {
		return nil, fmt.Errorf("the spec document needs a spec name")
	}
	return doc, nil
}

func loadDomain(node *yaml.Node) ([]*DomainType, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("domain must be a mapping of type name to field list")
	}
	var types []*DomainType
	for i := 0; i < len(node.Content); i += 2 {
		t := &DomainType{
			Name: node.Content[i].Value,
		}
		fields := node.Content[i+1]
		if fields.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("domain type %q must hold a field list", t.Name)
		}
		for _, f := range fields.Content {
			if f.Kind != yaml.MappingNode || len(f.Content) != 2 {
				return nil, fmt.Errorf("each field of %q must be one `name: descriptor` pair", t.Name)
			}
			t.Fields = append(t.Fields, &FieldDesc{
				Name:   f.Content[0].Value,
				Phrase: f.Content[1].Value,
			})
		}
		types = append(types, t)
	}
	return types, nil
}

func loadEndpoints(node *yaml.Node) ([]*Endpoint, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("endpoints must be a mapping of endpoint name to descriptor")
	}
	var eps []*Endpoint
	for i := 0; i < len(node.Content); i += 2 {
		ep := &Endpoint{
			Name: node.Content[i].Value,
		}
		body := node.Content[i+1]
		if body.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("endpoint %q must be a mapping", ep.Name)
		}
		for j := 0; j < len(body.Content); j += 2 {
			key := body.Content[j].Value
			val := body.Content[j+1]
			switch key {
			case "description":
				ep.Description = val.Value
			case "input":
				ep.Input = loadPairs(val)
			case "outputs":
				for _, o := range val.Content {
					ep.Outputs = append(ep.Outputs, o.Value)
				}
			case "constraints":
				for _, c := range val.Content {
					ep.Constraints = append(ep.Constraints, c.Value)
				}
			default:
				return nil, fmt.Errorf("unknown key %q on endpoint %q", key, ep.Name)
			}
		}
		if len(ep.Outputs) == 0 {
			return nil, fmt.Errorf("endpoint %q needs at least one output", ep.Name)
		}
		eps = append(eps, ep)
	}
	return eps, nil
}

func loadPairs(node *yaml.Node) []kv {
	var pairs []kv
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(node.Content); i += 2 {
		pairs = append(pairs, kv{
			Key: node.Content[i].Value,
			Val: node.Content[i+1].Value,
		})
	}
	return pairs
}

var fieldTypes = map[string]string{
	"string":    "String",
	"int":       "Int",
	"bool":      "Bool",
	"id":        "Id",
	"timestamp": "Timestamp",
}

var httpWords = map[string]int{
	"ok":           200,
	"created":      201,
	"accepted":     202,
	"invalid":      422,
	"not found":    404,
	"conflict":     409,
	"unauthorized": 401,
	"forbidden":    403,
	"error":        500,
}

// Generate emits Pact source for the document and round-trips it
// through the frontend before returning; generated source that draws
// any diagnostic is returned as an error, never as output.
func Generate(doc *SpecDoc) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "(module %v\n", doc.Spec)
	fmt.Fprintf(&b, "  :provenance {")
	prov := []kv{{Key: "spec", Val: doc.Spec}}
	if doc.Title != "" {
		prov = append(prov, kv{Key: "title", Val: doc.Title})
	}
	if doc.Owner != "" {
		prov = append(prov, kv{Key: "owner", Val: doc.Owner})
	}
	prov = append(prov, doc.Traceability...)
	for i, p := range prov {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, ":%v %q", p.Key, p.Val)
	}
	b.WriteString("}\n")

	for _, t := range doc.Domain {
		if err := writeType(&b, t); err != nil {
			return "", err
		}
	}
	for _, ep := range doc.Endpoints {
		if err := writeEndpoint(&b, doc, ep); err != nil {
			return "", err
		}
	}
	b.WriteString(")\n")

	src := b.String()
	if _, err := spec.ParseModule(strings.NewReader(src)); err != nil {
		return "", fmt.Errorf("generated source failed validation: %w", err)
	}
	return src, nil
}

func writeType(b *strings.Builder, t *DomainType) error {
	fmt.Fprintf(b, "  (type %v\n", t.Name)
	for i, f := range t.Fields {
		attrs, err := fieldAttrs(t, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "    (field %v%v)", f.Name, attrs)
		if i < len(t.Fields)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString(")\n")
	return nil
}

// fieldAttrs parses a restricted-English field descriptor: a type word
// followed by comma-separated flags and constraints.
func fieldAttrs(t *DomainType, f *FieldDesc) (string, error) {
	parts := strings.Split(f.Phrase, ",")
	typeWord := strings.TrimSpace(parts[0])
	typeName, ok := fieldTypes[typeWord]
	if !ok {
		return "", fmt.Errorf("unknown field type %q on %v.%v", typeWord, t.Name, f.Name)
	}

	attrs := " " + typeName
	sawMinLen := false
	required := false
	for _, raw := range parts[1:] {
		phrase := strings.TrimSpace(raw)
		switch {
		case phrase == "required":
			required = true
		case phrase == "immutable":
			attrs += " :immutable"
		case phrase == "generated":
			attrs += " :generated"
		case phrase == "unique":
			attrs += fmt.Sprintf(" :unique-within %v", t.Name)
		case strings.HasPrefix(phrase, "min length "):
			n, err := phraseNumber(phrase, "min length ")
			if err != nil {
				return "", fmt.Errorf("%v on %v.%v", err, t.Name, f.Name)
			}
			attrs += fmt.Sprintf(" :min-len %v", n)
			sawMinLen = true
		case strings.HasPrefix(phrase, "max length "):
			n, err := phraseNumber(phrase, "max length ")
			if err != nil {
				return "", fmt.Errorf("%v on %v.%v", err, t.Name, f.Name)
			}
			attrs += fmt.Sprintf(" :max-len %v", n)
		case strings.HasPrefix(phrase, "format "):
			attrs += fmt.Sprintf(" :format :%v", strings.TrimSpace(strings.TrimPrefix(phrase, "format ")))
		default:
			return "", fmt.Errorf("unknown field phrase %q on %v.%v", phrase, t.Name, f.Name)
		}
	}
	if required && !sawMinLen && typeName == "String" {
		attrs += " :min-len 1"
	}
	return attrs, nil
}

func phraseNumber(phrase, prefix string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(phrase, prefix)))
	if err != nil {
		return 0, fmt.Errorf("the phrase %q needs a number", phrase)
	}
	return n, nil
}

func writeEndpoint(b *strings.Builder, doc *SpecDoc, ep *Endpoint) error {
	fmt.Fprintf(b, "  (fn %v\n", ep.Name)
	if ep.Description != "" {
		fmt.Fprintf(b, "    :provenance {:description %q}\n", ep.Description)
	}

	effects, err := effectPairs(ep)
	if err != nil {
		return err
	}
	if effects != "" {
		// One effect set per endpoint keeps the generated module flat.
		fmt.Fprintf(b, "    :effects [%v-effects]\n", ep.Name)
	}
	for _, q := range doc.Quality {
		if q.Key == "latency-budget" {
			fmt.Fprintf(b, "    :latency-budget %v\n", q.Val)
		}
	}

	if len(ep.Input) > 0 {
		fmt.Fprintf(b, "    (param input {")
		for i, in := range ep.Input {
			if i > 0 {
				b.WriteString(" ")
			}
			typeName, ok := fieldTypes[strings.TrimSpace(in.Val)]
			if !ok {
				typeName = in.Val
			}
			fmt.Fprintf(b, ":%v %v", in.Key, typeName)
		}
		b.WriteString("} :source :body)\n")
	}

	variants, okType, err := outputVariants(doc, ep)
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "    (returns (union %v))\n", variants)

	fmt.Fprintf(b, "    %v)\n", endpointBody(ep, okType))

	if effects != "" {
		fmt.Fprintf(b, "  (effect-set %v-effects [%v])\n", ep.Name, effects)
	}
	return nil
}

func effectPairs(ep *Endpoint) (string, error) {
	var pairs []string
	for _, c := range ep.Constraints {
		fields := strings.Fields(c)
		if len(fields) != 2 {
			return "", fmt.Errorf("unknown constraint %q on endpoint %v", c, ep.Name)
		}
		switch fields[0] {
		case "reads", "writes", "sends":
			pairs = append(pairs, fmt.Sprintf(":%v %v", fields[0], fields[1]))
		default:
			return "", fmt.Errorf("unknown constraint %q on endpoint %v", c, ep.Name)
		}
	}
	return strings.Join(pairs, " "), nil
}

// outputVariants parses output phrases of the shape "ok <type>,
// <status>" and "err <tag>, <status>".
func outputVariants(doc *SpecDoc, ep *Endpoint) (string, string, error) {
	var variants []string
	okType := ""
	for _, o := range ep.Outputs {
		parts := strings.SplitN(o, ",", 2)
		head := strings.Fields(strings.TrimSpace(parts[0]))
		status := ""
		if len(parts) == 2 {
			status = strings.TrimSpace(parts[1])
		}
		switch {
		case len(head) >= 1 && head[0] == "ok":
			code := httpWord(status, 200)
			if len(head) == 2 {
				okType = head[1]
				variants = append(variants, fmt.Sprintf("(ok %v :http %v)", head[1], code))
			} else {
				variants = append(variants, fmt.Sprintf("(ok :http %v)", code))
			}
		case len(head) == 2 && head[0] == "err":
			code := httpWord(status, 500)
			variants = append(variants, fmt.Sprintf("(err :%v {} :http %v)", head[1], code))
		default:
			return "", "", fmt.Errorf("unknown output phrase %q on endpoint %v", o, ep.Name)
		}
	}
	return strings.Join(variants, " "), okType, nil
}

func httpWord(status string, fallback int) int {
	if code, ok := httpWords[status]; ok {
		return code
	}
	if n, err := strconv.Atoi(status); err == nil && n >= 100 && n <= 599 {
		return n
	}
	return fallback
}

// endpointBody produces the scaffold body: build the ok payload type
// from the input fields (with an empty map when there is no input), or
// a bare (ok) when no ok output names a payload type.
func endpointBody(ep *Endpoint, okType string) string {
	if okType == "" {
		return "(ok)"
	}
	if len(ep.Input) == 0 {
		return fmt.Sprintf("(ok (build %v {}))", okType)
	}
	var fields []string
	for _, in := range ep.Input {
		fields = append(fields, fmt.Sprintf(":%v (. input %v)", in.Key, in.Key))
	}
	return fmt.Sprintf("(ok (build %v {%v}))", okType, strings.Join(fields, " "))
}
