package emitter

import "strings"

// snakeCase translates a Pact kebab-case identifier into the target's
// value convention. The ?/! decorations Pact permits carry no meaning
// on the target side and are dropped.
func snakeCase(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch c {
		case '-', '.':
			b.WriteRune('_')
		case '?', '!':
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// pascalCase translates a Pact identifier into the target's type
// convention: db-read becomes DbRead.
func pascalCase(name string) string {
	var b strings.Builder
	upper := true
	for _, c := range name {
		switch c {
		case '-', '_', '.', '?', '!':
			upper = true
		default:
			if upper {
				b.WriteString(strings.ToUpper(string(c)))
				upper = false
			} else {
				b.WriteRune(c)
			}
		}
	}
	return b.String()
}

// qualifiedPath rewrites an ns/name reference into a target path.
func qualifiedPath(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = snakeCase(p)
	}
	return strings.Join(parts, "::")
}

var scalarTypes = map[string]string{
	"String":    "String",
	"Int":       "i64",
	"Bool":      "bool",
	"Timestamp": "i64",
	"Id":        "String",
	"Uuid":      "String",
	"Decimal":   "f64",
	"Unit":      "()",
}

// rustType maps a Pact type symbol to a target type: scalars by table,
// everything else to the PascalCase record type the module declares.
func rustType(name string) string {
	if t, ok := scalarTypes[name]; ok {
		return t
	}
	return pascalCase(name)
}
