package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactlang/pactc/analyzer"
	"github.com/pactlang/pactc/spec"
)

const userServiceYAML = `spec: user-service
title: User service
owner: team-identity
domain:
  user:
    - id: id, immutable, generated
    - name: string, required, max length 80
    - email: string, required, format email, unique
endpoints:
  create-user:
    description: Create a user account
    input:
      email: string
      name: string
    outputs:
      - ok user, created
      - err validation, invalid
      - err conflict, conflict
    constraints:
      - reads user-store
      - writes user-store
  ping:
    description: Liveness probe
    outputs:
      - ok, ok
quality:
  latency-budget: 50ms
traceability:
  requirement: REQ-1
`

func TestLoad_PreservesOrder(t *testing.T) {
	doc, err := Load(strings.NewReader(userServiceYAML))
	require.NoError(t, err)

	assert.Equal(t, "user-service", doc.Spec)
	assert.Equal(t, "User service", doc.Title)
	assert.Equal(t, "team-identity", doc.Owner)

	require.Len(t, doc.Domain, 1)
	fields := doc.Domain[0].Fields
	require.Len(t, fields, 3)
	assert.Equal(t, "id", fields[0].Name)
	assert.Equal(t, "name", fields[1].Name)
	assert.Equal(t, "email", fields[2].Name)

	require.Len(t, doc.Endpoints, 2)
	assert.Equal(t, "create-user", doc.Endpoints[0].Name)
	assert.Equal(t, "ping", doc.Endpoints[1].Name)
	require.Len(t, doc.Endpoints[0].Input, 2)
	assert.Equal(t, "email", doc.Endpoints[0].Input[0].Key)
}

func TestGenerate_EmitsPactSource(t *testing.T) {
	doc, err := Load(strings.NewReader(userServiceYAML))
	require.NoError(t, err)
	out, err := Generate(doc)
	require.NoError(t, err)

	assert.Contains(t, out, "(module user-service")
	assert.Contains(t, out, `:provenance {:spec "user-service" :title "User service" :owner "team-identity" :requirement "REQ-1"}`)
	assert.Contains(t, out, "(type user")
	assert.Contains(t, out, "(field id Id :immutable :generated)")
	assert.Contains(t, out, "(field name String :max-len 80 :min-len 1)")
	assert.Contains(t, out, "(field email String :format :email :unique-within user :min-len 1)")
	assert.Contains(t, out, "(fn create-user")
	assert.Contains(t, out, ":effects [create-user-effects]")
	assert.Contains(t, out, ":latency-budget 50ms")
	assert.Contains(t, out, "(param input {:email String :name String} :source :body)")
	assert.Contains(t, out, "(ok user :http 201)")
	assert.Contains(t, out, "(err :validation {} :http 422)")
	assert.Contains(t, out, "(err :conflict {} :http 409)")
	assert.Contains(t, out, "(effect-set create-user-effects [:reads user-store :writes user-store])")
	assert.Contains(t, out, "(ok (build user {:email (. input email) :name (. input name)}))")
	assert.Contains(t, out, "(fn ping")
	assert.Contains(t, out, "(ok :http 200)")
}

// A generated module must survive the full frontend and semantic
// analysis without diagnostics.
func TestGenerate_RoundTripsThroughThePipeline(t *testing.T) {
	doc, err := Load(strings.NewReader(userServiceYAML))
	require.NoError(t, err)
	out, err := Generate(doc)
	require.NoError(t, err)

	mod, err := spec.ParseModule(strings.NewReader(out))
	require.NoError(t, err)
	an, err := analyzer.Analyze(mod)
	require.NoError(t, err)
	assert.Empty(t, an.Warnings)
	assert.Len(t, an.Types, 1)
	assert.Len(t, an.Fns, 2)
}

func TestGenerate_Deterministic(t *testing.T) {
	doc, err := Load(strings.NewReader(userServiceYAML))
	require.NoError(t, err)
	first, err := Generate(doc)
	require.NoError(t, err)
	second, err := Generate(doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		wantErr string
	}{
		{
			caption: "an empty document is rejected",
			src:     "",
			wantErr: "empty",
		},
		{
			caption: "a document without a spec name is rejected",
			src:     "title: nope\n",
			wantErr: "spec name",
		},
		{
			caption: "an unknown top-level key is rejected",
			src:     "spec: s\nbogus: x\n",
			wantErr: "unknown top-level key",
		},
		{
			caption: "an endpoint needs outputs",
			src:     "spec: s\nendpoints:\n  f:\n    description: d\n",
			wantErr: "at least one output",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGenerate_PhraseErrors(t *testing.T) {
	doc, err := Load(strings.NewReader(`spec: s
domain:
  user:
    - name: varchar, required
`))
	require.NoError(t, err)
	_, err = Generate(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field type "varchar"`)

	doc, err = Load(strings.NewReader(`spec: s
endpoints:
  f:
    outputs:
      - maybe something
`))
	require.NoError(t, err)
	_, err = Generate(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output phrase")
}
