package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verr "github.com/pactlang/pactc/error"
	"github.com/pactlang/pactc/spec"
)

func analyzeString(t *testing.T, src string) (*Analysis, error) {
	t.Helper()
	mod, err := spec.ParseModule(strings.NewReader(src))
	require.NoError(t, err, "the frontend must accept the fixture")
	return Analyze(mod)
}

func requireSemErr(t *testing.T, err error, want error) *verr.SpecError {
	t.Helper()
	require.Error(t, err)
	specErrs, ok := err.(verr.SpecErrors)
	require.True(t, ok, "unexpected error type: %T", err)
	for _, e := range specErrs {
		if e.Cause == want {
			return e
		}
	}
	t.Fatalf("no diagnostic with cause %v in %v", want, specErrs)
	return nil
}

const minimalModule = `
(module m
  (type t (field x String))
  (effect-set e [:reads s])
  (fn f
    :effects [e]
    :total true
    (returns (union (ok t :http 200)))
    (ok (build t {:x "hi"}))))
`

func TestAnalyze_MinimalModule(t *testing.T) {
	an, err := analyzeString(t, minimalModule)
	require.NoError(t, err)
	assert.Empty(t, an.Warnings)
	assert.Len(t, an.Types, 1)
	assert.Len(t, an.EffectSets, 1)
	assert.Len(t, an.Fns, 1)
}

func TestAnalyze_DuplicateDeclaration(t *testing.T) {
	_, err := analyzeString(t, `
(module m
  (type t (field x String))
  (type t (field y String)))
`)
	e := requireSemErr(t, err, semErrDuplicateDecl)
	assert.Equal(t, "t", e.Detail)
}

func TestAnalyze_DuplicateFieldAndParam(t *testing.T) {
	_, err := analyzeString(t, `
(module m
  (type t (field x String) (field x Int)))
`)
	requireSemErr(t, err, semErrDuplicateField)

	_, err = analyzeString(t, `
(module m
  (fn f
    (param a Id)
    (param a Id)
    (returns (union (ok :http 200)))
    (ok)))
`)
	requireSemErr(t, err, semErrDuplicateParam)
}

func TestAnalyze_UnknownEffectSet(t *testing.T) {
	_, err := analyzeString(t, `
(module m
  (type t (field x String))
  (fn f
    :effects [missing]
    (returns (union (ok t :http 200)))
    (ok (build t {:x "hi"}))))
`)
	e := requireSemErr(t, err, semErrUnknownEffectSet)
	assert.Equal(t, "missing", e.Detail)
}

func TestAnalyze_UnresolvedSymbol(t *testing.T) {
	_, err := analyzeString(t, `
(module m
  (fn f
    (returns (union (ok :http 200)))
    (ok nobody)))
`)
	e := requireSemErr(t, err, semErrUnresolvedSymbol)
	assert.Equal(t, "nobody", e.Detail)
}

func TestAnalyze_ScopeChain(t *testing.T) {
	// Params, let bindings, and match-arm bindings all resolve;
	// qualified names stay opaque.
	an, err := analyzeString(t, `
(module m
  (effect-set e [:reads s])
  (fn g
    :effects [e]
    (returns (union (ok :http 200) (err :nope {} :http 404)))
    (ok))
  (fn f
    :effects [e]
    (param input {email String})
    (returns (union (ok :http 200)))
    (let [r (g)]
      (match r
        (ok v) (ok)
        (err :nope b) (ext/report b (. input email))
        _ (ok)))))
`)
	require.NoError(t, err)
	assert.Empty(t, an.Warnings)
}

func TestAnalyze_MatchBindingScopedToArm(t *testing.T) {
	_, err := analyzeString(t, `
(module m
  (fn g (returns (union (ok :http 200))) (ok))
  (fn f
    (returns (union (ok :http 200)))
    (let [r (g)]
      (match r
        (ok v) (ok)
        _ (ok v)))))
`)
	requireSemErr(t, err, semErrUnresolvedSymbol)
}

func TestAnalyze_LetBindingVisibleToLaterBindings(t *testing.T) {
	_, err := analyzeString(t, `
(module m
  (fn f
    (returns (union (ok :http 200)))
    (let [a 1
          b (inc a)]
      (ok))))
`)
	require.NoError(t, err)
}

func TestAnalyze_EffectEscape(t *testing.T) {
	_, err := analyzeString(t, `
(module m
  (effect-set db-read [:reads user-store])
  (effect-set db-write [:writes user-store])
  (fn b
    :effects [db-write]
    (returns (union (ok :http 200)))
    (ok))
  (fn a
    :effects [db-read]
    (returns (union (ok :http 200)))
    (let [r (b)] (ok))))
`)
	e := requireSemErr(t, err, semErrEffectEscape)
	assert.Contains(t, e.Detail, "a calls b")
	assert.Contains(t, e.Detail, "writes user-store")
}

func TestAnalyze_EffectSubsumptionAllowsCall(t *testing.T) {
	_, err := analyzeString(t, `
(module m
  (effect-set db-read [:reads user-store])
  (effect-set db-all [:reads user-store :writes user-store])
  (fn b
    :effects [db-read]
    (returns (union (ok :http 200)))
    (ok))
  (fn a
    :effects [db-all]
    (returns (union (ok :http 200)))
    (let [r (b)] (ok))))
`)
	require.NoError(t, err)
}

func TestAnalyze_QualifiedCalleesAreOpaque(t *testing.T) {
	_, err := analyzeString(t, `
(module m
  (fn a
    (returns (union (ok :http 200)))
    (let [r (other/expensive-write 1)] (ok))))
`)
	require.NoError(t, err)
}
