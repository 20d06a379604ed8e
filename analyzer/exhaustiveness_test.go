package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verr "github.com/pactlang/pactc/error"
)

func TestExhaustiveness_NonExhaustiveMatch(t *testing.T) {
	_, err := analyzeString(t, `
(module m
  (type t (field x String))
  (fn g
    (returns (union (ok t :http 200) (err :bad {} :http 400)))
    (ok (build t {:x "hi"})))
  (fn f
    :total true
    (returns (union (ok t :http 200)))
    (let [x (g)]
      (match x
        (ok v) (ok v)))))
`)
	e := requireSemErr(t, err, semErrNonExhaustiveMatch)
	assert.Equal(t, "[err :bad]", e.Detail)
}

func TestExhaustiveness_WildcardCoversEverything(t *testing.T) {
	an, err := analyzeString(t, `
(module m
  (type t (field x String))
  (fn g
    (returns (union (ok t :http 200) (err :bad {} :http 400)))
    (ok (build t {:x "hi"})))
  (fn f
    :total true
    (returns (union (ok t :http 200)))
    (match (g)
      (ok v) (ok v)
      _ (ok (build t {:x "fallback"})))))
`)
	require.NoError(t, err)
	assert.Empty(t, an.Warnings)
}

func TestExhaustiveness_UntaggedErrCoversAllErrVariants(t *testing.T) {
	an, err := analyzeString(t, `
(module m
  (type t (field x String))
  (fn g
    (returns (union (ok t :http 200) (err :bad {} :http 400) (err :worse {} :http 500)))
    (ok (build t {:x "hi"})))
  (fn f
    :total true
    (returns (union (ok t :http 200)))
    (match (g)
      (ok v) (ok v)
      (err _) (ok (build t {:x "fallback"})))))
`)
	require.NoError(t, err)
	assert.Empty(t, an.Warnings)
}

func TestExhaustiveness_TaggedArmsMustCoverEveryTag(t *testing.T) {
	_, err := analyzeString(t, `
(module m
  (type t (field x String))
  (fn g
    (returns (union (ok t :http 200) (err :bad {} :http 400) (err :worse {} :http 500)))
    (ok (build t {:x "hi"})))
  (fn f
    :total true
    (returns (union (ok t :http 200)))
    (match (g)
      (ok v) (ok v)
      (err :bad e) (ok (build t {:x "fallback"})))))
`)
	e := requireSemErr(t, err, semErrNonExhaustiveMatch)
	assert.Equal(t, "[err :worse]", e.Detail)
}

func TestExhaustiveness_UnknownDomainIsAWarning(t *testing.T) {
	an, err := analyzeString(t, `
(module m
  (type t (field x String))
  (fn f
    :total true
    (param raw String)
    (returns (union (ok t :http 200)))
    (match (ext/fetch raw)
      (ok v) (ok (build t {:x "hi"}))
      _ (ok (build t {:x "fallback"})))))
`)
	require.NoError(t, err)
	require.Len(t, an.Warnings, 1)
	assert.Equal(t, semWarnUnknownDomain, an.Warnings[0].Cause)
	assert.Equal(t, verr.SeverityWarning, an.Warnings[0].Severity)
}

func TestExhaustiveness_UnreachableArmIsAWarning(t *testing.T) {
	an, err := analyzeString(t, `
(module m
  (type t (field x String))
  (fn g
    (returns (union (ok t :http 200) (err :bad {} :http 400)))
    (ok (build t {:x "hi"})))
  (fn f
    :total true
    (returns (union (ok t :http 200)))
    (match (g)
      _ (ok (build t {:x "fallback"}))
      (ok v) (ok v))))
`)
	require.NoError(t, err)
	require.Len(t, an.Warnings, 1)
	assert.Equal(t, semWarnUnreachableArm, an.Warnings[0].Cause)
}

func TestExhaustiveness_OnlyTotalFunctionsAreChecked(t *testing.T) {
	an, err := analyzeString(t, `
(module m
  (type t (field x String))
  (fn g
    (returns (union (ok t :http 200) (err :bad {} :http 400)))
    (ok (build t {:x "hi"})))
  (fn f
    (returns (union (ok t :http 200)))
    (match (g)
      (ok v) (ok v))))
`)
	require.NoError(t, err)
	assert.Empty(t, an.Warnings)
}

func TestExhaustiveness_RebindingLosesTheUnion(t *testing.T) {
	// Shadowing a tracked binding with an opaque value downgrades the
	// match to the unknown-domain warning instead of a wrong error.
	an, err := analyzeString(t, `
(module m
  (type t (field x String))
  (fn g
    (returns (union (ok t :http 200) (err :bad {} :http 400)))
    (ok (build t {:x "hi"})))
  (fn f
    :total true
    (returns (union (ok t :http 200)))
    (let [x (g)]
      (let [x (ext/wrap x)]
        (match x
          (ok v) (ok v)
          _ (ok (build t {:x "fallback"})))))))
`)
	require.NoError(t, err)
	require.Len(t, an.Warnings, 1)
	assert.Equal(t, semWarnUnknownDomain, an.Warnings[0].Cause)
}
