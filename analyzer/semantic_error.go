package analyzer

import "errors"

var (
	semErrDuplicateDecl      = errors.New("duplicate declaration")
	semErrDuplicateField     = errors.New("field names must be unique within a type")
	semErrDuplicateParam     = errors.New("parameter names must be unique within a fn")
	semErrUnresolvedSymbol   = errors.New("unresolved symbol")
	semErrUnknownEffectSet   = errors.New("unknown effect set")
	semErrEffectEscape       = errors.New("effect escape")
	semErrNonExhaustiveMatch = errors.New("non-exhaustive match")

	semWarnUnknownDomain  = errors.New("cannot prove the scrutinee's variant universe finite")
	semWarnUnreachableArm = errors.New("unreachable arm")
)
