package spec

// Module is the root of the typed AST. Attribute maps that downstream
// tooling consumes verbatim (provenance, delta) keep their CST forms so
// nothing is reordered or re-typed on the way through.
type Module struct {
	Name          string
	Provenance    []*ProvEntry
	Version       *int64
	ParentVersion *int64
	Delta         *Form
	Decls         []Decl
	Pos           Position
}

type ProvEntry struct {
	Key string
	Val *Form
	Pos Position
}

type Decl interface {
	declNode()
	DeclName() string
	DeclPos() Position
}

type TypeDef struct {
	Name       string
	Invariants []Expr
	Fields     []*Field
	Pos        Position
}

func (d *TypeDef) declNode()         {}
func (d *TypeDef) DeclName() string  { return d.Name }
func (d *TypeDef) DeclPos() Position { return d.Pos }

type Field struct {
	Name         string
	Type         string
	Immutable    bool
	Generated    bool
	MinLen       *int64
	MaxLen       *int64
	Format       string
	UniqueWithin string
	Pos          Position
}

type EffectKind string

const (
	EffectKindReads  = EffectKind("reads")
	EffectKindWrites = EffectKind("writes")
	EffectKindSends  = EffectKind("sends")
)

type EffectSetDef struct {
	Name    string
	Effects []*Effect
	Pos     Position
}

func (d *EffectSetDef) declNode()         {}
func (d *EffectSetDef) DeclName() string  { return d.Name }
func (d *EffectSetDef) DeclPos() Position { return d.Pos }

type Effect struct {
	Kind     EffectKind
	Resource string
	Pos      Position
}

type FnDef struct {
	Name           string
	Provenance     []*ProvEntry
	EffectSets     []string
	EffectSetPos   []Position
	Total          bool
	LatencyBudget  *Duration
	CalledBy       []string
	IdempotencyKey Expr
	Params         []*Param
	Returns        *ReturnUnion
	Body           Expr
	Pos            Position
}

func (d *FnDef) declNode()         {}
func (d *FnDef) DeclName() string  { return d.Name }
func (d *FnDef) DeclPos() Position { return d.Pos }

// TypeRef is either an atomic type symbol or an inline record shape.
type TypeRef struct {
	Name   string
	Record []*RecordField
	Pos    Position
}

func (r *TypeRef) IsRecord() bool {
	return len(r.Record) > 0
}

type RecordField struct {
	Name string
	Type string
	Pos  Position
}

type Param struct {
	Name        string
	Type        *TypeRef
	Source      string
	ContentType string
	ValidatedAt string
	Pos         Position
}

type ReturnUnion struct {
	Variants []*Variant
	Pos      Position
}

type Variant struct {
	Ok           bool
	Tag          string
	PayloadType  *TypeRef
	PayloadShape *Form
	HTTP         int64
	Serialize    string
	Pos          Position
}

type Expr interface {
	exprNode()
	ExprPos() Position
}

type LetExpr struct {
	Bindings []*LetBinding
	Body     Expr
	Pos      Position
}

type LetBinding struct {
	Name  string
	Value Expr
	Pos   Position
}

type MatchExpr struct {
	Scrutinee Expr
	Arms      []*MatchArm
	Pos       Position
}

type MatchArm struct {
	Pattern Pattern
	Body    Expr
}

type IfExpr struct {
	Cond Expr
	Then Expr
	Else Expr
	Pos  Position
}

type CallExpr struct {
	Callee string
	Args   []Expr
	Pos    Position
}

// Qualified reports whether the callee is an ns/name reference to
// another module. Qualified calls are opaque to semantic analysis.
func (e *CallExpr) Qualified() bool {
	return isQualified(e.Callee)
}

type FieldAccessExpr struct {
	Obj   Expr
	Field string
	Pos   Position
}

type CtorKind string

const (
	CtorKindOk   = CtorKind("ok")
	CtorKindErr  = CtorKind("err")
	CtorKindSome = CtorKind("some")
	CtorKindNone = CtorKind("none")
)

type CtorExpr struct {
	Kind CtorKind
	Tag  string
	Args []Expr
	Pos  Position
}

type MapLitEntry struct {
	Key string
	Val Expr
	Pos Position
}

type MapLitExpr struct {
	Entries []*MapLitEntry
	Pos     Position
}

type VecLitExpr struct {
	Elems []Expr
	Pos   Position
}

// LitExpr carries a literal token: integer, string, boolean, duration,
// regex, or keyword.
type LitExpr struct {
	Token *Token
}

// RefExpr is a bare symbol in expression position: a local binding, a
// parameter, an in-module declaration, or a qualified external name.
type RefExpr struct {
	Name string
	Pos  Position
}

func (e *RefExpr) Qualified() bool {
	return isQualified(e.Name)
}

func (e *LetExpr) exprNode()         {}
func (e *MatchExpr) exprNode()       {}
func (e *IfExpr) exprNode()          {}
func (e *CallExpr) exprNode()        {}
func (e *FieldAccessExpr) exprNode() {}
func (e *CtorExpr) exprNode()        {}
func (e *MapLitExpr) exprNode()      {}
func (e *VecLitExpr) exprNode()      {}
func (e *LitExpr) exprNode()         {}
func (e *RefExpr) exprNode()         {}

func (e *LetExpr) ExprPos() Position         { return e.Pos }
func (e *MatchExpr) ExprPos() Position       { return e.Pos }
func (e *IfExpr) ExprPos() Position          { return e.Pos }
func (e *CallExpr) ExprPos() Position        { return e.Pos }
func (e *FieldAccessExpr) ExprPos() Position { return e.Pos }
func (e *CtorExpr) ExprPos() Position        { return e.Pos }
func (e *MapLitExpr) ExprPos() Position      { return e.Pos }
func (e *VecLitExpr) ExprPos() Position      { return e.Pos }
func (e *LitExpr) ExprPos() Position         { return e.Token.Pos }
func (e *RefExpr) ExprPos() Position         { return e.Pos }

type Pattern interface {
	patternNode()
	PatPos() Position
}

type CtorPattern struct {
	Kind CtorKind
	Tag  string
	Subs []Pattern
	Pos  Position
}

type BindingPattern struct {
	Name string
	Pos  Position
}

type WildcardPattern struct {
	Pos Position
}

func (p *CtorPattern) patternNode()     {}
func (p *BindingPattern) patternNode()  {}
func (p *WildcardPattern) patternNode() {}

func (p *CtorPattern) PatPos() Position     { return p.Pos }
func (p *BindingPattern) PatPos() Position  { return p.Pos }
func (p *WildcardPattern) PatPos() Position { return p.Pos }

func isQualified(name string) bool {
	for _, c := range name {
		if c == '/' {
			return true
		}
	}
	return false
}
