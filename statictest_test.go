package docrep

// Hand-written StaticField/StaticStore/StaticDocument fixtures for
// core-package tests. These mirror what a caller would write by hand
// against the §4.2 interfaces directly — no reflection, no tags —
// since the core package's own tests shouldn't depend on the
// docrep/schema convenience layer.

type testField struct {
	name, serial string
	kind         FieldKind
	mode         FieldMode
	prim         PrimitiveType
	isSlice      bool
	isColl       bool
	isSelfPtr    bool
	pointedTo    string
	set          func(target any, value any)
}

func (f *testField) Name() string                 { return f.name }
func (f *testField) SerialName() string           { return f.serial }
func (f *testField) Kind() FieldKind              { return f.kind }
func (f *testField) Mode() FieldMode              { return f.mode }
func (f *testField) PrimitiveType() PrimitiveType { return f.prim }
func (f *testField) IsSlice() bool                { return f.isSlice }
func (f *testField) IsCollection() bool           { return f.isColl }
func (f *testField) IsSelfPointer() bool          { return f.isSelfPtr }
func (f *testField) PointedToClass() string       { return f.pointedTo }
func (f *testField) Set(target any, value any)    { f.set(target, value) }

// --- Scenario 1/2/6: a document declaring nothing at all. ---

type emptyDoc struct{}

func (emptyDoc) Stores() []StaticStore            { return nil }
func (emptyDoc) Schemas() []StaticAnnotationClass { return nil }
func (emptyDoc) Fields() []StaticField            { return nil }
func (emptyDoc) NewDocument() any                 { return &struct{}{} }

// --- Scenario 3: a document with one static string field. ---

type titleDocValue struct {
	Title string
}

type titleDoc struct{}

func (titleDoc) Stores() []StaticStore            { return nil }
func (titleDoc) Schemas() []StaticAnnotationClass { return nil }
func (titleDoc) Fields() []StaticField {
	return []StaticField{
		&testField{
			name: "Title", serial: "title", kind: KindPrimitive, prim: PrimString,
			set: func(target any, value any) { target.(*titleDocValue).Title = value.(string) },
		},
	}
}
func (titleDoc) NewDocument() any { return &titleDocValue{} }

// --- Scenarios 4/5/6: a document with a "tokens" store of Token
// annotations, and a pointer/pointer-slice field targeting it. ---

type token struct {
	Text string
	Next *token
}

type tokenClass struct{}

func (tokenClass) SerialName() string { return "Token" }
func (tokenClass) Fields() []StaticField {
	return []StaticField{
		&testField{
			name: "Text", serial: "text", kind: KindPrimitive, prim: PrimString,
			set: func(target any, value any) { target.(*token).Text = value.(string) },
		},
	}
}

type tokenStore struct {
	items []*token
}

func (s *tokenStore) Name() string        { return "Tokens" }
func (s *tokenStore) SerialName() string  { return "tokens" }
func (s *tokenStore) StoredClass() string { return "Token" }
func (s *tokenStore) Resize(n int, document any) {
	s.items = make([]*token, n)
	for i := range s.items {
		s.items[i] = &token{}
	}
}
func (s *tokenStore) At(i int) any { return s.items[i] }

type tokensDocValue struct {
	TokensPointer *token
	TokensSlice   PointerSlice
	TokensSelfPtr *token
}

// tokensDoc's Fields() is parameterized per test by which field kind
// is under test, since a single frame only ever carries one "tokens"
// pointer field in these fixtures.
type tokensDoc struct {
	store *tokenStore
	field *testField
}

func (d *tokensDoc) Stores() []StaticStore            { return []StaticStore{d.store} }
func (d *tokensDoc) Schemas() []StaticAnnotationClass { return []StaticAnnotationClass{tokenClass{}} }
func (d *tokensDoc) Fields() []StaticField            { return []StaticField{d.field} }
func (d *tokensDoc) NewDocument() any                 { return &tokensDocValue{} }

func newTokensDocSingle() *tokensDoc {
	return &tokensDoc{
		store: &tokenStore{},
		field: &testField{
			name: "TokensPointer", serial: "tokens", kind: KindPointer, pointedTo: "Token",
			set: func(target any, value any) { target.(*tokensDocValue).TokensPointer = value.(*token) },
		},
	}
}

func newTokensDocSlice() *tokensDoc {
	return &tokensDoc{
		store: &tokenStore{},
		field: &testField{
			name: "TokensSlice", serial: "tokens", kind: KindPointerSlice, isSlice: true, pointedTo: "Token",
			set: func(target any, value any) { target.(*tokensDocValue).TokensSlice = value.(PointerSlice) },
		},
	}
}
