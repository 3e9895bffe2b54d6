package docrep

// Visitor is implemented by callers that want to walk a decoded
// document's structure without materializing annotation instances —
// adapted from the teacher's Visitor/Walk (walker.go), which drives a
// struct/array schema tree the same way Inspect drives the
// class/store/field tree a RuntimeSchema describes.
type Visitor interface {
	VisitClass(c *RuntimeClass) error
	VisitStore(s *RuntimeStore) error
	VisitField(c *RuntimeClass, f *RuntimeField) error
}

// Inspect walks doc's reconciled schema — its meta class, every other
// class, every store, and each class's fields in declaration order —
// calling visitor for each. It never touches Document.Value or any
// annotation instance; it is a read-only view of the schema shape
// alone, suitable for the CLI's summary output or for tests asserting
// structure without a static schema.
func Inspect(doc *Document, visitor Visitor) error {
	if doc.Schema == nil {
		return newErr(KindInternal, "inspect: document has no schema")
	}

	if err := walkClass(doc.Schema.MetaClass, visitor); err != nil {
		return err
	}
	for _, c := range doc.Schema.Classes {
		if c == doc.Schema.MetaClass {
			continue
		}
		if err := walkClass(c, visitor); err != nil {
			return err
		}
	}
	for _, s := range doc.Schema.Stores {
		if err := visitor.VisitStore(s); err != nil {
			return err
		}
	}
	return nil
}

func walkClass(c *RuntimeClass, visitor Visitor) error {
	if c == nil {
		return nil
	}
	if err := visitor.VisitClass(c); err != nil {
		return err
	}
	for _, f := range c.Fields {
		if err := visitor.VisitField(c, f); err != nil {
			return err
		}
	}
	return nil
}
