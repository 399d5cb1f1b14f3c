package resource_test

import "github.com/garnizeh/tasso/pkg/resource"

type gadget struct {
	ID       int64
	Name     string
	Note     *string
	Count    int64
	Enabled  bool
	Released resource.Date
	Retired  *resource.Date
	Opens    resource.TimeOfDay
	Secret   *string
}

func (g *gadget) Fields() []resource.Field {
	return []resource.Field{
		resource.Key("id", &g.ID),
		resource.Text("name", &g.Name),
		resource.OptText("note", &g.Note),
		resource.Int64("count", &g.Count),
		resource.Bool("enabled", &g.Enabled),
		resource.DateField("released", &g.Released),
		resource.OptDateField("retired", &g.Retired),
		resource.TimeField("opens", &g.Opens),
		resource.OptText("secret", &g.Secret).AsReadOnly(),
	}
}

// columns deliberately ordered differently from the declaration
const gadgetsDDL = `CREATE TABLE gadgets (
	secret TEXT,
	opens TEXT NOT NULL,
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	extra TEXT DEFAULT 'ignored',
	note TEXT,
	count INTEGER NOT NULL,
	enabled BOOLEAN NOT NULL,
	released TEXT NOT NULL,
	retired TEXT
)`

type category struct {
	ID    int64
	Title string
}

func (c *category) Fields() []resource.Field {
	return []resource.Field{resource.Key("id", &c.ID), resource.Text("title", &c.Title)}
}

type legacyRow struct {
	ID int64
}

func (l *legacyRow) Fields() []resource.Field { return []resource.Field{resource.Key("row_id", &l.ID)} }

func (l *legacyRow) TableName() string { return "legacy" }

type keyless struct{ Name string }

func (k *keyless) Fields() []resource.Field { return []resource.Field{resource.Text("name", &k.Name)} }

type empty struct{}

func (*empty) Fields() []resource.Field { return nil }

type twoKeys struct{ A, B int64 }

func (t *twoKeys) Fields() []resource.Field {
	return []resource.Field{resource.Key("a", &t.A), resource.Key("b", &t.B)}
}

type dupColumn struct {
	ID   int64
	Name string
	Alt  string
}

func (d *dupColumn) Fields() []resource.Field {
	return []resource.Field{resource.Key("id", &d.ID), resource.Text("name", &d.Name), resource.Text("name", &d.Alt)}
}

type badKind struct {
	ID   int64
	Name string
}

func (b *badKind) Fields() []resource.Field {
	return []resource.Field{resource.Key("id", &b.ID), {Column: "name", Kind: resource.KindInt64, Ptr: &b.Name}}
}

func ptr[T any](v T) *T { return &v }
