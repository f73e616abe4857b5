package table

// Kind identifies the semantic type of a column, decided once at load time.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
	KindText
	KindTimestamp
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindTimestamp:
		return "timestamp"
	case KindBool:
		return "bool"
	}
	return "unknown"
}

// Column holds one named sequence of values in Struct-of-Arrays form.
// Only the slice matching Kind is populated. Text values are dictionary
// encoded (IDs index into Dict) like the loader's country/region columns
// did in the CSV days; Valid is the null mask shared by every kind.
type Column struct {
	Name string
	Kind Kind

	Ints   []int64
	Floats []float64
	Times  []int64 // epoch seconds
	Bools  []bool

	IDs  []int32
	Dict []string

	Valid []bool
}

// Len returns the number of entries, nulls included.
func (c *Column) Len() int {
	return len(c.Valid)
}

// Value returns the value at row i and whether it is non-null.
func (c *Column) Value(i int) (any, bool) {
	if i < 0 || i >= len(c.Valid) || !c.Valid[i] {
		return nil, false
	}
	switch c.Kind {
	case KindInt:
		return c.Ints[i], true
	case KindFloat:
		return c.Floats[i], true
	case KindText:
		return c.Dict[c.IDs[i]], true
	case KindTimestamp:
		return c.Times[i], true
	case KindBool:
		return c.Bools[i], true
	}
	return nil, false
}

// NullCount returns how many entries are null.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Valid {
		if !v {
			n++
		}
	}
	return n
}

// slice returns a view over rows [start, end). The backing arrays are
// shared with the parent, which is safe because columns are never
// mutated after load.
func (c *Column) slice(start, end int) *Column {
	out := &Column{
		Name:  c.Name,
		Kind:  c.Kind,
		Dict:  c.Dict,
		Valid: c.Valid[start:end],
	}
	switch c.Kind {
	case KindInt:
		out.Ints = c.Ints[start:end]
	case KindFloat:
		out.Floats = c.Floats[start:end]
	case KindText:
		out.IDs = c.IDs[start:end]
	case KindTimestamp:
		out.Times = c.Times[start:end]
	case KindBool:
		out.Bools = c.Bools[start:end]
	}
	return out
}

// Builder appends values of one kind into a Column, tracking nulls.
type Builder struct {
	col  Column
	dict map[string]int32
}

// NewBuilder creates a builder for a column of the given kind with
// capacity for n rows.
func NewBuilder(name string, kind Kind, n int) *Builder {
	b := &Builder{
		col: Column{
			Name:  name,
			Kind:  kind,
			Valid: make([]bool, 0, n),
		},
	}
	switch kind {
	case KindInt:
		b.col.Ints = make([]int64, 0, n)
	case KindFloat:
		b.col.Floats = make([]float64, 0, n)
	case KindText:
		b.col.IDs = make([]int32, 0, n)
		b.dict = make(map[string]int32)
	case KindTimestamp:
		b.col.Times = make([]int64, 0, n)
	case KindBool:
		b.col.Bools = make([]bool, 0, n)
	}
	return b
}

func (b *Builder) AppendNull() {
	b.col.Valid = append(b.col.Valid, false)
	switch b.col.Kind {
	case KindInt:
		b.col.Ints = append(b.col.Ints, 0)
	case KindFloat:
		b.col.Floats = append(b.col.Floats, 0)
	case KindText:
		b.col.IDs = append(b.col.IDs, 0)
	case KindTimestamp:
		b.col.Times = append(b.col.Times, 0)
	case KindBool:
		b.col.Bools = append(b.col.Bools, false)
	}
}

func (b *Builder) AppendInt(v int64) {
	b.col.Ints = append(b.col.Ints, v)
	b.col.Valid = append(b.col.Valid, true)
}

func (b *Builder) AppendFloat(v float64) {
	b.col.Floats = append(b.col.Floats, v)
	b.col.Valid = append(b.col.Valid, true)
}

func (b *Builder) AppendTime(epochSeconds int64) {
	b.col.Times = append(b.col.Times, epochSeconds)
	b.col.Valid = append(b.col.Valid, true)
}

func (b *Builder) AppendBool(v bool) {
	b.col.Bools = append(b.col.Bools, v)
	b.col.Valid = append(b.col.Valid, true)
}

func (b *Builder) AppendText(s string) {
	id, ok := b.dict[s]
	if !ok {
		id = int32(len(b.col.Dict))
		b.col.Dict = append(b.col.Dict, s)
		b.dict[s] = id
	}
	b.col.IDs = append(b.col.IDs, id)
	b.col.Valid = append(b.col.Valid, true)
}

// Finish releases the builder and returns the completed column.
func (b *Builder) Finish() *Column {
	b.dict = nil
	return &b.col
}
