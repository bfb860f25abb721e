package metadata

import (
	"context"
	"sort"
	"strings"

	"github.com/wippyai/honeycomb/engine"
	"github.com/wippyai/honeycomb/errors"
	"github.com/wippyai/honeycomb/symbols"
)

// Converter builds adapter objects from storage engine descriptions. It
// holds no state beyond the shared symbol cache.
//
// When the adapter raises during a conversion, the converter stops making
// calls and returns a zero object with a nil error; the exception stays
// pending for the caller's exception check. Errors report bridge misuse.
type Converter struct {
	cache *symbols.Cache
}

// NewConverter creates a converter resolving through cache.
func NewConverter(cache *symbols.Cache) *Converter {
	return &Converter{cache: cache}
}

// calls issues a sequence of adapter calls, stopping at the first error or
// pending exception.
type calls struct {
	ctx context.Context
	env *engine.Env
	err error
}

func (c *calls) stopped() bool {
	return c.err != nil || c.env.ExceptionCheck()
}

func (c *calls) static(m *engine.StaticMethodID, args ...any) any {
	if c.stopped() {
		return nil
	}
	v, err := c.env.CallStatic(c.ctx, m, args...)
	c.err = err
	return v
}

func (c *calls) method(obj engine.Object, m *engine.MethodID, args ...any) any {
	if c.stopped() {
		return nil
	}
	v, err := c.env.CallMethod(c.ctx, obj, m, args...)
	c.err = err
	return v
}

func (c *calls) field(f *engine.StaticFieldID) any {
	if c.stopped() {
		return nil
	}
	v, err := c.env.GetStaticField(f)
	c.err = err
	return v
}

func (c *calls) result(obj engine.Object) (engine.Object, error) {
	if c.stopped() {
		return 0, c.err
	}
	return obj, nil
}

// marker returns the ColumnType field holding k's value.
func (cv *Converter) marker(k ColumnKind) *engine.StaticFieldID {
	ct := cv.cache.ColumnType()
	switch k {
	case KindString:
		return ct.String
	case KindBinary:
		return ct.Binary
	case KindULong:
		return ct.ULong
	case KindLong:
		return ct.Long
	case KindDouble:
		return ct.Double
	case KindTime:
		return ct.Time
	case KindDate:
		return ct.Date
	case KindDateTime:
		return ct.DateTime
	case KindDecimal:
		return ct.Decimal
	default:
		return ct.None
	}
}

// Column creates a ColumnMetadata object for f. primary marks the field
// as the table's primary key.
func (cv *Converter) Column(ctx context.Context, env *engine.Env, f Field, primary bool) (engine.Object, error) {
	return cv.column(&calls{ctx: ctx, env: env}, f, primary)
}

func (cv *Converter) column(c *calls, f Field, primary bool) (engine.Object, error) {
	cm := cv.cache.ColumnMetadata()
	obj := engine.AsObject(c.static(cm.New))

	kind := Kind(f)
	switch kind {
	case KindDecimal:
		c.method(obj, cm.SetPrecision, f.Precision)
		c.method(obj, cm.SetScale, f.Scale)
	case KindString:
		c.method(obj, cm.SetMaxLength, MaxLength(f))
	case KindBinary:
		if f.Type == TypeString || f.Type == TypeVarchar {
			c.method(obj, cm.SetMaxLength, MaxLength(f))
		}
	}
	if kind != KindNone {
		c.method(obj, cm.SetType, c.field(cv.marker(kind)))
	}
	if f.Nullable {
		c.method(obj, cm.SetNullable, true)
	}
	if primary {
		c.method(obj, cm.SetPrimaryKey, true)
	}
	if f.Autoincrement {
		c.method(obj, cm.SetAutoincrement, true)
		c.method(obj, cm.SetAutoincrementValue, f.AutoincrementValue)
	}
	return c.result(obj)
}

// Columns creates a TreeMap from field name to ColumnMetadata for every
// field of t.
func (cv *Converter) Columns(ctx context.Context, env *engine.Env, t Table) (engine.Object, error) {
	c := &calls{ctx: ctx, env: env}
	tm := cv.cache.TreeMap()
	columns := engine.AsObject(c.static(tm.New))
	for _, f := range t.Fields {
		obj, err := cv.column(c, f, t.PrimaryKey != "" && f.Name == t.PrimaryKey)
		if err != nil || c.stopped() {
			break
		}
		c.method(columns, tm.PutObject, f.Name, obj)
	}
	return c.result(columns)
}

// Keys creates the TableMultipartKeys object describing t's indexes.
// Multi-column indexes are also registered as multipart keys.
func (cv *Converter) Keys(ctx context.Context, env *engine.Env, t Table) (engine.Object, error) {
	c := &calls{ctx: ctx, env: env}
	mk := cv.cache.TableMultipartKeys()
	keys := engine.AsObject(c.static(mk.New))
	for _, idx := range t.Indexes {
		columns := strings.Join(idx.Columns, ",")
		c.method(keys, mk.AddIndex, idx.Name, columns)
		if len(idx.Columns) > 1 {
			c.method(keys, mk.AddMultipartKey, columns, idx.Unique)
		}
	}
	return c.result(keys)
}

// Values creates a TreeMap holding a row's column values. Keys are
// inserted in sorted order.
func (cv *Converter) Values(ctx context.Context, env *engine.Env, values map[string]string) (engine.Object, error) {
	c := &calls{ctx: ctx, env: env}
	tm := cv.cache.TreeMap()
	row := engine.AsObject(c.static(tm.New))

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.method(row, tm.Put, name, values[name])
	}
	return c.result(row)
}

// KeyPart is one column of an index lookup key.
type KeyPart struct {
	Column    string
	Value     string
	Null      bool
	Ascending bool
}

// Key creates a LinkedList of KeyValue objects for an index read.
func (cv *Converter) Key(ctx context.Context, env *engine.Env, parts []KeyPart) (engine.Object, error) {
	c := &calls{ctx: ctx, env: env}
	ll := cv.cache.LinkedList()
	kv := cv.cache.KeyValue()
	list := engine.AsObject(c.static(ll.New))
	for _, p := range parts {
		item := c.static(kv.New, p.Column, p.Value, p.Null, p.Ascending)
		c.method(list, ll.Add, engine.AsObject(item))
	}
	return c.result(list)
}

// ReadMode returns the adapter value of an index read mode. Modes past
// IndexNull are rejected.
func (cv *Converter) ReadMode(env *engine.Env, mode ReadMode) (uint32, error) {
	irt := cv.cache.IndexReadType()
	fields := [...]*engine.StaticFieldID{
		ReadKeyExact:  irt.ReadKeyExact,
		ReadAfterKey:  irt.ReadAfterKey,
		ReadKeyOrNext: irt.ReadKeyOrNext,
		ReadKeyOrPrev: irt.ReadKeyOrPrev,
		ReadBeforeKey: irt.ReadBeforeKey,
		IndexFirst:    irt.IndexFirst,
		IndexLast:     irt.IndexLast,
		IndexNull:     irt.IndexNull,
	}
	if int(mode) >= len(fields) {
		return 0, errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Value(mode).
			Detail("unknown index read mode %d", mode).
			Build()
	}
	v, err := env.GetStaticField(fields[mode])
	if err != nil {
		return 0, err
	}
	return uint32(engine.AsObject(v)), nil
}

// ReadMode is an index read mode.
type ReadMode uint8

const (
	ReadKeyExact ReadMode = iota
	ReadAfterKey
	ReadKeyOrNext
	ReadKeyOrPrev
	ReadBeforeKey
	IndexFirst
	IndexLast
	IndexNull
)
