package symbols

import (
	stderrors "errors"
	"reflect"
	"sort"

	"github.com/wippyai/honeycomb/engine"
	"github.com/wippyai/honeycomb/errors"
)

// Cache holds every class reference and member handle the bridge uses.
// It is populated once by New and never mutated afterwards, so any number
// of goroutines may read it without locking.
type Cache struct {
	hbaseAdapter       HBaseAdapter
	indexReadType      IndexReadType
	row                Row
	indexRow           IndexRow
	columnMetadata     ColumnMetadata
	columnType         ColumnType
	keyValue           KeyValue
	tableMultipartKeys TableMultipartKeys
	throwable          Throwable
	linkedList         LinkedList
	treeMap            TreeMap

	globals []*engine.ClassRef
	methods []Method
}

func (c *Cache) groups() []any {
	return []any{
		&c.hbaseAdapter,
		&c.indexReadType,
		&c.row,
		&c.indexRow,
		&c.columnMetadata,
		&c.columnType,
		&c.keyValue,
		&c.tableMultipartKeys,
		&c.throwable,
		&c.linkedList,
		&c.treeMap,
	}
}

// New resolves every group through env, promoting each class to a global
// reference. It must complete before the cache is shared. If any symbol is
// missing or mistyped, New releases what it acquired and returns a
// *errors.MissingSymbolsError naming all of them.
func New(vm *engine.VM, env *engine.Env) (*Cache, error) {
	c := &Cache{}
	r := &resolver{vm: vm, env: env}
	for _, g := range c.groups() {
		r.resolve(g)
	}
	c.globals = r.globals

	if len(r.missing) > 0 {
		c.Close()
		return nil, errors.NewMissingSymbolsError(r.missing)
	}

	c.methods = r.methods
	sort.SliceStable(c.methods, func(i, j int) bool {
		if c.methods[i].Class != c.methods[j].Class {
			return c.methods[i].Class < c.methods[j].Class
		}
		return c.methods[i].Name < c.methods[j].Name
	})
	return c, nil
}

func (c *Cache) HBaseAdapter() HBaseAdapter             { return c.hbaseAdapter }
func (c *Cache) IndexReadType() IndexReadType           { return c.indexReadType }
func (c *Cache) Row() Row                               { return c.row }
func (c *Cache) IndexRow() IndexRow                     { return c.indexRow }
func (c *Cache) ColumnMetadata() ColumnMetadata         { return c.columnMetadata }
func (c *Cache) ColumnType() ColumnType                 { return c.columnType }
func (c *Cache) KeyValue() KeyValue                     { return c.keyValue }
func (c *Cache) TableMultipartKeys() TableMultipartKeys { return c.tableMultipartKeys }
func (c *Cache) Throwable() Throwable                   { return c.throwable }
func (c *Cache) LinkedList() LinkedList                 { return c.linkedList }
func (c *Cache) TreeMap() TreeMap                       { return c.treeMap }

// Method is a resolved method in the catalogue returned by Methods.
// Exactly one of Static and Instance is set.
type Method struct {
	Static    *engine.StaticMethodID
	Instance  *engine.MethodID
	Class     string
	Name      string
	Signature string
}

// Methods returns every resolved method sorted by class and name.
func (c *Cache) Methods() []Method {
	return append([]Method(nil), c.methods...)
}

// Close releases the global class references. Handles taken from the
// cache must not be used afterwards.
func (c *Cache) Close() {
	for _, ref := range c.globals {
		ref.Release()
	}
	c.globals = nil
}

var (
	classRefType     = reflect.TypeOf((*engine.ClassRef)(nil))
	methodType       = reflect.TypeOf((*engine.MethodID)(nil))
	staticMethodType = reflect.TypeOf((*engine.StaticMethodID)(nil))
	staticFieldType  = reflect.TypeOf((*engine.StaticFieldID)(nil))
)

type resolver struct {
	vm      *engine.VM
	env     *engine.Env
	missing []errors.MissingSymbol
	globals []*engine.ClassRef
	methods []Method
}

// resolve fills the group pointed to by g. Failures are collected rather
// than returned so a single run reports every missing symbol.
func (r *resolver) resolve(g any) {
	v := reflect.ValueOf(g).Elem()
	class := className(v.Type())

	local, err := r.env.FindClass(class)
	if err != nil {
		r.missing = append(r.missing, errors.MissingSymbol{Class: class, Reason: reason(err)})
		return
	}
	defer local.Release()

	global, err := r.vm.NewGlobalRef(local)
	if err != nil {
		r.missing = append(r.missing, errors.MissingSymbol{Class: class, Reason: reason(err)})
		return
	}
	r.globals = append(r.globals, global)
	v.FieldByName("Class").Set(reflect.ValueOf(global))

	for _, m := range members(v.Type()) {
		id, err := r.lookup(local, m)
		if err != nil {
			r.missing = append(r.missing, errors.MissingSymbol{
				Class:     class,
				Member:    m.Name,
				Signature: m.Signature,
				Reason:    reason(err),
			})
			continue
		}
		v.Field(m.index).Set(reflect.ValueOf(id))
	}
}

func (r *resolver) lookup(c *engine.ClassRef, m Symbol) (any, error) {
	switch m.Kind {
	case KindMethod:
		id, err := r.env.GetMethodID(c, m.Name, m.Signature)
		if err != nil {
			return nil, err
		}
		r.methods = append(r.methods, Method{Instance: id, Class: m.Class, Name: m.Name, Signature: m.Signature})
		return id, nil
	case KindStaticMethod:
		id, err := r.env.GetStaticMethodID(c, m.Name, m.Signature)
		if err != nil {
			return nil, err
		}
		r.methods = append(r.methods, Method{Static: id, Class: m.Class, Name: m.Name, Signature: m.Signature})
		return id, nil
	default:
		return r.env.GetStaticFieldID(c, m.Name, m.Signature)
	}
}

func reason(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		switch e.Kind {
		case errors.KindSymbolMissing:
			return ""
		case errors.KindSignatureMismatch, errors.KindInvalidSignature:
			return e.Detail
		}
	}
	return err.Error()
}

func className(t reflect.Type) string {
	f, ok := t.FieldByName("Class")
	if !ok || f.Type != classRefType {
		panic("symbols: group " + t.Name() + " has no Class field")
	}
	return f.Tag.Get("wit")
}
