package symbols

import (
	"fmt"
	"reflect"
)

// SymbolKind is the kind of a group member.
type SymbolKind uint8

const (
	KindStaticMethod SymbolKind = iota
	KindMethod
	KindStaticField
)

func (k SymbolKind) String() string {
	switch k {
	case KindStaticMethod:
		return "static method"
	case KindMethod:
		return "method"
	case KindStaticField:
		return "static field"
	default:
		return "unknown"
	}
}

// Symbol is one member the bridge requires from the adapter. Signature is
// the WIT function type for methods and the value type for fields.
type Symbol struct {
	Class     string
	Name      string
	Signature string
	Kind      SymbolKind
	index     int
}

// Export returns the adapter export name, Class#member.
func (s Symbol) Export() string {
	return s.Class + "#" + s.Name
}

// Contract lists every symbol New resolves, group by group in declaration
// order. Adapters must export all of them.
func Contract() []Symbol {
	var out []Symbol
	for _, g := range (&Cache{}).groups() {
		out = append(out, members(reflect.TypeOf(g).Elem())...)
	}
	return out
}

// Classes lists the class names New resolves.
func Classes() []string {
	var out []string
	for _, g := range (&Cache{}).groups() {
		out = append(out, className(reflect.TypeOf(g).Elem()))
	}
	return out
}

func members(t reflect.Type) []Symbol {
	class := className(t)
	var out []Symbol
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Name == "Class" || !f.IsExported() {
			continue
		}
		s := Symbol{
			Class:     class,
			Name:      f.Tag.Get("wit"),
			Signature: f.Tag.Get("sig"),
			index:     i,
		}
		switch f.Type {
		case methodType:
			s.Kind = KindMethod
		case staticMethodType:
			s.Kind = KindStaticMethod
		case staticFieldType:
			s.Kind = KindStaticField
		default:
			panic(fmt.Sprintf("symbols: %s.%s has unsupported type %s", t.Name(), f.Name, f.Type))
		}
		out = append(out, s)
	}
	return out
}
