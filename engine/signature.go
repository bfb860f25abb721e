package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/honeycomb/errors"
)

var signaturePattern = regexp.MustCompile(`^func\s*\(([^)]*)\)(?:\s*->\s*(.+))?$`)

// Signature is a parsed WIT function type restricted to scalar and string
// parameters and at most one result.
type Signature struct {
	Result     wit.Type
	Text       string
	Params     []wit.Type
	ParamNames []string
}

// ParseSignature parses text of the form "func(name: type, ...) -> type".
func ParseSignature(text string) (*Signature, error) {
	text = strings.TrimSpace(text)
	m := signaturePattern.FindStringSubmatch(text)
	if m == nil {
		return nil, invalidSignature(text, "expected func(params) -> result", nil)
	}

	sig := &Signature{Text: text}
	if params := strings.TrimSpace(m[1]); params != "" {
		for i, p := range strings.Split(params, ",") {
			name := fmt.Sprintf("p%d", i)
			typStr := strings.TrimSpace(p)
			if idx := strings.LastIndex(typStr, ":"); idx != -1 {
				name = strings.TrimSpace(typStr[:idx])
				typStr = strings.TrimSpace(typStr[idx+1:])
			}
			t, err := parseScalar(typStr)
			if err != nil {
				return nil, invalidSignature(text, "param "+name, err)
			}
			sig.Params = append(sig.Params, t)
			sig.ParamNames = append(sig.ParamNames, name)
		}
	}

	if res := strings.TrimSpace(m[2]); res != "" && res != "()" {
		t, err := parseScalar(res)
		if err != nil {
			return nil, invalidSignature(text, "result", err)
		}
		sig.Result = t
	}
	return sig, nil
}

func invalidSignature(text, detail string, cause error) error {
	return errors.New(errors.PhaseResolve, errors.KindInvalidSignature).
		Signature(text).
		Detail("%s", detail).
		Cause(cause).
		Build()
}

// parseScalar parses a single type accepted at the bridge boundary.
func parseScalar(s string) (wit.Type, error) {
	t, err := wit.ParseType(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if _, ok := coreTypes(t, false); !ok {
		return nil, fmt.Errorf("unsupported type %s", TypeName(t))
	}
	return t, nil
}

// CoreParams returns the flattened core parameter types. Instance methods
// take the receiver as a leading i32.
func (s *Signature) CoreParams(instance bool) []api.ValueType {
	var out []api.ValueType
	if instance {
		out = append(out, api.ValueTypeI32)
	}
	for _, p := range s.Params {
		ct, _ := coreTypes(p, false)
		out = append(out, ct...)
	}
	return out
}

// CoreResults returns the flattened core result types.
func (s *Signature) CoreResults() []api.ValueType {
	if s.Result == nil {
		return nil
	}
	ct, _ := coreTypes(s.Result, true)
	return ct
}

func (s *Signature) String() string {
	return s.Text
}

// coreTypes flattens t. Strings are (ptr, len) as parameters and a packed
// i64 as a result.
func coreTypes(t wit.Type, result bool) ([]api.ValueType, bool) {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return []api.ValueType{api.ValueTypeI32}, true
	case wit.U64, wit.S64:
		return []api.ValueType{api.ValueTypeI64}, true
	case wit.F32:
		return []api.ValueType{api.ValueTypeF32}, true
	case wit.F64:
		return []api.ValueType{api.ValueTypeF64}, true
	case wit.String:
		if result {
			return []api.ValueType{api.ValueTypeI64}, true
		}
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, true
	default:
		return nil, false
	}
}

// TypeName returns the WIT spelling of a scalar type.
func TypeName(t wit.Type) string {
	switch v := t.(type) {
	case nil:
		return "()"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func coreTypesString(params, results []api.ValueType) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(p))
	}
	b.WriteString(") -> (")
	for i, r := range results {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(r))
	}
	b.WriteByte(')')
	return b.String()
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
