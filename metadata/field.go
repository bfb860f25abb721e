package metadata

// FieldType is the storage engine's real type of a field.
type FieldType uint8

const (
	TypeTiny FieldType = iota
	TypeShort
	TypeLong
	TypeLongLong
	TypeInt24
	TypeYear
	TypeFloat
	TypeDouble
	TypeDecimal
	TypeNewDecimal
	TypeDate
	TypeNewDate
	TypeTime
	TypeDateTime
	TypeTimestamp
	TypeString
	TypeVarchar
	TypeBlob
	TypeTinyBlob
	TypeMediumBlob
	TypeLongBlob
	TypeEnum
	TypeNull
	TypeBit
	TypeSet
	TypeGeometry
	TypeVarString
)

// Field describes one column as the storage engine sees it.
type Field struct {
	Name string
	Type FieldType

	// MaxDataLength includes the extra byte the server reserves for
	// variable length fields.
	MaxDataLength int64
	Precision     int32
	Scale         int32

	Unsigned bool
	Binary   bool
	Nullable bool

	Autoincrement      bool
	AutoincrementValue int64
}

// Index is a secondary index or unique key.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table is the definition handed to the adapter on table creation.
type Table struct {
	Name       string
	Fields     []Field
	Indexes    []Index
	PrimaryKey string // field name, empty without a primary key
}

// ColumnKind is the adapter column type of a field. Values name the
// members of the ColumnType group.
type ColumnKind uint8

const (
	KindNone ColumnKind = iota
	KindString
	KindBinary
	KindULong
	KindLong
	KindDouble
	KindTime
	KindDate
	KindDateTime
	KindDecimal
)

var kindNames = [...]string{"NONE", "STRING", "BINARY", "ULONG", "LONG", "DOUBLE", "TIME", "DATE", "DATETIME", "DECIMAL"}

func (k ColumnKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Kind maps a field to its adapter column type. Fields the adapter cannot
// store map to KindNone.
func Kind(f Field) ColumnKind {
	switch f.Type {
	case TypeTiny, TypeShort, TypeLong, TypeLongLong, TypeInt24, TypeYear:
		if f.Unsigned {
			return KindULong
		}
		return KindLong
	case TypeFloat, TypeDouble:
		return KindDouble
	case TypeDecimal, TypeNewDecimal:
		return KindDecimal
	case TypeDate, TypeNewDate:
		return KindDate
	case TypeTime:
		return KindTime
	case TypeDateTime, TypeTimestamp:
		return KindDateTime
	case TypeString, TypeVarchar:
		if f.Binary {
			return KindBinary
		}
		return KindString
	case TypeBlob, TypeTinyBlob, TypeMediumBlob, TypeLongBlob:
		return KindBinary
	case TypeEnum:
		return KindULong
	default:
		return KindNone
	}
}

// MaxLength returns the column length passed to the adapter for string
// fields, without the server's extra byte.
func MaxLength(f Field) int32 {
	if f.MaxDataLength <= 0 {
		return 0
	}
	return int32(f.MaxDataLength - 1)
}
