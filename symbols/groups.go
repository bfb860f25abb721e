package symbols

import "github.com/wippyai/honeycomb/engine"

// Entry point used by the bridge to initialize the adapter. It is resolved
// by name again on every re-initialization.
const (
	AdapterClass        = "HBaseAdapter"
	InitializeMethod    = "initialize"
	InitializeSignature = "func()"
)

// Group members are declared as tagged fields. The Class field's wit tag
// names the class; every other field's wit tag names the member and its
// sig tag holds the WIT signature (or the field type for static fields).
// Object handles cross the boundary as u32.

// HBaseAdapter holds the adapter's static entry points.
type HBaseAdapter struct {
	Class *engine.ClassRef `wit:"HBaseAdapter"`

	Initialize                *engine.StaticMethodID `wit:"initialize" sig:"func()"`
	CreateTable               *engine.StaticMethodID `wit:"createTable" sig:"func(table: string, columns: u32, keys: u32) -> bool"`
	GetAutoincrementValue     *engine.StaticMethodID `wit:"getAutoincrementValue" sig:"func(table: string, column: string) -> s64"`
	AlterAutoincrementValue   *engine.StaticMethodID `wit:"alterAutoincrementValue" sig:"func(table: string, column: string, value: s64, force: bool) -> bool"`
	StartWrite                *engine.StaticMethodID `wit:"startWrite" sig:"func(table: string) -> s64"`
	EndWrite                  *engine.StaticMethodID `wit:"endWrite" sig:"func(writer: s64)"`
	StartScan                 *engine.StaticMethodID `wit:"startScan" sig:"func(table: string, full: bool) -> s64"`
	NextRow                   *engine.StaticMethodID `wit:"nextRow" sig:"func(scan: s64) -> u32"`
	EndScan                   *engine.StaticMethodID `wit:"endScan" sig:"func(scan: s64)"`
	WriteRow                  *engine.StaticMethodID `wit:"writeRow" sig:"func(writer: s64, values: u32) -> bool"`
	UpdateRow                 *engine.StaticMethodID `wit:"updateRow" sig:"func(writer: s64, uuid: string, values: u32) -> bool"`
	FlushWrites               *engine.StaticMethodID `wit:"flushWrites" sig:"func(writer: s64)"`
	DeleteRow                 *engine.StaticMethodID `wit:"deleteRow" sig:"func(writer: s64, uuid: string) -> bool"`
	DeleteAllRows             *engine.StaticMethodID `wit:"deleteAllRows" sig:"func(table: string) -> s64"`
	DropTable                 *engine.StaticMethodID `wit:"dropTable" sig:"func(table: string) -> bool"`
	GetRow                    *engine.StaticMethodID `wit:"getRow" sig:"func(scan: s64, uuid: string) -> u32"`
	StartIndexScan            *engine.StaticMethodID `wit:"startIndexScan" sig:"func(table: string, index: string) -> s64"`
	FindDuplicateKey          *engine.StaticMethodID `wit:"findDuplicateKey" sig:"func(table: string, values: u32) -> string"`
	FindDuplicateKeyList      *engine.StaticMethodID `wit:"findDuplicateKeyList" sig:"func(table: string, values: u32) -> string"`
	FindDuplicateValue        *engine.StaticMethodID `wit:"findDuplicateValue" sig:"func(table: string, column: string) -> string"`
	GetNextAutoincrementValue *engine.StaticMethodID `wit:"getNextAutoincrementValue" sig:"func(table: string, column: string) -> s64"`
	IndexRead                 *engine.StaticMethodID `wit:"indexRead" sig:"func(scan: s64, keys: u32, mode: u32) -> u32"`
	NextIndexRow              *engine.StaticMethodID `wit:"nextIndexRow" sig:"func(scan: s64) -> u32"`
	IncrementRowCount         *engine.StaticMethodID `wit:"incrementRowCount" sig:"func(table: string, delta: s64)"`
	SetRowCount               *engine.StaticMethodID `wit:"setRowCount" sig:"func(table: string, count: s64)"`
	GetRowCount               *engine.StaticMethodID `wit:"getRowCount" sig:"func(table: string) -> s64"`
	RenameTable               *engine.StaticMethodID `wit:"renameTable" sig:"func(from: string, to: string) -> bool"`
	IsNullable                *engine.StaticMethodID `wit:"isNullable" sig:"func(table: string, column: string) -> bool"`
	AddIndex                  *engine.StaticMethodID `wit:"addIndex" sig:"func(table: string, keys: u32) -> bool"`
	DropIndex                 *engine.StaticMethodID `wit:"dropIndex" sig:"func(table: string, index: string) -> bool"`
}

// IndexReadType holds the index read modes passed to HBaseAdapter#indexRead.
type IndexReadType struct {
	Class *engine.ClassRef `wit:"IndexReadType"`

	ReadKeyExact  *engine.StaticFieldID `wit:"READ_KEY_EXACT" sig:"u32"`
	ReadAfterKey  *engine.StaticFieldID `wit:"READ_AFTER_KEY" sig:"u32"`
	ReadKeyOrNext *engine.StaticFieldID `wit:"READ_KEY_OR_NEXT" sig:"u32"`
	ReadKeyOrPrev *engine.StaticFieldID `wit:"READ_KEY_OR_PREV" sig:"u32"`
	ReadBeforeKey *engine.StaticFieldID `wit:"READ_BEFORE_KEY" sig:"u32"`
	IndexFirst    *engine.StaticFieldID `wit:"INDEX_FIRST" sig:"u32"`
	IndexLast     *engine.StaticFieldID `wit:"INDEX_LAST" sig:"u32"`
	IndexNull     *engine.StaticFieldID `wit:"INDEX_NULL" sig:"u32"`
}

// Row is a table scan result.
type Row struct {
	Class *engine.ClassRef `wit:"Row"`

	GetRowMap *engine.MethodID `wit:"getRowMap" sig:"func() -> u32"`
	GetUUID   *engine.MethodID `wit:"getUUID" sig:"func() -> string"`
}

// IndexRow is an index scan result.
type IndexRow struct {
	Class *engine.ClassRef `wit:"IndexRow"`

	GetRowMap *engine.MethodID `wit:"getRowMap" sig:"func() -> u32"`
	GetUUID   *engine.MethodID `wit:"getUUID" sig:"func() -> string"`
}

// ColumnMetadata builds the description of one column.
type ColumnMetadata struct {
	Class *engine.ClassRef `wit:"ColumnMetadata"`

	New                   *engine.StaticMethodID `wit:"new" sig:"func() -> u32"`
	SetMaxLength          *engine.MethodID       `wit:"setMaxLength" sig:"func(length: s32)"`
	SetPrecision          *engine.MethodID       `wit:"setPrecision" sig:"func(precision: s32)"`
	SetScale              *engine.MethodID       `wit:"setScale" sig:"func(scale: s32)"`
	SetNullable           *engine.MethodID       `wit:"setNullable" sig:"func(nullable: bool)"`
	SetPrimaryKey         *engine.MethodID       `wit:"setPrimaryKey" sig:"func(primary: bool)"`
	SetType               *engine.MethodID       `wit:"setType" sig:"func(kind: u32)"`
	SetAutoincrement      *engine.MethodID       `wit:"setAutoincrement" sig:"func(autoincrement: bool)"`
	SetAutoincrementValue *engine.MethodID       `wit:"setAutoincrementValue" sig:"func(value: s64)"`
}

// ColumnType holds the column type markers passed to
// ColumnMetadata#setType.
type ColumnType struct {
	Class *engine.ClassRef `wit:"ColumnType"`

	None     *engine.StaticFieldID `wit:"NONE" sig:"u32"`
	String   *engine.StaticFieldID `wit:"STRING" sig:"u32"`
	Binary   *engine.StaticFieldID `wit:"BINARY" sig:"u32"`
	ULong    *engine.StaticFieldID `wit:"ULONG" sig:"u32"`
	Long     *engine.StaticFieldID `wit:"LONG" sig:"u32"`
	Double   *engine.StaticFieldID `wit:"DOUBLE" sig:"u32"`
	Time     *engine.StaticFieldID `wit:"TIME" sig:"u32"`
	Date     *engine.StaticFieldID `wit:"DATE" sig:"u32"`
	DateTime *engine.StaticFieldID `wit:"DATETIME" sig:"u32"`
	Decimal  *engine.StaticFieldID `wit:"DECIMAL" sig:"u32"`
}

// KeyValue is one column of an index key.
type KeyValue struct {
	Class *engine.ClassRef `wit:"KeyValue"`

	New *engine.StaticMethodID `wit:"new" sig:"func(column: string, value: string, null: bool, ascending: bool) -> u32"`
}

// TableMultipartKeys collects the index definitions of a table.
type TableMultipartKeys struct {
	Class *engine.ClassRef `wit:"TableMultipartKeys"`

	New             *engine.StaticMethodID `wit:"new" sig:"func() -> u32"`
	AddIndex        *engine.MethodID       `wit:"addIndex" sig:"func(name: string, columns: string)"`
	AddMultipartKey *engine.MethodID       `wit:"addMultipartKey" sig:"func(columns: string, unique: bool)"`
}

// Throwable renders adapter exceptions.
type Throwable struct {
	Class *engine.ClassRef `wit:"Throwable"`

	GetClassName  *engine.MethodID `wit:"getClassName" sig:"func() -> string"`
	GetMessage    *engine.MethodID `wit:"getMessage" sig:"func() -> string"`
	GetStackTrace *engine.MethodID `wit:"getStackTrace" sig:"func() -> string"`
}

// LinkedList is the adapter's list container.
type LinkedList struct {
	Class *engine.ClassRef `wit:"LinkedList"`

	New  *engine.StaticMethodID `wit:"new" sig:"func() -> u32"`
	Add  *engine.MethodID       `wit:"add" sig:"func(value: u32) -> bool"`
	Size *engine.MethodID       `wit:"size" sig:"func() -> s32"`
}

// TreeMap is the adapter's sorted map container. Row values are strings;
// column metadata maps hold object handles.
type TreeMap struct {
	Class *engine.ClassRef `wit:"TreeMap"`

	New       *engine.StaticMethodID `wit:"new" sig:"func() -> u32"`
	Get       *engine.MethodID       `wit:"get" sig:"func(key: string) -> string"`
	Put       *engine.MethodID       `wit:"put" sig:"func(key: string, value: string)"`
	GetObject *engine.MethodID       `wit:"getObject" sig:"func(key: string) -> u32"`
	PutObject *engine.MethodID       `wit:"putObject" sig:"func(key: string, value: u32)"`
	IsEmpty   *engine.MethodID       `wit:"isEmpty" sig:"func() -> bool"`
}
