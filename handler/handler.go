package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/honeycomb/bridge"
	"github.com/wippyai/honeycomb/engine"
	"github.com/wippyai/honeycomb/metadata"
	"github.com/wippyai/honeycomb/symbols"
)

// Handler issues storage engine requests to the adapter. Every request
// attaches the calling goroutine for its duration, calls through the cached
// handles and turns an uncaught adapter exception into a recoverable error.
type Handler struct {
	bridge *bridge.Bridge
	conv   *metadata.Converter
	logger *zap.Logger
}

// New creates a handler on top of b.
func New(b *bridge.Bridge) *Handler {
	return &Handler{
		bridge: b,
		conv:   metadata.NewConverter(b.Cache()),
		logger: b.Logger().Named("handler"),
	}
}

type call func(ctx context.Context, env *engine.Env, adapter symbols.HBaseAdapter) error

func (h *Handler) invoke(ctx context.Context, fn call) error {
	return h.bridge.Invoke(ctx, func(env *engine.Env, cache *symbols.Cache) error {
		return fn(ctx, env, cache.HBaseAdapter())
	})
}

func (h *Handler) callBool(ctx context.Context, m func(symbols.HBaseAdapter) *engine.StaticMethodID, args ...any) (bool, error) {
	var ok bool
	err := h.invoke(ctx, func(ctx context.Context, env *engine.Env, a symbols.HBaseAdapter) error {
		v, err := env.CallStatic(ctx, m(a), args...)
		ok = engine.AsBool(v)
		return err
	})
	return ok, err
}

func (h *Handler) callInt(ctx context.Context, m func(symbols.HBaseAdapter) *engine.StaticMethodID, args ...any) (int64, error) {
	var n int64
	err := h.invoke(ctx, func(ctx context.Context, env *engine.Env, a symbols.HBaseAdapter) error {
		v, err := env.CallStatic(ctx, m(a), args...)
		n = engine.AsInt64(v)
		return err
	})
	return n, err
}

func (h *Handler) callVoid(ctx context.Context, m func(symbols.HBaseAdapter) *engine.StaticMethodID, args ...any) error {
	return h.invoke(ctx, func(ctx context.Context, env *engine.Env, a symbols.HBaseAdapter) error {
		_, err := env.CallStatic(ctx, m(a), args...)
		return err
	})
}

// CreateTable creates t with its columns and indexes.
func (h *Handler) CreateTable(ctx context.Context, t metadata.Table) (bool, error) {
	var ok bool
	err := h.invoke(ctx, func(ctx context.Context, env *engine.Env, a symbols.HBaseAdapter) error {
		columns, err := h.conv.Columns(ctx, env, t)
		if err != nil || env.ExceptionCheck() {
			return err
		}
		keys, err := h.conv.Keys(ctx, env, t)
		if err != nil || env.ExceptionCheck() {
			return err
		}
		v, err := env.CallStatic(ctx, a.CreateTable, t.Name, columns, keys)
		ok = engine.AsBool(v)
		return err
	})
	if err == nil {
		h.logger.Debug("table created", zap.String("table", t.Name), zap.Bool("ok", ok))
	}
	return ok, err
}

// DropTable drops a table.
func (h *Handler) DropTable(ctx context.Context, table string) (bool, error) {
	return h.callBool(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.DropTable }, table)
}

// RenameTable renames a table.
func (h *Handler) RenameTable(ctx context.Context, from, to string) (bool, error) {
	return h.callBool(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.RenameTable }, from, to)
}

// RowCount returns the adapter's row count estimate for a table.
func (h *Handler) RowCount(ctx context.Context, table string) (int64, error) {
	return h.callInt(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.GetRowCount }, table)
}

// IncrementRowCount adds delta to a table's row count.
func (h *Handler) IncrementRowCount(ctx context.Context, table string, delta int64) error {
	return h.callVoid(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.IncrementRowCount }, table, delta)
}

// SetRowCount overwrites a table's row count.
func (h *Handler) SetRowCount(ctx context.Context, table string, count int64) error {
	return h.callVoid(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.SetRowCount }, table, count)
}

// AutoincrementValue returns the current autoincrement value of a column.
func (h *Handler) AutoincrementValue(ctx context.Context, table, column string) (int64, error) {
	return h.callInt(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.GetAutoincrementValue }, table, column)
}

// NextAutoincrementValue reserves and returns the next autoincrement value.
func (h *Handler) NextAutoincrementValue(ctx context.Context, table, column string) (int64, error) {
	return h.callInt(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.GetNextAutoincrementValue }, table, column)
}

// AlterAutoincrementValue sets a column's autoincrement value. Without
// force the adapter only moves it forward.
func (h *Handler) AlterAutoincrementValue(ctx context.Context, table, column string, value int64, force bool) (bool, error) {
	return h.callBool(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.AlterAutoincrementValue },
		table, column, value, force)
}

// IsNullable reports whether a column accepts nulls.
func (h *Handler) IsNullable(ctx context.Context, table, column string) (bool, error) {
	return h.callBool(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.IsNullable }, table, column)
}

// DeleteAllRows truncates a table and returns the number of rows deleted.
func (h *Handler) DeleteAllRows(ctx context.Context, table string) (int64, error) {
	return h.callInt(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.DeleteAllRows }, table)
}

// AddIndex adds a secondary index to a table.
func (h *Handler) AddIndex(ctx context.Context, table string, idx metadata.Index) (bool, error) {
	var ok bool
	err := h.invoke(ctx, func(ctx context.Context, env *engine.Env, a symbols.HBaseAdapter) error {
		keys, err := h.conv.Keys(ctx, env, metadata.Table{Name: table, Indexes: []metadata.Index{idx}})
		if err != nil || env.ExceptionCheck() {
			return err
		}
		v, err := env.CallStatic(ctx, a.AddIndex, table, keys)
		ok = engine.AsBool(v)
		return err
	})
	return ok, err
}

// DropIndex drops a secondary index.
func (h *Handler) DropIndex(ctx context.Context, table, index string) (bool, error) {
	return h.callBool(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.DropIndex }, table, index)
}

// FindDuplicateKey returns the name of the unique index that values would
// violate, or an empty string.
func (h *Handler) FindDuplicateKey(ctx context.Context, table string, values map[string]string) (string, error) {
	var index string
	err := h.invoke(ctx, func(ctx context.Context, env *engine.Env, a symbols.HBaseAdapter) error {
		row, err := h.conv.Values(ctx, env, values)
		if err != nil || env.ExceptionCheck() {
			return err
		}
		v, err := env.CallStatic(ctx, a.FindDuplicateKey, table, row)
		index = engine.AsString(v)
		return err
	})
	return index, err
}

// FindDuplicateValue returns a value occurring more than once in a column,
// or an empty string. It is used before adding a unique index.
func (h *Handler) FindDuplicateValue(ctx context.Context, table, column string) (string, error) {
	var value string
	err := h.invoke(ctx, func(ctx context.Context, env *engine.Env, a symbols.HBaseAdapter) error {
		v, err := env.CallStatic(ctx, a.FindDuplicateValue, table, column)
		value = engine.AsString(v)
		return err
	})
	return value, err
}
