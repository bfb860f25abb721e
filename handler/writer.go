package handler

import (
	"context"

	"github.com/wippyai/honeycomb/engine"
	"github.com/wippyai/honeycomb/symbols"
)

// Writer is an open batch of row mutations on one table.
type Writer struct {
	*session
}

// StartWrite opens a writer on table.
func (h *Handler) StartWrite(ctx context.Context, table string) (*Writer, error) {
	var id int64
	s, err := h.open(ctx, func(ctx context.Context, env *engine.Env, a symbols.HBaseAdapter) error {
		v, err := env.CallStatic(ctx, a.StartWrite, table)
		id = engine.AsInt64(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.id = id
	return &Writer{session: s}, nil
}

func (w *Writer) mutate(ctx context.Context, m func(symbols.HBaseAdapter) *engine.StaticMethodID, uuid *string, values map[string]string) (bool, error) {
	if err := w.check(); err != nil {
		return false, err
	}
	var ok bool
	err := w.h.invoke(ctx, func(ctx context.Context, env *engine.Env, a symbols.HBaseAdapter) error {
		args := []any{w.id}
		if uuid != nil {
			args = append(args, *uuid)
		}
		if values != nil {
			row, err := w.h.conv.Values(ctx, env, values)
			if err != nil || env.ExceptionCheck() {
				return err
			}
			args = append(args, row)
		}
		v, err := env.CallStatic(ctx, m(a), args...)
		ok = engine.AsBool(v)
		return err
	})
	return ok, err
}

// Write inserts a row.
func (w *Writer) Write(ctx context.Context, values map[string]string) (bool, error) {
	if values == nil {
		values = map[string]string{}
	}
	return w.mutate(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.WriteRow }, nil, values)
}

// Update replaces the values of the row with the given uuid.
func (w *Writer) Update(ctx context.Context, uuid string, values map[string]string) (bool, error) {
	if values == nil {
		values = map[string]string{}
	}
	return w.mutate(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.UpdateRow }, &uuid, values)
}

// Delete removes the row with the given uuid.
func (w *Writer) Delete(ctx context.Context, uuid string) (bool, error) {
	return w.mutate(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.DeleteRow }, &uuid, nil)
}

// Flush pushes buffered mutations to the store.
func (w *Writer) Flush(ctx context.Context) error {
	if err := w.check(); err != nil {
		return err
	}
	return w.h.callVoid(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.FlushWrites }, w.id)
}

// Close ends the writer. Closing twice is a no-op.
func (w *Writer) Close(ctx context.Context) error {
	return w.end(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.EndWrite })
}
