package handler

import (
	"context"

	"github.com/wippyai/honeycomb/engine"
	"github.com/wippyai/honeycomb/errors"
	"github.com/wippyai/honeycomb/metadata"
	"github.com/wippyai/honeycomb/symbols"
)

// Row is one row returned by a scan.
type Row struct {
	UUID   string
	Values map[string]string
}

// session is an adapter-side cursor started by one request and ended by
// another. Its methods are not safe for concurrent use.
type session struct {
	h      *Handler
	id     int64
	closed bool
}

func (h *Handler) open(ctx context.Context, start call) (*session, error) {
	if err := h.invoke(ctx, start); err != nil {
		return nil, err
	}
	return &session{h: h}, nil
}

func (s *session) check() error {
	if s.closed {
		return errors.New(errors.PhaseCall, errors.KindReleased).Detail("session %d is closed", s.id).Build()
	}
	return nil
}

func (s *session) end(ctx context.Context, m func(symbols.HBaseAdapter) *engine.StaticMethodID) error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.h.callVoid(ctx, m, s.id)
}

// Scan is an open table or index scan.
type Scan struct {
	*session
	columns []string
	index   bool
}

// StartScan opens a table scan returning the given columns. full requests
// every row rather than an estimate-driven sample.
func (h *Handler) StartScan(ctx context.Context, table string, columns []string, full bool) (*Scan, error) {
	var id int64
	s, err := h.open(ctx, func(ctx context.Context, env *engine.Env, a symbols.HBaseAdapter) error {
		v, err := env.CallStatic(ctx, a.StartScan, table, full)
		id = engine.AsInt64(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.id = id
	return &Scan{session: s, columns: columns}, nil
}

// StartIndexScan opens a scan over a secondary index.
func (h *Handler) StartIndexScan(ctx context.Context, table, index string, columns []string) (*Scan, error) {
	var id int64
	s, err := h.open(ctx, func(ctx context.Context, env *engine.Env, a symbols.HBaseAdapter) error {
		v, err := env.CallStatic(ctx, a.StartIndexScan, table, index)
		id = engine.AsInt64(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.id = id
	return &Scan{session: s, columns: columns, index: true}, nil
}

// Next returns the next row. ok is false once the scan is exhausted.
func (s *Scan) Next(ctx context.Context) (row Row, ok bool, err error) {
	if err := s.check(); err != nil {
		return Row{}, false, err
	}
	err = s.h.bridge.Invoke(ctx, func(env *engine.Env, cache *symbols.Cache) error {
		next := cache.HBaseAdapter().NextRow
		if s.index {
			next = cache.HBaseAdapter().NextIndexRow
		}
		v, err := env.CallStatic(ctx, next, s.id)
		if err != nil {
			return err
		}
		row, ok, err = s.read(ctx, env, cache, engine.AsObject(v))
		return err
	})
	return row, ok, err
}

// Get fetches the row with the given uuid through the scan.
func (s *Scan) Get(ctx context.Context, uuid string) (row Row, ok bool, err error) {
	if err := s.check(); err != nil {
		return Row{}, false, err
	}
	err = s.h.bridge.Invoke(ctx, func(env *engine.Env, cache *symbols.Cache) error {
		v, err := env.CallStatic(ctx, cache.HBaseAdapter().GetRow, s.id, uuid)
		if err != nil {
			return err
		}
		row, ok, err = s.read(ctx, env, cache, engine.AsObject(v))
		return err
	})
	return row, ok, err
}

// IndexRead positions an index scan on key and returns the row found.
func (s *Scan) IndexRead(ctx context.Context, key []metadata.KeyPart, mode metadata.ReadMode) (row Row, ok bool, err error) {
	if err := s.check(); err != nil {
		return Row{}, false, err
	}
	err = s.h.bridge.Invoke(ctx, func(env *engine.Env, cache *symbols.Cache) error {
		keys, err := s.h.conv.Key(ctx, env, key)
		if err != nil || env.ExceptionCheck() {
			return err
		}
		m, err := s.h.conv.ReadMode(env, mode)
		if err != nil {
			return err
		}
		v, err := env.CallStatic(ctx, cache.HBaseAdapter().IndexRead, s.id, keys, m)
		if err != nil {
			return err
		}
		row, ok, err = s.read(ctx, env, cache, engine.AsObject(v))
		return err
	})
	return row, ok, err
}

// read converts a Row or IndexRow object. A zero handle means no row.
func (s *Scan) read(ctx context.Context, env *engine.Env, cache *symbols.Cache, obj engine.Object) (Row, bool, error) {
	if obj == 0 || env.ExceptionCheck() {
		return Row{}, false, nil
	}

	getRowMap, getUUID := cache.Row().GetRowMap, cache.Row().GetUUID
	if s.index {
		getRowMap, getUUID = cache.IndexRow().GetRowMap, cache.IndexRow().GetUUID
	}

	v, err := env.CallMethod(ctx, obj, getUUID)
	if err != nil || env.ExceptionCheck() {
		return Row{}, false, err
	}
	row := Row{UUID: engine.AsString(v), Values: make(map[string]string, len(s.columns))}

	v, err = env.CallMethod(ctx, obj, getRowMap)
	if err != nil || env.ExceptionCheck() {
		return Row{}, false, err
	}
	values := engine.AsObject(v)
	for _, col := range s.columns {
		v, err := env.CallMethod(ctx, values, cache.TreeMap().Get, col)
		if err != nil || env.ExceptionCheck() {
			return Row{}, false, err
		}
		row.Values[col] = engine.AsString(v)
	}
	return row, true, nil
}

// Close ends the scan. Closing twice is a no-op.
func (s *Scan) Close(ctx context.Context) error {
	return s.end(ctx, func(a symbols.HBaseAdapter) *engine.StaticMethodID { return a.EndScan })
}
