// Package symbols resolves and caches the adapter symbols the bridge calls.
//
// Symbols are organized in groups, one per adapter class: entry points
// (HBaseAdapter), row and result types (Row, IndexRow), metadata builders
// (ColumnMetadata, KeyValue, TableMultipartKeys), type markers
// (ColumnType, IndexReadType), diagnostics (Throwable) and containers
// (LinkedList, TreeMap).
//
// New resolves every group once, on an attached Env, before the cache is
// shared. Resolution is all or nothing: a single missing or mistyped symbol
// fails the whole cache with an *errors.MissingSymbolsError listing every
// problem, because the bridge and the adapter are then out of step.
//
//	cache, err := symbols.New(vm, env)
//	if err != nil {
//		return err // fatal
//	}
//	adapter := cache.HBaseAdapter()
//	count, err := env.CallStatic(ctx, adapter.GetRowCount, "t1")
package symbols
