// Package kvstore persists frame records in an embedded key-value store.
//
// Writes happen in explicit transactions: Begin opens one, Put stages
// records, and Commit makes the whole batch durable at once. A rolled back
// or abandoned transaction leaves no trace, so a crash between commits keeps
// exactly the batches committed before it. Capacity is declared when the
// store is opened; exceeding it fails the transaction with ErrMapFull instead
// of growing the store.
//
// Two backends are available. "sqlite" keeps records in a WITHOUT ROWID
// table and enforces capacity with max_page_count. "bolt" keeps them in a
// bbolt bucket and enforces capacity by counting key and value bytes. Open
// takes an exclusive lock beside the store file so only one run writes a
// given output.
package kvstore
