// Package ingest writes labeled frame records into a key-value store.
//
// Writer consumes decoded frames from a Source in batches. Each batch is one
// store transaction: every frame is resolved to its labels, serialized and
// staged, and the transaction commits only when the whole batch is staged.
// Any failure rolls back the open batch and stops the run, so a store always
// holds a prefix of whole batches. Run wires discovery, the parallel frame
// loader, the label resolver and the writer together for the records
// command.
package ingest
