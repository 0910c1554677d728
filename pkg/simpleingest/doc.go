// Package simpleingest turns object-storage change notifications into
// document and document-version records on a remote ledger service.
//
// The pipeline has four stages: ParseEvent normalizes a raw MinIO/S3
// notification payload into a StorageEvent; a Registry maps event names
// (exact strings or glob patterns) to handlers; a Dispatcher selects the
// most specific handler and invokes it; and DocumentWorkflow, the handler
// for created objects, drives an idempotent lookup-then-create-then-version
// sequence against the ledger RPC service (see the ledger subpackage).
//
// Delivery is at-least-once: the queue consumer (consumer subpackage) may
// redeliver any message, so every remote-state-changing step is written to
// be safe to repeat. The registry is populated once at startup and is
// read-only afterwards, so dispatching requires no locking under concurrent
// consumption.
package simpleingest
