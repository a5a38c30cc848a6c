// Package feed adapts an upstream WebSocket quote stream into calls
// against a priceservice.Service: it opens batches, stages each
// incoming quote as a price.Record, and completes a batch on a fixed
// window so the coordinator's commit protocol governs visibility.
//
// Decoding happens at the Client boundary, not in the adapter: Client
// parses every wire frame into a price.Record itself and only ever
// forwards the ones that parse and pass record validation, so a
// malformed frame is a client-internal concern the adapter never
// handles.
//
// A Client does not reconnect: Adapter.Run opens a fresh Client after
// each disconnect, with exponential backoff, and cancels whatever
// batch was in flight when the connection dropped.
package feed
