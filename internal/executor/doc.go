// Package executor implements GraphQL request execution against a schema
// and a Runtime. Execution is depth-recursive and synchronous; resolvers
// that need internal concurrency (such as batched entity resolution) fan
// out behind the Runtime interface and report per-position failures via
// PartialError.
package executor
