// Package batch fetches a contiguous range of PokeAPI records in parallel.
//
// One request is issued per identifier on a bounded worker pool. The fetch
// completes only when every request has settled, and results are returned
// ordered by identifier regardless of completion order.
//
// Example usage:
//
//	fetcher := batch.NewFetcher(pokeClient, batch.DefaultConfig())
//	results, err := fetcher.FetchRange(ctx, batch.Range{First: 1, Last: 150})
//
// The fetcher:
//   - Validates the range before issuing any request
//   - Runs at most MaxConcurrency requests at a time (default 10)
//   - Cancels in-flight requests on the first failure
//   - Returns either all results or a *BatchError naming the failing id
//
// There is no retry and no partial result.
package batch
