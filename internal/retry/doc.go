// Package retry retries operations that fail with transient errors, waiting
// between attempts according to a backoff Strategy.
//
// pgjson only retries connection establishment; the import steps themselves
// are never retried.
//
//	exec := retry.NewExecutor(retry.NewPostgreSQLErrorClassifier(),
//	    retry.NewExponentialBackoff(3, retry.WithMaxDelay(time.Minute)))
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
package retry
