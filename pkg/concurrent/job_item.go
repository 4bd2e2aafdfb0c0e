package concurrent

type Job[T any] struct {
	ID      int
	JobItem T
}

// JobFunc processes one job item and returns its result.
type JobFunc[T any, G any] func(job T) G
