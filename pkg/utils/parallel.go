package utils

import (
	"github.com/zeromicro/go-zero/core/mr"
)

// ParallelMap 用 workers 个协程并发执行 fn，结果顺序与 inputs 一致。
func ParallelMap[T any, R any](inputs []T, workers int, fn func(T) R) []R {
	results := make([]R, len(inputs))
	if len(inputs) == 0 {
		return results
	}
	if workers <= 0 {
		workers = 1
	}

	mr.ForEach(func(source chan<- int) {
		for i := range inputs {
			source <- i
		}
	}, func(i int) {
		results[i] = fn(inputs[i])
	}, mr.WithWorkers(min(workers, len(inputs))))

	return results
}
