// Package resource admits segment load work against process-wide limits.
//
// A Controller governs three resources shared by every segment in a process:
//
//   - Memory: bytes held by decoded columns and index artifacts (fail-fast)
//   - Workers: concurrent load tasks (blocking semaphore)
//   - IO: remote read throughput (token bucket)
//
// # Usage
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   4 << 30,
//	    IOLimitBytesPerSec: 200 << 20,
//	})
//
//	if err := rc.AcquireMemory(size); err != nil {
//	    return err // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(size)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops.
package resource
