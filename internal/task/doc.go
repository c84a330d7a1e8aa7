// Package task manages background execution of recognition work.
// It provides fire-and-forget dispatch for long-running operations like
// image annotation, ensuring they don't block HTTP request handling.
// All failure outcomes are written back into the image record store by
// the task itself; nothing propagates to the request that triggered it.
package task
