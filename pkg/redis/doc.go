// Package redis opens and manages the Redis connection used by the
// session cache layer.
package redis
