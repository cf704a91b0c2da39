package rediskey

import "fmt"

// Key namespaces shared across the loyalty services. Keep them in one
// place so the worker and the API server never disagree on a key.
const (
	SequencePrefix = "seq"
	SweepPrefix    = "sweep"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildSequenceKey returns "seq:{prefix}:{day}", the daily INCR counter
// behind human-facing codes.
func BuildSequenceKey(prefix, day string) string {
	return NamespaceKey(SequencePrefix, fmt.Sprintf("%s:%s", prefix, day))
}

// BuildSweepLockKey returns "sweep:lock:{name}", used to keep multiple
// workers from running the same sweep concurrently.
func BuildSweepLockKey(name string) string {
	return NamespaceKey(SweepPrefix, fmt.Sprintf("lock:%s", name))
}
