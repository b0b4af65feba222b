// Package progress provides coarse-grained progress reporting for byte
// transfers. Callbacks fire when the transfer crosses a percentage bucket
// boundary, never per chunk, so a status surface (chat message edit, log
// line) is updated a bounded number of times per transfer.
package progress

// Func receives raw transfer progress from a transport.
type Func func(done, total int64)

// Gate wraps onBucket so it fires once per crossed bucket boundary
// (default 10%). A non-positive or unknown total disables reporting.
// The initial zero-percent crossing fires so the surface can show 0%.
func Gate(bucketSize float64, onBucket func(percent float64)) Func {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	lastBucket := -1
	return func(done, total int64) {
		if onBucket == nil || total <= 0 {
			return
		}
		percent := float64(done) / float64(total) * 100
		if percent > 100 {
			percent = 100
		}
		bucket := int(percent / bucketSize)
		if bucket > lastBucket {
			lastBucket = bucket
			onBucket(percent)
		}
	}
}
