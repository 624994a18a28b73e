package analytics

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/iuslabs/lexdex/internal/domain/feedback"
)

// bucketCount gives 0.01% split resolution.
const bucketCount = 10000

// pickVariant maps (user, test) onto a variant per the configured traffic
// split. Deterministic: the same pair always lands in the same bucket, and
// buckets partition [0, 1) in declared variant order. The last variant
// absorbs any floating-point remainder.
func pickVariant(userID, testID string, cfg feedback.ABTestConfig) string {
	h := sha256.Sum256([]byte(userID + ":" + testID))
	bucket := float64(binary.BigEndian.Uint64(h[:8])%bucketCount) / bucketCount

	cumulative := 0.0
	for i, v := range cfg.Variants {
		if i == len(cfg.Variants)-1 {
			return v
		}
		cumulative += cfg.TrafficSplit[v]
		if bucket < cumulative {
			return v
		}
	}
	return ""
}
