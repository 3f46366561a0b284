// Package fingerprint derives the deterministic identity digest used for
// duplicate detection and for downstream-side correlation ids.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/marconicastro/zeropragas-sub000/internal/domain"
	"github.com/marconicastro/zeropragas-sub000/internal/pii"
)

// BucketSize is the coarse time window folded into fingerprints of events
// that carry no transaction id. Retransmissions of the same logical event
// seconds apart land in the same bucket and dedup correctly.
const BucketSize = 60 * time.Second

// Compute returns the event fingerprint. When a transaction id is present it
// alone (with the kind and contact) identifies the occurrence and time is
// excluded entirely; otherwise arrival time participates as a floor bucket.
func Compute(ev *domain.InboundEvent) string {
	parts := []string{string(ev.Kind), pii.Normalize(ev.ContactKey())}

	if tx := strings.TrimSpace(ev.TransactionID()); tx != "" {
		parts = append(parts, "tx:"+tx)
	} else {
		bucket := ev.OccurredAt.UTC().Truncate(BucketSize).Unix()
		parts = append(parts, "b:"+strconv.FormatInt(bucket, 10))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// CorrelationID derives the downstream-side dedup id for one fingerprint and
// downstream pair. Retried attempts for the same event reuse the same id;
// distinct events never collide.
func CorrelationID(fp, downstream string) string {
	sum := sha256.Sum256([]byte(fp + "|" + downstream))
	return hex.EncodeToString(sum[:16])
}
