package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// eventIDLength is the number of hex characters kept from the digest.
// 32 hex chars = 128 bits, far beyond collision range for any realistic
// ledger size.
const eventIDLength = 32

// EventIDFromRequestID derives the idempotency key from a provider-assigned
// request identifier. Both the live interception path and the CSV import
// path derive the same key for the same underlying call, which is what
// makes cross-source deduplication work.
func EventIDFromRequestID(customerID, provider, requestID string) string {
	return digest(fmt.Sprintf("%s|%s|%s", customerID, provider, requestID))
}

// EventIDFromContent derives the idempotency key from event content when no
// provider request identifier is available. OccurredAt is truncated to the
// minute so that sub-minute timestamp jitter between a live record and a
// later export of the same call does not defeat deduplication.
func EventIDFromContent(customerID, provider, model string, promptTokens, completionTokens int64, occurredAt time.Time) string {
	return digest(fmt.Sprintf("%s|%s|%s|%d|%d|%d",
		customerID, provider, model,
		promptTokens, completionTokens,
		occurredAt.UTC().Truncate(time.Minute).Unix()))
}

// EventID picks the derivation for an event: the provider request ID when
// present, the content hash otherwise.
func EventID(e *MeteringEvent) string {
	if e.ProviderRequestID != "" {
		return EventIDFromRequestID(e.CustomerID, e.Provider, e.ProviderRequestID)
	}
	return EventIDFromContent(e.CustomerID, e.Provider, e.Model,
		e.PromptTokens, e.CompletionTokens, e.OccurredAt)
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:eventIDLength]
}
