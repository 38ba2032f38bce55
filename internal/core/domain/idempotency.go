package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrIdempotencyKeyExists is returned when another submission already
// claimed the key.
var ErrIdempotencyKeyExists = errors.New("idempotency key already used")

// IdempotencyLog is the durable record of a sale created under an
// Idempotency-Key. It outlives the Redis replay cache.
type IdempotencyLog struct {
	Key          string    `json:"key"` // Format: "worker_id:client_key"
	SaleID       uuid.UUID `json:"sale_id"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildIdempotencyKey scopes a client-supplied key to the submitting worker.
func BuildIdempotencyKey(workerID uuid.UUID, clientKey string) string {
	return workerID.String() + ":" + clientKey
}
