package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "order:tx:"
	reservationTTL = 24 * time.Hour
)

// Reservation is a Redis-backed fast path in front of the store's unique
// constraint on transaction id. SetNX either claims the key or tells us a
// request for the same transaction already passed through. The store
// constraint stays authoritative; a lost or errored reservation is never a
// correctness problem.
type Reservation struct {
	client *redis.Client
}

func NewReservation(client *redis.Client) *Reservation {
	return &Reservation{client: client}
}

// Reserve claims the transaction id. It returns false when another request
// already holds the reservation.
func (r *Reservation) Reserve(ctx context.Context, txID string) (bool, error) {
	return r.client.SetNX(ctx, keyPrefix+txID, 1, reservationTTL).Result()
}

// Release frees a reservation after a failed insert so a retry can claim it.
func (r *Reservation) Release(ctx context.Context, txID string) error {
	return r.client.Del(ctx, keyPrefix+txID).Err()
}
