package dedup

import (
	"context"
	"time"
)

// Guard reserva una clave una sola vez entre procesos. Claim devuelve false
// si otro ya la reservó y la reserva sigue vigente.
type Guard interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
