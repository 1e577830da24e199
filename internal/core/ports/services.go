package ports

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/samirrijal/data512/internal/core/domain"
)

// ArtifactPublisher announces written artifacts to a message broker.
type ArtifactPublisher interface {
	PublishArtifact(ctx context.Context, event *domain.ArtifactEvent) error
}

// CacheService provides read-through caching of upstream responses.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// BoundaryReprojector converts a projected boundary ring to geographic
// coordinates, keeping vertex order and count.
type BoundaryReprojector interface {
	Reproject(ring orb.Ring) ([]domain.GeoPoint, error)
}
