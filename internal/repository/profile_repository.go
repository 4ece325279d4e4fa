package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campusworks/sis-export-api/internal/models"
)

// ProfileRepository resolves requester profiles. The auth and invitation
// flows that populate these rows live in the upstream platform; this service
// only reads them.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID returns a profile by its identifier.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	const query = `SELECT id, organization_id, school_id, full_name, email, role, active, created_at, updated_at
FROM profiles WHERE id = $1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

// CachedProfileRepository layers a short-TTL cache over profile lookups so a
// burst of trigger invocations does not hammer the profiles table. Nil cache
// degrades to pass-through.
type CachedProfileRepository struct {
	inner  *ProfileRepository
	cache  *CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProfileRepository wraps the repository with caching.
func NewCachedProfileRepository(inner *ProfileRepository, cache *CacheRepository, ttl time.Duration, logger *zap.Logger) *CachedProfileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProfileRepository{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

// GetByID returns the cached profile when fresh, falling back to the database.
func (r *CachedProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	key := fmt.Sprintf("profiles:%s", id)
	if r.cache != nil {
		var cached models.Profile
		if err := r.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	profile, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, profile, r.ttl); err != nil {
			r.logger.Sugar().Warnw("failed to cache profile", "profile_id", id, "error", err)
		}
	}
	return profile, nil
}
