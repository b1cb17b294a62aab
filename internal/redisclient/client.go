package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/claim_listings.lua
var claimListingsScript string

//go:embed scripts/release_listings.lua
var releaseListingsScript string

type Client struct {
	rdb           *redis.Client
	claimScript   *redis.Script
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		claimScript:   redis.NewScript(claimListingsScript),
		releaseScript: redis.NewScript(releaseListingsScript),
	}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func claimKeys(listingIDs []int64) []string {
	keys := make([]string, len(listingIDs))
	for i, id := range listingIDs {
		keys[i] = fmt.Sprintf("listing:claim:%d", id)
	}
	return keys
}

// ClaimListings atomically claims all listings for owner, or none of them.
// Returns false when another owner currently holds any of the listings; a
// repeated claim by the same owner succeeds.
func (c *Client) ClaimListings(ctx context.Context, listingIDs []int64, owner string, ttl time.Duration) (bool, error) {
	if len(listingIDs) == 0 {
		return true, nil
	}

	result, err := c.claimScript.Run(ctx, c.rdb, claimKeys(listingIDs), owner, ttl.Milliseconds()).Result()
	if err != nil {
		return false, fmt.Errorf("claim listings script failed: %w", err)
	}

	success, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	return success == 1, nil
}

// ReleaseListings drops the claims owner still holds. Claims that expired or
// were taken over by someone else are left alone.
func (c *Client) ReleaseListings(ctx context.Context, listingIDs []int64, owner string) error {
	if len(listingIDs) == 0 {
		return nil
	}

	if _, err := c.releaseScript.Run(ctx, c.rdb, claimKeys(listingIDs), owner).Result(); err != nil {
		return fmt.Errorf("release listings script failed: %w", err)
	}
	return nil
}

// RevokeToken denylists a token id until ttl elapses.
func (c *Client) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, fmt.Sprintf("revoked:%s", tokenID), "1", ttl).Err()
}

func (c *Client) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, fmt.Sprintf("revoked:%s", tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
