package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"putik-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/cart_add.lua
var cartAddScript string

//go:embed scripts/cart_set.lua
var cartSetScript string

//go:embed scripts/release_lock.lua
var releaseLockScript string

type Client struct {
	rdb         *redis.Client
	sessionTTL  time.Duration
	cartAdd     *redis.Script
	cartSet     *redis.Script
	releaseLock *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int, sessionTTL time.Duration) (*Client, error) {
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

	return newClient(rdb, sessionTTL), nil
}

func newClient(rdb *redis.Client, sessionTTL time.Duration) *Client {
	return &Client{
		rdb:         rdb,
		sessionTTL:  sessionTTL,
		cartAdd:     redis.NewScript(cartAddScript),
		cartSet:     redis.NewScript(cartSetScript),
		releaseLock: redis.NewScript(releaseLockScript),
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection for readiness probes
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func cartQtyKey(userID string) string   { return fmt.Sprintf("cart:%s:qty", userID) }
func cartOrderKey(userID string) string { return fmt.Sprintf("cart:%s:order", userID) }
func checkoutKey(userID string) string  { return fmt.Sprintf("checkout:%s", userID) }
func availabilityKey(vehicleID int64) string {
	return fmt.Sprintf("availability:vehicle:%d", vehicleID)
}

func (c *Client) ttlSeconds() int {
	return int(c.sessionTTL / time.Second)
}

// AddCartItem atomically adds one unit unless the line already holds max
func (c *Client) AddCartItem(ctx context.Context, userID string, partID int64, max int) (int, error) {
	keys := []string{cartQtyKey(userID), cartOrderKey(userID)}

	qty, err := c.cartAdd.Run(ctx, c.rdb, keys, partID, max, c.ttlSeconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("cart add script failed: %w", err)
	}
	return qty, nil
}

// SetCartItem atomically sets a line to qty clamped to [0, max]; 0 removes it
func (c *Client) SetCartItem(ctx context.Context, userID string, partID int64, qty, max int) (int, error) {
	keys := []string{cartQtyKey(userID), cartOrderKey(userID)}

	stored, err := c.cartSet.Run(ctx, c.rdb, keys, partID, qty, max, c.ttlSeconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("cart set script failed: %w", err)
	}
	return stored, nil
}

// CartItems returns the cart lines in the order they were first added
func (c *Client) CartItems(ctx context.Context, userID string) ([]models.CartLine, error) {
	pipe := c.rdb.Pipeline()
	orderCmd := pipe.LRange(ctx, cartOrderKey(userID), 0, -1)
	qtyCmd := pipe.HGetAll(ctx, cartQtyKey(userID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	quantities := qtyCmd.Val()
	lines := make([]models.CartLine, 0, len(quantities))
	for _, raw := range orderCmd.Val() {
		partID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(quantities[raw])
		if err != nil || qty <= 0 {
			continue
		}
		lines = append(lines, models.CartLine{PartID: partID, Quantity: qty})
	}
	return lines, nil
}

// ReplaceCart overwrites the whole cart in one MULTI/EXEC
func (c *Client) ReplaceCart(ctx context.Context, userID string, lines []models.CartLine) error {
	qtyKey, orderKey := cartQtyKey(userID), cartOrderKey(userID)

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, qtyKey, orderKey)
		for _, l := range lines {
			if l.Quantity <= 0 {
				continue
			}
			pipe.RPush(ctx, orderKey, l.PartID)
			pipe.HSet(ctx, qtyKey, strconv.FormatInt(l.PartID, 10), l.Quantity)
		}
		pipe.Expire(ctx, qtyKey, c.sessionTTL)
		pipe.Expire(ctx, orderKey, c.sessionTTL)
		return nil
	})
	return err
}

// ClearCart empties the cart
func (c *Client) ClearCart(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, cartQtyKey(userID), cartOrderKey(userID)).Err()
}

// GetCheckout loads the wizard session; a missing session is idle
func (c *Client) GetCheckout(ctx context.Context, userID string) (*models.CheckoutSession, error) {
	raw, err := c.rdb.Get(ctx, checkoutKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &models.CheckoutSession{Step: models.CheckoutStepIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkout session: %w", err)
	}

	var session models.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	if session.Step == "" {
		session.Step = models.CheckoutStepIdle
	}
	return &session, nil
}

// SaveCheckout stores the wizard session with the session TTL
func (c *Client) SaveCheckout(ctx context.Context, userID string, session *models.CheckoutSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode checkout session: %w", err)
	}
	return c.rdb.Set(ctx, checkoutKey(userID), raw, c.sessionTTL).Err()
}

// DeleteCheckout drops the wizard session
func (c *Client) DeleteCheckout(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, checkoutKey(userID)).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// GetIdempotencyKey returns the stored value and whether the key exists
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// AcquireLock acquires a distributed lock and returns its owner token
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseLock releases a lock only if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	return c.releaseLock.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Err()
}

// CachedAvailability decodes a vehicle's availability snapshot into dst
func (c *Client) CachedAvailability(ctx context.Context, vehicleID int64, dst interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, availabilityKey(vehicleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode availability snapshot: %w", err)
	}
	return true, nil
}

// CacheAvailability stores a vehicle's availability snapshot
func (c *Client) CacheAvailability(ctx context.Context, vehicleID int64, snapshot interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode availability snapshot: %w", err)
	}
	return c.rdb.Set(ctx, availabilityKey(vehicleID), raw, ttl).Err()
}

// InvalidateAvailability drops the snapshots of the given vehicles
func (c *Client) InvalidateAvailability(ctx context.Context, vehicleIDs ...int64) error {
	if len(vehicleIDs) == 0 {
		return nil
	}
	keys := make([]string, len(vehicleIDs))
	for i, id := range vehicleIDs {
		keys[i] = availabilityKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
