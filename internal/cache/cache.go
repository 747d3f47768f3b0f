// Package cache provides the Redis-backed cache in front of the address
// snapshot store. The snapshot in Postgres is the source of truth; every
// cache failure degrades to a database read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KLLNR/trading-exchange-api/internal/models"
)

const (
	// Address snapshot per accepted proposal: exchange:address:{proposal_id}
	keyAddress = "exchange:address:%d"
)

var ttlAddress = 24 * time.Hour

// New creates a Redis client for the given address.
func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// AddressCache caches disclosed address snapshots.
type AddressCache struct {
	rdb *redis.Client
}

func NewAddressCache(rdb *redis.Client) *AddressCache {
	return &AddressCache{rdb: rdb}
}

func (c *AddressCache) GetAddress(ctx context.Context, proposalID int64) (*models.ShippingAddress, bool) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf(keyAddress, proposalID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("redis get address for proposal %d: %v", proposalID, err)
		}
		return nil, false
	}

	var addr models.ShippingAddress
	if err := json.Unmarshal(data, &addr); err != nil {
		log.Printf("decode cached address for proposal %d: %v", proposalID, err)
		return nil, false
	}
	return &addr, true
}

func (c *AddressCache) SetAddress(ctx context.Context, proposalID int64, addr *models.ShippingAddress) {
	data, err := json.Marshal(addr)
	if err != nil {
		log.Printf("encode address for proposal %d: %v", proposalID, err)
		return
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(keyAddress, proposalID), data, ttlAddress).Err(); err != nil {
		log.Printf("redis set address for proposal %d: %v", proposalID, err)
	}
}
