package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront/order-fulfillment/internal/core/domain"
	"github.com/storefront/order-fulfillment/internal/port"
)

const recordKeyPrefix = "fulfillment:"

// getOrCreateScript returns the existing record, or stores ARGV[1] and
// returns it with a created flag. Records carry no TTL: they are the
// audit log that makes redelivery safe.
var getOrCreateScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if existing then
	return {0, existing}
end
redis.call('SET', KEYS[1], ARGV[1])
return {1, ARGV[1]}
`)

// updateScript is a compare-and-set on the record's version field.
// ARGV[1] is the new record JSON (version already bumped), ARGV[2] the
// version the caller read.
var updateScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if not existing then
	return 0
end
local current = cjson.decode(existing)
if current.version ~= tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
return 1
`)

// RedisRecordStore keeps fulfillment records in Redis, one JSON value
// per order ID, synchronized via Lua scripts.
type RedisRecordStore struct {
	client *redis.Client
}

func NewRedisRecordStore(client *redis.Client) *RedisRecordStore {
	return &RedisRecordStore{client: client}
}

func (r *RedisRecordStore) GetOrCreate(ctx context.Context, orderID string) (*domain.FulfillmentRecord, bool, error) {
	now := time.Now().UTC()
	fresh := domain.FulfillmentRecord{
		OrderID:      orderID,
		Status:       domain.FulfillmentPending,
		AppliedLines: []int{},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	payload, err := json.Marshal(fresh)
	if err != nil {
		return nil, false, fmt.Errorf("marshal record: %w", err)
	}

	raw, err := getOrCreateScript.Run(ctx, r.client, []string{recordKeyPrefix + orderID}, payload).Slice()
	if err != nil {
		return nil, false, fmt.Errorf("get-or-create record: %w", err)
	}
	if len(raw) != 2 {
		return nil, false, fmt.Errorf("get-or-create record: unexpected reply %v", raw)
	}

	flag, ok := raw[0].(int64)
	if !ok {
		return nil, false, fmt.Errorf("get-or-create record: unexpected flag type %T", raw[0])
	}
	created := flag == 1
	stored, ok := raw[1].(string)
	if !ok {
		return nil, false, fmt.Errorf("get-or-create record: unexpected payload type %T", raw[1])
	}

	var record domain.FulfillmentRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		return nil, false, fmt.Errorf("unmarshal record: %w", err)
	}
	return &record, created, nil
}

func (r *RedisRecordStore) Update(ctx context.Context, record *domain.FulfillmentRecord) error {
	expected := record.Version
	next := *record
	next.Version = expected + 1
	next.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	ok, err := updateScript.Run(ctx, r.client, []string{recordKeyPrefix + record.OrderID}, payload, expected).Int()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if ok != 1 {
		return port.ErrConflict
	}

	record.Version = next.Version
	record.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *RedisRecordStore) Get(ctx context.Context, orderID string) (*domain.FulfillmentRecord, error) {
	raw, err := r.client.Get(ctx, recordKeyPrefix+orderID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	var record domain.FulfillmentRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &record, nil
}
