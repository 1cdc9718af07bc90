package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cardex/pkg/platform/sentinel"
)

const (
	credentialKeyPrefix = "cred:id:"
	credentialIndexKey  = "cred:index"
)

// RedisLibrary is a Redis-backed credential library for deployments where
// multiple processes share one credential set.
type RedisLibrary struct {
	client *redis.Client
}

// NewRedisLibrary constructs a Redis-backed credential library. The client
// lifecycle is managed externally.
func NewRedisLibrary(client *redis.Client) *RedisLibrary {
	return &RedisLibrary{client: client}
}

func (l *RedisLibrary) Add(ctx context.Context, cred IssuedCredential, status Status) (StoredCredential, error) {
	stored := StoredCredential{IssuedCredential: cred, Status: status}
	if err := l.write(ctx, stored); err != nil {
		return StoredCredential{}, err
	}
	return stored, nil
}

func (l *RedisLibrary) Update(ctx context.Context, stored StoredCredential) (StoredCredential, error) {
	exists, err := l.client.Exists(ctx, credentialKeyPrefix+stored.CredentialID).Result()
	if err != nil {
		return StoredCredential{}, fmt.Errorf("check credential existence: %w", err)
	}
	if exists == 0 {
		return StoredCredential{}, fmt.Errorf("credential %q: %w", stored.CredentialID, sentinel.ErrNotFound)
	}
	if err := l.write(ctx, stored); err != nil {
		return StoredCredential{}, err
	}
	return stored, nil
}

func (l *RedisLibrary) FindByID(ctx context.Context, credentialID string) (StoredCredential, error) {
	raw, err := l.client.Get(ctx, credentialKeyPrefix+credentialID).Bytes()
	if errors.Is(err, redis.Nil) {
		return StoredCredential{}, fmt.Errorf("credential %q: %w", credentialID, sentinel.ErrNotFound)
	}
	if err != nil {
		return StoredCredential{}, fmt.Errorf("get credential: %w", err)
	}
	var stored StoredCredential
	if err := json.Unmarshal(raw, &stored); err != nil {
		return StoredCredential{}, fmt.Errorf("decode credential record: %w", err)
	}
	return stored, nil
}

func (l *RedisLibrary) List(ctx context.Context) ([]StoredCredential, error) {
	ids, err := l.client.SMembers(ctx, credentialIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list credential ids: %w", err)
	}
	out := make([]StoredCredential, 0, len(ids))
	for _, id := range ids {
		stored, err := l.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue // index can lag behind deletes
			}
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func (l *RedisLibrary) write(ctx context.Context, stored StoredCredential) error {
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode credential record: %w", err)
	}
	pipe := l.client.TxPipeline()
	pipe.Set(ctx, credentialKeyPrefix+stored.CredentialID, raw, 0)
	pipe.SAdd(ctx, credentialIndexKey, stored.CredentialID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write credential record: %w", err)
	}
	return nil
}
