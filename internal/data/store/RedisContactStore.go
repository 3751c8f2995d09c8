package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/data/redisStore"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

// RedisContactStore appends contacts to one redis list, oldest first.
type RedisContactStore struct {
	store *redisStore.Store
}

func GetRedisContactStore(ctx context.Context) *RedisContactStore {
	s := redisStore.GetRedisStore(ctx, config.RedisContactStore)
	if s == nil {
		return nil
	}
	return &RedisContactStore{store: s}
}

func (s *RedisContactStore) SaveContact(ctx context.Context, contact commonModels.Contact) error {
	data, err := json.Marshal(contact)
	if err != nil {
		return err
	}
	if err = s.store.ListPush(ctx, config.ContactListKey, data); err != nil {
		logger_i.FromContext(ctx, "ContactStore").Error("Error saving contact", "error", err)
		return err
	}
	return nil
}

func (s *RedisContactStore) ListContacts(ctx context.Context) ([]commonModels.Contact, error) {
	raw, err := s.store.ListGetAll(ctx, config.ContactListKey)
	if err != nil {
		return nil, err
	}
	contacts := make([]commonModels.Contact, 0, len(raw))
	for i, item := range raw {
		var c commonModels.Contact
		if err := json.Unmarshal([]byte(item), &c); err != nil {
			return nil, fmt.Errorf("contact %d: %w", i, err)
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

func TestContactStore(store *redisStore.Store) *RedisContactStore {
	return &RedisContactStore{store: store}
}
