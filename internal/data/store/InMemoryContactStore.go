package store

import (
	"context"
	"sync"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
)

type InMemoryContactStore struct {
	lock     *sync.RWMutex
	contacts []commonModels.Contact
}

func InitInMemoryContactStore() *InMemoryContactStore {
	return &InMemoryContactStore{lock: new(sync.RWMutex)}
}

func (store *InMemoryContactStore) SaveContact(ctx context.Context, contact commonModels.Contact) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	store.contacts = append(store.contacts, contact)
	return nil
}

func (store *InMemoryContactStore) ListContacts(ctx context.Context) ([]commonModels.Contact, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()
	return append([]commonModels.Contact(nil), store.contacts...), nil
}
