package cache

import (
	"context"
	"sync"

	"dragonvpn-app/internal/model"
)

// PendingPayments is the ordered list of unresolved payments kept in the
// session partition. Oldest first.
type PendingPayments struct {
	mu    sync.Mutex
	cache *Cache
}

func NewPendingPayments(c *Cache) *PendingPayments {
	return &PendingPayments{cache: c}
}

func (p *PendingPayments) List(ctx context.Context) ([]model.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.load(ctx)
}

func (p *PendingPayments) IDs(ctx context.Context) ([]model.ID, error) {
	list, err := p.List(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]model.ID, 0, len(list))
	for _, pay := range list {
		ids = append(ids, pay.ID)
	}
	return ids, nil
}

func (p *PendingPayments) Find(ctx context.Context, id model.ID) (*model.Payment, bool, error) {
	list, err := p.List(ctx)
	if err != nil {
		return nil, false, err
	}

	for i := range list {
		if list[i].ID == id {
			return &list[i], true, nil
		}
	}
	return nil, false, nil
}

// Add inserts pay, or replaces the entry with the same id in place.
func (p *PendingPayments) Add(ctx context.Context, pay model.Payment) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	list, err := p.load(ctx)
	if err != nil {
		return err
	}

	for i := range list {
		if list[i].ID == pay.ID {
			list[i] = pay
			return p.save(ctx, list)
		}
	}
	return p.save(ctx, append(list, pay))
}

// Remove reports whether an entry was deleted.
func (p *PendingPayments) Remove(ctx context.Context, id model.ID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	list, err := p.load(ctx)
	if err != nil {
		return false, err
	}

	kept := list[:0]
	for _, pay := range list {
		if pay.ID != id {
			kept = append(kept, pay)
		}
	}
	if len(kept) == len(list) {
		return false, nil
	}
	return true, p.save(ctx, kept)
}

func (p *PendingPayments) Replace(ctx context.Context, list []model.Payment) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.save(ctx, list)
}

func (p *PendingPayments) load(ctx context.Context) ([]model.Payment, error) {
	var list []model.Payment
	if _, err := p.cache.Get(ctx, KeyPendingPayments, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *PendingPayments) save(ctx context.Context, list []model.Payment) error {
	if list == nil {
		list = []model.Payment{}
	}
	return p.cache.Set(ctx, KeyPendingPayments, list, false)
}
