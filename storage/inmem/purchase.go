package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/soko/core/purchase"
)

type PurchaseRepository struct {
	mu        sync.RWMutex
	purchases map[string]purchase.Purchase
}

var _ purchase.Repository = (*PurchaseRepository)(nil)

func NewPurchaseRepository() *PurchaseRepository {
	return &PurchaseRepository{purchases: make(map[string]purchase.Purchase)}
}

func (repo *PurchaseRepository) Clear() {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.purchases = make(map[string]purchase.Purchase)
}

func (repo *PurchaseRepository) CreatePurchase(_ context.Context, p purchase.Purchase) (purchase.Purchase, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.purchases[p.ID] = p
	return p, nil
}

func (repo *PurchaseRepository) GetPurchase(_ context.Context, id string) (purchase.Purchase, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	p, ok := repo.purchases[id]
	if !ok {
		return purchase.Purchase{}, purchase.ErrNotFound
	}
	return p, nil
}

// SetPurchaseStatusIf holds the write lock for the whole compare-and-set, so
// concurrent transitions on the same purchase serialize and exactly one wins.
func (repo *PurchaseRepository) SetPurchaseStatusIf(_ context.Context, id string, from, to purchase.Status) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	p, ok := repo.purchases[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	repo.purchases[id] = p
	return true, nil
}

func (repo *PurchaseRepository) QueryCompletedByCourse(_ context.Context, courseIDs []string) ([]purchase.Purchase, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	ids := make(map[string]struct{}, len(courseIDs))
	for _, id := range courseIDs {
		ids[id] = struct{}{}
	}

	purchases := make([]purchase.Purchase, 0)
	for _, p := range repo.purchases {
		if _, ok := ids[p.CourseID]; ok && p.Status == purchase.StatusCompleted {
			purchases = append(purchases, p)
		}
	}
	return purchases, nil
}
