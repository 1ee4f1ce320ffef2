package dummydb

import (
	"context"
	"strings"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
)

type paymentRepository struct {
	db *table[payment.Record]
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db.payment}
}

func (repo *paymentRepository) CreateRecord(_ context.Context, rec payment.Record) (payment.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec.ID = newID()
	rec.Date = dateOnly(rec.Date)
	repo.db.rows[rec.ID] = rec
	return rec, nil
}

func (repo *paymentRepository) GetRecord(_ context.Context, id string) (payment.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.rows[id]; ok {
		return rec, nil
	}
	return payment.Record{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryRecords(_ context.Context, filter *payment.QueryFilter) ([]payment.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	keep := func(rec payment.Record) bool {
		if filter == nil {
			return true
		}
		if filter.ParentContact != "" && strings.TrimSpace(rec.ParentContact) != filter.ParentContact {
			return false
		}
		return inRange(rec.Date, filter.From, filter.To)
	}
	less := func(a, b payment.Record) bool {
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.CreatedAt.After(b.CreatedAt)
	}
	return repo.db.all(keep, less), nil
}

func (repo *paymentRepository) UpdateRecord(_ context.Context, rec payment.Record) (payment.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[rec.ID]
	if !ok {
		return payment.Record{}, payment.ErrNotFound
	}
	orig.Amount = rec.Amount
	orig.Date = dateOnly(rec.Date)
	orig.Notes = rec.Notes
	repo.db.rows[rec.ID] = orig
	return orig, nil
}

func (repo *paymentRepository) DeleteRecord(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return payment.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}
