package dummydb

import (
	"context"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/substitution"
)

type substitutionRepository struct {
	db *table[substitution.Substitution]
}

var _ substitution.Repository = (*substitutionRepository)(nil) // interface compliance check

func NewSubstitutionRepository(db *DB) substitution.Repository {
	return &substitutionRepository{db: db.substitution}
}

func (repo *substitutionRepository) CreateSubstitution(_ context.Context, sub substitution.Substitution) (substitution.Substitution, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub.ID = newID()
	sub.Date = dateOnly(sub.Date)
	repo.db.rows[sub.ID] = sub
	return sub, nil
}

func (repo *substitutionRepository) GetSubstitution(_ context.Context, id string) (substitution.Substitution, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.rows[id]; ok {
		return sub, nil
	}
	return substitution.Substitution{}, substitution.ErrNotFound
}

func (repo *substitutionRepository) QuerySubstitutions(
	_ context.Context, filter *substitution.QueryFilter,
) ([]substitution.Substitution, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	keep := func(sub substitution.Substitution) bool {
		if filter == nil {
			return true
		}
		if filter.Status != "" && sub.Status != filter.Status {
			return false
		}
		if filter.RequesterID != "" && sub.RequesterID != filter.RequesterID {
			return false
		}
		if filter.SubstituteID != "" && sub.SubstituteID != filter.SubstituteID {
			return false
		}
		if filter.ClassID != "" && sub.ClassID != filter.ClassID {
			return false
		}
		return inRange(sub.Date, filter.From, filter.To)
	}
	less := func(a, b substitution.Substitution) bool {
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.CreatedAt.After(b.CreatedAt)
	}
	return repo.db.all(keep, less), nil
}

func (repo *substitutionRepository) UpdateSubstitution(_ context.Context, sub substitution.Substitution) (substitution.Substitution, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[sub.ID]
	if !ok {
		return substitution.Substitution{}, substitution.ErrNotFound
	}
	orig.Status = sub.Status
	orig.SubstituteID = sub.SubstituteID
	orig.ReviewedBy = sub.ReviewedBy
	orig.ReviewNote = sub.ReviewNote
	orig.ReviewedAt = sub.ReviewedAt
	orig.UpdatedAt = sub.UpdatedAt
	repo.db.rows[sub.ID] = orig
	return orig, nil
}

func (repo *substitutionRepository) DeleteSubstitution(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return substitution.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}
