package dummydb

import (
	"context"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/material"
)

type materialRepository struct {
	db *table[material.Material]
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *DB) material.Repository {
	return &materialRepository{db: db.material}
}

func (repo *materialRepository) CreateMaterial(_ context.Context, m material.Material) (material.Material, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m.ID = newID()
	repo.db.rows[m.ID] = m
	return m, nil
}

func (repo *materialRepository) GetMaterial(_ context.Context, id string) (material.Material, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.rows[id]; ok {
		return m, nil
	}
	return material.Material{}, material.ErrNotFound
}

func (repo *materialRepository) QueryMaterials(_ context.Context, filter *material.QueryFilter) ([]material.Material, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	keep := func(m material.Material) bool {
		if filter == nil {
			return true
		}
		if filter.ClassID != "" && m.ClassID != filter.ClassID {
			return false
		}
		return filter.TeacherID == "" || m.TeacherID == filter.TeacherID
	}
	less := func(a, b material.Material) bool { return a.CreatedAt.After(b.CreatedAt) }
	return repo.db.all(keep, less), nil
}

func (repo *materialRepository) DeleteMaterial(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return material.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}
