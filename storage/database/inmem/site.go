package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/masomo-lms/core/site"
)

type siteTable struct {
	mutex   sync.RWMutex
	about   *site.About
	contact *site.Contact
}

type siteRepository struct {
	db *siteTable
}

var _ site.Repository = (*siteRepository)(nil)

func NewSiteRepository(db *DB) site.Repository {
	return &siteRepository{db: db.site}
}

func (repo *siteRepository) GetAbout(context.Context) (site.About, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.about == nil {
		return site.About{}, site.ErrNotFound
	}
	return *repo.db.about, nil
}

func (repo *siteRepository) SaveAbout(_ context.Context, a site.About) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.about = &a
	return nil
}

func (repo *siteRepository) GetContact(context.Context) (site.Contact, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.contact == nil {
		return site.Contact{}, site.ErrNotFound
	}
	return *repo.db.contact, nil
}

func (repo *siteRepository) SaveContact(_ context.Context, c site.Contact) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.contact = &c
	return nil
}
