package sqlxrepos

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/site"
)

// keys of the site_setting table
const (
	aboutKey   = "about_page"
	contactKey = "contact_page"
)

type siteRepository struct {
	db *sqlx.DB
}

var _ site.Repository = (*siteRepository)(nil)

func NewSiteRepository(db *sqlx.DB) site.Repository {
	return &siteRepository{db: db}
}

func (repo *siteRepository) load(ctx context.Context, key string, dst interface{}) error {
	var value types.JSONText
	if err := repo.db.GetContext(ctx, &value, `SELECT value FROM site_setting WHERE key = $1`, key); err != nil {
		return getOr(err, site.ErrNotFound)
	}
	return errors.Wrapf(value.Unmarshal(dst), "decoding %s", key)
}

func (repo *siteRepository) save(ctx context.Context, key string, src interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	q := `INSERT INTO site_setting (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	_, err = repo.db.ExecContext(ctx, q, key, types.JSONText(data))
	return errors.Wrapf(err, "saving %s", key)
}

func (repo *siteRepository) GetAbout(ctx context.Context) (site.About, error) {
	var a site.About
	if err := repo.load(ctx, aboutKey, &a); err != nil {
		return site.About{}, err
	}
	return a, nil
}

func (repo *siteRepository) SaveAbout(ctx context.Context, a site.About) error {
	return repo.save(ctx, aboutKey, a)
}

func (repo *siteRepository) GetContact(ctx context.Context) (site.Contact, error) {
	var c site.Contact
	if err := repo.load(ctx, contactKey, &c); err != nil {
		return site.Contact{}, err
	}
	return c, nil
}

func (repo *siteRepository) SaveContact(ctx context.Context, c site.Contact) error {
	return repo.save(ctx, contactKey, c)
}
