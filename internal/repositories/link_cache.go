package repositories

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/shared"
)

const defaultCacheSize = 256

// LinkCache implements [models.LinkStore] in front of a [LinkRepository].
//
// The monitor looks up every observed track, most of which are not linked, so misses are cached as well as hits.
// Writes go through to the repository and drop the whole cache.
type LinkCache struct {
	repo     *LinkRepository
	byTrig   *lru.Cache[string, *models.Link]
	byTarget *lru.Cache[string, *models.Link]
}

// NewLinkCache creates a LinkCache holding up to size entries per index.
func NewLinkCache(repo *LinkRepository, size int) (*LinkCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}

	byTrig, err := lru.New[string, *models.Link](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create trigger cache: %w", err)
	}
	byTarget, err := lru.New[string, *models.Link](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create target cache: %w", err)
	}

	return &LinkCache{repo: repo, byTrig: byTrig, byTarget: byTarget}, nil
}

// FindByTriggerID returns the link for a trigger id, consulting the cache first.
func (c *LinkCache) FindByTriggerID(id string) (*models.Link, error) {
	return c.lookup(c.byTrig, id, c.repo.FindByTriggerID)
}

// FindByTargetID returns a link whose target is id, consulting the cache first.
func (c *LinkCache) FindByTargetID(id string) (*models.Link, error) {
	return c.lookup(c.byTarget, id, c.repo.FindByTargetID)
}

// lookup stores a nil value for ids known not to be linked.
func (c *LinkCache) lookup(cache *lru.Cache[string, *models.Link], id string, fetch func(string) (*models.Link, error)) (*models.Link, error) {
	if link, ok := cache.Get(id); ok {
		if link == nil {
			return nil, shared.ErrLinkNotFound
		}
		return link, nil
	}

	link, err := fetch(id)
	if errors.Is(err, shared.ErrLinkNotFound) {
		cache.Add(id, nil)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	cache.Add(id, link)
	return link, nil
}

// Insert writes through to the repository.
func (c *LinkCache) Insert(link *models.Link) error {
	defer c.Purge()
	return c.repo.Insert(link)
}

// Delete removes a link by trigger id and drops cached entries.
func (c *LinkCache) Delete(triggerID string) error {
	defer c.Purge()
	return c.repo.DeleteByTriggerID(triggerID)
}

// All always reads from the repository.
func (c *LinkCache) All() ([]*models.Link, error) {
	return c.repo.All()
}

// Purge empties both indexes.
func (c *LinkCache) Purge() {
	c.byTrig.Purge()
	c.byTarget.Purge()
}

// Len reports the number of cached trigger lookups, hits and misses alike.
func (c *LinkCache) Len() int {
	return c.byTrig.Len()
}
