package repositories

import (
	"context"
	"strconv"
	"time"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	gocache "github.com/patrickmn/go-cache"
)

type vacancyRepository interface {
	GetWithRequirements(ctx context.Context, id int) (*entities.Vacancy, []entities.Requirement, error)
}

type cachedVacancy struct {
	vacancy      entities.Vacancy
	requirements []entities.Requirement
}

// CachedVacancies serves repeated interactive lookups from memory. Only found
// vacancies are cached so a newly created one is visible immediately.
type CachedVacancies struct {
	repo  vacancyRepository
	cache *gocache.Cache
}

func NewCachedVacancies(repo vacancyRepository, ttl time.Duration) *CachedVacancies {
	return &CachedVacancies{repo: repo, cache: gocache.New(ttl, 2*ttl)}
}

func (c *CachedVacancies) GetWithRequirements(ctx context.Context, id int) (*entities.Vacancy, []entities.Requirement, error) {
	key := strconv.Itoa(id)
	if value, found := c.cache.Get(key); found {
		cached := value.(cachedVacancy)
		vacancy := cached.vacancy
		return &vacancy, append([]entities.Requirement(nil), cached.requirements...), nil
	}

	vacancy, requirements, err := c.repo.GetWithRequirements(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	c.cache.Set(key, cachedVacancy{vacancy: *vacancy, requirements: requirements}, gocache.DefaultExpiration)
	return vacancy, requirements, nil
}

// Invalidate drops a cached vacancy. Refreshing a vacancy's matches calls it.
func (c *CachedVacancies) Invalidate(id int) {
	c.cache.Delete(strconv.Itoa(id))
}
