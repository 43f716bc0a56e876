package repositories

import (
	"context"
	"errors"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"gorm.io/gorm"
)

type Vacancies struct {
	db *gorm.DB
}

func NewVacanciesRepository(db *gorm.DB) *Vacancies {
	return &Vacancies{db: db}
}

// Add stores a vacancy with its requirements. Vacancies are owned by the vacancy management
// subsystem, this exists for seeding and tests.
func (v *Vacancies) Add(ctx context.Context, vacancy *entities.Vacancy, requirements []entities.Requirement) error {
	return v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(vacancy).Error; err != nil {
			return err
		}
		if len(requirements) == 0 {
			return nil
		}
		for i := range requirements {
			requirements[i].VacancyID = vacancy.ID
		}
		return tx.Create(&requirements).Error
	})
}

func (v *Vacancies) GetByID(ctx context.Context, id int) (*entities.Vacancy, error) {
	var vacancy entities.Vacancy
	if err := v.db.WithContext(ctx).First(&vacancy, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrVacancyNotFound
		}
		return nil, err
	}
	return &vacancy, nil
}

// GetRequirements returns the requirements ordered by priority with required ones first.
func (v *Vacancies) GetRequirements(ctx context.Context, vacancyID int) ([]entities.Requirement, error) {
	var requirements []entities.Requirement
	if err := v.db.WithContext(ctx).
		Where("vacancy_id = ?", vacancyID).
		Order("priority ASC").
		Order("is_required DESC").
		Order("id ASC").
		Find(&requirements).Error; err != nil {
		return nil, err
	}
	return requirements, nil
}

func (v *Vacancies) GetWithRequirements(ctx context.Context, id int) (*entities.Vacancy, []entities.Requirement, error) {
	vacancy, err := v.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	requirements, err := v.GetRequirements(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return vacancy, requirements, nil
}
