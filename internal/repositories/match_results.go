package repositories

import (
	"context"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"gorm.io/gorm"
)

// MatchResults is the per-vacancy result store. A vacancy's result set is replaced
// wholesale: DeleteByVacancy followed by one Insert per candidate.
type MatchResults struct {
	db *gorm.DB
}

func NewMatchResultsRepository(db *gorm.DB) *MatchResults {
	return &MatchResults{db: db}
}

func (r *MatchResults) DeleteByVacancy(ctx context.Context, vacancyID int) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&entities.MatchResult{}, "assignment_id = ?", vacancyID)
	return res.RowsAffected, res.Error
}

func (r *MatchResults) Insert(ctx context.Context, result entities.MatchResult) error {
	return r.db.WithContext(ctx).Create(&result).Error
}

func (r *MatchResults) GetByVacancy(ctx context.Context, vacancyID int) ([]entities.MatchResult, error) {
	var results []entities.MatchResult
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", vacancyID).
		Order("overall_score DESC").
		Order("score DESC").
		Order("user_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetOutdatedVacancyIDs lists vacancies having results evaluated by an older evaluation version.
func (r *MatchResults) GetOutdatedVacancyIDs(ctx context.Context, currentVersion int) ([]int, error) {
	var ids []int
	if err := r.db.WithContext(ctx).Model(&entities.MatchResult{}).
		Where("evaluation_version < ?", currentVersion).
		Distinct().
		Order("assignment_id ASC").
		Pluck("assignment_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
