package repositories

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/maxaizer/vacancy-matcher/internal/search"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const indexBatchSize = 500

// CandidateIndex is the read side of the candidate search index. Profiles and their
// embeddings are written by the ingestion pipeline; Upsert exists for it and for tests.
type CandidateIndex struct {
	db           *gorm.DB
	vectorWeight float64
}

func NewCandidateIndex(db *gorm.DB) *CandidateIndex {
	return &CandidateIndex{db: db, vectorWeight: search.DefaultVectorWeight}
}

func (c *CandidateIndex) Upsert(ctx context.Context, profile entities.CandidateProfile) error {
	return c.db.WithContext(ctx).Save(&profile).Error
}

func (c *CandidateIndex) GetByID(ctx context.Context, id int) (*entities.CandidateProfile, error) {
	var profile entities.CandidateProfile
	if err := c.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// Search ranks indexed profiles by the fused vector and keyword relevance to the query
// and returns at most topK of them, best first. An empty index yields an empty slice.
func (c *CandidateIndex) Search(ctx context.Context, vector []float32, keywordText string,
	topK int) ([]entities.ScoredCandidate, error) {

	if topK <= 0 {
		return []entities.ScoredCandidate{}, nil
	}

	terms := search.Tokenize(keywordText)
	scored := make([]entities.ScoredCandidate, 0, topK)
	skipped := 0

	var batch []entities.CandidateProfile
	err := c.db.WithContext(ctx).
		FindInBatches(&batch, indexBatchSize, func(tx *gorm.DB, _ int) error {
			for _, profile := range batch {
				if len(profile.Embedding) != len(vector) {
					skipped++
					continue
				}
				vectorScore := search.Cosine(vector, profile.Embedding)
				keywordScore := search.KeywordScore(terms, searchableText(profile))
				scored = append(scored, entities.ScoredCandidate{
					Profile: profile,
					Score:   search.Fuse(vectorScore, keywordScore, len(terms) > 0, c.vectorWeight),
				})
			}
			return nil
		}).Error
	if err != nil {
		return nil, err
	}

	if skipped > 0 {
		log.Warnf("skipped %d candidate profiles with embedding dimension other than %d", skipped, len(vector))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	for i := range scored {
		scored[i].Profile.Embedding = nil
	}
	return scored, nil
}

func searchableText(profile entities.CandidateProfile) string {
	parts := []string{profile.Seniority, profile.Summary, profile.Location, profile.ProjectText}
	parts = append(parts, profile.Skills...)
	parts = append(parts, profile.Tools...)
	parts = append(parts, profile.Certifications...)
	parts = append(parts, profile.PreferredRoles...)
	parts = append(parts, profile.Languages...)
	return strings.Join(parts, " ")
}
