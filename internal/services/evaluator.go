package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/maxaizer/vacancy-matcher/internal/logger"
	"github.com/maxaizer/vacancy-matcher/internal/metrics"
	"github.com/qri-io/jsonschema"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	projectTextLimit = 1000

	fallbackReasoning       = "Evaluation failed, used similarity fallback."
	fallbackEvidence        = "Evaluation failed"
	similarityOnlyReasoning = "Vacancy has no requirements, score derived from search similarity."
	notAssessedEvidence     = "Not assessed by evaluator"
	listedAsMatchedEvidence = "Listed as matched by evaluator"
)

const evaluationSchema = `{
  "type": "object",
  "required": ["overallScore", "requirementBreakdown"],
  "properties": {
    "overallScore": {"type": "number"},
    "matchedRequirements": {"type": "array", "items": {"type": "string"}},
    "missingRequirements": {"type": "array", "items": {"type": "string"}},
    "reasoning": {"type": "string"},
    "requirementBreakdown": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["requirement", "matched"],
        "properties": {
          "requirement": {"type": "string"},
          "matched": {"type": "boolean"},
          "evidence": {"type": "string"}
        }
      }
    }
  }
}`

type aiClient interface {
	GenerateResponse(ctx context.Context, request string) (string, error)
}

type evaluationResponse struct {
	OverallScore         float64  `json:"overallScore"`
	MatchedRequirements  []string `json:"matchedRequirements"`
	MissingRequirements  []string `json:"missingRequirements"`
	Reasoning            string   `json:"reasoning"`
	RequirementBreakdown []struct {
		Requirement string `json:"requirement"`
		Matched     bool   `json:"matched"`
		Evidence    string `json:"evidence"`
	} `json:"requirementBreakdown"`
}

// RequirementEvaluator judges one candidate against the requirements of a vacancy with
// a reasoning model. It always produces an evaluation: failures of the model call or of
// its output degrade to a similarity based fallback.
type RequirementEvaluator struct {
	aiClient aiClient
	schema   *jsonschema.Schema
}

// NewRequirementEvaluator creates an evaluator. A nil client makes every candidate
// with requirements fall back to its similarity score.
func NewRequirementEvaluator(aiClient aiClient) (*RequirementEvaluator, error) {
	schema := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(evaluationSchema), schema); err != nil {
		return nil, fmt.Errorf("invalid evaluation schema: %w", err)
	}
	// the schema registers its keywords on first use without locking, so that
	// first use has to happen before evaluations run concurrently
	if _, err := schema.ValidateBytes(context.Background(), []byte("{}")); err != nil {
		return nil, fmt.Errorf("invalid evaluation schema: %w", err)
	}
	return &RequirementEvaluator{aiClient: aiClient, schema: schema}, nil
}

func (e *RequirementEvaluator) Evaluate(ctx context.Context, candidate entities.ScoredCandidate,
	requirements []entities.Requirement) entities.Evaluation {

	if len(requirements) == 0 {
		metrics.EvaluationsCounter.WithLabelValues(string(entities.EvaluationSimilarityOnly)).Inc()
		return similarityOnlyEvaluation(candidate.Score)
	}

	start := time.Now()
	evaluation, err := e.evaluate(ctx, candidate, requirements)
	metrics.MatchStepDuration.WithLabelValues("evaluation").Observe(time.Since(start).Seconds())

	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).
			Errorf("failed to evaluate candidate %d, using similarity fallback: %v", candidate.Profile.ID, err)
		metrics.EvaluationsCounter.WithLabelValues(string(entities.EvaluationFallback)).Inc()
		return fallbackEvaluation(candidate.Score, requirements)
	}

	metrics.EvaluationsCounter.WithLabelValues(string(entities.EvaluationEvaluated)).Inc()
	return evaluation
}

func (e *RequirementEvaluator) evaluate(ctx context.Context, candidate entities.ScoredCandidate,
	requirements []entities.Requirement) (entities.Evaluation, error) {

	if e.aiClient == nil {
		return entities.Evaluation{}, entities.ErrServiceUnavailable
	}

	response, err := e.aiClient.GenerateResponse(ctx, evaluationRequest(candidate.Profile, requirements))
	if err != nil {
		return entities.Evaluation{}, fmt.Errorf("%w: %v", entities.ErrServiceUnavailable, err)
	}

	parsed, err := e.parseResponse(ctx, response)
	if err != nil {
		return entities.Evaluation{}, err
	}

	return normalizeEvaluation(parsed, requirements), nil
}

func (e *RequirementEvaluator) parseResponse(ctx context.Context, response string) (*evaluationResponse, error) {

	data, err := extractJSON(response)
	if err != nil {
		return nil, err
	}

	keyErrors, err := e.schema.ValidateBytes(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("evaluation is not valid json: %w", err)
	}
	if len(keyErrors) > 0 {
		messages := lo.Map(keyErrors, func(keyError jsonschema.KeyError, _ int) string {
			return keyError.PropertyPath + ": " + keyError.Message
		})
		return nil, fmt.Errorf("evaluation violates schema: %s", strings.Join(messages, "; "))
	}

	var parsed evaluationResponse
	if err = json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode evaluation: %w", err)
	}
	return &parsed, nil
}

// extractJSON strips markdown fences and surrounding prose from a model response.
func extractJSON(response string) ([]byte, error) {
	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, errors.New("evaluation response contains no json object")
	}
	return []byte(text[start : end+1]), nil
}

// normalizeEvaluation maps the model output onto the canonical requirement list: exactly one
// breakdown entry per requirement, matched and missing lists derived from the breakdown.
func normalizeEvaluation(parsed *evaluationResponse, requirements []entities.Requirement) entities.Evaluation {

	assessed := make(map[string]int, len(parsed.RequirementBreakdown))
	for i, item := range parsed.RequirementBreakdown {
		key := requirementKey(item.Requirement)
		if _, exists := assessed[key]; !exists {
			assessed[key] = i
		}
	}
	listedAsMatched := lo.SliceToMap(parsed.MatchedRequirements, func(value string) (string, struct{}) {
		return requirementKey(value), struct{}{}
	})

	breakdown := make([]entities.RequirementMatch, 0, len(requirements))
	for _, requirement := range requirements {
		match := entities.RequirementMatch{
			Requirement: requirement.Value,
			Type:        requirement.Type,
			IsRequired:  requirement.IsRequired,
			Priority:    requirement.Priority,
		}

		key := requirementKey(requirement.Value)
		if i, ok := assessed[key]; ok {
			match.Matched = parsed.RequirementBreakdown[i].Matched
			match.Evidence = strings.TrimSpace(parsed.RequirementBreakdown[i].Evidence)
		} else if _, ok = listedAsMatched[key]; ok {
			match.Matched = true
			match.Evidence = listedAsMatchedEvidence
		} else {
			match.Evidence = notAssessedEvidence
		}

		breakdown = append(breakdown, match)
	}

	matched, missing := partitionBreakdown(breakdown)

	return entities.Evaluation{
		Kind:                 entities.EvaluationEvaluated,
		OverallScore:         clampScore(parsed.OverallScore),
		MatchedRequirements:  matched,
		MissingRequirements:  missing,
		Reasoning:            strings.TrimSpace(parsed.Reasoning),
		RequirementBreakdown: breakdown,
	}
}

func partitionBreakdown(breakdown []entities.RequirementMatch) (matched []string, missing []string) {
	matched = lo.Uniq(lo.FilterMap(breakdown, func(match entities.RequirementMatch, _ int) (string, bool) {
		return match.Requirement, match.Matched
	}))
	matchedSet := lo.SliceToMap(matched, func(value string) (string, struct{}) { return value, struct{}{} })

	missing = lo.Uniq(lo.FilterMap(breakdown, func(match entities.RequirementMatch, _ int) (string, bool) {
		_, isMatched := matchedSet[match.Requirement]
		return match.Requirement, !isMatched
	}))
	return matched, missing
}

func requirementKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func clampScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	return int(math.Round(math.Min(100, math.Max(0, score))))
}

func similarityScore(similarity float64) int {
	return clampScore(similarity * 100)
}

func fallbackEvaluation(similarity float64, requirements []entities.Requirement) entities.Evaluation {
	breakdown := lo.Map(requirements, func(requirement entities.Requirement, _ int) entities.RequirementMatch {
		return entities.RequirementMatch{
			Requirement: requirement.Value,
			Type:        requirement.Type,
			Matched:     false,
			Evidence:    fallbackEvidence,
			IsRequired:  requirement.IsRequired,
			Priority:    requirement.Priority,
		}
	})

	missing := lo.Uniq(lo.Map(requirements, func(requirement entities.Requirement, _ int) string {
		return requirement.Value
	}))

	return entities.Evaluation{
		Kind:                 entities.EvaluationFallback,
		OverallScore:         similarityScore(similarity),
		MatchedRequirements:  []string{},
		MissingRequirements:  missing,
		Reasoning:            fallbackReasoning,
		RequirementBreakdown: breakdown,
	}
}

func similarityOnlyEvaluation(similarity float64) entities.Evaluation {
	return entities.Evaluation{
		Kind:                 entities.EvaluationSimilarityOnly,
		OverallScore:         similarityScore(similarity),
		MatchedRequirements:  []string{},
		MissingRequirements:  []string{},
		Reasoning:            similarityOnlyReasoning,
		RequirementBreakdown: []entities.RequirementMatch{},
	}
}

func evaluationRequest(profile entities.CandidateProfile, requirements []entities.Requirement) (request string) {

	request = "You are a technical recruiter evaluating how well a candidate matches the requirements of a vacancy.\n\n"

	request += "CANDIDATE\n"
	request += "Name: " + profile.Name + "\n"
	request += "Seniority: " + orNotSpecified(profile.Seniority) + "\n"
	request += "Years of experience: " + strconv.FormatFloat(profile.YearsOfExperience, 'f', -1, 64) + "\n"
	request += "Location: " + orNotSpecified(profile.Location) + "\n"
	request += "Skills: " + joinOrNone(profile.Skills) + "\n"
	request += "Tools: " + joinOrNone(profile.Tools) + "\n"
	request += "Certifications: " + joinOrNone(profile.Certifications) + "\n"
	request += "Preferred roles: " + joinOrNone(profile.PreferredRoles) + "\n"
	request += "Languages: " + joinOrNone(profile.Languages) + "\n"
	if summary := strings.TrimSpace(profile.Summary); summary != "" {
		request += "Summary: " + summary + "\n"
	}
	if projects := truncateRunes(strings.TrimSpace(profile.ProjectText), projectTextLimit); projects != "" {
		request += "Project experience: " + projects + "\n"
	}

	required := lo.Filter(requirements, func(r entities.Requirement, _ int) bool { return r.IsRequired })
	optional := lo.Filter(requirements, func(r entities.Requirement, _ int) bool { return !r.IsRequired })

	request += "\nREQUIRED REQUIREMENTS\n" + formatRequirements(required)
	request += "\nOPTIONAL REQUIREMENTS\n" + formatRequirements(optional)

	request += "\nRULES\n" +
		"- Judge by meaning, not exact spelling: skill names vary between CVs and vacancies.\n" +
		"- A frontend framework implies its base language and HTML/CSS fundamentals.\n" +
		"- A backend framework implies its host language and HTTP/REST fundamentals.\n" +
		"- Seniority implies the baseline fundamentals of the stated specialty.\n" +
		"- An experience requirement is matched when the years of experience or the projects support it.\n" +
		"\nSCORING\n" +
		"- overallScore is an integer from 0 to 100.\n" +
		"- Each missing required requirement must lower the score materially.\n" +
		"- A matched required requirement counts more than a matched optional one.\n" +
		"- Higher priority requirements weigh more (1 = High, 2 = Medium, 3 = Low).\n" +
		"\nAnswer with a single JSON object and nothing else:\n" +
		`{"overallScore": 0, "matchedRequirements": ["<value>"], "missingRequirements": ["<value>"], ` +
		`"reasoning": "<short justification>", "requirementBreakdown": [{"requirement": "<value>", ` +
		`"matched": true, "evidence": "<why matched or missing>"}]}` + "\n" +
		"requirementBreakdown must contain one entry for every requirement above, " +
		"using the requirement value exactly as written."

	return request
}

func formatRequirements(requirements []entities.Requirement) string {
	if len(requirements) == 0 {
		return "none\n"
	}
	var sb strings.Builder
	for _, requirement := range requirements {
		sb.WriteString(fmt.Sprintf("- %s (%s, priority %d %s)\n",
			requirement.Value, requirement.Type, requirement.Priority, requirement.Priority))
	}
	return sb.String()
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func orNotSpecified(value string) string {
	if strings.TrimSpace(value) == "" {
		return "not specified"
	}
	return value
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
