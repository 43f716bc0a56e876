package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const strongCandidateResponse = "```json\n" + `{
  "overallScore": 84,
  "matchedRequirements": ["React", "5+ years"],
  "missingRequirements": ["AWS"],
  "reasoning": "Strong React background with six years of experience, no cloud exposure.",
  "requirementBreakdown": [
    {"requirement": "React", "matched": true, "evidence": "React listed in skills"},
    {"requirement": "5+ years", "matched": true, "evidence": "6 years of experience"},
    {"requirement": "AWS", "matched": false, "evidence": "No AWS mention"}
  ]
}` + "\n```"

const weakCandidateResponse = `{
  "overallScore": 18,
  "matchedRequirements": [],
  "missingRequirements": ["React", "5+ years", "AWS"],
  "reasoning": "Vue experience only and one year in the industry.",
  "requirementBreakdown": [
    {"requirement": "React", "matched": false, "evidence": "Only Vue"},
    {"requirement": "5+ years", "matched": false, "evidence": "1 year of experience"},
    {"requirement": "AWS", "matched": false, "evidence": "No AWS mention"}
  ]
}`

func newTestEvaluator(t *testing.T, client aiClient) *RequirementEvaluator {
	t.Helper()
	evaluator, err := NewRequirementEvaluator(client)
	require.NoError(t, err)
	return evaluator
}

func Test_Evaluator_StrongCandidate(t *testing.T) {
	_, requirements := scenarioVacancy()
	ai := &mockAiClient{}
	ai.On("GenerateResponse", mock.Anything, mock.Anything).Return(strongCandidateResponse, nil)

	strong := candidate(1, "Alice", 0.82, "React", "TypeScript")
	strong.Profile.YearsOfExperience = 6

	evaluation := newTestEvaluator(t, ai).Evaluate(context.Background(), strong, requirements)

	assert.Equal(t, entities.EvaluationEvaluated, evaluation.Kind)
	assert.GreaterOrEqual(t, evaluation.OverallScore, 70)
	assert.ElementsMatch(t, []string{"React", "5+ years"}, evaluation.MatchedRequirements)
	assert.Equal(t, []string{"AWS"}, evaluation.MissingRequirements)
	require.Len(t, evaluation.RequirementBreakdown, len(requirements))
	assert.Equal(t, entities.RequirementMatch{
		Requirement: "5+ years",
		Type:        entities.RequirementExperience,
		Matched:     true,
		Evidence:    "6 years of experience",
		IsRequired:  true,
		Priority:    entities.PriorityHigh,
	}, evaluation.RequirementBreakdown[1])
}

func Test_Evaluator_WeakCandidate(t *testing.T) {
	_, requirements := scenarioVacancy()
	ai := &mockAiClient{}
	ai.On("GenerateResponse", mock.Anything, mock.Anything).Return(weakCandidateResponse, nil)

	weak := candidate(2, "Bob", 0.41, "Vue")
	weak.Profile.YearsOfExperience = 1

	evaluation := newTestEvaluator(t, ai).Evaluate(context.Background(), weak, requirements)

	assert.Equal(t, entities.EvaluationEvaluated, evaluation.Kind)
	assert.LessOrEqual(t, evaluation.OverallScore, 30)
	assert.Empty(t, evaluation.MatchedRequirements)
	assert.Subset(t, evaluation.MissingRequirements, []string{"React", "5+ years"})
}

func Test_Evaluator_CanonicalBreakdown(t *testing.T) {
	_, requirements := scenarioVacancy()
	ai := &mockAiClient{}
	ai.On("GenerateResponse", mock.Anything, mock.Anything).Return(`Here is my evaluation:
{"overallScore": 140, "matchedRequirements": ["aws"], "reasoning": " ok ",
 "requirementBreakdown": [
   {"requirement": "react", "matched": true, "evidence": "React"},
   {"requirement": "React", "matched": false, "evidence": "duplicate"},
   {"requirement": "Angular", "matched": true, "evidence": "not a requirement"}
 ]}`, nil)

	evaluation := newTestEvaluator(t, ai).Evaluate(context.Background(), candidate(1, "Alice", 0.5), requirements)

	assert.Equal(t, entities.EvaluationEvaluated, evaluation.Kind)
	assert.Equal(t, 100, evaluation.OverallScore)
	assert.Equal(t, "ok", evaluation.Reasoning)

	require.Len(t, evaluation.RequirementBreakdown, 3)
	assert.Equal(t, "React", evaluation.RequirementBreakdown[0].Requirement)
	assert.True(t, evaluation.RequirementBreakdown[0].Matched)
	assert.False(t, evaluation.RequirementBreakdown[1].Matched)
	assert.Equal(t, notAssessedEvidence, evaluation.RequirementBreakdown[1].Evidence)
	assert.True(t, evaluation.RequirementBreakdown[2].Matched)
	assert.Equal(t, listedAsMatchedEvidence, evaluation.RequirementBreakdown[2].Evidence)

	assert.Equal(t, []string{"React", "AWS"}, evaluation.MatchedRequirements)
	assert.Equal(t, []string{"5+ years"}, evaluation.MissingRequirements)
}

func Test_Evaluator_MatchedAndMissingCoverRequirementsExactly(t *testing.T) {
	_, requirements := scenarioVacancy()
	requirements = append(requirements, entities.Requirement{Type: entities.RequirementTechnology, Value: "React"})

	ai := &mockAiClient{}
	ai.On("GenerateResponse", mock.Anything, mock.Anything).Return(strongCandidateResponse, nil)

	evaluation := newTestEvaluator(t, ai).Evaluate(context.Background(), candidate(1, "Alice", 0.5), requirements)

	assert.Len(t, evaluation.RequirementBreakdown, 4)
	all := append(append([]string{}, evaluation.MatchedRequirements...), evaluation.MissingRequirements...)
	assert.ElementsMatch(t, []string{"React", "5+ years", "AWS"}, all)
}

func Test_Evaluator_Fallback(t *testing.T) {
	_, requirements := scenarioVacancy()

	cases := map[string]func(ai *mockAiClient){
		"call fails": func(ai *mockAiClient) {
			ai.On("GenerateResponse", mock.Anything, mock.Anything).Return("", errors.New("Error 503"))
		},
		"not json": func(ai *mockAiClient) {
			ai.On("GenerateResponse", mock.Anything, mock.Anything).Return("The candidate is a good fit.", nil)
		},
		"broken json": func(ai *mockAiClient) {
			ai.On("GenerateResponse", mock.Anything, mock.Anything).Return(`{"overallScore": 80,`+"}", nil)
		},
		"schema violation": func(ai *mockAiClient) {
			ai.On("GenerateResponse", mock.Anything, mock.Anything).
				Return(`{"overallScore": "high", "requirementBreakdown": []}`, nil)
		},
		"missing breakdown": func(ai *mockAiClient) {
			ai.On("GenerateResponse", mock.Anything, mock.Anything).Return(`{"overallScore": 80}`, nil)
		},
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			ai := &mockAiClient{}
			setup(ai)

			evaluation := newTestEvaluator(t, ai).Evaluate(context.Background(), candidate(1, "Alice", 0.736), requirements)

			assert.Equal(t, entities.EvaluationFallback, evaluation.Kind)
			assert.Equal(t, 74, evaluation.OverallScore)
			assert.Empty(t, evaluation.MatchedRequirements)
			assert.Equal(t, []string{"React", "5+ years", "AWS"}, evaluation.MissingRequirements)
			assert.Equal(t, fallbackReasoning, evaluation.Reasoning)
			require.Len(t, evaluation.RequirementBreakdown, 3)
			for i, match := range evaluation.RequirementBreakdown {
				assert.False(t, match.Matched)
				assert.Equal(t, "Evaluation failed", match.Evidence)
				assert.Equal(t, requirements[i].IsRequired, match.IsRequired)
				assert.Equal(t, requirements[i].Priority, match.Priority)
			}
		})
	}
}

func Test_Evaluator_WithoutClientFallsBack(t *testing.T) {
	_, requirements := scenarioVacancy()

	evaluation := newTestEvaluator(t, nil).Evaluate(context.Background(), candidate(1, "Alice", 0.5), requirements)

	assert.Equal(t, entities.EvaluationFallback, evaluation.Kind)
	assert.Equal(t, 50, evaluation.OverallScore)
}

func Test_Evaluator_NoRequirementsUsesSimilarity(t *testing.T) {
	ai := &mockAiClient{}

	evaluation := newTestEvaluator(t, ai).Evaluate(context.Background(), candidate(1, "Alice", 0.916), nil)

	assert.Equal(t, entities.EvaluationSimilarityOnly, evaluation.Kind)
	assert.Equal(t, 92, evaluation.OverallScore)
	assert.Empty(t, evaluation.MatchedRequirements)
	assert.Empty(t, evaluation.MissingRequirements)
	assert.NotNil(t, evaluation.RequirementBreakdown)
	assert.Empty(t, evaluation.RequirementBreakdown)
	ai.AssertNotCalled(t, "GenerateResponse", mock.Anything, mock.Anything)
}

func Test_Evaluator_ConcurrentEvaluationsOnFreshEvaluator(t *testing.T) {
	_, requirements := scenarioVacancy()
	ai := &mockAiClient{}
	ai.On("GenerateResponse", mock.Anything, mock.Anything).Return(strongCandidateResponse, nil)

	evaluator := newTestEvaluator(t, ai)

	const workers = 20
	evaluations := make([]entities.Evaluation, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			evaluations[i] = evaluator.Evaluate(context.Background(), candidate(i+1, "Alice", 0.8), requirements)
		}()
	}
	wg.Wait()

	for _, evaluation := range evaluations {
		assert.Equal(t, entities.EvaluationEvaluated, evaluation.Kind)
		assert.Equal(t, 84, evaluation.OverallScore)
	}
}

func Test_EvaluationRequest(t *testing.T) {
	_, requirements := scenarioVacancy()
	profile := entities.CandidateProfile{
		Name:              "Alice",
		Seniority:         "Senior",
		YearsOfExperience: 6.5,
		Skills:            []string{"React", "TypeScript"},
		ProjectText:       strings.Repeat("x", 1500),
	}

	request := evaluationRequest(profile, requirements)

	assert.Contains(t, request, "Years of experience: 6.5")
	assert.Contains(t, request, "Skills: React, TypeScript")
	assert.Contains(t, request, "Tools: none")
	assert.Contains(t, request, strings.Repeat("x", 1000))
	assert.NotContains(t, request, strings.Repeat("x", 1001))

	required := request[strings.Index(request, "REQUIRED REQUIREMENTS"):strings.Index(request, "OPTIONAL REQUIREMENTS")]
	assert.Contains(t, required, "- React (Technology, priority 1 High)")
	assert.Contains(t, required, "- 5+ years (Experience, priority 1 High)")
	assert.NotContains(t, required, "AWS")
	assert.Contains(t, request, "- AWS (Technology, priority 3 Low)")
}

func Test_ExtractJSON(t *testing.T) {
	data, err := extractJSON("```json\n{\"a\": 1}\n```")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(data))

	_, err = extractJSON("no object here")
	assert.Error(t, err)
}
