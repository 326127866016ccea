package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBlob = `{'intent_level': 'High', 'intent_score': 90, ` +
	`'urgency_level': 'Medium', 'urgency_score': 60, ` +
	`'budget_constraint': 'Flexible', 'budget_score': 70, ` +
	`'fit_alignment': 'Strong', 'fit_score': 85, ` +
	`'engagement_health': 'Healthy', 'engagement_score': 80, ` +
	`'total_score': 77, 'lead_status_tag': 'Hot', ` +
	`'reasoning': {'intent': 'asked about pricing twice', 'urgency': 'client said "maybe later"'}, ` +
	`'cta_pricing_clicked': 'Yes', 'cta_demo_clicked': 'No', ` +
	`'cta_followup_clicked': 'Yes', 'cta_escalated_to_human': 'No'}`

func resultsWith(value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"default": value,
	}
}

func TestExtractAnalysisValue_CandidateOrder(t *testing.T) {
	results := map[string]interface{}{
		"analysis": "second-choice",
		"default":  "first-choice",
	}
	v, err := ExtractAnalysisValue(results)
	require.NoError(t, err)
	assert.Equal(t, "first-choice", v)
}

func TestExtractAnalysisValue_ValueObject(t *testing.T) {
	results := map[string]interface{}{
		"call_analysis": map[string]interface{}{"value": "the-blob"},
	}
	v, err := ExtractAnalysisValue(results)
	require.NoError(t, err)
	assert.Equal(t, "the-blob", v)
}

func TestExtractAnalysisValue_MissingReportsObservedKeys(t *testing.T) {
	results := map[string]interface{}{
		"transcript": "x",
		"sentiment":  "y",
	}
	_, err := ExtractAnalysisValue(results)
	require.Error(t, err)

	var missing *MissingAnalysisDataError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"sentiment", "transcript"}, missing.ObservedKeys)
}

func TestParseAnalysis_FullBlob(t *testing.T) {
	result, err := ParseAnalysis(resultsWith(sampleBlob))
	require.NoError(t, err)

	require.NotNil(t, result.Intent.Label)
	assert.Equal(t, "High", *result.Intent.Label)
	require.NotNil(t, result.Intent.Score)
	assert.Equal(t, 90, *result.Intent.Score)
	require.NotNil(t, result.Intent.Reasoning)
	assert.Equal(t, "asked about pricing twice", *result.Intent.Reasoning)

	require.NotNil(t, result.Urgency.Reasoning)
	assert.Equal(t, `client said "maybe later"`, *result.Urgency.Reasoning)

	require.NotNil(t, result.TotalScore)
	assert.Equal(t, 77, *result.TotalScore)
	require.NotNil(t, result.LeadStatusTag)
	assert.Equal(t, "Hot", *result.LeadStatusTag)

	require.NotNil(t, result.CTAPricingClicked)
	assert.True(t, *result.CTAPricingClicked)
	require.NotNil(t, result.CTADemoClicked)
	assert.False(t, *result.CTADemoClicked)
}

func TestParseAnalysis_Idempotent(t *testing.T) {
	first, err := ParseAnalysis(resultsWith(sampleBlob))
	require.NoError(t, err)
	second, err := ParseAnalysis(resultsWith(sampleBlob))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseAnalysis_PythonLiterals(t *testing.T) {
	blob := `{'intent_level': None, 'cta_demo_clicked': 'Yes', 'escalated': True}`
	result, err := ParseAnalysis(resultsWith(blob))
	require.NoError(t, err)
	assert.Nil(t, result.Intent.Label)
	require.NotNil(t, result.CTADemoClicked)
	assert.True(t, *result.CTADemoClicked)
}

func TestParseAnalysis_ScoreClamping(t *testing.T) {
	blob := `{'intent_score': 150, 'urgency_score': -20, 'fit_score': 'not-a-number'}`
	result, err := ParseAnalysis(resultsWith(blob))
	require.NoError(t, err)

	require.NotNil(t, result.Intent.Score)
	assert.Equal(t, 100, *result.Intent.Score)
	require.NotNil(t, result.Urgency.Score)
	assert.Equal(t, 0, *result.Urgency.Score)
	assert.Nil(t, result.Fit.Score, "unparseable score stored as nil, never fabricated")
}

func TestParseAnalysis_CTANeverTruthiness(t *testing.T) {
	// Values like "true", "1" are not the provider's Yes/No vocabulary and must map to nil
	blob := `{'cta_pricing_clicked': 'true', 'cta_demo_clicked': 1, 'cta_followup_clicked': ''}`
	result, err := ParseAnalysis(resultsWith(blob))
	require.NoError(t, err)
	assert.Nil(t, result.CTAPricingClicked)
	assert.Nil(t, result.CTADemoClicked)
	assert.Nil(t, result.CTAFollowupClicked)
}

func TestParseAnalysis_MalformedBlob(t *testing.T) {
	_, err := ParseAnalysis(resultsWith(`{'unterminated`))
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.NotEmpty(t, parseErr.Normalized)
}

func TestParseAnalysis_ParseErrorTruncates(t *testing.T) {
	long := "{'k': '"
	for i := 0; i < 200; i++ {
		long += "aaaaaaaaaa"
	}
	_, err := ParseAnalysis(resultsWith(long))
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.LessOrEqual(t, len(parseErr.Normalized), maxNormalizedInError+3)
}

func TestParseAnalysis_OneBadFieldDoesNotVoidRecord(t *testing.T) {
	blob := `{'intent_level': 'High', 'urgency_score': {'nested': 'garbage'}, 'total_score': 50}`
	result, err := ParseAnalysis(resultsWith(blob))
	require.NoError(t, err)

	require.NotNil(t, result.Intent.Label)
	assert.Equal(t, "High", *result.Intent.Label)
	assert.Nil(t, result.Urgency.Score)
	require.NotNil(t, result.TotalScore)
	assert.Equal(t, 50, *result.TotalScore)
}
