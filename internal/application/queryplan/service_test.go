package queryplan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derril-tech/ai-patent-explorer/internal/testutil"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

func newTestService() Service {
	return NewService(testutil.NewMockLogger(), nil)
}

func TestCleanQuery(t *testing.T) {
	assert.Equal(t, "wireless sensor network", CleanQuery("  Wireless   SENSOR network "))
	assert.Equal(t, "claim 1 (method)", CleanQuery("claim 1 (method)"))
	assert.Equal(t, "c 4 explosive", CleanQuery("c#4 @explosive"))
	assert.Equal(t, "", CleanQuery("   "))
}

func TestExtractTechnicalTerms(t *testing.T) {
	terms := ExtractTechnicalTerms("a neural network for the wireless communication of data")

	assert.Contains(t, terms, "neural")
	assert.Contains(t, terms, "network")
	assert.Contains(t, terms, "neural network")
	assert.Contains(t, terms, "wireless communication")
	assert.NotContains(t, terms, "data") // four characters, not long enough
	assert.NotContains(t, terms, "the")
}

func TestExtractTechnicalTerms_Deduplicates(t *testing.T) {
	terms := ExtractTechnicalTerms("sensor sensor sensor")

	assert.Equal(t, []string{"sensor"}, terms)
}

func TestGenerateSynonyms(t *testing.T) {
	syns := GenerateSynonyms([]string{"algorithm", "xylophone"})

	require.Contains(t, syns, "algorithm")
	assert.Contains(t, syns["algorithm"], "method")
	assert.Contains(t, syns["algorithm"], "process")
	assert.NotContains(t, syns["algorithm"], "algorithm")
	assert.NotContains(t, syns, "xylophone")
}

func TestGenerateSynonyms_SubstringMatch(t *testing.T) {
	// "sensors" contains the dictionary key "sensor".
	syns := GenerateSynonyms([]string{"sensors"})

	require.Contains(t, syns, "sensors")
	assert.Contains(t, syns["sensors"], "detector")
}

func TestExtractCPCCodes_Literal(t *testing.T) {
	codes := ExtractCPCCodes("improvements to a61b surgical instruments")

	assert.Contains(t, codes, "A61B")
}

func TestExtractCPCCodes_MappedTerms(t *testing.T) {
	codes := ExtractCPCCodes("database network monitoring")

	assert.Contains(t, codes, "G06F")
	assert.Contains(t, codes, "H04L")
	assert.Contains(t, codes, "H04W")
}

func TestExpandCPCCodes(t *testing.T) {
	expanded := ExpandCPCCodes([]string{"G06F"})

	related := expanded["G06F"]
	require.Len(t, related, 27) // self + parent + 25 siblings
	assert.Equal(t, "G06F", related[0])
	assert.Equal(t, "G06", related[1])
	assert.Contains(t, related, "G06N")
	assert.NotContains(t, related[2:], "G06F")
}

func TestExpandCPCCodes_ShortCode(t *testing.T) {
	expanded := ExpandCPCCodes([]string{"C07"})

	assert.Equal(t, []string{"C07"}, expanded["C07"])
}

func TestPlan_FullPipeline(t *testing.T) {
	svc := newTestService()

	plan, err := svc.Plan(context.Background(), "ws-1",
		"Machine Learning algorithm for wireless network diagnosis", patent.MethodHybrid)
	require.NoError(t, err)

	assert.Equal(t, "machine learning algorithm for wireless network diagnosis", plan.CleanedText)
	assert.Contains(t, plan.TechnicalTerms, "machine learning")
	assert.Contains(t, plan.TechnicalTerms, "algorithm")
	assert.Contains(t, plan.SynonymMap, "algorithm")
	assert.Contains(t, plan.CPCCodes, "H04L")
	assert.Contains(t, plan.CPCCodes, "A61B") // mapped from "diagnosis"
	assert.NotEmpty(t, plan.ExpandedCPCCodes["H04L"])
	assert.LessOrEqual(t, len(plan.AlternativeQueries), 10)
	assert.Equal(t, plan.CleanedText, plan.AlternativeQueries[0])
}

func TestPlan_StrategyWeights(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	short, err := svc.Plan(ctx, "ws-1", "neural network", patent.MethodHybrid)
	require.NoError(t, err)
	assert.Equal(t, 0.7, short.Strategy.DenseWeight)
	assert.Equal(t, 0.3, short.Strategy.LexicalWeight)

	long, err := svc.Plan(ctx, "ws-1",
		"method and apparatus for measuring fluid flow rates in industrial pipelines", patent.MethodHybrid)
	require.NoError(t, err)
	assert.Equal(t, 0.7, long.Strategy.LexicalWeight)
	assert.Equal(t, 0.3, long.Strategy.DenseWeight)

	medium, err := svc.Plan(ctx, "ws-1", "sensor array for engines", patent.MethodHybrid)
	require.NoError(t, err)
	assert.Equal(t, 0.5, medium.Strategy.LexicalWeight)
	assert.Equal(t, 0.5, medium.Strategy.DenseWeight)
}

func TestPlan_EmptyQuery(t *testing.T) {
	svc := newTestService()

	_, err := svc.Plan(context.Background(), "ws-1", "   ", patent.MethodHybrid)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeEmptyQuery))
}

func TestPlan_MissingWorkspace(t *testing.T) {
	svc := newTestService()

	_, err := svc.Plan(context.Background(), "", "some query", patent.MethodHybrid)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidWorkspace))
}

func TestPlan_AlternativesDeduplicated(t *testing.T) {
	svc := newTestService()

	plan, err := svc.Plan(context.Background(), "ws-1", "database indexing", patent.MethodHybrid)
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for _, alt := range plan.AlternativeQueries {
		_, dup := seen[alt]
		assert.False(t, dup, "duplicate alternative %q", alt)
		seen[alt] = struct{}{}
	}
}
