package teamstanding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_ThreeShapesProduceEquivalentRecords(t *testing.T) {
	t.Parallel()

	teamsShape := `{
		"teams": [
			{"teamId": "t1", "teamName": "Aces", "position": 1, "rankingPoints": 12},
			{"teamId": "t2", "teamName": "Blockers", "position": 2, "rankingPoints": 9}
		],
		"subLeagues": [
			{"name": "D2M-A", "teams": [{"teamId": "t1"}, {"teamId": "t2"}]}
		]
	}`
	subLeaguesShape := `{
		"subLeagues": [
			{"name": "D2M-A", "teams": [
				{"teamId": "t1", "teamName": "Aces", "position": 1, "rankingPoints": 12},
				{"teamId": "t2", "teamName": "Blockers", "position": 2, "rankingPoints": 9}
			]}
		]
	}`
	bareShape := `[
		{"teamId": "t1", "teamName": "Aces", "subLeague": "D2M-A", "position": 1, "rankingPoints": 12},
		{"teamId": "t2", "teamName": "Blockers", "subLeague": "D2M-A", "position": 2, "rankingPoints": 9}
	]`

	n := NewNormalizer()
	cases := []struct {
		name  string
		doc   string
		shape Shape
	}{
		{name: "teams", doc: teamsShape, shape: ShapeTeams},
		{name: "sub leagues", doc: subLeaguesShape, shape: ShapeSubLeagues},
		{name: "bare array", doc: bareShape, shape: ShapeBareArray},
	}

	var baseline []Record
	for _, tc := range cases {
		got, err := n.Normalize([]byte(tc.doc), "Men's Division 2")
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.shape, got.Shape, tc.name)
		require.Len(t, got.Records, 2, tc.name)
		for _, rec := range got.Records {
			assert.Equal(t, "Men's Division 2", rec.League, tc.name)
			assert.Equal(t, "D2M-A", rec.SubLeague, tc.name)
		}
		if baseline == nil {
			baseline = got.Records
			continue
		}
		assert.Equal(t, baseline, got.Records, tc.name)
	}
}

func TestNormalizer_DetailedStatsOverridesPoints(t *testing.T) {
	t.Parallel()

	doc := `[{"teamId": "t1", "teamName": "Aces", "points": 10, "detailedStats": {"rankingPoints": 15}}]`
	got, err := NewNormalizer().Normalize([]byte(doc), "Men's Premier Division")
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.Equal(t, 15, got.Records[0].RankingPoints)
	assert.Equal(t, EmptyStats, got.Records[0].PointStats)
}

func TestNormalizer_RankingPointsPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		team string
		want int
	}{
		{name: "ranking points wins over points", team: `{"teamId":"t","teamName":"n","rankingPoints":7,"points":3}`, want: 7},
		{name: "numeric points fallback", team: `{"teamId":"t","teamName":"n","points":"11"}`, want: 11},
		{name: "points object is not a ranking", team: `{"teamId":"t","teamName":"n","points":{"won":50,"lost":40,"ratio":1.25}}`, want: 0},
		{name: "detailed stats overrides ranking points", team: `{"teamId":"t","teamName":"n","rankingPoints":7,"detailedStats":{"rankingPoints":8}}`, want: 8},
		{name: "float is truncated", team: `{"teamId":"t","teamName":"n","rankingPoints":9.8}`, want: 9},
	}

	n := NewNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize([]byte("["+tt.team+"]"), "Men's Division 1")
			require.NoError(t, err)
			require.Len(t, got.Records, 1)
			assert.Equal(t, tt.want, got.Records[0].RankingPoints)
		})
	}
}

func TestNormalizer_MissingTeamNameDropsOnlyThatTeam(t *testing.T) {
	t.Parallel()

	doc := `{"teams": [
		{"teamId": "t1", "teamName": "Aces"},
		{"teamId": "t2"},
		{"teamId": "t3", "teamName": "Diggers"}
	]}`
	got, err := NewNormalizer().Normalize([]byte(doc), "Women's Division 1")
	require.NoError(t, err)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "t1", got.Records[0].TeamID)
	assert.Equal(t, "t3", got.Records[1].TeamID)
	require.Len(t, got.Diagnostics, 1)
	assert.Equal(t, 1, got.Dropped())

	var missing *MissingFieldError
	require.True(t, errors.As(got.Diagnostics[0].Err, &missing))
	assert.Equal(t, "teamName", missing.Field)
	assert.Equal(t, "t2", missing.TeamID)
}

func TestNormalizer_UnrecognizedShapes(t *testing.T) {
	t.Parallel()

	n := NewNormalizer()
	for _, doc := range []string{`{"standings": []}`, `[]`, `[1, 2]`, `[{"name": "x"}]`, `null`, `"teams"`} {
		_, err := n.Normalize([]byte(doc), "Men's Division 1")
		assert.ErrorIs(t, err, ErrShapeUnrecognized, doc)
	}

	_, err := n.Normalize([]byte(`{"teams": [`), "Men's Division 1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrShapeUnrecognized)
}

func TestNormalizer_FieldMapping(t *testing.T) {
	t.Parallel()

	doc := `[{
		"teamId": 42,
		"teamName": "  Net   Ninjas ",
		"position": -3,
		"logoUrl": "https://cdn.example.com/logos/42.png",
		"matches": {"played": 10, "won": 7, "lost": 3},
		"sets": {"won": 22, "lost": 12, "ratio": 1.833},
		"points": {"won": 800, "lost": 700, "ratio": 1.142857},
		"resultsBreakdown": {"wins3_0": 4, "wins3_1": 2, "wins3_2": 1, "losses2_3": 1, "losses1_3": 1, "losses0_3": 1},
		"penalty": "-2 late roster"
	}]`
	got, err := NewNormalizer().Normalize([]byte(doc), "Men's Premier Division")
	require.NoError(t, err)
	require.Len(t, got.Records, 1)

	rec := got.Records[0]
	assert.Equal(t, "42", rec.TeamID)
	assert.Equal(t, "Net Ninjas", rec.TeamName)
	assert.Equal(t, 0, rec.Position)
	assert.Equal(t, "", rec.SubLeague)
	assert.Equal(t, "https://cdn.example.com/logos/42.png", rec.LogoURL)
	assert.JSONEq(t, `{"played":10,"won":7,"lost":3}`, rec.MatchStats)
	assert.JSONEq(t, `{"won":22,"lost":12,"ratio":1.833}`, rec.SetStats)
	assert.JSONEq(t, `{"won":800,"lost":700,"ratio":1.142857}`, rec.PointStats)
	assert.JSONEq(t, `{"wins3_0":4,"wins3_1":2,"wins3_2":1,"losses2_3":1,"losses1_3":1,"losses0_3":1}`, rec.ResultBreakdown)
	assert.Equal(t, "-2 late roster", rec.Penalty)
}

func TestNormalizer_DefaultsAndInvalidLogo(t *testing.T) {
	t.Parallel()

	doc := `[{"teamId": "t1", "teamName": "Aces", "logoUrl": "javascript:alert(1)"}]`
	got, err := NewNormalizer().Normalize([]byte(doc), "Men's Division 1")
	require.NoError(t, err)
	require.Len(t, got.Records, 1)

	rec := got.Records[0]
	assert.Equal(t, EmptyStats, rec.MatchStats)
	assert.Equal(t, EmptyStats, rec.SetStats)
	assert.Equal(t, EmptyStats, rec.PointStats)
	assert.Equal(t, EmptyStats, rec.ResultBreakdown)
	assert.Equal(t, "", rec.Penalty)
	assert.Equal(t, "", rec.LogoURL)
	require.Len(t, got.Diagnostics, 1)
	assert.Equal(t, DiagnosticInvalidLogo, got.Diagnostics[0].Kind)
	assert.Equal(t, 0, got.Dropped())
}

func TestNormalizer_SubLeaguePrecedence(t *testing.T) {
	t.Parallel()

	doc := `{"subLeagues": [
		{"name": "D3M-A", "teams": [
			{"teamId": "t1", "teamName": "Aces"},
			{"teamId": "t2", "teamName": "Blockers", "subLeague": "D3M-B"}
		]}
	]}`
	got, err := NewNormalizer().Normalize([]byte(doc), "Men's Division 3")
	require.NoError(t, err)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "D3M-A", got.Records[0].SubLeague)
	assert.Equal(t, "D3M-B", got.Records[1].SubLeague)
}

func TestNormalizer_EmptyLeagueDropsEveryTeam(t *testing.T) {
	t.Parallel()

	got, err := NewNormalizer().Normalize([]byte(`[{"teamId": "t1", "teamName": "Aces"}]`), "  ")
	require.NoError(t, err)
	assert.Empty(t, got.Records)
	assert.Equal(t, 1, got.Dropped())
}
