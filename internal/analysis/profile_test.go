package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/medtext-cli/internal/dataset"
	"github.com/KaramelBytes/medtext-cli/internal/textnorm"
)

const fixture = `pmid;title;abstract;source;group;Manual
1;Cancer risk in smokers;Smokers show higher cancer rates in cohort studies.;PubMed;Oncological;
2;Heart failure outcomes;Cardiac patients with heart failure were followed.;PubMed;Cardiovascular|Oncological;yes
2;Heart failure outcomes;Cardiac patients with heart failure were followed.;Scopus;Cardiovascular;
3;Tumor growth;Tumor growth in mice.;PubMed;Oncological;no
4;;;Scopus;Neurological;
;Stroke care;Stroke units improve care.;Scopus;Neurological;
`

func load(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Read(strings.NewReader(fixture), "articles.csv", dataset.DefaultLoadOptions())
	require.NoError(t, err)
	return ds
}

func TestProfile_DuplicateIDsCountMissing(t *testing.T) {
	ds := dataset.New("x", []dataset.Article{
		{ID: "1", Title: "a"},
		{ID: "", Title: "b"},
		{ID: "", Title: "c"},
		{ID: "1", Title: "d"},
	})
	q := Profile(ds, DefaultOptions()).Quality
	assert.Equal(t, 1, q.UniqueIDs)
	assert.Equal(t, 2, q.MissingIDs)
	assert.Equal(t, 3, q.DuplicateIDs)
	assert.Equal(t, q.DuplicateIDs, ds.Len()-q.UniqueIDs)
}

func TestProfile_QualityAndCategories(t *testing.T) {
	ds := load(t)
	rep := Profile(ds, DefaultOptions())

	assert.Equal(t, 6, rep.Rows)
	assert.Equal(t, 6, rep.Columns)
	q := rep.Quality
	assert.Equal(t, 4, q.UniqueIDs)
	assert.Equal(t, 2, q.DuplicateIDs, "repeated id 2 plus the row without an id")
	assert.Equal(t, 1, q.MissingIDs)
	assert.Equal(t, 1, q.EmptyTextRows)
	assert.Equal(t, 1, q.MultiLabelRows)
	assert.Equal(t, 0, q.DuplicateRows, "row 2 differs in source and group")

	missing := map[string]int{}
	for _, m := range q.Missing {
		missing[m.Value] = m.Count
	}
	assert.Equal(t, 1, missing["pmid"])
	assert.Equal(t, 1, missing["title"])
	assert.Equal(t, 4, missing["Manual"])

	src, ok := rep.Category("source")
	require.True(t, ok)
	assert.Equal(t, 2, src.Unique)
	assert.Equal(t, CategoryCount{Value: "PubMed", Count: 3, Percent: 50}, src.Values[0])

	labels, ok := rep.Category("group_label")
	require.True(t, ok)
	assert.Equal(t, "Oncological", labels.Values[0].Value)
	assert.Equal(t, 3, labels.Values[0].Count)

	_, ok = rep.Category("manual")
	assert.True(t, ok)
}

func TestProfile_Distributions(t *testing.T) {
	ds := load(t)
	rep := Profile(ds, DefaultOptions())

	tw, ok := rep.Column(TitleWordCount)
	require.True(t, ok)
	// 4, 3, 3, 2, 0, 2
	assert.Equal(t, 6, tw.Dist.Count)
	assert.InDelta(t, 14.0/6.0, tw.Dist.Mean, 1e-12)
	assert.Equal(t, 0.0, tw.Dist.Min)
	assert.Equal(t, 4.0, tw.Dist.Max)
	assert.InDelta(t, 2.5, tw.Dist.Median, 1e-12)
	assert.InDelta(t, 2.0, tw.Dist.Q25, 1e-12)
	assert.InDelta(t, 3.0, tw.Dist.Q75, 1e-12)

	var ss float64
	for _, v := range tw.Values {
		ss += (v - tw.Dist.Mean) * (v - tw.Dist.Mean)
	}
	assert.InDelta(t, math.Sqrt(ss/5), tw.Dist.Std, 1e-12)

	require.NotNil(t, rep.Corr)
	assert.Len(t, rep.Corr.Columns, 4)
	for i := range rep.Corr.Columns {
		assert.Equal(t, 1.0, rep.Corr.Values[i][i])
		for j := range rep.Corr.Columns {
			assert.Equal(t, rep.Corr.Values[i][j], rep.Corr.Values[j][i])
		}
	}
	assert.Greater(t, rep.Corr.Values[0][2], 0.5, "title length tracks title word count")
}

func TestProfile_TopWords(t *testing.T) {
	ds := load(t)
	opt := DefaultOptions()
	opt.Normalizer = textnorm.New(textnorm.NewStopwordSet(textnorm.DefaultEnglish()), textnorm.DefaultOptions())
	rep := Profile(ds, opt)

	require.NotEmpty(t, rep.Text.TopRaw)
	// failure and heart tie at 4 and sort by value
	assert.Equal(t, CategoryCount{Value: "failure", Count: 4, Percent: rep.Text.TopRaw[0].Percent}, rep.Text.TopRaw[0])
	assert.Equal(t, "heart", rep.Text.TopRaw[1].Value)
	for _, w := range rep.Text.TopMeaningful {
		assert.GreaterOrEqual(t, len(w.Value), 3)
		assert.NotEqual(t, "in", w.Value)
	}
	assert.Equal(t, "failure", rep.Text.TopMeaningful[0].Value)
	assert.Greater(t, rep.Text.TotalWords, 0)
}

func TestProfile_DoesNotMutateDataset(t *testing.T) {
	ds := load(t)
	before := ds.Records()
	Profile(ds, DefaultOptions())
	assert.Equal(t, before, ds.Records())
}

func TestMarkdownSections(t *testing.T) {
	ds := load(t)
	md := Profile(ds, DefaultOptions()).Markdown()
	for _, sec := range []string{"[DATASET SUMMARY]", "[DATA QUALITY]", "[TEXT LENGTHS]", "[CATEGORIES]", "[CORRELATIONS]", "[TOP WORDS]", "[NOTES]"} {
		assert.Contains(t, md, sec)
	}
	assert.Contains(t, md, "File: articles.csv")
	assert.Contains(t, md, "duplicates are kept as independent records")
}

func TestQuantileAndMAD(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.75, quantile(sorted, 0.25))
	assert.Equal(t, 2.5, quantile(sorted, 0.5))
	med, mad := medianMAD([]float64{1, 1, 2, 2, 4, 6, 9})
	assert.Equal(t, 2.0, med)
	assert.Equal(t, 1.0, mad)
}
