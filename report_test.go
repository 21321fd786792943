package profsim

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleClustering() *ClusteringReport {
	return &ClusteringReport{
		Clusters: []ClusterGroup{
			{
				ClusterID: 0,
				Size:      2,
				Members: []ClusterMember{
					{Faculty: Faculty{ID: "1", Name: "Ada Lovelace", Department: "CS"}, ClusterID: 0, Probability: 0.91},
					{Faculty: Faculty{ID: "2", Name: "Grace Hopper", Department: "CS"}, ClusterID: 0, Probability: 0.87},
				},
			},
		},
		Outliers:      1,
		TotalClusters: 1,
		Silhouette:    0.42,
		Algorithm:     algorithmDensity,
	}
}

func sampleTopics() *TopicsReport {
	return &TopicsReport{
		Topics: []Topic{
			{TopicID: 0, Keyword: "learning", Frequency: 4, FacultyCount: 3},
		},
		TotalKeywords:  9,
		UniqueKeywords: 6,
		Coverage:       3,
	}
}

func TestFormatReport(t *testing.T) {
	markdown := formatReport(sampleClustering(), sampleTopics())

	assert.Contains(t, markdown, "# Faculty Research Landscape")
	assert.Contains(t, markdown, "### Cluster 0 (2 members)")
	assert.Contains(t, markdown, "| Ada Lovelace | CS | 0.91 |")
	assert.Contains(t, markdown, "silhouette 0.420")
	assert.Contains(t, markdown, "| learning | 4 | 3 |")
}

func TestFormatReportSilhouetteSentinelOmitted(t *testing.T) {
	clustering := sampleClustering()
	clustering.Silhouette = -1
	markdown := formatReport(clustering, nil)
	assert.NotContains(t, markdown, "silhouette")
}

func TestRenderHTMLReport(t *testing.T) {
	page, err := renderHTMLReport(formatReport(sampleClustering(), sampleTopics()))
	require.NoError(t, err)

	assert.Contains(t, page, "<title>Faculty Research Landscape</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "Ada Lovelace")
	assert.Contains(t, page, "border-collapse", "stylesheet embedded")
}

func TestRunGenerateReport(t *testing.T) {
	t.Chdir(t.TempDir())

	payload := map[string]any{
		"clustering": sampleClustering(),
		"topics":     sampleTopics(),
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var out bytes.Buffer
	runGenerateReport(bytes.NewReader(data), &out)

	var resp generateReportResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)

	markdown, err := os.ReadFile("report.md")
	require.NoError(t, err)
	assert.Contains(t, string(markdown), "## Clusters")

	page, err := os.ReadFile("report.html")
	require.NoError(t, err)
	assert.Contains(t, string(page), "<table>")
}

func TestRunGenerateReportEmptyPayload(t *testing.T) {
	var out bytes.Buffer
	runGenerateReport(strings.NewReader(`{}`), &out)

	var resp errorResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.False(t, resp.Success)
}
