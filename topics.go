package profsim

import (
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// TopicFaculty is the truncated faculty listing attached to a topic.
type TopicFaculty struct {
	ID         string `json:"faculty_id"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

// Topic is one mined keyword with its corpus frequency and the faculty
// whose keyword text mentions it. AssociatedFaculty is capped at
// maxTopicFaculty entries; FacultyCount is the uncapped match total.
type Topic struct {
	TopicID           int            `json:"topic_id"`
	Keyword           string         `json:"keyword"`
	Frequency         int            `json:"frequency"`
	FacultyCount      int            `json:"faculty_count"`
	AssociatedFaculty []TopicFaculty `json:"associated_faculty"`
}

// TopicsReport aggregates the mined topics. TotalKeywords and
// UniqueKeywords count token occurrences before stop-word filtering;
// Coverage counts records that have any keyword text at all.
type TopicsReport struct {
	Topics         []Topic `json:"topics"`
	TotalKeywords  int     `json:"total_keywords"`
	UniqueKeywords int     `json:"unique_keywords"`
	Coverage       int     `json:"coverage"`
}

const maxTopicFaculty = 10

var (
	keywordCleaner = regexp.MustCompile(`[^\w\s,;-]`)
	tokenPattern   = regexp.MustCompile(`\b[a-z]{3,}\b`)
)

// topicStopWords holds generic English function words plus domain-generic
// academic terms that say nothing about a research theme.
var topicStopWords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "are": {}, "was": {}, "were": {}, "been": {}, "have": {},
	"has": {}, "had": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"may": {}, "can": {}, "research": {}, "study": {}, "analysis": {},
	"using": {}, "based": {}, "approach": {},
}

// ExtractTopics mines the most frequent keyword tokens across all faculty
// keyword texts and associates each retained keyword with the faculty whose
// raw keyword text contains it as a substring.
func ExtractTopics(faculty []Faculty, numTopics int) *TopicsReport {
	counts := make(map[string]int)
	var firstSeen []string
	totalTokens := 0
	coverage := 0

	for _, f := range faculty {
		if f.Keywords == "" {
			continue
		}
		coverage++
		cleaned := keywordCleaner.ReplaceAllString(strings.ToLower(f.Keywords), " ")
		for _, token := range tokenPattern.FindAllString(cleaned, -1) {
			if _, seen := counts[token]; !seen {
				firstSeen = append(firstSeen, token)
			}
			counts[token]++
			totalTokens++
		}
	}

	// Rank by frequency; ties keep first-encountered order. Tokens of
	// length 3 survive tokenization but are dropped here together with
	// the stop words.
	ranked := make([]string, 0, len(firstSeen))
	for _, token := range firstSeen {
		if _, stop := topicStopWords[token]; stop {
			continue
		}
		if len(token) <= 3 {
			continue
		}
		ranked = append(ranked, token)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if numTopics >= 0 && len(ranked) > numTopics {
		ranked = ranked[:numTopics]
	}

	topics := make([]Topic, 0, len(ranked))
	for i, keyword := range ranked {
		matched := 0
		associated := []TopicFaculty{}
		for _, f := range faculty {
			if !strings.Contains(strings.ToLower(f.Keywords), keyword) {
				continue
			}
			matched++
			if len(associated) < maxTopicFaculty {
				associated = append(associated, TopicFaculty{
					ID:         f.ID,
					Name:       f.Name,
					Department: f.Department,
				})
			}
		}
		topics = append(topics, Topic{
			TopicID:           i,
			Keyword:           keyword,
			Frequency:         counts[keyword],
			FacultyCount:      matched,
			AssociatedFaculty: associated,
		})
	}

	return &TopicsReport{
		Topics:         topics,
		TotalKeywords:  totalTokens,
		UniqueKeywords: len(counts),
		Coverage:       coverage,
	}
}

type analyzeTopicsRequest struct {
	FacultyData []Faculty `json:"faculty_data" jsonschema:"description=Faculty records with keyword text"`
	NumTopics   int       `json:"num_topics,omitempty" jsonschema:"description=Number of topics to return (default 10)"`
}

type analyzeTopicsResponse struct {
	Success bool          `json:"success"`
	Topics  *TopicsReport `json:"topics"`
}

var AnalyzeTopicsCmd = &cobra.Command{
	Use:   "analyze_topics",
	Short: "Mine frequent research keywords and the faculty behind them",
	Run: func(cmd *cobra.Command, args []string) {
		runAnalyzeTopics(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runAnalyzeTopics(in io.Reader, out io.Writer) {
	var req analyzeTopicsRequest
	if err := decodeRequest(in, &req); err != nil {
		writeError(out, err)
		return
	}

	numTopics := req.NumTopics
	if numTopics <= 0 {
		numTopics = defaultNumTopics
	}

	faculty, err := ValidateFaculty(req.FacultyData)
	if err != nil {
		writeError(out, err)
		return
	}

	writeResult(out, analyzeTopicsResponse{Success: true, Topics: ExtractTopics(faculty, numTopics)})
}
