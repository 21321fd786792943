package profsim

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/report.html
var htmlTemplate string

//go:embed templates/styles.css
var cssStyles string

type generateReportRequest struct {
	Clustering *ClusteringReport `json:"clustering,omitempty" jsonschema:"description=Output of cluster_faculty"`
	Topics     *TopicsReport     `json:"topics,omitempty" jsonschema:"description=Output of analyze_topics"`
}

type generateReportResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var ReportCmd = &cobra.Command{
	Use:   "generate-report",
	Short: "Render clustering and topic results as markdown and HTML",
	Run: func(cmd *cobra.Command, args []string) {
		runGenerateReport(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runGenerateReport(in io.Reader, out io.Writer) {
	var req generateReportRequest
	if err := decodeRequest(in, &req); err != nil {
		writeError(out, err)
		return
	}
	if req.Clustering == nil && req.Topics == nil {
		writeError(out, fmt.Errorf("%w: need at least one of clustering or topics", ErrInvalidInput))
		return
	}

	markdown := formatReport(req.Clustering, req.Topics)
	if err := os.WriteFile("report.md", []byte(markdown), 0644); err != nil {
		writeError(out, fmt.Errorf("failed to write report.md: %w", err))
		return
	}

	page, err := renderHTMLReport(markdown)
	if err != nil {
		writeError(out, err)
		return
	}
	if err := os.WriteFile("report.html", []byte(page), 0644); err != nil {
		writeError(out, fmt.Errorf("failed to write report.html: %w", err))
		return
	}

	writeResult(out, generateReportResponse{Success: true, Message: "report written to report.md and report.html"})
}

// formatReport builds the markdown body from whichever sections are present.
func formatReport(clustering *ClusteringReport, topics *TopicsReport) string {
	var b strings.Builder
	b.WriteString("# Faculty Research Landscape\n\n")
	fmt.Fprintf(&b, "*Generated %s*\n\n", time.Now().Format("2 January 2006"))

	if clustering != nil {
		b.WriteString("## Clusters\n\n")
		fmt.Fprintf(&b, "%d clusters, %d outliers, algorithm: %s",
			clustering.TotalClusters, clustering.Outliers, clustering.Algorithm)
		if clustering.Silhouette != -1 {
			fmt.Fprintf(&b, ", silhouette %.3f", clustering.Silhouette)
		}
		b.WriteString("\n\n")

		for _, cluster := range clustering.Clusters {
			fmt.Fprintf(&b, "### Cluster %d (%d members)\n\n", cluster.ClusterID, cluster.Size)
			b.WriteString("| Name | Department | Membership |\n|---|---|---|\n")
			for _, member := range cluster.Members {
				fmt.Fprintf(&b, "| %s | %s | %.2f |\n", member.Name, member.Department, member.Probability)
			}
			b.WriteString("\n")
		}
	}

	if topics != nil {
		b.WriteString("## Topics\n\n")
		fmt.Fprintf(&b, "%d keyword occurrences, %d unique, %d faculty with keywords\n\n",
			topics.TotalKeywords, topics.UniqueKeywords, topics.Coverage)
		b.WriteString("| Keyword | Frequency | Faculty |\n|---|---|---|\n")
		for _, topic := range topics.Topics {
			fmt.Fprintf(&b, "| %s | %d | %d |\n", topic.Keyword, topic.Frequency, topic.FacultyCount)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderHTMLReport converts the markdown report to a standalone HTML page
// with the embedded stylesheet.
func renderHTMLReport(markdown string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML template: %w", err)
	}

	data := struct {
		Title string
		Date  string
		Body  template.HTML
		CSS   template.CSS
	}{
		Title: "Faculty Research Landscape",
		Date:  time.Now().Format("2 January 2006"),
		Body:  template.HTML(body.String()),
		CSS:   template.CSS(cssStyles),
	}

	var page bytes.Buffer
	if err := tmpl.Execute(&page, data); err != nil {
		return "", fmt.Errorf("failed to execute HTML template: %w", err)
	}
	return page.String(), nil
}
