package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"ejudge-client/internal/scrapers/ejudge"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

var converter = md.NewConverter("", true, nil)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// formatTime renders an optional judge time with a relative suffix, "-" when
// absent.
func formatTime(t *time.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", t.Format("2006-01-02 15:04"), humanize.RelTime(*t, now, "ago", "from now"))
}

func formatRank(rank int) string {
	return strings.Repeat("*", rank)
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return humanize.FtoaWithDigits(*score, 2)
}

func formatCaseStatus(status ejudge.CaseStatus) string {
	switch status {
	case ejudge.CASE_PASSED:
		return "P"
	case ejudge.CASE_INCORRECT:
		return "-"
	case ejudge.CASE_ERROR:
		return "X"
	case ejudge.CASE_TIMEOUT:
		return "T"
	case ejudge.CASE_MEMORY_ERROR:
		return "M"
	case ejudge.CASE_RESTRICT_WORD:
		return "R"
	default:
		return "?"
	}
}

// caseSummary renders the verdicts of all cases in one line, like "PP-XT".
func caseSummary(cases []ejudge.SubmissionCase) string {
	var out strings.Builder
	for _, c := range cases {
		out.WriteString(formatCaseStatus(c.Status))
	}
	return out.String()
}

func renderHTML(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	rendered, err := converter.ConvertString(html)
	if err != nil {
		return html
	}
	return strings.TrimSpace(rendered)
}

func printSubmission(submission ejudge.Submission, now time.Time) {
	fmt.Printf("submission #%d of problem %d\n", submission.ID, submission.ProblemID)
	if submission.Pending {
		fmt.Println("status: pending")
	}
	fmt.Printf("score: %s\n", formatScore(submission.SummaryScore))
	fmt.Printf("submitted: %s\n", formatTime(submission.Timestamp, now))
	if submission.Quality != nil {
		fmt.Printf("quality: %s%%\n", humanize.FtoaWithDigits(submission.Quality.Percent, 2))
		if submission.Quality.Summary != "" {
			fmt.Println(submission.Quality.Summary)
		}
	}
	if len(submission.Cases) == 0 {
		return
	}
	fmt.Printf("cases: %s\n", caseSummary(submission.Cases))

	t := newTable()
	t.AppendHeader(table.Row{"Case", "Status", "Time", "Detail"})
	for _, c := range submission.Cases {
		t.AppendRow(table.Row{c.Header, c.Status.String(), c.Time, c.Desc})
	}
	t.Render()
}
