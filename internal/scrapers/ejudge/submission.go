package ejudge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ejudge-client/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const report_scrape_submission = "scrape.submission"

// a submission that is still being judged has no quality row.
const pendingSubmissionRows = 8

func detailCell(rows *goquery.Selection, i int) *goquery.Selection {
	return rows.Eq(i).Find("td").Eq(1)
}

// ParseSubmission scrapes a submission page. The detail table has 8 rows
// while the submission is pending and 9 once it is judged, the extra row
// (index 6) holds the quality score.
func ParseSubmission(doc *goquery.Document, loc *time.Location) (Submission, error) {
	sections := doc.Find(".content > .row")
	rows := sections.Eq(0).Find("table").Find("tbody > tr")
	if rows.Length() == 0 {
		return Submission{}, pageError(doc, "Submission")
	}
	pending := rows.Length() == pendingSubmissionRows

	idText := strings.TrimPrefix(htmlutil.Text(detailCell(rows, 0).Find("h4")), "#")
	id, err := strconv.Atoi(strings.TrimSpace(idText))
	if err != nil {
		return Submission{}, unexpectedPage("submission: cannot get submission id from %q", idText)
	}

	problemHref, ok := detailCell(rows, 1).Find("h4").Find("a").Attr("href")
	if !ok {
		return Submission{}, unexpectedPage("submission %d: cannot get a problem url", id)
	}
	problemID, ok := htmlutil.IDFromLink(problemHref)
	if !ok {
		return Submission{}, unexpectedPage("submission %d: no id in problem url %q", id, problemHref)
	}

	scoreRow, dateRow := 7, 8
	if pending {
		scoreRow, dateRow = 6, 7
	}

	submission := Submission{
		ID:        id,
		ProblemID: problemID,
		Pending:   pending,
		Timestamp: optionalTime(detailCell(rows, dateRow).Find("h4").Text(), loc),
		Cases:     []SubmissionCase{},
	}
	if score, ok := htmlutil.LeadingFloat(detailCell(rows, scoreRow).Find("h4").Text()); ok {
		submission.SummaryScore = &score
	}

	if !pending {
		cell := detailCell(rows, 6)
		percentText := strings.TrimSuffix(htmlutil.OwnText(cell.Find("h4")), "%")
		percent, err := strconv.ParseFloat(strings.TrimSpace(percentText), 64)
		if err != nil {
			return Submission{}, unexpectedPage("submission %d: cannot read quality %q", id, percentText)
		}
		submission.Quality = &Quality{
			Percent: percent,
			Summary: cell.Find("#qctext > .modal-dialog > .modal-content > .modal-body > pre").Text(),
		}
	}

	sections.Eq(1).Find("tbody").Find("tr").Each(func(_ int, row *goquery.Selection) {
		tds := row.Find("td")
		header := htmlutil.Text(tds.Eq(0))
		detail := tds.Eq(1)

		// a row without a header continues the previous case with its error
		if header == "" {
			if len(submission.Cases) == 0 {
				return
			}
			submission.Cases[len(submission.Cases)-1].Desc = htmlutil.Text(detail.Find("pre"))
			return
		}

		submission.Cases = append(submission.Cases, SubmissionCase{
			Header: header,
			Status: caseStatusNames[htmlutil.Text(detail.Find("p"))],
			Time:   htmlutil.Text(detail.Find("span")),
		})
	})

	return submission, nil
}

// Submission fetches a submission.
func (c *Client) Submission(ctx context.Context, id int) (Submission, error) {
	doc, err := c.fetchAuthenticated(ctx, get(fmt.Sprintf("%s/submission/%d", pathProblem, id)))
	if err != nil {
		return Submission{}, fmt.Errorf("get submission %d: %w", id, err)
	}
	submission, err := ParseSubmission(doc, c.location)
	if err != nil {
		c.reportScrapeError(report_scrape_submission, err, id)
		return Submission{}, fmt.Errorf("get submission %d: %w", id, err)
	}
	return submission, nil
}

// WaitJudged polls a submission every `interval` until it is no longer
// pending.
func (c *Client) WaitJudged(ctx context.Context, id int, interval time.Duration) (Submission, error) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Submission{}, ctx.Err()
		case <-timer.C:
		}

		submission, err := c.Submission(ctx, id)
		if err != nil {
			return Submission{}, err
		}
		if !submission.Pending {
			return submission, nil
		}
		c.tel.ReportDebug("submission pending", id)
		timer.Reset(interval)
	}
}
