package ejudge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ejudge-client/pkg/htmlutil"
	"ejudge-client/pkg/textutil"

	"github.com/PuerkitoBio/goquery"
)

const report_scrape_problem = "scrape.problem"

// positions of the entries in the info panel of a problem page.
const (
	infoTimeLimit      = 0
	infoDeadline       = 3
	infoRestrictedWord = 5
	infoTestcases      = 7
	infoLastSubmission = 11
)

func parseTimeLimit(text string) (time.Duration, bool) {
	text = strings.TrimSpace(strings.Replace(text, "Second", "", 1))
	text = strings.TrimSuffix(text, "s")
	seconds, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

func parseLiteStatus(p *goquery.Selection) LiteStatus {
	switch {
	case p.HasClass("label-success"):
		return LITE_SUCCESS
	case p.HasClass("label-danger"):
		return LITE_DANGER
	default:
		return LITE_WARNING
	}
}

// ParseProblem scrapes the page of problem `id`. The page has three content
// blocks (description, input/output format, samples) and an info panel of
// <dd> entries addressed by position.
func ParseProblem(doc *goquery.Document, id int, loc *time.Location) (Problem, error) {
	blocks := doc.Find(".col-lg-9 > .row")
	if blocks.Length() == 0 {
		return Problem{}, pageError(doc, "Problem")
	}

	problem := Problem{
		ID:       id,
		Title:    htmlutil.Text(doc.Find(".content-header > h1").First()),
		DescHTML: htmlutil.InnerHTML(blocks.Eq(0).Find(".box-body").First()),
		Samples:  []Sample{},
	}

	spec := blocks.Eq(1).Find(".box-body > table").Find("tbody > tr > td")
	if spec.Length() > 0 {
		problem.SpecIn = htmlutil.InnerHTML(spec.Eq(0))
	}
	if spec.Length() > 1 {
		problem.SpecOut = htmlutil.InnerHTML(spec.Eq(1))
	}

	blocks.Eq(2).Find(".box-body > table").Find("tbody > tr").Each(func(_ int, row *goquery.Selection) {
		pres := row.Find("td > pre")
		problem.Samples = append(problem.Samples, Sample{
			Input:  htmlutil.Text(pres.Eq(0)),
			Output: htmlutil.Text(pres.Eq(1)),
		})
	})

	side := doc.Find(".col-lg-3 > .row")
	info := side.Eq(1).Find(".box-body").Find("dd")

	if dd := info.Eq(infoTimeLimit); dd.Length() > 0 {
		problem.TimeLimit, _ = parseTimeLimit(dd.Text())
	}
	if dd := info.Eq(infoDeadline); dd.Length() > 0 {
		problem.Deadline = optionalTime(dd.Text(), loc)
	}
	if dd := info.Eq(infoRestrictedWord); dd.Length() > 0 {
		span := dd.Find("span")
		if span.HasClass("label-danger") {
			problem.RestrictedWords = textutil.SplitWords(span.Text())
		}
	}
	if dd := info.Eq(infoTestcases); dd.Length() > 0 {
		problem.Testcases, _ = htmlutil.LeadingInt(dd.Text())
	}
	if dd := info.Eq(infoLastSubmission); dd.Length() > 0 {
		a := dd.Find("a").First()
		if href, ok := a.Attr("href"); ok {
			if submissionID, ok := htmlutil.IDFromLink(href); ok {
				p := a.Find("p")
				problem.LastSubmission = &SubmissionLite{
					ID:        submissionID,
					ProblemID: id,
					Display:   htmlutil.Text(p),
					Status:    parseLiteStatus(p),
				}
			}
		}
	}

	form := side.Eq(2).Find(".col-xs-12 > .box > .box-body > form")
	token, ok := form.Find("input[name=_token]").First().Attr("value")
	if !ok || token == "" {
		return Problem{}, unexpectedPage("problem %d: cannot get an upload token", id)
	}
	problem.UploadToken = token

	return problem, nil
}

// Problem fetches the full projection of a problem.
func (c *Client) Problem(ctx context.Context, id int) (Problem, error) {
	doc, err := c.fetchAuthenticated(ctx, get(fmt.Sprintf("%s/%d", pathProblem, id)))
	if err != nil {
		return Problem{}, fmt.Errorf("get problem %d: %w", id, err)
	}
	problem, err := ParseProblem(doc, id, c.location)
	if err != nil {
		c.reportScrapeError(report_scrape_problem, err, id)
		return Problem{}, fmt.Errorf("get problem %d: %w", id, err)
	}
	return problem, nil
}

// FillProblem merges the full projection of problem into it.
func (c *Client) FillProblem(ctx context.Context, problem *Problem) error {
	full, err := c.Problem(ctx, problem.ID)
	if err != nil {
		return err
	}
	return problem.Merge(full)
}
