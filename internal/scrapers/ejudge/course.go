package ejudge

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"ejudge-client/internal/components/chrono"
	"ejudge-client/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_scrape_courses  = "scrape.courses"
	report_scrape_problems = "scrape.problems"
)

// optionalTime parses a judge date, nil when it is absent or unreadable.
func optionalTime(value string, loc *time.Location) *time.Time {
	t, err := chrono.ParseJudgeTime(value, loc)
	if err != nil {
		return nil
	}
	return &t
}

// ParseCourses scrapes the course list page.
func ParseCourses(doc *goquery.Document, loc *time.Location) ([]Course, error) {
	err := expectPage(doc, "Course")
	if err != nil {
		return nil, err
	}

	courses := []Course{}
	rows := doc.Find("table tbody tr")
	for i := range rows.Nodes {
		tds := rows.Eq(i).Find("td")

		link := tds.Eq(0).Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return nil, unexpectedPage("course list: cannot get a course url (row %d)", i)
		}
		id, ok := htmlutil.IDFromLink(href)
		if !ok {
			return nil, unexpectedPage("course list: no id in course url %q", href)
		}

		ownerLink := tds.Eq(3).Find("a").First()
		ownerHref, ok := ownerLink.Attr("href")
		if !ok {
			return nil, unexpectedPage("course list: cannot get a course owner url (row %d)", i)
		}
		ownerID, ok := htmlutil.IDFromLink(ownerHref)
		if !ok {
			return nil, unexpectedPage("course list: no id in owner url %q", ownerHref)
		}

		courses = append(courses, Course{
			ID:      id,
			Title:   htmlutil.OwnText(link),
			Release: optionalTime(tds.Eq(1).Text(), loc),
			Expire:  optionalTime(tds.Eq(2).Text(), loc),
			Owner: &Account{
				ID:       ownerID,
				Fullname: htmlutil.OwnText(ownerLink),
			},
		})
	}
	return courses, nil
}

var problemListStatus = map[string]LiteStatus{
	"Passed":                  LITE_SUCCESS,
	"Not Passed":              LITE_DANGER,
	"Passed (Quality < 100%)": LITE_WARNING,
}

// ParseProblemList scrapes one page of a course's problem list into partial
// problems. An empty slice means the page has no rows.
func ParseProblemList(doc *goquery.Document, loc *time.Location) ([]Problem, error) {
	err := expectPage(doc, "Problem")
	if err != nil {
		return nil, err
	}

	problems := []Problem{}
	rows := doc.Find(".col-xs-12").Find("table > tbody").Find("tr")
	for i := range rows.Nodes {
		tds := rows.Eq(i).Find("td")
		anchors := tds.Eq(0).Find("a")

		link := anchors.Eq(1)
		href, ok := link.Attr("href")
		if !ok {
			return nil, unexpectedPage("problem list: cannot get a problem link (row %d)", i)
		}
		id, ok := htmlutil.IDFromLink(href)
		if !ok {
			return nil, unexpectedPage("problem list: no id in problem link %q", href)
		}

		passed, _ := htmlutil.LeadingInt(tds.Eq(2).Find("a").First().Text())
		attempt, _ := htmlutil.LeadingInt(tds.Eq(3).Find("a").First().Text())

		problems = append(problems, Problem{
			ID:            id,
			Title:         htmlutil.Text(link),
			Rank:          tds.Eq(1).Find(".fas").Length(),
			DisplayStatus: problemListStatus[anchors.Eq(0).AttrOr("title", "")],
			Deadline:      optionalTime(tds.Eq(5).Text(), loc),
			Passed:        passed,
			Attempt:       attempt,
		})
	}
	return problems, nil
}

// Courses lists the courses of the logged in user.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	doc, err := c.fetchAuthenticated(ctx, get(pathCourse))
	if err != nil {
		return nil, fmt.Errorf("get courses: %w", err)
	}
	courses, err := ParseCourses(doc, c.location)
	if err != nil {
		c.reportScrapeError(report_scrape_courses, err)
		return nil, fmt.Errorf("get courses: %w", err)
	}
	c.tel.ReportCount(report_scrape_courses, int64(len(courses)))
	return courses, nil
}

func problemPagePath(courseID, page int) string {
	next := pathProblem + "?" + url.Values{"page": {strconv.Itoa(page)}}.Encode()
	return fmt.Sprintf("%s/%d/enter?%s", pathCourse, courseID, url.Values{"next": {next}}.Encode())
}

// FillCourseProblems enters the course and reads its problem list page by
// page until an empty page, then stores the accumulated problems on course.
// course.Problems is left untouched on error.
func (c *Client) FillCourseProblems(ctx context.Context, course *Course) error {
	problems := []Problem{}
	for page := 1; ; page++ {
		if page > c.maxPages {
			err := fmt.Errorf("%w: course %d has more than %d pages", ErrTooManyPages, course.ID, c.maxPages)
			c.tel.ReportBroken(report_scrape_problems, err)
			return err
		}

		doc, err := c.fetchAuthenticated(ctx, get(problemPagePath(course.ID, page)))
		if err != nil {
			return fmt.Errorf("get problems of course %d: %w", course.ID, err)
		}
		pageProblems, err := ParseProblemList(doc, c.location)
		if err != nil {
			c.reportScrapeError(report_scrape_problems, err, course.ID, page)
			return fmt.Errorf("get problems of course %d: %w", course.ID, err)
		}
		if len(pageProblems) == 0 {
			break
		}
		problems = append(problems, pageProblems...)
	}

	course.Problems = problems
	return nil
}

// reportScrapeError reports judge errors as warnings and everything else as
// broken.
func (c *Client) reportScrapeError(id string, err error, params ...any) {
	var judgeErr *JudgeError
	if errors.As(err, &judgeErr) {
		c.tel.ReportWarning(id, append([]any{err}, params...)...)
		return
	}
	c.tel.ReportBroken(id, append([]any{err}, params...)...)
}
