package ejudge

import (
	"embed"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/*.html
var fixtures embed.FS

var testLoc = time.FixedZone("ICT", 7*60*60)

func fixture(t testing.TB, name string) string {
	t.Helper()
	contents, err := fixtures.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(contents)
}

func parseHTML(t testing.TB, contents string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	require.NoError(t, err)
	return doc
}

func parseFixture(t testing.TB, name string) *goquery.Document {
	return parseHTML(t, fixture(t, name))
}

func ptrTime(year int, month time.Month, day, hour, min, sec int) *time.Time {
	t := time.Date(year, month, day, hour, min, sec, 0, testLoc)
	return &t
}

func TestIsLoginPage(t *testing.T) {
	require.True(t, IsLoginPage(parseFixture(t, "login.html")))

	for _, name := range []string{
		"courses.html",
		"problems.html",
		"problem.html",
		"submission_judged.html",
		"submission_pending.html",
		"account.html",
		"online.html",
		"alert.html",
	} {
		require.False(t, IsLoginPage(parseFixture(t, name)), name)
	}

	login := parseFixture(t, "login.html")
	require.Equal(t, "login-token-1", LoginToken(login))
	require.Equal(t, "", LoginMessage(login))
}

func TestPageHeaderAndAlert(t *testing.T) {
	require.Equal(t, "Course", PageHeader(parseFixture(t, "courses.html")))
	require.Equal(t, "Problem", PageHeader(parseFixture(t, "problems.html")))
	require.Nil(t, AlertMessage(parseFixture(t, "courses.html")))

	alert := AlertMessage(parseFixture(t, "alert.html"))
	require.NotNil(t, alert)
	require.Equal(t, "Access denied : You are not enrolled in this course", alert.Error())
}

func TestParseCourses(t *testing.T) {
	courses, err := ParseCourses(parseFixture(t, "courses.html"), testLoc)
	require.NoError(t, err)

	expected := []Course{
		{
			ID:      12,
			Title:   "Computer Programming",
			Release: ptrTime(2024, time.June, 1, 8, 0, 0),
			Expire:  ptrTime(2024, time.December, 31, 23, 59, 59),
			Owner:   &Account{ID: 3, Fullname: "Somchai Jaidee"},
		},
		{
			ID:      15,
			Title:   "Data Structures",
			Release: ptrTime(2024, time.July, 1, 0, 0, 0),
			Owner:   &Account{ID: 4, Fullname: "Suda Rakdee"},
		},
	}
	if diff := cmp.Diff(expected, courses); diff != "" {
		t.Fatal(diff)
	}
	require.Nil(t, courses[0].Problems)
}

func TestParseCoursesJudgeError(t *testing.T) {
	_, err := ParseCourses(parseFixture(t, "alert.html"), testLoc)

	var judgeErr *JudgeError
	require.ErrorAs(t, err, &judgeErr)
	require.Equal(t, "Access denied", judgeErr.Header)
	require.Equal(t, "You are not enrolled in this course", judgeErr.Content)

	_, err = ParseCourses(parseFixture(t, "problems.html"), testLoc)
	require.ErrorIs(t, err, ErrUnexpectedPage)
}

func TestParseProblemList(t *testing.T) {
	problems, err := ParseProblemList(parseFixture(t, "problems.html"), testLoc)
	require.NoError(t, err)

	expected := []Problem{
		{
			ID:            101,
			Title:         "Hello World",
			Rank:          2,
			DisplayStatus: LITE_SUCCESS,
			Deadline:      ptrTime(2024, time.August, 1, 23, 59, 0),
			Passed:        35,
			Attempt:       40,
		},
		{
			ID:            102,
			Title:         "A + B",
			Rank:          4,
			DisplayStatus: LITE_DANGER,
			Passed:        3,
			Attempt:       27,
		},
		{
			ID:            103,
			Title:         "Fibonacci",
			Rank:          0,
			DisplayStatus: LITE_WARNING,
			Deadline:      ptrTime(2024, time.September, 15, 12, 0, 0),
			Passed:        0,
			Attempt:       1,
		},
		{
			ID:            104,
			Title:         "Primes",
			Rank:          1,
			DisplayStatus: LITE_WHAT,
			Deadline:      ptrTime(2024, time.September, 15, 12, 0, 0),
		},
	}
	if diff := cmp.Diff(expected, problems); diff != "" {
		t.Fatal(diff)
	}

	_, err = ParseProblemList(parseFixture(t, "courses.html"), testLoc)
	require.ErrorIs(t, err, ErrUnexpectedPage)
}

func TestParseProblem(t *testing.T) {
	problem, err := ParseProblem(parseFixture(t, "problem.html"), 101, testLoc)
	require.NoError(t, err)

	expected := Problem{
		ID:       101,
		Title:    "A + B",
		DescHTML: "<p>Add <b>two</b> numbers.</p>",
		SpecIn:   "Two integers <code>a b</code>",
		SpecOut:  "The sum of <code>a</code> and <code>b</code>",
		Samples: []Sample{
			{Input: "1 2", Output: "3"},
			{Input: "10 -4", Output: "6"},
		},
		TimeLimit:       time.Second,
		Deadline:        ptrTime(2024, time.August, 1, 23, 59, 0),
		Testcases:       12,
		RestrictedWords: []string{"for", "while", "import"},
		LastSubmission: &SubmissionLite{
			ID:        5555,
			ProblemID: 101,
			Display:   "100 / 100",
			Status:    LITE_SUCCESS,
		},
		UploadToken: "upload-token-101",
	}
	if diff := cmp.Diff(expected, problem); diff != "" {
		t.Fatal(diff)
	}
}

func TestParseProblemMissingOptionals(t *testing.T) {
	problem, err := ParseProblem(parseFixture(t, "problem_minimal.html"), 104, testLoc)
	require.NoError(t, err)

	require.Equal(t, "Primes", problem.Title)
	require.Equal(t, "Print the primes.", problem.DescHTML)
	require.Equal(t, 2500*time.Millisecond, problem.TimeLimit)
	require.Nil(t, problem.Deadline)
	require.Nil(t, problem.RestrictedWords)
	require.Nil(t, problem.LastSubmission)
	require.Equal(t, 4, problem.Testcases)
	require.Empty(t, problem.Samples)
	require.Equal(t, "", problem.SpecIn)
	require.Equal(t, "upload-token-104", problem.UploadToken)
}

func TestParseProblemErrors(t *testing.T) {
	_, err := ParseProblem(parseFixture(t, "alert.html"), 1, testLoc)
	var judgeErr *JudgeError
	require.ErrorAs(t, err, &judgeErr)

	noToken := strings.Replace(fixture(t, "problem.html"), `name="_token"`, `name="other"`, 1)
	_, err = ParseProblem(parseHTML(t, noToken), 101, testLoc)
	require.ErrorIs(t, err, ErrUnexpectedPage)
	require.Contains(t, err.Error(), "upload token")
}

func TestParseSubmissionJudged(t *testing.T) {
	submission, err := ParseSubmission(parseFixture(t, "submission_judged.html"), testLoc)
	require.NoError(t, err)

	score := 87.5
	expected := Submission{
		ID:        5555,
		ProblemID: 101,
		Pending:   false,
		Quality: &Quality{
			Percent: 85,
			Summary: "line 3: line too long",
		},
		SummaryScore: &score,
		Timestamp:    ptrTime(2024, time.August, 1, 20, 15, 0),
		Cases: []SubmissionCase{
			{Header: "Case 1", Status: CASE_PASSED, Time: "0.01 s"},
			{Header: "Case 2", Status: CASE_ERROR, Time: "0.02 s", Desc: "ZeroDivisionError: division by zero"},
			{Header: "Case 3", Status: CASE_TIMEOUT, Time: "1.00 s"},
			{Header: "Case 4", Status: CASE_RESTRICT_WORD, Time: "0 s", Desc: "found: while"},
			{Header: "Case 5", Status: CASE_UNKNOWN},
		},
	}
	if diff := cmp.Diff(expected, submission); diff != "" {
		t.Fatal(diff)
	}
}

func TestParseSubmissionPending(t *testing.T) {
	submission, err := ParseSubmission(parseFixture(t, "submission_pending.html"), testLoc)
	require.NoError(t, err)

	require.Equal(t, 5556, submission.ID)
	require.Equal(t, 101, submission.ProblemID)
	require.True(t, submission.Pending)
	require.Nil(t, submission.Quality)
	require.Nil(t, submission.SummaryScore)
	require.NotNil(t, submission.Timestamp)
	require.True(t, ptrTime(2024, time.August, 1, 20, 20, 0).Equal(*submission.Timestamp))
	require.Empty(t, submission.Cases)
}

const continuationTemplate = `<html><body><section class="content">
<div class="row"><table><tbody>
<tr><td>ID</td><td><h4>#7</h4></td></tr>
<tr><td>Problem</td><td><h4><a href="/problem/3">P</a></h4></td></tr>
<tr><td></td><td><h4></h4></td></tr>
<tr><td></td><td><h4></h4></td></tr>
<tr><td></td><td><h4></h4></td></tr>
<tr><td></td><td><h4></h4></td></tr>
<tr><td>Score</td><td><h4>0 / 100</h4></td></tr>
<tr><td>Date</td><td><h4>2024-01-01 00:00:00</h4></td></tr>
</tbody></table></div>
<div class="row"><table><tbody>%s</tbody></table></div>
</section></body></html>`

func TestSubmissionCaseContinuation(t *testing.T) {
	render := func(rows string) string {
		return strings.Replace(continuationTemplate, "%s", rows, 1)
	}

	submission, err := ParseSubmission(parseHTML(t, render(
		`<tr><td>Case 1</td><td><p>Error</p><span>0.1 s</span></td></tr>`+
			`<tr><td></td><td><pre>  Traceback  </pre></td></tr>`,
	)), testLoc)
	require.NoError(t, err)
	require.Len(t, submission.Cases, 1)
	require.Equal(t, "Traceback", submission.Cases[0].Desc)
	require.Equal(t, CASE_ERROR, submission.Cases[0].Status)

	// a continuation without a case before it is dropped
	submission, err = ParseSubmission(parseHTML(t, render(
		`<tr><td></td><td><pre>orphan</pre></td></tr>`+
			`<tr><td>Case 1</td><td><p>Passed</p><span>0.1 s</span></td></tr>`,
	)), testLoc)
	require.NoError(t, err)
	require.Len(t, submission.Cases, 1)
	require.Equal(t, "", submission.Cases[0].Desc)
	require.Equal(t, CASE_PASSED, submission.Cases[0].Status)
}

func TestParseSubmissionErrors(t *testing.T) {
	_, err := ParseSubmission(parseFixture(t, "alert.html"), testLoc)
	var judgeErr *JudgeError
	require.ErrorAs(t, err, &judgeErr)

	broken := strings.Replace(fixture(t, "submission_pending.html"), "#5556", "#abc", 1)
	_, err = ParseSubmission(parseHTML(t, broken), testLoc)
	require.ErrorIs(t, err, ErrUnexpectedPage)
}

func TestParseAccount(t *testing.T) {
	account, err := ParseAccount(parseFixture(t, "account.html"), AccountMe)
	require.NoError(t, err)

	expected := Account{
		ID:            17,
		Username:      "alice",
		Fullname:      "Alice Wonder",
		ProfilePicURL: "/storage/profile/17.png",
		Email:         "alice@example.com",
		Desc:          "Loves graphs.",
	}
	if diff := cmp.Diff(expected, account); diff != "" {
		t.Fatal(diff)
	}

	// someone else's page has no edit link, the requested id is kept
	other := strings.Replace(fixture(t, "account.html"), `<a class="btn btn-default" href="/account/17/edit">Edit</a>`, "", 1)
	account, err = ParseAccount(parseHTML(t, other), 42)
	require.NoError(t, err)
	require.Equal(t, 42, account.ID)

	_, err = ParseAccount(parseHTML(t, other), AccountMe)
	require.ErrorIs(t, err, ErrUnexpectedPage)
}

func TestParseOnlineUsers(t *testing.T) {
	users, err := ParseOnlineUsers(parseFixture(t, "online.html"), testLoc)
	require.NoError(t, err)

	expected := []UserActivity{
		{
			Account:      Account{ID: 17, Username: "alice", Fullname: "Alice Wonder"},
			LastSeen:     ptrTime(2024, time.August, 1, 20, 15, 0),
			LastSeenText: "2024-08-01 20:15:00",
			CurrentURL:   "/problem/101",
		},
		{
			Account:      Account{ID: 18, Username: "bob", Fullname: "Bob Builder"},
			LastSeenText: "a moment ago",
			CurrentURL:   "/course",
		},
	}
	if diff := cmp.Diff(expected, users); diff != "" {
		t.Fatal(diff)
	}
}

func TestProblemMerge(t *testing.T) {
	partial, err := ParseProblemList(parseFixture(t, "problems.html"), testLoc)
	require.NoError(t, err)
	full, err := ParseProblem(parseFixture(t, "problem.html"), 101, testLoc)
	require.NoError(t, err)

	merged := partial[0]
	require.NoError(t, merged.Merge(full))

	require.Equal(t, "Hello World", merged.Title)
	require.Equal(t, 2, merged.Rank)
	require.Equal(t, 35, merged.Passed)
	require.Equal(t, LITE_SUCCESS, merged.DisplayStatus)
	require.Equal(t, "upload-token-101", merged.UploadToken)
	require.Equal(t, []string{"for", "while", "import"}, merged.RestrictedWords)
	require.Len(t, merged.Samples, 2)

	other := partial[1]
	require.Error(t, other.Merge(full))
}

func TestErrorTaxonomy(t *testing.T) {
	fetchErr := error(&FetchError{URL: "https://judge/course", Status: 500})
	require.ErrorIs(t, fetchErr, ErrFetchFailed)
	require.Contains(t, fetchErr.Error(), "https://judge/course")

	wrapped := &FetchError{URL: "x", Err: errors.New("dial tcp: refused")}
	require.ErrorIs(t, wrapped, ErrFetchFailed)
	require.Contains(t, wrapped.Error(), "refused")

	require.False(t, errors.Is(&JudgeError{Header: "a", Content: "b"}, ErrFetchFailed))
}
