package ejudge

import (
	"fmt"
	"time"

	"dario.cat/mergo"
)

// Account is a judge user. Only ID is guaranteed, everything else is
// whatever the page the account was scraped from happened to show.
type Account struct {
	ID            int
	Username      string
	Fullname      string
	ProfilePicURL string
	Email         string
	Desc          string
}

// UserActivity is a row of the online users page.
type UserActivity struct {
	Account      Account
	LastSeen     *time.Time
	LastSeenText string
	CurrentURL   string
}

type Course struct {
	ID      int
	Title   string
	Desc    string
	Owner   *Account
	Release *time.Time
	Expire  *time.Time
	// nil until FillCourseProblems has run, an empty slice means the course
	// has no problems.
	Problems []Problem
	Students []Account
}

// LiteStatus is the coarse status used to colour a problem or its last
// submission.
type LiteStatus int

const (
	LITE_WHAT LiteStatus = iota
	LITE_SUCCESS
	LITE_DANGER
	LITE_WARNING
)

func (s LiteStatus) String() string {
	switch s {
	case LITE_SUCCESS:
		return "success"
	case LITE_DANGER:
		return "danger"
	case LITE_WARNING:
		return "warning"
	default:
		return "what"
	}
}

// CaseStatus is the verdict of a single test case, CASE_UNKNOWN when the
// judge printed something not listed here.
type CaseStatus int

const (
	CASE_UNKNOWN CaseStatus = iota
	CASE_PASSED
	CASE_ERROR
	CASE_INCORRECT
	CASE_TIMEOUT
	CASE_MEMORY_ERROR
	CASE_RESTRICT_WORD
)

var caseStatusNames = map[string]CaseStatus{
	"Passed":        CASE_PASSED,
	"Incorrect":     CASE_INCORRECT,
	"Error":         CASE_ERROR,
	"Timeout":       CASE_TIMEOUT,
	"Memory Error":  CASE_MEMORY_ERROR,
	"Restrict Word": CASE_RESTRICT_WORD,
}

func (s CaseStatus) String() string {
	for name, status := range caseStatusNames {
		if status == s {
			return name
		}
	}
	return "Unknown"
}

type Quality struct {
	// 0-100
	Percent float64
	Summary string
}

type SubmissionCase struct {
	Header string
	Status CaseStatus
	// only set for error and restricted word cases
	Desc string
	Time string
}

type Submission struct {
	ID        int
	ProblemID int
	// Pending is true while the judge is still grading, Quality is always
	// nil for a pending submission.
	Pending      bool
	Quality      *Quality
	SummaryScore *float64
	Timestamp    *time.Time
	Cases        []SubmissionCase
}

// SubmissionLite is the short reference to the latest submission shown on
// a problem page.
type SubmissionLite struct {
	ID        int
	ProblemID int
	Display   string
	Status    LiteStatus
}

type Sample struct {
	Input  string
	Output string
}

// Problem is either the partial projection from a course's problem list
// (id, title, rank, status, deadline, passed, attempt) or the full
// projection from the problem page. Merge combines the two.
type Problem struct {
	ID       int
	Title    string
	DescHTML string
	SpecIn   string
	SpecOut  string
	Samples  []Sample

	TimeLimit time.Duration
	Deadline  *time.Time
	Testcases int
	// nil when the problem does not restrict any word.
	RestrictedWords []string

	LastSubmission *SubmissionLite

	DisplayStatus LiteStatus
	// 0-5 stars
	Rank    int
	Passed  int
	Attempt int

	// anti-forgery token of the problem's upload form, needed by Submit.
	UploadToken string
}

// Merge fills the zero fields of p with the fields of other, both must
// describe the same problem.
func (p *Problem) Merge(other Problem) error {
	if p.ID != other.ID {
		return fmt.Errorf("merge problem: id mismatch %d != %d", p.ID, other.ID)
	}
	return mergo.Merge(p, other)
}
