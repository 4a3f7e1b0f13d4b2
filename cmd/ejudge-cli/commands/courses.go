package commands

import (
	"context"
	"fmt"
	"strconv"

	"ejudge-client/internal/scrapers/ejudge"
	"ejudge-client/pkg/textutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(problemsCmd)
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Lists your courses.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		courses, err := current.client.Courses(cmd.Context())
		if err != nil {
			fatal("failed to get courses", err)
		}

		now := current.clock.Now()
		t := newTable()
		t.AppendHeader(table.Row{"ID", "Title", "Owner", "Release", "Expire"})
		for _, c := range courses {
			owner := ""
			if c.Owner != nil {
				owner = c.Owner.Fullname
			}
			t.AppendRow(table.Row{c.ID, c.Title, owner, formatTime(c.Release, now), formatTime(c.Expire, now)})
		}
		t.Render()
	},
}

// courseMatchThreshold is the minimum Jaro-Winkler score for a course name
// to be picked by a fuzzy query.
const courseMatchThreshold = 0.7

// resolveCourse picks a course by id, or by the title closest to `query`.
func resolveCourse(courses []ejudge.Course, query string) (ejudge.Course, error) {
	if id, err := strconv.Atoi(query); err == nil {
		for _, c := range courses {
			if c.ID == id {
				return c, nil
			}
		}
		return ejudge.Course{ID: id}, nil
	}

	titles := make([]string, len(courses))
	for i, c := range courses {
		titles[i] = c.Title
	}
	idx := textutil.BestMatch(query, titles, courseMatchThreshold)
	if idx < 0 {
		return ejudge.Course{}, fmt.Errorf("no course matches %q", query)
	}
	return courses[idx], nil
}

func findCourse(ctx context.Context, query string) ejudge.Course {
	var courses []ejudge.Course
	if _, err := strconv.Atoi(query); err != nil {
		courses, err = current.client.Courses(ctx)
		if err != nil {
			fatal("failed to get courses", err)
		}
	}
	course, err := resolveCourse(courses, query)
	if err != nil {
		fatal("failed to find course", err)
	}
	return course
}

var problemsCmd = &cobra.Command{
	Use:   "problems <course id | course name>",
	Short: "Lists the problems of a course, the name may be approximate.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		course := findCourse(cmd.Context(), args[0])
		err := current.client.FillCourseProblems(cmd.Context(), &course)
		if err != nil {
			fatal("failed to get problems", err)
		}

		if course.Title != "" {
			fmt.Println(course.Title)
		}
		now := current.clock.Now()
		t := newTable()
		t.AppendHeader(table.Row{"ID", "Title", "Rank", "Status", "Passed", "Attempts", "Deadline"})
		for _, p := range course.Problems {
			t.AppendRow(table.Row{
				p.ID,
				p.Title,
				formatRank(p.Rank),
				p.DisplayStatus.String(),
				p.Passed,
				p.Attempt,
				formatTime(p.Deadline, now),
			})
		}
		t.Render()
	},
}
