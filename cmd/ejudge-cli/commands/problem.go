package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ejudge-client/internal/scrapers/ejudge"

	"github.com/spf13/cobra"
)

var (
	submissionWait *bool
	submitHeader   *[]string
	submitFooter   *[]string
	submitNoBanner *bool
	submitWait     *bool
)

const waitInterval = 3 * time.Second

func init() {
	submissionWait = submissionCmd.Flags().Bool("wait", false, "Poll until the submission is judged.")

	submitHeader = submitCmd.Flags().StringArray("header", nil, "A banner line put above the source, overrides the config.")
	submitFooter = submitCmd.Flags().StringArray("footer", nil, "A banner line put below the source, overrides the config.")
	submitNoBanner = submitCmd.Flags().Bool("no-banner", false, "Submit the source as is.")
	submitWait = submitCmd.Flags().Bool("wait", false, "Poll until the submission is judged.")

	rootCmd.AddCommand(problemCmd)
	rootCmd.AddCommand(submissionCmd)
	rootCmd.AddCommand(submitCmd)
}

func parseID(arg, what string) int {
	id, err := strconv.Atoi(arg)
	if err != nil {
		fatal(fmt.Sprintf("invalid %s id", what), err)
	}
	return id
}

var problemCmd = &cobra.Command{
	Use:   "problem <id>",
	Short: "Prints a problem with its description rendered as markdown.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		problem, err := current.client.Problem(cmd.Context(), parseID(args[0], "problem"))
		if err != nil {
			fatal("failed to get problem", err)
		}
		printProblem(problem, current.clock.Now())
	},
}

func printProblem(problem ejudge.Problem, now time.Time) {
	fmt.Printf("# %d. %s\n\n", problem.ID, problem.Title)
	fmt.Printf("time limit: %s\n", problem.TimeLimit)
	fmt.Printf("deadline: %s\n", formatTime(problem.Deadline, now))
	fmt.Printf("test cases: %d\n", problem.Testcases)
	if problem.RestrictedWords != nil {
		fmt.Printf("restricted words: %s\n", strings.Join(problem.RestrictedWords, ", "))
	}
	if problem.LastSubmission != nil {
		fmt.Printf("last submission: #%d %s (%s)\n",
			problem.LastSubmission.ID,
			problem.LastSubmission.Display,
			problem.LastSubmission.Status,
		)
	}

	if desc := renderHTML(problem.DescHTML); desc != "" {
		fmt.Printf("\n%s\n", desc)
	}
	if problem.SpecIn != "" {
		fmt.Printf("\n## Input\n\n%s\n", problem.SpecIn)
	}
	if problem.SpecOut != "" {
		fmt.Printf("\n## Output\n\n%s\n", problem.SpecOut)
	}
	for i, sample := range problem.Samples {
		fmt.Printf("\n## Sample %d\n\n```\n%s\n```\n\n```\n%s\n```\n", i+1, sample.Input, sample.Output)
	}
}

var submissionCmd = &cobra.Command{
	Use:   "submission <id> [--wait]",
	Short: "Prints the result of a submission.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0], "submission")

		var submission ejudge.Submission
		var err error
		if *submissionWait {
			submission, err = current.client.WaitJudged(cmd.Context(), id, waitInterval)
		} else {
			submission, err = current.client.Submission(cmd.Context(), id)
		}
		if err != nil {
			fatal("failed to get submission", err)
		}
		printSubmission(submission, current.clock.Now())
	},
}

func (a *app) banner(username string) ejudge.Banner {
	if *submitNoBanner {
		return ejudge.Banner{}
	}
	banner := ejudge.Banner{
		Header: a.config.Header,
		Footer: a.config.Footer,
		Vars:   map[string]string{"username": username},
	}
	if len(*submitHeader) > 0 {
		banner.Header = *submitHeader
	}
	if len(*submitFooter) > 0 {
		banner.Footer = *submitFooter
	}
	return banner
}

var submitCmd = &cobra.Command{
	Use:   "submit <problem id> <file> [--header <line>]... [--footer <line>]... [--wait]",
	Short: "Submits a source file, optionally wrapped in comment banners.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		problemID := parseID(args[0], "problem")
		filename := args[1]

		source, err := os.ReadFile(filename)
		if err != nil {
			fatal("failed to read source", err)
		}

		username := current.config.Username
		if username == "" {
			me, err := current.client.MyAccountOrGuest(ctx)
			if err == nil && me != nil {
				username = me.Username
			}
		}

		submission, err := current.client.Submit(
			ctx,
			ejudge.Problem{ID: problemID},
			filename,
			string(source),
			current.banner(username),
		)
		if err != nil {
			fatal("failed to submit", err)
		}

		if *submitWait && submission.Pending {
			submission, err = current.client.WaitJudged(ctx, submission.ID, waitInterval)
			if err != nil {
				fatal("failed to wait for the verdict", err)
			}
		}
		printSubmission(submission, current.clock.Now())
	},
}
