package ejudge

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ejudge-client/pkg/textutil"
)

const report_submit = "submit"

// Banner holds comment lines put around a submitted source. Lines are
// templates, "{key}" is replaced with Vars[key] or one of the built in
// keys: problem_id, problem_title, filename and date.
type Banner struct {
	Header []string
	Footer []string
	Vars   map[string]string
}

func (b Banner) empty() bool {
	return len(b.Header) == 0 && len(b.Footer) == 0
}

// DecorateSource wraps source in header and footer line comments using the
// comment prefix configured for the extension of filename.
func DecorateSource(source, filename string, header, footer []string, styles map[string]string) (string, error) {
	if len(header) == 0 && len(footer) == 0 {
		return source, nil
	}
	ext := strings.ToLower(filepath.Ext(filename))
	prefix, ok := commentStyle(styles, ext)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoCommentStyle, ext)
	}

	var out strings.Builder
	for _, line := range header {
		out.WriteString(prefix + line + "\n")
	}
	if len(header) > 0 {
		out.WriteString("\n")
	}
	out.WriteString(source)
	if len(footer) > 0 {
		out.WriteString("\n")
	}
	for _, line := range footer {
		out.WriteString(prefix + line + "\n")
	}
	return out.String(), nil
}

// commentStyle looks up ext in styles ignoring the case of the keys.
func commentStyle(styles map[string]string, ext string) (string, bool) {
	if prefix, ok := styles[ext]; ok {
		return prefix, true
	}
	for key, prefix := range styles {
		if strings.EqualFold(key, ext) {
			return prefix, true
		}
	}
	return "", false
}

func expandLines(lines []string, vars map[string]string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = textutil.FormatBlock(line, vars)
	}
	return out
}

func (c *Client) bannerVars(problem Problem, filename string, extra map[string]string) map[string]string {
	vars := map[string]string{
		"problem_id":    strconv.Itoa(problem.ID),
		"problem_title": problem.Title,
		"filename":      filepath.Base(filename),
		"date":          time.Now().In(c.location).Format("2006-01-02 15:04:05"),
	}
	for k, v := range extra {
		vars[strings.ToLower(k)] = v
	}
	return vars
}

// Submit uploads source as a solution of problem and returns the submission
// page the judge answers with, which is usually still pending. The problem
// page is fetched first when problem has no upload token.
func (c *Client) Submit(ctx context.Context, problem Problem, filename string, source string, banner Banner) (Submission, error) {
	submitError := func(err error) error {
		return fmt.Errorf("submit to problem %d: %w", problem.ID, err)
	}

	if problem.UploadToken == "" {
		err := c.FillProblem(ctx, &problem)
		if err != nil {
			return Submission{}, submitError(err)
		}
	}

	if !banner.empty() {
		vars := c.bannerVars(problem, filename, banner.Vars)
		decorated, err := DecorateSource(
			source,
			filename,
			expandLines(banner.Header, vars),
			expandLines(banner.Footer, vars),
			c.commentStyles,
		)
		if err != nil {
			c.tel.ReportWarning(report_submit, err, filename)
			return Submission{}, submitError(err)
		}
		source = decorated
	}

	doc, err := c.fetchAuthenticated(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("%s/%d/send", pathProblem, problem.ID),
		multipart: map[string]string{
			"code":   "",
			"lang":   "",
			"_token": problem.UploadToken,
		},
		file: &multipartFile{
			field:    "file",
			filename: filepath.Base(filename),
			content:  []byte(source),
		},
	})
	if err != nil {
		return Submission{}, submitError(err)
	}

	submission, err := ParseSubmission(doc, c.location)
	if err != nil {
		c.reportScrapeError(report_submit, err, problem.ID)
		return Submission{}, submitError(err)
	}
	c.tel.ReportDebug("submitted", problem.ID, submission.ID)
	return submission, nil
}
