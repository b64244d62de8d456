// Package ui renders the HTML pages of the job server.
package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// JobListItem is one row of the job list.
type JobListItem struct {
	ID         string
	State      string
	Model      string
	DataPath   string
	Trials     int
	TrialsDone int
	Inliers    int
	Points     int
	StartTime  time.Time
	EndTime    *time.Time
	Error      string
}

// Elapsed returns the run time of a finished job, or the time since it
// started.
func (j JobListItem) Elapsed(now time.Time) time.Duration {
	if j.EndTime != nil {
		return j.EndTime.Sub(j.StartTime).Round(time.Millisecond)
	}
	return now.Sub(j.StartTime).Round(time.Second)
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>ransacfit jobs</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { padding: 0.3em 0.8em; border-bottom: 1px solid #ddd; text-align: left; }
.failed { color: #b00; }
.completed { color: #070; }
</style>
</head>
<body>
<h1>Jobs</h1>
`

const pageFoot = `</body>
</html>
`

// JobList renders the job list page.
func JobList(items []JobListItem) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		sb.WriteString(pageHead)

		if len(items) == 0 {
			sb.WriteString("<p>No jobs yet. POST a job to <code>/api/v1/jobs</code>.</p>\n")
		} else {
			sb.WriteString("<table>\n<tr><th>ID</th><th>State</th><th>Model</th><th>Data</th><th>Trials</th><th>Inliers</th><th>Elapsed</th></tr>\n")
			now := time.Now()
			for _, item := range items {
				writeJobRow(&sb, item, now)
			}
			sb.WriteString("</table>\n")
		}

		sb.WriteString(pageFoot)
		_, err := io.WriteString(w, sb.String())
		return err
	})
}

func writeJobRow(sb *strings.Builder, item JobListItem, now time.Time) {
	id := templ.EscapeString(item.ID)
	state := templ.EscapeString(item.State)

	sb.WriteString("<tr>\n")
	fmt.Fprintf(sb, "<td><a href=\"/api/v1/jobs/%s\">%s</a></td>\n", id, id)

	fmt.Fprintf(sb, "<td class=\"%s\">%s", state, state)
	if item.Error != "" {
		fmt.Fprintf(sb, ": %s", templ.EscapeString(item.Error))
	}
	sb.WriteString("</td>\n")

	fmt.Fprintf(sb, "<td>%s</td>\n", templ.EscapeString(item.Model))
	fmt.Fprintf(sb, "<td>%s</td>\n", templ.EscapeString(item.DataPath))
	fmt.Fprintf(sb, "<td>%d / %d</td>\n", item.TrialsDone, item.Trials)

	fmt.Fprintf(sb, "<td>%d / %d", item.Inliers, item.Points)
	if item.State == "completed" {
		fmt.Fprintf(sb, " <a href=\"/api/v1/jobs/%s/inliers\">list</a>", id)
	}
	sb.WriteString("</td>\n")

	fmt.Fprintf(sb, "<td>%s</td>\n", item.Elapsed(now))
	sb.WriteString("</tr>\n")
}
