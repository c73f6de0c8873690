package mailer

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/lwedwards3/dhp-sync/pkg/model"
)

const defaultMemberTemplate = `Dear Member,

This is an update on the vacation patrol scheduled for {{.Address}}
on {{.DueDate}}.

{{.Updates}}Thank you,
Druid Hills Patrol
`

const defaultEODTemplate = `End of Day Vacation Patrol Report for {{.ReportDate}}

Patrols completed:
{{.Completed}}
Patrols not completed:
{{.Incomplete}}
Scheduled for today:
{{.Scheduled}}
`

// localTimeLayout is the display format for asset timestamps after
// conversion from UTC.
const localTimeLayout = "2006-01-02 03:04:05 PM"

// Templates renders the two notification bodies. Custom template files can
// replace the built-in defaults; either path may be empty.
type Templates struct {
	member *template.Template
	eod    *template.Template
	loc    *time.Location
}

// LoadTemplates parses the member-update and end-of-day templates from the
// given paths, falling back to the built-in defaults for empty paths.
// Asset timestamps are rendered in loc.
func LoadTemplates(memberPath, eodPath string, loc *time.Location) (*Templates, error) {
	member, err := loadTemplate("member", memberPath, defaultMemberTemplate)
	if err != nil {
		return nil, err
	}
	eod, err := loadTemplate("eod", eodPath, defaultEODTemplate)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	return &Templates{member: member, eod: eod, loc: loc}, nil
}

func loadTemplate(name, path, fallback string) (*template.Template, error) {
	text := fallback
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read %s template: %w", name, err)
		}
		text = string(b)
	}
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s template: %w", name, err)
	}
	return tmpl, nil
}

// MemberBody renders the update email for one request: its address and
// date plus a chronological listing of the officer reports.
func (t *Templates) MemberBody(req *model.Request) (string, error) {
	var buf strings.Builder
	err := t.member.Execute(&buf, struct {
		Address string
		DueDate string
		Updates string
	}{
		Address: req.Address,
		DueDate: req.DueDate,
		Updates: t.renderAssets(req.Assets),
	})
	if err != nil {
		return "", fmt.Errorf("could not render member body: %w", err)
	}
	return buf.String(), nil
}

func (t *Templates) renderAssets(assets []model.Asset) string {
	if len(assets) == 0 {
		return ""
	}
	sorted := append([]model.Asset(nil), assets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt < sorted[j].CreatedAt
	})

	var buf strings.Builder
	buf.WriteString("Updates:\n\n")
	for _, a := range sorted {
		buf.WriteString("\t" + t.localTime(a.CreatedAt) + "\n")
		buf.WriteString("\t" + a.Text + "\n\n")
	}
	return buf.String()
}

// localTime converts an ISO 8601 UTC timestamp to local display time.
// An unparsable timestamp is shown as received rather than dropped.
func (t *Templates) localTime(iso string) string {
	parsed, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return parsed.In(t.loc).Format(localTimeLayout)
}

// EndOfDayBody renders the operational summary for yesterday's patrols.
func (t *Templates) EndOfDayBody(reportDate string, completed, incomplete, scheduled []*model.Task) (string, error) {
	var buf strings.Builder
	err := t.eod.Execute(&buf, struct {
		ReportDate string
		Completed  string
		Incomplete string
		Scheduled  string
	}{
		ReportDate: reportDate,
		Completed:  taskLines(completed),
		Incomplete: taskLines(incomplete),
		Scheduled:  taskLines(scheduled),
	})
	if err != nil {
		return "", fmt.Errorf("could not render end-of-day body: %w", err)
	}
	return buf.String(), nil
}

// taskLines lists task titles one per line, annotated with comment and
// photo counts when present.
func taskLines(tasks []*model.Task) string {
	if len(tasks) == 0 {
		return "None\n"
	}
	var buf strings.Builder
	for _, task := range tasks {
		buf.WriteString(task.Title + "\t")
		if task.NumComments > 0 {
			buf.WriteString(fmt.Sprintf("Cmt%d ", task.NumComments))
		}
		if task.NumFiles > 0 {
			buf.WriteString(fmt.Sprintf("Pho%d", task.NumFiles))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
