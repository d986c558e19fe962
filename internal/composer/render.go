package composer

import (
	"bufio"
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/samber/lo"
)

const emptySection = "(nothing today)"

// Subject is the email subject line for the brief.
func Subject(b model.Brief) string {
	return "Intelligence Brief - " + b.Date.Format("January 2, 2006")
}

// RenderText renders the plain-text brief. All four sections are always
// present, in order.
func RenderText(b model.Brief) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "INTELLIGENCE BRIEF - %s\n", b.Date.Format("Monday, January 2, 2006"))

	heading := func(label string) {
		fmt.Fprintf(&sb, "\n%s\n%s\n", label, strings.Repeat("=", len(label)))
	}

	heading(model.SectionCatchUp)
	sb.WriteString(orEmpty(b.CatchUp) + "\n")

	heading(model.SectionTopStories)
	if len(b.TopStories) == 0 {
		sb.WriteString(emptySection + "\n")
	}
	for i, story := range b.TopStories {
		fmt.Fprintf(&sb, "%d. %s (%s)\n   %s\n", i+1, story.Title, story.SourceName, story.URL)
		if story.Context != "" {
			fmt.Fprintf(&sb, "   %s\n", story.Context)
		}
		sb.WriteString("\n")
	}

	heading(model.SectionQuickLinks)
	if len(b.QuickLinks) == 0 {
		sb.WriteString(emptySection + "\n")
	}
	for _, link := range b.QuickLinks {
		fmt.Fprintf(&sb, "- %s\n  %s\n", link.Title, link.URL)
	}

	heading(model.SectionTake)
	sb.WriteString(orEmpty(b.Take) + "\n")

	fmt.Fprintf(&sb, "\n--\nScanned %d items from %d sources\n", b.ItemsScanned, b.SourcesChecked)

	return sb.String()
}

func orEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptySection
	}
	return s
}

var htmlTemplate = template.Must(template.New("brief").Funcs(template.FuncMap{
	"paragraphs": func(s string) []string {
		return lo.Filter(strings.Split(s, "\n"), func(p string, _ int) bool {
			return strings.TrimSpace(p) != ""
		})
	},
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="font-family: -apple-system, Helvetica, Arial, sans-serif; max-width: 640px; margin: 0 auto; padding: 24px; color: #1a1a1a; line-height: 1.5;">
<h1 style="font-size: 22px; margin-bottom: 4px;">Intelligence Brief</h1>
<p style="color: #666; margin-top: 0;">{{.Date}}</p>

<h2 data-section="{{.Labels.CatchUp}}" style="font-size: 16px; letter-spacing: 1px; border-bottom: 2px solid #1a1a1a; padding-bottom: 4px;">{{.Labels.CatchUp}}</h2>
{{range paragraphs .Brief.CatchUp}}<p>{{.}}</p>
{{else}}<p style="color: #999;">{{$.Empty}}</p>
{{end}}
<h2 data-section="{{.Labels.TopStories}}" style="font-size: 16px; letter-spacing: 1px; border-bottom: 2px solid #1a1a1a; padding-bottom: 4px;">{{.Labels.TopStories}}</h2>
{{range .Brief.TopStories}}<div style="margin-bottom: 16px;">
<a href="{{.URL}}" style="font-weight: 600; color: #0b57d0; text-decoration: none;">{{.Title}}</a>
<span style="color: #888; font-size: 13px;"> {{.SourceName}}</span>
{{if .Context}}<p style="margin: 4px 0 0;">{{.Context}}</p>{{end}}
</div>
{{else}}<p style="color: #999;">{{$.Empty}}</p>
{{end}}
<h2 data-section="{{.Labels.QuickLinks}}" style="font-size: 16px; letter-spacing: 1px; border-bottom: 2px solid #1a1a1a; padding-bottom: 4px;">{{.Labels.QuickLinks}}</h2>
{{if .Brief.QuickLinks}}<ul>
{{range .Brief.QuickLinks}}<li><a href="{{.URL}}" style="color: #0b57d0;">{{.Title}}</a></li>
{{end}}</ul>
{{else}}<p style="color: #999;">{{$.Empty}}</p>
{{end}}
<h2 data-section="{{.Labels.Take}}" style="font-size: 16px; letter-spacing: 1px; border-bottom: 2px solid #1a1a1a; padding-bottom: 4px;">{{.Labels.Take}}</h2>
{{range paragraphs .Brief.Take}}<p>{{.}}</p>
{{else}}<p style="color: #999;">{{$.Empty}}</p>
{{end}}
<p style="color: #999; font-size: 12px; margin-top: 32px;">Scanned {{.Brief.ItemsScanned}} items from {{.Brief.SourcesChecked}} sources</p>
</body>
</html>
`))

type htmlView struct {
	Brief   model.Brief
	Subject string
	Date    string
	Empty   string
	Labels  struct {
		CatchUp, TopStories, QuickLinks, Take string
	}
}

// RenderHTML renders the inline-styled HTML brief for email clients.
func RenderHTML(b model.Brief) (string, error) {
	view := htmlView{
		Brief:   b,
		Subject: Subject(b),
		Date:    b.Date.Format("Monday, January 2, 2006"),
		Empty:   emptySection,
	}
	view.Labels.CatchUp = model.SectionCatchUp
	view.Labels.TopStories = model.SectionTopStories
	view.Labels.QuickLinks = model.SectionQuickLinks
	view.Labels.Take = model.SectionTake

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render html brief: %w", err)
	}

	return buf.String(), nil
}

// Sections returns the section labels found in a plain-text brief, in order.
func Sections(text string) []string {
	var (
		found []string
		prev  string
	)

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if prev != "" && line == strings.Repeat("=", len(prev)) && lo.Contains(model.Sections, prev) {
			found = append(found, prev)
		}
		prev = line
	}

	return found
}

// HTMLSections returns the section labels found in an HTML brief, in order.
func HTMLSections(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var found []string
	doc.Find("h2[data-section]").Each(func(_ int, s *goquery.Selection) {
		found = append(found, s.AttrOr("data-section", ""))
	})

	return found, nil
}
