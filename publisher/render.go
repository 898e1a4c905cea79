package publisher

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	texttemplate "text/template"

	"github.com/yuin/goldmark"

	"auto_digest_publisher/digest"
	"auto_digest_publisher/generator"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var tmplFuncs = map[string]any{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}

var (
	htmlTmpl = template.Must(template.New("digest.html.tmpl").Funcs(tmplFuncs).ParseFS(templateFS, "templates/digest.html.tmpl"))
	textTmpl = texttemplate.Must(texttemplate.New("digest.txt.tmpl").Funcs(tmplFuncs).ParseFS(templateFS, "templates/digest.txt.tmpl"))
)

const (
	staffWriter   = "Staff Writer"
	guestTitle    = "Guest Columnist"
	mainExcerpt   = 200
	guestExcerpt  = 150
	challengeName = "Monthly Challenge"
)

// EmailArticle is one column as shown in the email.
type EmailArticle struct {
	Title       string
	AuthorID    string
	AuthorName  string
	AuthorTitle string
	Excerpt     string
	Body        string
	BodyHTML    template.HTML
}

// EmailData is everything the digest templates render.
type EmailData struct {
	IssueNumber      int
	IssueDate        string
	IssueTitle       string
	EditorsLetter    string
	Main             []EmailArticle
	Wildcard         EmailArticle
	Tips             []generator.Tip
	Product          generator.Product
	QA               []generator.QA
	ChallengeTitle   string
	ChallengeWeek    int
	ChallengeContent string
	ArchiveURL       string
	UnsubscribeURL   string
}

// Rendered holds both bodies of one digest email.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// BuildEmailData maps a digest onto the template model, filling display fallbacks.
func BuildEmailData(d digest.Digest, siteURL, archiveURL string) (EmailData, error) {
	data := EmailData{
		IssueNumber:      d.Sequence,
		IssueDate:        d.GeneratedAt.UTC().Format("January 2, 2006"),
		IssueTitle:       d.Title,
		EditorsLetter:    d.Note,
		Tips:             d.Tips,
		Product:          d.Product,
		QA:               d.QA,
		ChallengeTitle:   challengeName,
		ChallengeWeek:    challengeWeek(d),
		ChallengeContent: d.ProgramUpdate,
		ArchiveURL:       archiveURL,
		UnsubscribeURL:   strings.TrimRight(siteURL, "/") + "/unsubscribe",
	}
	for _, a := range d.Main {
		ea, err := emailArticle(a, staffWriter, mainExcerpt)
		if err != nil {
			return EmailData{}, err
		}
		data.Main = append(data.Main, ea)
	}
	wc, err := emailArticle(d.Wildcard, guestTitle, guestExcerpt)
	if err != nil {
		return EmailData{}, err
	}
	if wc.AuthorTitle == "" {
		wc.AuthorTitle = guestTitle
	}
	data.Wildcard = wc
	return data, nil
}

// challengeWeek prefers the program's week and falls back to the cycle index modulo four.
func challengeWeek(d digest.Digest) int {
	if d.ProgramWeek > 0 {
		return d.ProgramWeek
	}
	if w := d.CycleIndex % 4; w != 0 {
		return w
	}
	return 4
}

func emailArticle(a generator.Article, fallbackAuthor string, excerptLen int) (EmailArticle, error) {
	body, err := mdToHTML(a.Body)
	if err != nil {
		return EmailArticle{}, fmt.Errorf("render %q: %w", a.Title, err)
	}
	ea := EmailArticle{
		Title:       a.Title,
		AuthorID:    a.AuthorID,
		AuthorName:  a.AuthorName,
		AuthorTitle: a.AuthorTitle,
		Excerpt:     a.Excerpt,
		Body:        a.Body,
		BodyHTML:    template.HTML(normalizeForEmail(body)),
	}
	if ea.AuthorName == "" {
		ea.AuthorName = fallbackAuthor
	}
	if ea.Excerpt == "" {
		ea.Excerpt = truncate(a.Body, excerptLen) + "..."
	}
	return ea, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Render produces the subject plus HTML and text bodies.
func Render(data EmailData, subjectPrefix string) (Rendered, error) {
	var h, t bytes.Buffer
	if err := htmlTmpl.Execute(&h, data); err != nil {
		return Rendered{}, fmt.Errorf("render html: %w", err)
	}
	if err := textTmpl.Execute(&t, data); err != nil {
		return Rendered{}, fmt.Errorf("render text: %w", err)
	}
	return Rendered{
		Subject: subjectPrefix + data.IssueTitle,
		HTML:    h.String(),
		Text:    strings.TrimSpace(t.String()),
	}, nil
}

// RenderDigest is BuildEmailData followed by Render.
func RenderDigest(d digest.Digest, siteURL, archiveURL, subjectPrefix string) (Rendered, error) {
	data, err := BuildEmailData(d, siteURL, archiveURL)
	if err != nil {
		return Rendered{}, err
	}
	return Render(data, subjectPrefix)
}

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var (
	headingRe = regexp.MustCompile(`(?s)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	olRe      = regexp.MustCompile(`(?s)<ol[^>]*>(.*?)</ol>`)
	ulRe      = regexp.MustCompile(`(?s)<ul[^>]*>(.*?)</ul>`)
	liRe      = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)
)

// 部分邮件客户端会丢掉 <style>，标题和列表样式随之失效。
// 这里把正文里的标题转成带内联字号的段落，并把列表展开。
func convertHeadingsForEmail(html string) string {
	sizes := map[string]string{"1": "22px", "2": "20px", "3": "18px", "4": "17px", "5": "16px", "6": "15px"}
	return headingRe.ReplaceAllStringFunc(html, func(block string) string {
		parts := headingRe.FindStringSubmatch(block)
		if len(parts) != 3 {
			return block
		}
		size := sizes[parts[1]]
		text := strings.TrimSpace(parts[2])
		return fmt.Sprintf(`<p style="font-size:%s;font-weight:700;color:#1a365d;margin:1em 0 0.5em;">%s</p>`, size, text)
	})
}

func flattenListsForEmail(html string) string {
	html = olRe.ReplaceAllStringFunc(html, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for i, item := range items {
			b.WriteString(fmt.Sprintf("<p>%d. %s</p>", i+1, strings.TrimSpace(item[1])))
		}
		return b.String()
	})
	return ulRe.ReplaceAllStringFunc(html, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for _, item := range items {
			b.WriteString("<p>• ")
			b.WriteString(strings.TrimSpace(item[1]))
			b.WriteString("</p>")
		}
		return b.String()
	})
}

func normalizeForEmail(html string) string {
	html = convertHeadingsForEmail(html)
	html = flattenListsForEmail(html)
	return html
}
