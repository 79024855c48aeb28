// Package report renders a digest as a standalone HTML page.
package report

import (
	"fmt"
	"html/template"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
)

var bodyTmpl = template.Must(template.New("digest").Parse(`
<section class="digest">
  <h2>{{.Title}}</h2>
  {{if .Subtitle}}<h3>{{.Subtitle}}</h3>{{end}}
  {{if .Failure}}<p class="failure">{{.Failure}}</p>{{end}}
  {{if .Degraded}}<p class="degraded">Cover card unavailable.</p>{{end}}
  <pre class="summary">{{.Summary}}</pre>
  {{if .Highlights}}<ul class="highlights">{{range .Highlights}}<li>{{.}}</li>{{end}}</ul>{{end}}
  <ol class="top-posts">{{range .TopPosts}}
    <li><a href="{{.URL}}">{{.ContentSnippet}}</a> ({{.Score}} likes, {{.CommentCount}} comments)</li>{{end}}
  </ol>
  <footer>{{.PostCount}} posts, generated {{.GeneratedAt}}</footer>
</section>
`))

type page struct {
	Title       string
	Subtitle    string
	Summary     string
	Failure     string
	Degraded    bool
	Highlights  []string
	TopPosts    []domain.TopPost
	PostCount   int
	GeneratedAt string
}

// Render writes an engagement chart of the top posts followed by the
// digest text. All digest text is HTML-escaped.
func Render(w io.Writer, keyword string, res domain.DigestResult) error {
	p := page{
		Title:       cardString(res.CoverCard, "title"),
		Subtitle:    cardString(res.CoverCard, "subtitle"),
		Summary:     res.Summary,
		Failure:     res.FailureMessage,
		Degraded:    res.Degraded,
		Highlights:  cardStrings(res.CoverCard, "highlights"),
		TopPosts:    res.TopPosts,
		PostCount:   res.PostCount,
		GeneratedAt: res.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"),
	}
	if p.Title == "" {
		p.Title = fmt.Sprintf("Daily digest: %s", keyword)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: p.Title,
			Theme:     types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{Title: p.Title, Subtitle: p.Subtitle}),
	)

	var (
		labels   []string
		likes    []opts.BarData
		comments []opts.BarData
	)
	for i, tp := range res.TopPosts {
		labels = append(labels, fmt.Sprintf("#%d", i+1))
		likes = append(likes, opts.BarData{Value: tp.Score})
		comments = append(comments, opts.BarData{Value: tp.CommentCount})
	}
	bar.SetXAxis(labels).
		AddSeries("Likes", likes).
		AddSeries("Comments", comments)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if err := bodyTmpl.Execute(w, p); err != nil {
		return fmt.Errorf("render digest: %w", err)
	}
	return nil
}

func cardString(card map[string]any, key string) string {
	switch v := card[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func cardStrings(card map[string]any, key string) []string {
	items, ok := card[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, fmt.Sprint(it))
	}
	return out
}
