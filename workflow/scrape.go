package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/kbukum/stepflow/errors"
	"github.com/kbukum/stepflow/graph"
	"github.com/kbukum/stepflow/llm"
	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/web"
)

// Record fields of the scrape workflow.
var (
	ScrapeURL        = graph.Field[string]{Key: "url"}
	ScrapeTableID    = graph.Field[string]{Key: "table_id"}
	ScrapeHTML       = graph.Field[string]{Key: "html"}
	ScrapeTitle      = graph.Field[string]{Key: "title"}
	ScrapeTable      = graph.Field[*web.Table]{Key: "table"}
	ScrapeTableFound = graph.Field[bool]{Key: "table_found"}
	ScrapeSummary    = graph.Field[string]{Key: "summary"}
)

const (
	summaryRows = 50
	reportRows  = 10
)

var summarizePrompt = llm.NewTemplate(`Summarize the following table from "{title}" ({url}) in a few sentences, highlighting notable values and trends.

{table}`)

func scrapeWorkflow() *Workflow {
	return &Workflow{
		Name:        "scrape",
		Description: "Fetch a page, extract a table (URL#table-id selects one) and summarize it.",
		needsWeb:    true,
		register: func(reg *graph.Registry, deps Deps) {
			log := deps.logger().WithComponent("scrape")

			reg.RegisterFunc("fetch_page", func(ctx context.Context, rec graph.Record) (graph.Update, error) {
				u, err := ScrapeURL.Read(rec)
				if err != nil {
					return nil, err
				}
				page, err := deps.Web.Fetch(ctx, u)
				if err != nil {
					return nil, err
				}
				doc, err := web.Parse(page.HTML)
				if err != nil {
					return nil, err
				}
				upd := ScrapeHTML.Set(nil, page.HTML)
				return ScrapeTitle.Set(upd, web.Title(doc)), nil
			})

			reg.RegisterFunc("extract_table", func(_ context.Context, rec graph.Record) (graph.Update, error) {
				doc, err := web.Parse(ScrapeHTML.Get(rec, ""))
				if err != nil {
					return nil, err
				}
				// Records only accumulate, so the page body is blanked here.
				upd := ScrapeHTML.Set(nil, "")
				table, err := web.ExtractTable(doc, ScrapeTableID.Get(rec, ""))
				if errors.Is(err, web.ErrTableNotFound) {
					log.Info("no table on page", logger.Fields("url", ScrapeURL.Get(rec, ""), "table_id", ScrapeTableID.Get(rec, "")))
					return ScrapeTableFound.Set(upd, false), nil
				}
				if err != nil {
					return nil, err
				}
				upd = ScrapeTable.Set(upd, table)
				return ScrapeTableFound.Set(upd, len(table.Rows) > 0), nil
			})

			reg.RegisterCondition("table_found", func(rec graph.Record) string {
				if ScrapeTableFound.Get(rec, false) {
					return "found"
				}
				return "missing"
			})

			reg.RegisterFunc("summarize", func(ctx context.Context, rec graph.Record) (graph.Update, error) {
				table, err := ScrapeTable.Read(rec)
				if err != nil {
					return nil, err
				}
				prompt, err := summarizePrompt.Render(map[string]string{
					"title": ScrapeTitle.Get(rec, ""),
					"url":   ScrapeURL.Get(rec, ""),
					"table": table.Markdown(summaryRows),
				})
				if err != nil {
					return nil, err
				}
				summary, err := llm.Prompt(ctx, deps.LLM, prompt, llm.WithTemperature(0))
				if err != nil {
					return nil, err
				}
				return ScrapeSummary.Set(nil, strings.TrimSpace(summary)), nil
			})

			reg.RegisterFunc("report_missing", func(_ context.Context, rec graph.Record) (graph.Update, error) {
				msg := "No table found at " + ScrapeURL.Get(rec, "")
				if id := ScrapeTableID.Get(rec, ""); id != "" {
					msg = fmt.Sprintf("No table with id %q found at %s", id, ScrapeURL.Get(rec, ""))
				}
				return ScrapeSummary.Set(nil, msg), nil
			})
		},
		input: scrapeInput,
		report: func(rec graph.Record) (string, error) {
			summary, err := ScrapeSummary.Read(rec)
			if err != nil {
				return "", err
			}
			var b strings.Builder
			if title := ScrapeTitle.Get(rec, ""); title != "" {
				fmt.Fprintf(&b, "# %s\n\n", title)
			}
			b.WriteString(summary)
			b.WriteString("\n")
			if table, ok := ScrapeTable.Lookup(rec); ok && table != nil && ScrapeTableFound.Get(rec, false) {
				fmt.Fprintf(&b, "\n%s", table.Markdown(reportRows))
				if n := len(table.Rows); n > reportRows {
					fmt.Fprintf(&b, "\n(%d more rows)\n", n-reportRows)
				}
			}
			return b.String(), nil
		},
	}
}

// scrapeInput splits "https://host/page#table_id" into the page URL and the
// optional table id.
func scrapeInput(subject string) (graph.Record, error) {
	if err := requireSubject(subject, "url"); err != nil {
		return nil, err
	}
	u, err := url.Parse(subject)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.InvalidInput("url", fmt.Sprintf("%q is not an absolute http(s) URL", subject))
	}
	tableID := u.Fragment
	u.Fragment = ""
	return graph.Record{
		ScrapeURL.Key:     u.String(),
		ScrapeTableID.Key: tableID,
	}, nil
}
