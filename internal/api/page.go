package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"

	"github.com/shopqa/shopqa/internal/pipeline"
)

type pageView struct {
	Question string
	Payload  *pipeline.Payload
	Err      string
}

// handlePageGet answers ?question=...&page=N. An empty question renders the bare form.
func handlePageGet(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	question := strings.TrimSpace(r.URL.Query().Get("question"))
	if question == "" {
		renderHTML(w, http.StatusOK, answerPage(pageView{}))
		return
	}
	page := 1
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			renderHTML(w, http.StatusBadRequest, answerPage(pageView{
				Question: question,
				Err:      fmt.Sprintf("page must be a whole number, got %q", raw),
			}))
			return
		}
		page = parsed
	}
	renderAnswer(deps, w, r, question, page)
}

// handlePagePost answers the submitted form field "text", always on page 1.
func handlePagePost(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderHTML(w, http.StatusBadRequest, answerPage(pageView{Err: "invalid form submission"}))
		return
	}
	renderAnswer(deps, w, r, strings.TrimSpace(r.PostForm.Get("text")), 1)
}

func renderAnswer(deps Dependencies, w http.ResponseWriter, r *http.Request, question string, page int) {
	if deps.Asker == nil {
		renderHTML(w, http.StatusNotImplemented, answerPage(pageView{Question: question, Err: "question pipeline is not configured"}))
		return
	}
	payload, err := deps.Asker.Answer(r.Context(), question, page)
	if err != nil {
		renderHTML(w, mapError(err).status, answerPage(pageView{Question: question, Err: errorMessage(err)}))
		return
	}
	renderHTML(w, http.StatusOK, answerPage(pageView{Question: question, Payload: &payload}))
}

func answerPage(view pageView) gomponents.Node {
	body := []gomponents.Node{
		html.H1(gomponents.Text("Ask the shop")),
		questionForm(view.Question),
	}
	if view.Err != "" {
		body = append(body, html.Div(
			html.Class("error"),
			html.H2(gomponents.Text("Something went wrong")),
			html.P(gomponents.Text(view.Err)),
		))
	} else if view.Payload != nil {
		body = append(body, answerSection(*view.Payload)...)
	}

	return html.HTML(
		html.Lang("en"),
		html.Head(
			html.Meta(html.Charset("utf-8")),
			html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
			html.TitleEl(gomponents.Text("shopqa")),
		),
		html.Body(
			html.Main(html.Class("layout"), gomponents.Group(body)),
		),
	)
}

func questionForm(question string) gomponents.Node {
	return html.Form(
		html.Method("post"),
		html.Action("/"),
		html.Label(html.For("text"), gomponents.Text("Question")),
		html.Input(html.Type("text"), html.ID("text"), html.Name("text"), html.Value(question)),
		html.Button(html.Type("submit"), gomponents.Text("Ask")),
	)
}

func answerSection(payload pipeline.Payload) []gomponents.Node {
	return []gomponents.Node{
		html.Div(
			html.Class("answer"),
			html.H2(gomponents.Text("Answer")),
			html.P(gomponents.Text(payload.Answer)),
		),
		html.Div(
			html.Class("query"),
			html.H2(gomponents.Text("SQL")),
			html.Pre(gomponents.Text(payload.Query)),
		),
		resultTable(payload.Columns, payload.Rows),
		pager(payload),
	}
}

func resultTable(columns []string, rows [][]any) gomponents.Node {
	if len(rows) == 0 {
		return html.P(html.Class("empty"), gomponents.Text("No rows."))
	}
	headers := make([]gomponents.Node, 0, len(columns))
	for _, column := range columns {
		headers = append(headers, html.Th(gomponents.Text(column)))
	}
	bodyRows := make([]gomponents.Node, 0, len(rows))
	for _, row := range rows {
		cells := make([]gomponents.Node, 0, len(row))
		for _, value := range row {
			cells = append(cells, html.Td(gomponents.Text(sqlCellString(value))))
		}
		bodyRows = append(bodyRows, html.Tr(gomponents.Group(cells)))
	}
	return html.Table(
		html.THead(html.Tr(gomponents.Group(headers))),
		html.TBody(gomponents.Group(bodyRows)),
	)
}

func pager(payload pipeline.Payload) gomponents.Node {
	nodes := []gomponents.Node{}
	if payload.Page > 1 {
		nodes = append(nodes, html.A(html.Href(pageLink(payload.Question, payload.Page-1)), gomponents.Text("Previous")))
	}
	nodes = append(nodes, html.Span(gomponents.Text(fmt.Sprintf("Page %d of %d", payload.Page, payload.TotalPages))))
	if payload.Page < payload.TotalPages {
		nodes = append(nodes, html.A(html.Href(pageLink(payload.Question, payload.Page+1)), gomponents.Text("Next")))
	}
	return html.Nav(html.Class("pager"), gomponents.Group(nodes))
}

func pageLink(question string, page int) string {
	values := url.Values{}
	values.Set("question", question)
	values.Set("page", strconv.Itoa(page))
	return "/?" + values.Encode()
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func sqlCellString(value any) string {
	if value == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", value)
}
