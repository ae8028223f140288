package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"login", "landing", "add", "edit"}

type pages struct {
	t map[string]*template.Template
}

func mustLoadPages() *pages {
	p, err := loadPages()
	if err != nil {
		panic(err)
	}
	return p
}

func loadPages() (*pages, error) {
	funcs := template.FuncMap{"pathEscape": url.PathEscape}
	p := &pages{t: map[string]*template.Template{}}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		p.t[name] = t
	}
	return p, nil
}

// pageData is what every page template receives.
type pageData struct {
	Title    string
	Username string
	LoggedIn bool
	Flashes  []string
	Data     any
}

// render executes page with data, consuming any queued flashes.
func (s *Server) render(w http.ResponseWriter, r *http.Request, page, title string, data any) {
	t, ok := s.pages.t[page]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	sess := sessionFrom(r)
	pd := pageData{Title: title, Username: sess.Username, LoggedIn: sess.LoggedIn, Data: data}
	if len(sess.Flashes) > 0 {
		pd.Flashes = sess.PopFlashes()
		s.saveSession(w, r)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", pd); err != nil {
		s.log.Error().Err(err).Str("page", page).Msg("template render failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
