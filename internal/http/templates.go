package httpapp

import (
	"embed"
	"html/template"
	"strconv"
	"time"

	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/nav"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/favicon.svg
var faviconSVG []byte

type Templates struct {
	Welcome      *template.Template
	Login        *template.Template
	Register     *template.Template
	Dashboard    *template.Template
	Threads      *template.Template
	Group        *template.Template
	MyThreads    *template.Template
	CreateThread *template.Template
	UserRatings  *template.Template
	AdminPanel   *template.Template
	RateLimited  *template.Template
	NotFound     *template.Template
}

func loadTemplates() (*Templates, error) {
	funcs := template.FuncMap{
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
		"groupURL": func(t model.Thread) string {
			return nav.URL(nav.Group, nav.GroupState{ThreadID: t.ID, Title: t.Title})
		},
		"starRange": func() []int { return []int{1, 2, 3, 4, 5} },
		"roleName": func(role int) string {
			if role == model.RoleAdmin {
				return "Admin"
			}
			return "User"
		},
		"ratingText": func(r *float64) string {
			if r == nil {
				return "No ratings yet"
			}
			return strconv.FormatFloat(*r, 'f', 1, 64)
		},
	}

	// Load layout
	layoutContent, err := templateFS.ReadFile("templates/layout.html")
	if err != nil {
		return nil, err
	}

	makePage := func(pageName string) (*template.Template, error) {
		pageContent, err := templateFS.ReadFile("templates/" + pageName + ".html")
		if err != nil {
			return nil, err
		}
		t := template.New("layout").Funcs(funcs)
		t, err = t.Parse(string(layoutContent))
		if err != nil {
			return nil, err
		}
		return t.Parse(string(pageContent))
	}

	out := &Templates{}
	pages := map[string]**template.Template{
		"welcome":       &out.Welcome,
		"login":         &out.Login,
		"register":      &out.Register,
		"dashboard":     &out.Dashboard,
		"threads":       &out.Threads,
		"group":         &out.Group,
		"my_threads":    &out.MyThreads,
		"create_thread": &out.CreateThread,
		"user_ratings":  &out.UserRatings,
		"admin_panel":   &out.AdminPanel,
		"rate_limited":  &out.RateLimited,
		"not_found":     &out.NotFound,
	}
	for name, dst := range pages {
		t, err := makePage(name)
		if err != nil {
			return nil, err
		}
		*dst = t
	}
	return out, nil
}
