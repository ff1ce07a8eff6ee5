package web

import (
	"embed"
	"html/template"
	"io/fs"
	"sync"
)

//go:embed *.html app.css
var content embed.FS

var (
	tmpl *template.Template
	once sync.Once
)

var funcs = template.FuncMap{
	"price":    Price,
	"itemName": ItemName,
}

// Templates returns the parsed HTML templates for the UI, embedded at build time.
// layout.html picks the page template (auth, home, product, search, cart)
// by the page's Page field.
func Templates() *template.Template {
	once.Do(func() {
		tmpl = template.Must(template.New("web").Funcs(funcs).ParseFS(content, "*.html"))
	})
	return tmpl
}

// StaticFS exposes embedded static assets such as CSS.
func StaticFS() fs.FS {
	return content
}
