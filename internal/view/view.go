package view

import (
	"bytes"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	baseDir  string
	once     sync.Once
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}
)

func detectBase() {
	candidates := []string{"templates", "../templates", "../../templates"}
	for _, c := range candidates {
		if fi, err := os.Stat(filepath.Clean(c)); err == nil && fi.IsDir() {
			baseDir = filepath.Clean(c)
			return
		}
	}
	baseDir = "templates"
}

// Funcs returns the shared template helpers.
func Funcs(_ *http.Request) template.FuncMap {
	return template.FuncMap{
		"year": func() int { return time.Now().Year() },
		"mul": func(price decimal.Decimal, qty int) string {
			return price.Mul(decimal.NewFromInt(int64(qty))).StringFixed(2)
		},
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	}
}

// Render parses and executes a single template file with shared funcs.
// name should be the filename (e.g., "dashboard.html"). Pages containing a
// full document skip layout wrapping.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	once.Do(detectBase)
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	key := name
	devMode := os.Getenv("DEV") == "1"
	if !devMode {
		tplCache.RLock()
		t, ok := tplCache.m[key]
		tplCache.RUnlock()
		if ok && t != nil {
			return t.Execute(w, data)
		}
	}

	var t *template.Template
	dir := baseDir
	mainPath := filepath.Join(dir, name)
	if _, err := os.Stat(mainPath); err != nil {
		// Fallback search across relative parent levels (tests run from
		// subdirs). dir stays local; baseDir is only written under once.
		candidates := []string{
			filepath.Join("templates", name),
			filepath.Join("../templates", name),
			filepath.Join("../../templates", name),
			filepath.Join("../../../templates", name),
		}
		found := false
		for _, c := range candidates {
			if fi, e2 := os.Stat(c); e2 == nil && !fi.IsDir() {
				dir = filepath.Dir(c)
				mainPath = c
				found = true
				break
			}
		}
		if !found {
			return err
		}
	}
	layoutPath := filepath.Join(dir, "layout.html")
	funcMap := Funcs(r)
	contentBytes, _ := os.ReadFile(mainPath)
	useLayout := true
	if bytes.Contains(bytes.ToLower(contentBytes), []byte("<!doctype")) {
		useLayout = false
	}
	if useLayout {
		if fi, err := os.Stat(layoutPath); err == nil && !fi.IsDir() {
			parsed, err := template.New("layout.html").Funcs(funcMap).ParseFiles(layoutPath, mainPath)
			if err != nil {
				return err
			}
			t = parsed
		} else {
			useLayout = false
		}
	}
	if !useLayout {
		parsed, err := template.New(name).Funcs(funcMap).ParseFiles(mainPath)
		if err != nil {
			return err
		}
		t = parsed
	}
	if !devMode {
		tplCache.Lock()
		tplCache.m[key] = t
		tplCache.Unlock()
	}
	return t.Execute(w, data)
}
