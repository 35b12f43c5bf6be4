// Package render turns stored records into public HTML pages.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
)

// ErrUnknownPage is returned when Render is asked for a page that has no
// template.
var ErrUnknownPage = errors.New("render: unknown page")

// Page names.
const (
	PageMenu   = "menu"
	PageApp    = "app"
	PageFB     = "fb"
	PageCoupon = "coupon"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer renders a named page with its view model.
type Renderer interface {
	Render(w io.Writer, page string, data any) error
}

// MenuPage is the view model of the menu page.
type MenuPage struct {
	RestaurantName string
	Description    string
	LogoLink       string
	BreakfastLink  string
	LunchLink      string
	DinnerLink     string
}

// AppPage is the view model of the app download page.
type AppPage struct {
	Android string
	IOS     string
	Other   string
}

// FacebookPage is the view model of the Facebook redirect page.
type FacebookPage struct {
	Username     string
	FacebookLink string
}

// CouponPage is the view model of the coupon page.
type CouponPage struct {
	Company      string
	DiscountType string
	DiscountCode string
}

// Templates renders pages from the embedded template set.
type Templates struct {
	pages map[string]*template.Template
}

// New parses every page together with the shared layout.
func New() (*Templates, error) {
	t := &Templates{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageMenu, PageApp, PageFB, PageCoupon} {
		tmpl, err := template.New(page).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		t.pages[page] = tmpl
	}
	return t, nil
}

// Render executes page into a buffer and copies it to w only on success,
// so a failed render never leaves a partial page behind.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPage, page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
