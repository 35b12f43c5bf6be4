package store

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Category is a fixed logical grouping of records sharing a storage
// location and document shape.
type Category string

const (
	CategoryMenu    Category = "menu"
	CategoryApp     Category = "app"
	CategoryFB      Category = "fb"
	CategoryCoupon  Category = "coupon"
	CategoryImage   Category = "image"
	CategoryQRImage Category = "qr-image"
	CategoryPDF     Category = "pdf"
	CategoryAudio   Category = "audio"
)

// Kind describes how a category lays its records out.
type Kind int

const (
	// KindFlat stores one <key>.json document per record.
	KindFlat Kind = iota + 1
	// KindNested stores <key>/details.json plus sibling binary assets.
	KindNested
	// KindBinary stores opaque files directly in the category directory.
	KindBinary
)

// DetailsFile is the document name inside a nested record directory.
const DetailsFile = "details.json"

type layout struct {
	dir  string
	kind Kind
}

var layouts = map[Category]layout{
	CategoryMenu:    {dir: "QrCode/menu", kind: KindNested},
	CategoryApp:     {dir: "QrCode/app", kind: KindFlat},
	CategoryFB:      {dir: "QrCode/fb", kind: KindFlat},
	CategoryCoupon:  {dir: "QrCode/coupon", kind: KindFlat},
	CategoryImage:   {dir: "EmailGenerator", kind: KindBinary},
	CategoryQRImage: {dir: "QrCode", kind: KindBinary},
	CategoryPDF:     {dir: "QrCode", kind: KindBinary},
	CategoryAudio:   {dir: "QrCode", kind: KindBinary},
}

// Categories lists every supported category.
func Categories() []Category {
	return []Category{
		CategoryMenu, CategoryApp, CategoryFB, CategoryCoupon,
		CategoryImage, CategoryQRImage, CategoryPDF, CategoryAudio,
	}
}

// ParseCategory returns the category named s.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	_, ok := layouts[c]
	return ok
}

// Kind returns the layout kind of c, or 0 for an unknown category.
func (c Category) Kind() Kind {
	return layouts[c].kind
}

// IsDocument reports whether records of c are JSON documents.
func (c Category) IsDocument() bool {
	k := c.Kind()
	return k == KindFlat || k == KindNested
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+-]{0,127}$`)

// ValidKey reports whether key can be used as a single path segment.
// Keys start with a letter or digit, so "." and ".." are rejected along with
// any separator.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

func checkKey(key string) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// DocumentPath derives the relative path of the document for (c, key):
// <dir>/<key>.json for flat categories and <dir>/<key>/details.json for
// nested ones.
func DocumentPath(c Category, key string) (string, error) {
	l, ok := layouts[c]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	if err := checkKey(key); err != nil {
		return "", err
	}
	switch l.kind {
	case KindFlat:
		return l.dir + "/" + key + ".json", nil
	case KindNested:
		return l.dir + "/" + key + "/" + DetailsFile, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrNotDocument, c)
	}
}

// AssetPath derives the path of a binary stored alongside the nested record
// (c, key), e.g. QrCode/menu/<key>/Logo.png.
func AssetPath(c Category, key, name string) (string, error) {
	l, ok := layouts[c]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	if l.kind != KindNested {
		return "", fmt.Errorf("%w: %s has no per-key assets", ErrNotBinary, c)
	}
	if err := checkKey(key); err != nil {
		return "", err
	}
	if err := checkKey(name); err != nil {
		return "", err
	}
	if name == DetailsFile {
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidKey, name)
	}
	return l.dir + "/" + key + "/" + name, nil
}

// BinaryPath derives the path of a flat binary file of category c.
func BinaryPath(c Category, name string) (string, error) {
	l, ok := layouts[c]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	if l.kind != KindBinary {
		return "", fmt.Errorf("%w: %s", ErrNotBinary, c)
	}
	if err := checkKey(name); err != nil {
		return "", err
	}
	return l.dir + "/" + name, nil
}

// CleanName validates a caller-provided relative object name and returns it
// in canonical form.
func CleanName(name string) (string, error) {
	if name == "" || strings.Contains(name, "\\") || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	cleaned := path.Clean(name)
	if cleaned != name || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	for _, seg := range strings.Split(cleaned, "/") {
		if !ValidKey(seg) {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, name)
		}
	}
	return cleaned, nil
}
