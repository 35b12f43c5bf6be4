// Package upload decodes request bodies into form values and uploaded files,
// and names uploaded files the way the storage layout expects.
package upload

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrMissingFile is returned when a required file field is absent.
	ErrMissingFile = errors.New("upload: missing file")

	// ErrTooLarge is returned when the request body exceeds the size limit.
	ErrTooLarge = errors.New("upload: request body too large")

	// ErrMalformed is returned when the body cannot be decoded.
	ErrMalformed = errors.New("upload: malformed body")
)

// DefaultMaxMemory is the multipart size kept in memory before parts spill
// to temporary files.
const DefaultMaxMemory = 32 << 20

// Intake parses request bodies. The zero value is usable.
type Intake struct {
	MaxMemory int64
	Now       func() time.Time
}

func (in *Intake) now() time.Time {
	if in.Now != nil {
		return in.Now()
	}
	return time.Now()
}

// Form is a decoded request body. Close removes any temporary files created
// for multipart parts.
type Form struct {
	values    map[string][]string
	files     map[string][]*multipart.FileHeader
	multipart *multipart.Form
}

// Parse decodes multipart/form-data, application/x-www-form-urlencoded and
// application/json bodies. Other or missing content types yield an empty
// form.
func (in *Intake) Parse(r *http.Request) (*Form, error) {
	f := &Form{values: map[string][]string{}, files: map[string][]*multipart.FileHeader{}}
	if r.Body == nil || r.Body == http.NoBody {
		return f, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		maxMemory := in.MaxMemory
		if maxMemory <= 0 {
			maxMemory = DefaultMaxMemory
		}
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, classify(err)
		}
		f.multipart = r.MultipartForm
		f.values = r.MultipartForm.Value
		f.files = r.MultipartForm.File
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, classify(err)
		}
		f.values = r.PostForm
	case "application/json":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, classify(err)
		}
		for k, v := range body {
			switch val := v.(type) {
			case nil:
			case string:
				f.values[k] = []string{val}
			case []any:
				for _, item := range val {
					f.values[k] = append(f.values[k], fmt.Sprint(item))
				}
			default:
				f.values[k] = []string{fmt.Sprint(val)}
			}
		}
	}
	return f, nil
}

func classify(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, tooLarge.Limit)
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

// Has reports whether the field was sent, even if empty.
func (f *Form) Has(name string) bool {
	_, ok := f.values[name]
	return ok
}

// Value returns the first value of the field, or "".
func (f *Form) Value(name string) string {
	if vs := f.values[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// File returns the first file uploaded under name.
func (f *Form) File(name string) (*multipart.FileHeader, error) {
	files := f.files[name]
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingFile, name)
	}
	return files[0], nil
}

// Files returns every file uploaded under name.
func (f *Form) Files(name string) []*multipart.FileHeader {
	return f.files[name]
}

// Close removes temporary files backing multipart parts.
func (f *Form) Close() error {
	if f.multipart == nil {
		return nil
	}
	return f.multipart.RemoveAll()
}

// Filename generates the stored name of an uploaded file:
// <field>_dateVal_<unix millis>.<ext>.
func (in *Intake) Filename(field, contentType string) string {
	return fmt.Sprintf("%s_dateVal_%d.%s", field, in.now().UnixMilli(), Extension(contentType))
}

// AssetName names a file stored next to a nested record: the original
// filename followed by the MIME subtype, e.g. "Logo" + image/png -> "Logo.png".
func AssetName(original, contentType string) string {
	return original + "." + Extension(contentType)
}

// Extension derives a file extension from the subtype of a MIME type.
// Characters outside [A-Za-z0-9.+-] are dropped; "bin" is returned when
// nothing usable remains.
func Extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.LastIndex(mediaType, "/"); i >= 0 {
		mediaType = mediaType[i+1:]
	}

	ext := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '+', r == '-':
			return r
		}
		return -1
	}, mediaType)
	ext = strings.Trim(ext, ".")
	if ext == "" {
		return "bin"
	}
	return ext
}

// ContentType returns the declared content type of an uploaded part.
func ContentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
