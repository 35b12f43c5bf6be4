package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cuberootdigital/sig-backend/render"
	"github.com/cuberootdigital/sig-backend/schema"
	"github.com/cuberootdigital/sig-backend/store"
	"github.com/cuberootdigital/sig-backend/upload"
)

const facebookURL = "https://www.facebook.com/"

// Files linked from a menu page, stored next to its details.json.
const (
	menuLogo      = "Logo.png"
	menuBreakfast = "Breakfast.pdf"
	menuLunch     = "Lunch.pdf"
	menuDinner    = "Dinner.pdf"
)

// field maps a form field to the document property it fills.
type field struct {
	form, doc string
}

var (
	menuFields   = []field{{"name", "restaurantName"}, {"description", "description"}}
	appFields    = []field{{"android", "androidUrl"}, {"ios", "iosUrl"}, {"other", "otherUrl"}}
	fbFields     = []field{{"username", "username"}}
	couponFields = []field{{"company", "company"}, {"discountType", "discountType"}, {"discountCode", "discountCode"}}
)

// parseForm decodes the body and returns the form with its folderName key.
func (h *Handler) parseForm(r *http.Request) (*upload.Form, string, error) {
	form, err := h.intake.Parse(r)
	if err != nil {
		return nil, "", err
	}
	key := form.Value("folderName")
	if key == "" {
		form.Close()
		return nil, "", fmt.Errorf("%w: folderName", errMissingField)
	}
	if !store.ValidKey(key) {
		form.Close()
		return nil, "", fmt.Errorf("%w: %q", store.ErrInvalidKey, key)
	}
	return form, key, nil
}

// document builds and validates the record document of category c from
// the submitted fields. Absent fields stay absent so validation reports them.
func document(c store.Category, form *upload.Form, fields []field) (map[string]any, error) {
	doc := make(map[string]any, len(fields))
	for _, f := range fields {
		if form.Has(f.form) {
			doc[f.doc] = form.Value(f.form)
		}
	}
	if err := schema.ValidateRecord(c, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidRecord, err)
	}
	return doc, nil
}

// ---------- uploads ----------

func (h *Handler) binaryUpload(c store.Category, fieldName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := h.intake.Parse(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		defer form.Close()

		fh, err := form.File(fieldName)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		src, err := fh.Open()
		if err != nil {
			h.fail(w, r, fmt.Errorf("open upload: %w", err))
			return
		}
		defer src.Close()

		name := h.intake.Filename(fieldName, upload.ContentType(fh))
		p, err := h.records.PutBinary(r.Context(), c, name, src)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.log.Info("stored upload",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("category", string(c)),
			zap.String("path", p),
			zap.Int64("size", fh.Size),
		)
		writeText(w, http.StatusOK, name)
	}
}

func (h *Handler) postMenu(w http.ResponseWriter, r *http.Request) {
	form, key, err := h.parseForm(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer form.Close()

	doc, err := document(store.CategoryMenu, form, menuFields)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Every asset name is checked before the first write, so a rejected
	// menu leaves nothing behind.
	files := form.Files("items")
	names := make([]string, len(files))
	for i, fh := range files {
		names[i] = upload.AssetName(fh.Filename, upload.ContentType(fh))
		if _, err := store.AssetPath(store.CategoryMenu, key, names[i]); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	for i, fh := range files {
		if err := h.putMenuAsset(r, key, names[i], fh); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	details := store.MenuDetails{
		RestaurantName: doc["restaurantName"].(string),
		Description:    doc["description"].(string),
	}
	if err := h.records.Put(r.Context(), store.CategoryMenu, key, details); err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("stored menu",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("key", key),
		zap.Int("files", len(files)),
	)
	writeText(w, http.StatusOK, "Added files")
}

func (h *Handler) putMenuAsset(r *http.Request, key, name string, fh *multipart.FileHeader) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer src.Close()

	_, err = h.records.PutAsset(r.Context(), store.CategoryMenu, key, name, src)
	return err
}

func (h *Handler) postApp(w http.ResponseWriter, r *http.Request) {
	h.postDocument(w, r, store.CategoryApp, appFields, func(doc map[string]any) any {
		return store.AppLinks{
			AndroidURL: doc["androidUrl"].(string),
			IOSURL:     doc["iosUrl"].(string),
			OtherURL:   doc["otherUrl"].(string),
		}
	})
}

func (h *Handler) postFacebook(w http.ResponseWriter, r *http.Request) {
	h.postDocument(w, r, store.CategoryFB, fbFields, func(doc map[string]any) any {
		return store.FacebookProfile{Username: doc["username"].(string)}
	})
}

func (h *Handler) postCoupon(w http.ResponseWriter, r *http.Request) {
	h.postDocument(w, r, store.CategoryCoupon, couponFields, func(doc map[string]any) any {
		return store.Coupon{
			Company:      doc["company"].(string),
			DiscountType: doc["discountType"].(string),
			DiscountCode: doc["discountCode"].(string),
		}
	})
}

// postDocument stores a flat record. The response is written only after
// the record is persisted.
func (h *Handler) postDocument(w http.ResponseWriter, r *http.Request, c store.Category, fields []field, build func(map[string]any) any) {
	form, key, err := h.parseForm(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer form.Close()

	doc, err := document(c, form, fields)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.records.Put(r.Context(), c, key, build(doc)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("stored record",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("category", string(c)),
		zap.String("key", key),
	)
	writeText(w, http.StatusOK, "Added details")
}

// ---------- pages ----------

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages.Render(w, page, data); err != nil {
		h.fail(w, r, fmt.Errorf("render %s: %w", page, err))
	}
}

func (h *Handler) menuPage(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["menuId"]
	var details store.MenuDetails
	if err := h.records.Get(r.Context(), store.CategoryMenu, key, &details); err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderPage(w, r, render.PageMenu, render.MenuPage{
		RestaurantName: details.RestaurantName,
		Description:    details.Description,
		LogoLink:       h.assetURL(key, menuLogo),
		BreakfastLink:  h.assetURL(key, menuBreakfast),
		LunchLink:      h.assetURL(key, menuLunch),
		DinnerLink:     h.assetURL(key, menuDinner),
	})
}

// assetURL is the public link of a file stored next to a menu.
func (h *Handler) assetURL(key, name string) string {
	p, err := store.AssetPath(store.CategoryMenu, key, name)
	if err != nil {
		return ""
	}
	return strings.TrimRight(h.opts.PublicURL, "/") + "/uploads/" + p
}

func (h *Handler) appPage(w http.ResponseWriter, r *http.Request) {
	var links store.AppLinks
	if err := h.records.Get(r.Context(), store.CategoryApp, mux.Vars(r)["appId"], &links); err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderPage(w, r, render.PageApp, render.AppPage{
		Android: links.AndroidURL,
		IOS:     links.IOSURL,
		Other:   links.OtherURL,
	})
}

func (h *Handler) facebookPage(w http.ResponseWriter, r *http.Request) {
	var profile store.FacebookProfile
	if err := h.records.Get(r.Context(), store.CategoryFB, mux.Vars(r)["id"], &profile); err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderPage(w, r, render.PageFB, render.FacebookPage{
		Username:     profile.Username,
		FacebookLink: facebookURL + url.PathEscape(profile.Username),
	})
}

func (h *Handler) couponPage(w http.ResponseWriter, r *http.Request) {
	var coupon store.Coupon
	if err := h.records.Get(r.Context(), store.CategoryCoupon, mux.Vars(r)["id"], &coupon); err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderPage(w, r, render.PageCoupon, render.CouponPage{
		Company:      coupon.Company,
		DiscountType: coupon.DiscountType,
		DiscountCode: coupon.DiscountCode,
	})
}

// ---------- files ----------

func (h *Handler) serveUpload(w http.ResponseWriter, r *http.Request) {
	obj, err := h.records.Open(r.Context(), mux.Vars(r)["path"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer obj.Content.Close()

	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, obj.Name, obj.ModTime, obj.Content)
}

// ---------- certificate check ----------

func (h *Handler) checkCertificate(w http.ResponseWriter, r *http.Request) {
	form, err := h.intake.Parse(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer form.Close()

	host := form.Value("host")
	if host == "" {
		h.fail(w, r, fmt.Errorf("%w: host", errMissingField))
		return
	}
	res, err := h.certs.Check(r.Context(), host)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
