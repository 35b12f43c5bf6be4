package store_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cuberootdigital/sig-backend/store"
)

// runRecordsTests exercises the record contract against any backend.
func runRecordsTests(t *testing.T, backend store.Store) {
	t.Helper()
	ctx := context.Background()
	r := store.NewRecords(backend)

	docs := map[store.Category]map[string]any{
		store.CategoryMenu:   {"restaurantName": "Blue Fig", "description": "Mezze"},
		store.CategoryApp:    {"androidUrl": "http://a", "iosUrl": "http://i", "otherUrl": "http://o"},
		store.CategoryFB:     {"username": "bob"},
		store.CategoryCoupon: {"company": "Acme", "discountType": "percent", "discountCode": "SAVE10"},
	}

	t.Run("Round trip", func(t *testing.T) {
		for c, doc := range docs {
			if err := r.Put(ctx, c, "k1", doc); err != nil {
				t.Fatalf("%s: %v", c, err)
			}
			var got map[string]any
			if err := r.Get(ctx, c, "k1", &got); err != nil {
				t.Fatalf("%s: %v", c, err)
			}
			if !reflect.DeepEqual(got, doc) {
				t.Fatalf("%s: expected %v, got %v", c, doc, got)
			}
		}
	})

	t.Run("Categories are isolated", func(t *testing.T) {
		var got map[string]any
		if err := r.Get(ctx, store.CategoryFB, "k1", &got); err != nil {
			t.Fatal(err)
		}
		if got["username"] != "bob" {
			t.Fatalf("expected fb record, got %v", got)
		}
	})

	t.Run("Last write wins", func(t *testing.T) {
		if err := r.Put(ctx, store.CategoryFB, "lww", map[string]any{"username": "first"}); err != nil {
			t.Fatal(err)
		}
		if err := r.Put(ctx, store.CategoryFB, "lww", map[string]any{"username": "second"}); err != nil {
			t.Fatal(err)
		}
		var got map[string]any
		if err := r.Get(ctx, store.CategoryFB, "lww", &got); err != nil {
			t.Fatal(err)
		}
		if got["username"] != "second" {
			t.Fatalf("expected username=second, got %v", got["username"])
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		var got map[string]any
		err := r.Get(ctx, store.CategoryApp, "never-written", &got)
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Corrupt record", func(t *testing.T) {
		if _, err := backend.Put(ctx, "QrCode/coupon/broken.json", strings.NewReader("{not json")); err != nil {
			t.Fatal(err)
		}
		var got map[string]any
		err := r.Get(ctx, store.CategoryCoupon, "broken", &got)
		if !errors.Is(err, store.ErrCorruptRecord) {
			t.Fatalf("expected ErrCorruptRecord, got %v", err)
		}
	})

	t.Run("Invalid keys", func(t *testing.T) {
		for _, key := range []string{"", "../etc", "a/b", ".hidden", ".."} {
			err := r.Put(ctx, store.CategoryApp, key, map[string]any{})
			if !errors.Is(err, store.ErrInvalidKey) {
				t.Fatalf("%q: expected ErrInvalidKey, got %v", key, err)
			}
		}
	})

	t.Run("Document into binary category", func(t *testing.T) {
		err := r.Put(ctx, store.CategoryPDF, "k1", map[string]any{})
		if !errors.Is(err, store.ErrNotDocument) {
			t.Fatalf("expected ErrNotDocument, got %v", err)
		}
	})

	t.Run("Binary", func(t *testing.T) {
		p, err := r.PutBinary(ctx, store.CategoryImage, "my-image-file_dateVal_1.png", strings.NewReader("img"))
		if err != nil {
			t.Fatal(err)
		}
		if p != "EmailGenerator/my-image-file_dateVal_1.png" {
			t.Fatalf("unexpected path %q", p)
		}
		if got := readAll(t, backend, p); got != "img" {
			t.Fatalf("unexpected content %q", got)
		}
		if _, err := r.PutBinary(ctx, store.CategoryApp, "x.png", strings.NewReader("")); !errors.Is(err, store.ErrNotBinary) {
			t.Fatalf("expected ErrNotBinary, got %v", err)
		}
	})

	t.Run("Assets", func(t *testing.T) {
		p, err := r.PutAsset(ctx, store.CategoryMenu, "m2", "Logo.png", strings.NewReader("logo"))
		if err != nil {
			t.Fatal(err)
		}
		if p != "QrCode/menu/m2/Logo.png" {
			t.Fatalf("unexpected path %q", p)
		}
		obj, err := r.Open(ctx, p)
		if err != nil {
			t.Fatal(err)
		}
		obj.Content.Close()
		if obj.Size != 4 {
			t.Fatalf("expected 4 bytes, got %d", obj.Size)
		}
		if _, err := r.PutAsset(ctx, store.CategoryMenu, "m2", "details.json", strings.NewReader("{}")); !errors.Is(err, store.ErrInvalidKey) {
			t.Fatalf("expected details.json to be reserved, got %v", err)
		}
	})

	t.Run("Open rejects traversal", func(t *testing.T) {
		if _, err := r.Open(ctx, "../secret"); !errors.Is(err, store.ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey, got %v", err)
		}
	})
}

func TestRecordsMemory(t *testing.T) {
	runRecordsTests(t, store.NewMemoryStore())
}

func TestRecordsDisk(t *testing.T) {
	s, err := store.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runRecordsTests(t, s)
}

func TestRecordsSqlite(t *testing.T) {
	s, err := store.NewSqliteStore(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	runRecordsTests(t, s)
}

type coupon struct {
	Company      string `json:"company"`
	DiscountType string `json:"discountType"`
	DiscountCode string `json:"discountCode"`
}

func TestRecordsTypedDocument(t *testing.T) {
	ctx := context.Background()
	r := store.NewRecords(store.NewMemoryStore())

	in := coupon{Company: "Acme", DiscountType: "percent", DiscountCode: "SAVE10"}
	if err := r.Put(ctx, store.CategoryCoupon, "c1", in); err != nil {
		t.Fatal(err)
	}
	var out coupon
	if err := r.Get(ctx, store.CategoryCoupon, "c1", &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
}

type brokenStore struct{}

func (brokenStore) Put(context.Context, string, io.Reader) (int64, error) {
	return 0, errors.New("disk full")
}

func (brokenStore) Get(context.Context, string) (*store.Object, error) {
	return nil, store.ErrNotFound
}

func (brokenStore) Close() error { return nil }

func TestRecordsWriteFailure(t *testing.T) {
	ctx := context.Background()
	r := store.NewRecords(brokenStore{})

	err := r.Put(ctx, store.CategoryFB, "f1", map[string]any{"username": "bob"})
	if !errors.Is(err, store.ErrWriteFailure) {
		t.Fatalf("expected ErrWriteFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected cause in error, got %v", err)
	}
}
