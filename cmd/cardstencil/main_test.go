package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xob0t/CardStencil/internal/config"
	"github.com/xob0t/CardStencil/pkg/render"
	"github.com/xob0t/CardStencil/pkg/store"
)

func TestSamplesRender(t *testing.T) {
	dir := t.TempDir()
	files, err := writeSamples(dir)
	if err != nil {
		t.Fatalf("writeSamples: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("files = %v", files)
	}

	tpl, err := loadTemplate(filepath.Join(dir, "template.json"))
	if err != nil {
		t.Fatalf("loadTemplate: %v", err)
	}
	base, ok := tpl.BasePDF.Raw().([]byte)
	if !ok || !bytes.HasPrefix(base, []byte("%PDF-")) {
		t.Fatalf("basePdf not read from card_base.pdf: %T", tpl.BasePDF.Raw())
	}

	rec, err := loadRecord(filepath.Join(dir, "record.json"), tpl)
	if err != nil {
		t.Fatalf("loadRecord: %v", err)
	}
	if rec.ID != "MSL-2024-0001" {
		t.Errorf("record id = %q", rec.ID)
	}

	res, err := render.New(context.Background(), render.Options{}).RenderCard(context.Background(), tpl, rec)
	if err != nil {
		t.Fatalf("RenderCard: %v", err)
	}
	if !bytes.HasPrefix(res.Bytes, []byte("%PDF-")) {
		t.Errorf("output is not a PDF")
	}
	for _, w := range res.Warnings {
		if w.Kind != render.UnmappedField || w.Field != "profile_photo" {
			t.Errorf("unexpected warning %s", w)
		}
	}
}

func TestLoadRecordReadsRelativeImages(t *testing.T) {
	dir := t.TempDir()
	if _, err := writeSamples(dir); err != nil {
		t.Fatal(err)
	}
	photo := []byte("\x89PNG\r\n\x1a\nnot really")
	os.WriteFile(filepath.Join(dir, "photo.png"), photo, 0o644)
	os.WriteFile(filepath.Join(dir, "rec.json"), []byte(`{"id": "a", "values": {
		"profile_photo": "photo.png",
		"full_name": "notes.txt"
	}}`), 0o644)

	tpl, err := loadTemplate(filepath.Join(dir, "template.json"))
	if err != nil {
		t.Fatal(err)
	}
	rec, err := loadRecord(filepath.Join(dir, "rec.json"), tpl)
	if err != nil {
		t.Fatalf("loadRecord: %v", err)
	}
	if got := rec.Values["profile_photo"]; !bytes.Equal(got.Data, photo) {
		t.Errorf("profile_photo = %+v, want inline file bytes", got)
	}
	if got := rec.Values["full_name"]; got.Text != "notes.txt" || got.Data != nil {
		t.Errorf("text field value rewritten: %+v", got)
	}

	os.WriteFile(filepath.Join(dir, "missing.json"), []byte(`{"id": "a", "values": {"profile_photo": "nope.png"}}`), 0o644)
	if _, err := loadRecord(filepath.Join(dir, "missing.json"), tpl); err == nil {
		t.Error("missing image file: want error")
	}
}

func TestIsRelativePath(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"card_base.pdf", true},
		{"assets/card.pdf", true},
		{"", false},
		{"/storage/templates/card.pdf", false},
		{"https://example.com/card.pdf", false},
		{"data:application/pdf;base64,JVBE", false},
	}
	for _, tt := range tests {
		if got := isRelativePath(tt.in); got != tt.want {
			t.Errorf("isRelativePath(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSQLDialect(t *testing.T) {
	tests := []struct {
		store, dsn string
		want       store.Dialect
	}{
		{config.StorePostgres, "host=db user=app", store.Postgres},
		{config.StoreMySQL, "app:pw@tcp(db:3306)/cards?parseTime=true", store.MySQL},
		{config.StoreRedis, "postgres://app@db/cards", store.Postgres},
		{config.StoreFile, "app:pw@tcp(db:3306)/cards", store.MySQL},
	}
	for _, tt := range tests {
		cfg := config.Config{TemplateStore: tt.store, DatabaseURL: tt.dsn}
		if got := sqlDialect(cfg); got != tt.want {
			t.Errorf("sqlDialect(%s, %q) = %s, want %s", tt.store, tt.dsn, got, tt.want)
		}
	}
}

func TestOpenStoresFile(t *testing.T) {
	cfg := config.Config{TemplateStore: config.StoreFile, TemplateFile: filepath.Join(t.TempDir(), "t.json")}
	s, err := openStores(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.templates.(*store.FileStore); !ok {
		t.Errorf("templates = %T, want *store.FileStore", s.templates)
	}
	if s.members != nil {
		t.Errorf("members = %T, want nil without DATABASE_URL", s.members)
	}
}
