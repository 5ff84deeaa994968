package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xob0t/CardStencil/pkg/member"
	"github.com/xob0t/CardStencil/pkg/source"
	"github.com/xob0t/CardStencil/pkg/template"
)

func sampleTemplate(t *testing.T) *template.Template {
	t.Helper()
	src, _ := template.GetExampleJSON()
	tpl, err := template.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	tpl.BasePDF = source.Bytes([]byte("%PDF-1.4 test"))
	return tpl
}

// checkRoundTrip saves the sample template and loads it back.
func checkRoundTrip(t *testing.T, s TemplateStore) {
	t.Helper()
	ctx := context.Background()
	want := sampleTemplate(t)

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want.Pages[0][0].Position.X = 11
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want.Pages, got.Pages); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
	base, err := source.New(source.Options{}).Canonicalize(ctx, got.BasePDF)
	if err != nil || string(base) != "%PDF-1.4 test" {
		t.Errorf("base document = %q, %v", base, err)
	}
}

func TestFileStore(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "template.json"))
	if _, err := s.Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load before Save: err = %v, want ErrNotFound", err)
	}
	checkRoundTrip(t, s)
}

func TestCardSink(t *testing.T) {
	sink := CardSink{Dir: filepath.Join(t.TempDir(), "cards")}
	name, err := sink.Put("MSL/2024 0001", []byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if name != "MSL_2024_0001_card.pdf" {
		t.Errorf("Put name = %q", name)
	}
	p, err := sink.Open(name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if b, _ := os.ReadFile(p); string(b) != "%PDF-1.7" {
		t.Errorf("stored card = %q", b)
	}
	for _, bad := range []string{"../x_card.pdf", "missing_card.pdf", "template.json"} {
		if _, err := sink.Open(bad); !errors.Is(err, ErrNotFound) {
			t.Errorf("Open(%q) err = %v, want ErrNotFound", bad, err)
		}
	}
}

func TestDialectBind(t *testing.T) {
	q := `UPDATE t SET a = ?, b = ? WHERE c = ?`
	if got, want := Postgres.bind(q), `UPDATE t SET a = $1, b = $2 WHERE c = $3`; got != want {
		t.Errorf("Postgres.bind = %q, want %q", got, want)
	}
	if got := MySQL.bind(q); got != q {
		t.Errorf("MySQL.bind = %q, want unchanged", got)
	}
}

func TestSQLStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	dialect := Postgres
	if d := os.Getenv("TEST_DATABASE_DIALECT"); d != "" {
		dialect = Dialect(d)
	}

	ctx := context.Background()
	s, err := OpenSQL(ctx, dialect, dsn)
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	checkRoundTrip(t, s)

	m := member.Member{
		MembershipID:   "TEST-" + strconv.Itoa(os.Getpid()),
		FullName:       "Aisha Khan",
		AreaOfInterest: "public_health",
	}
	if err := s.SaveMember(ctx, m); err != nil {
		t.Fatalf("SaveMember: %v", err)
	}
	got, err := s.Member(ctx, m.MembershipID)
	if err != nil {
		t.Fatalf("Member: %v", err)
	}
	if got.FullName != m.FullName || got.AreaOfInterest != m.AreaOfInterest {
		t.Errorf("Member = %+v", got)
	}
	if _, err := s.Member(ctx, "no-such-member"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Member(missing) err = %v, want ErrNotFound", err)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	s, err := OpenRedis(context.Background(), RedisOptions{Addr: addr, DB: 15})
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer s.Close()
	s.key = "cardstencil:test:" + strconv.Itoa(os.Getpid())
	defer s.client.Del(context.Background(), s.key)

	if _, err := s.Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load before Save: err = %v, want ErrNotFound", err)
	}
	checkRoundTrip(t, s)
}
