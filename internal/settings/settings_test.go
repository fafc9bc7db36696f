package settings

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"watchparty/internal/store"

	"github.com/charmbracelet/log"
)

func openStore(t *testing.T, kv KV) *Store {
	t.Helper()
	return Open(kv, WithLogger(log.New(io.Discard)))
}

func TestOpen_Empty(t *testing.T) {
	s := openStore(t, store.NewMemory())
	if len(s.All()) != 0 {
		t.Fatalf("All() = %v, want empty", s.All())
	}
	if got := s.Get("theme", "light"); got != "light" {
		t.Fatalf("Get fallback = %v", got)
	}
}

func TestOpen_MalformedSnapshot(t *testing.T) {
	kv := store.NewMemory()
	_ = kv.Write(StorageKey, "{not json")
	s := openStore(t, kv)
	if len(s.All()) != 0 {
		t.Fatalf("All() = %v, want empty", s.All())
	}
}

type failingKV struct {
	readErr  error
	writeErr error
}

func (f failingKV) Read(string) (string, bool, error) { return "", false, f.readErr }
func (f failingKV) Write(string, string) error         { return f.writeErr }

func TestOpen_ReadError(t *testing.T) {
	s := openStore(t, failingKV{readErr: errors.New("disk gone")})
	if len(s.All()) != 0 {
		t.Fatalf("All() = %v, want empty", s.All())
	}
}

func TestSet_PersistsAcrossReload(t *testing.T) {
	kv := store.NewMemory()
	s := openStore(t, kv)
	if err := s.Set("theme", "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("volume", 7); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reloaded := openStore(t, kv)
	if got := reloaded.Get("theme", nil); got != "dark" {
		t.Fatalf("reloaded theme = %v", got)
	}
	if got := Value(reloaded, "volume", 0); got != 7 {
		t.Fatalf("reloaded volume = %v", got)
	}
}

func TestSet_SQLiteReload(t *testing.T) {
	path := t.TempDir() + "/settings.db"
	kv, err := store.NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	s := openStore(t, kv)
	_ = s.Set("layout", map[string]any{"sidebar": true})
	_ = kv.Close()

	kv, err = store.NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer kv.Close()
	got := Value(openStore(t, kv), "layout", map[string]bool{})
	if !got["sidebar"] {
		t.Fatalf("layout = %v", got)
	}
}

func TestSet_PersistFailureStillNotifies(t *testing.T) {
	s := openStore(t, failingKV{writeErr: errors.New("quota")})
	called := false
	s.Subscribe("k", func(any, any) { called = true })
	if err := s.Set("k", 1); err == nil {
		t.Fatal("Set returned nil error")
	}
	if !called || s.Get("k", nil) != 1.0 {
		t.Fatal("value not applied in memory")
	}
}

func TestSet_RejectsUnencodable(t *testing.T) {
	s := openStore(t, store.NewMemory())
	if err := s.Set("fn", func() {}); err == nil {
		t.Fatal("Set accepted a function value")
	}
	if s.Has("fn") {
		t.Fatal("unencodable value was stored")
	}
}

func TestListeners_Order(t *testing.T) {
	s := openStore(t, store.NewMemory())
	_ = s.Set("theme", "light")

	var calls []string
	s.Subscribe("theme", func(n, o any) { calls = append(calls, "key1:"+n.(string)+":"+o.(string)) })
	s.SubscribeAll(func(k string, n, o any) { calls = append(calls, "all:"+k) })
	s.Subscribe("theme", func(n, o any) { calls = append(calls, "key2") })
	s.Subscribe("other", func(n, o any) { calls = append(calls, "other") })

	_ = s.Set("theme", "dark")

	want := []string{"key1:dark:light", "key2", "all:theme"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestListeners_NoDeduplication(t *testing.T) {
	s := openStore(t, store.NewMemory())
	count := 0
	fn := func(any, any) { count++ }
	s.Subscribe("k", fn)
	s.Subscribe("k", fn)
	_ = s.Set("k", true)
	if count != 2 {
		t.Fatalf("listener called %d times, want 2", count)
	}
}

func TestUnsubscribe_RemovesOnlyThatRegistration(t *testing.T) {
	s := openStore(t, store.NewMemory())
	var calls []string
	unsubA := s.Subscribe("k", func(any, any) { calls = append(calls, "a") })
	s.Subscribe("k", func(any, any) { calls = append(calls, "b") })
	unsubAll := s.SubscribeAll(func(string, any, any) { calls = append(calls, "all") })

	unsubA()
	unsubA()
	unsubAll()
	_ = s.Set("k", 1)

	if !reflect.DeepEqual(calls, []string{"b"}) {
		t.Fatalf("calls = %v, want [b]", calls)
	}
}

func TestListeners_Reentrant(t *testing.T) {
	s := openStore(t, store.NewMemory())
	s.Subscribe("a", func(n, _ any) {
		_ = s.Set("b", n)
	})
	_ = s.Set("a", "x")
	if got := s.Get("b", nil); got != "x" {
		t.Fatalf("b = %v, want x", got)
	}
}

func TestSetMany_SortedOrder(t *testing.T) {
	s := openStore(t, store.NewMemory())
	var keys []string
	s.SubscribeAll(func(k string, _, _ any) { keys = append(keys, k) })
	_ = s.SetMany(map[string]any{"c": 3, "a": 1, "b": 2})
	if !reflect.DeepEqual(keys, []string{"a", "b", "c"}) {
		t.Fatalf("keys = %v", keys)
	}
}

func TestReset(t *testing.T) {
	kv := store.NewMemory()
	s := openStore(t, kv)
	_ = s.Set("theme", "dark")

	var gotNew, gotOld any = "unset", "unset"
	wildcard := false
	s.Subscribe("theme", func(n, o any) { gotNew, gotOld = n, o })
	s.SubscribeAll(func(string, any, any) { wildcard = true })

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if gotNew != nil || gotOld != "dark" {
		t.Fatalf("listener got (%v, %v), want (nil, dark)", gotNew, gotOld)
	}
	if wildcard {
		t.Fatal("wildcard listener notified on Reset")
	}
	if len(openStore(t, kv).All()) != 0 {
		t.Fatal("reset snapshot not persisted")
	}
}

func TestAll_IsCopy(t *testing.T) {
	s := openStore(t, store.NewMemory())
	_ = s.Set("k", 1)
	all := s.All()
	all["k"] = 2
	if s.Get("k", nil) != 1.0 {
		t.Fatal("All() exposed internal map")
	}
}

func TestValue_Conversion(t *testing.T) {
	s := openStore(t, store.NewMemory())
	_ = s.Set("count", 3)
	_ = s.Set("name", "demo")

	if got := Value(s, "count", 0); got != 3 {
		t.Fatalf("count = %v", got)
	}
	if got := Value(s, "count", 0.0); got != 3.0 {
		t.Fatalf("count as float = %v", got)
	}
	if got := Value(s, "name", 0); got != 0 {
		t.Fatalf("mismatched type = %v, want fallback", got)
	}
	if got := Value(s, "missing", "fb"); got != "fb" {
		t.Fatalf("missing = %v", got)
	}
}

func TestValidate(t *testing.T) {
	s := openStore(t, store.NewMemory())
	_ = s.Set("theme", 12)
	_ = s.Set("volume", 150)

	schema := Schema{
		"apiKey": {Required: true},
		"theme":  {Type: "string"},
		"volume": {Type: "number", Validate: func(v any) error {
			if n, ok := number(v); ok && n > 100 {
				return errors.New("volume must be at most 100")
			}
			return nil
		}},
		"optional": {Type: "boolean"},
		"strict":   {Validate: func(any) error { return errors.New("") }},
	}

	res := s.Validate(schema)
	if res.Valid {
		t.Fatal("Valid = true")
	}
	want := []string{
		"apiKey is required",
		"strict is invalid",
		"theme must be of type string",
		"volume must be at most 100",
	}
	if !reflect.DeepEqual(res.Errors, want) {
		t.Fatalf("Errors = %q, want %q", res.Errors, want)
	}

	_ = s.Set("apiKey", "k")
	_ = s.Set("theme", "dark")
	_ = s.Set("volume", 50)
	delete(schema, "strict")
	if res := s.Validate(schema); !res.Valid {
		t.Fatalf("Errors = %v", res.Errors)
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{"s", "string"},
		{1, "number"},
		{2.5, "number"},
		{true, "boolean"},
		{nil, "object"},
		{map[string]any{}, "object"},
		{[]any{1}, "object"},
		{func() {}, "function"},
	}
	for _, tt := range tests {
		if got := TypeOf(tt.value); got != tt.want {
			t.Errorf("TypeOf(%#v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := openStore(t, store.NewMemory())
	_ = src.SetMany(map[string]any{
		"theme":  "dark",
		"volume": 0.5,
		"count":  5,
		"tags":   []string{"a", "b"},
		"layout": map[string]any{"sidebar": true},
		"panel":  struct{ Width int }{Width: 320},
	})

	text, err := src.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(text, "\n  \"theme\": \"dark\"") {
		t.Fatalf("Export not indented with two spaces:\n%s", text)
	}

	dst := openStore(t, store.NewMemory())
	if res := dst.Import(text); !res.Success {
		t.Fatalf("Import: %s", res.Error)
	}
	if !reflect.DeepEqual(dst.All(), src.All()) {
		t.Fatalf("imported = %v, want %v", dst.All(), src.All())
	}
	if !reflect.DeepEqual(dst.All(), map[string]any{
		"theme":  "dark",
		"volume": 0.5,
		"count":  5.0,
		"tags":   []any{"a", "b"},
		"layout": map[string]any{"sidebar": true},
		"panel":  map[string]any{"Width": 320.0},
	}) {
		t.Fatalf("imported = %v", dst.All())
	}
}

func TestSet_StoresJSONShape(t *testing.T) {
	kv := store.NewMemory()
	s := openStore(t, kv)

	tags := []string{"a"}
	layout := map[string]any{"sidebar": true}
	_ = s.Set("volume", 5)
	_ = s.Set("tags", tags)
	_ = s.Set("layout", layout)

	tags[0] = "changed"
	layout["sidebar"] = false

	want := map[string]any{
		"volume": 5.0,
		"tags":   []any{"a"},
		"layout": map[string]any{"sidebar": true},
	}
	if !reflect.DeepEqual(s.All(), want) {
		t.Fatalf("All() = %v, want %v", s.All(), want)
	}
	if reloaded := openStore(t, kv); !reflect.DeepEqual(reloaded.All(), s.All()) {
		t.Fatalf("reloaded = %v, live = %v", reloaded.All(), s.All())
	}
	if got := Value(s, "tags", []string(nil)); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("Value(tags) = %v", got)
	}
}

func TestImport_Failures(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"syntax", "{bad"},
		{"array", "[1,2]"},
		{"null", "null"},
		{"number", "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openStore(t, store.NewMemory())
			_ = s.Set("keep", true)
			res := s.Import(tt.text)
			if res.Success || res.Error == "" {
				t.Fatalf("Import(%q) = %+v, want failure", tt.text, res)
			}
			if !reflect.DeepEqual(s.All(), map[string]any{"keep": true}) {
				t.Fatalf("store changed: %v", s.All())
			}
		})
	}
}

func TestBinding(t *testing.T) {
	s := openStore(t, store.NewMemory())
	b := Bind(s, "theme", "light")
	defer b.Close()

	if b.Value() != "light" {
		t.Fatalf("initial = %q", b.Value())
	}

	var seen []string
	b.OnChange(func(v string) { seen = append(seen, v) })
	if err := b.Set("dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if b.Value() != "dark" || s.Get("theme", nil) != "dark" {
		t.Fatalf("binding = %q, store = %v", b.Value(), s.Get("theme", nil))
	}

	_ = s.Reset()
	if b.Value() != "light" {
		t.Fatalf("after reset = %q, want fallback", b.Value())
	}

	b.Close()
	b.Close()
	_ = s.Set("theme", "blue")
	if b.Value() != "light" {
		t.Fatal("closed binding still updating")
	}
	if !reflect.DeepEqual(seen, []string{"dark", "light"}) {
		t.Fatalf("seen = %v", seen)
	}
}

func TestTokenSource(t *testing.T) {
	s := openStore(t, store.NewMemory())
	src := TokenSource{Store: s}
	if _, ok := src.Token(); ok {
		t.Fatal("empty store yields token")
	}
	_ = s.Set(DefaultTokenKey, "jwt")
	if v, ok := src.Token(); !ok || v != "jwt" {
		t.Fatalf("Token() = %q, %v", v, ok)
	}
	_ = s.Set(DefaultTokenKey, 5)
	if _, ok := src.Token(); ok {
		t.Fatal("non-string token accepted")
	}
}
