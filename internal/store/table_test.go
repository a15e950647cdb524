package store

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

type widget struct {
	ID      string
	Name    string
	Count   int
	Made    time.Time
	Tags    []string
	Flagged bool
}

type widgetCodec struct{}

func (widgetCodec) Header() []string {
	return []string{"id", "name", "count", "made", "tags", "flagged"}
}

func (widgetCodec) Key(w widget) string { return w.ID }

func (widgetCodec) Encode(w widget) []string {
	return []string{w.ID, w.Name, strconv.Itoa(w.Count), FormatTime(w.Made), JoinList(w.Tags), boolString(w.Flagged)}
}

func (widgetCodec) Decode(row []string) (widget, error) {
	count, err := ParseInt("count", row[2])
	if err != nil {
		return widget{}, err
	}
	made, err := ParseTime("made", row[3])
	if err != nil {
		return widget{}, err
	}
	flagged, err := ParseBool("flagged", row[5])
	if err != nil {
		return widget{}, err
	}
	return widget{ID: row[0], Name: row[1], Count: count, Made: made, Tags: SplitList(row[4]), Flagged: flagged}, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestTableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.csv")
	made := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	tbl := NewTable[widget](path, widgetCodec{})
	tbl.Put(widget{ID: "W2", Name: "comma, inside", Count: 3, Made: made, Tags: []string{"a", "b"}, Flagged: true})
	tbl.Put(widget{ID: "W1", Name: `quote "x"`, Count: 1})
	if err := tbl.SaveAll(); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	reloaded := NewTable[widget](path, widgetCodec{})
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reloaded.Len())
	}

	got, ok := reloaded.Get("W2")
	if !ok {
		t.Fatal("W2 missing after reload")
	}
	if got.Name != "comma, inside" || got.Count != 3 || !got.Made.Equal(made) || !got.Flagged {
		t.Errorf("W2 = %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "a" || got.Tags[1] != "b" {
		t.Errorf("W2 tags = %v", got.Tags)
	}

	w1, _ := reloaded.Get("W1")
	if w1.Name != `quote "x"` || !w1.Made.IsZero() || w1.Tags != nil {
		t.Errorf("W1 = %+v", w1)
	}

	all := reloaded.All()
	if all[0].ID != "W1" || all[1].ID != "W2" {
		t.Errorf("All() order = %s,%s", all[0].ID, all[1].ID)
	}
}

func TestTableLoadMissingFile(t *testing.T) {
	tbl := NewTable[widget](filepath.Join(t.TempDir(), "nope.csv"), widgetCodec{})
	if err := tbl.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tbl.Len())
	}
}

func TestTableLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "wrong header",
			content: "id,label\nW1,x\n",
			wantErr: ErrHeaderMismatch,
		},
		{
			name:    "short row",
			content: "id,name,count,made,tags,flagged\nW1,x\n",
			wantErr: ErrMalformedRow,
		},
		{
			name:    "bad number",
			content: "id,name,count,made,tags,flagged\nW1,x,many,,,false\n",
			wantErr: ErrMalformedRow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "widgets.csv")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			err := NewTable[widget](path, widgetCodec{}).Load()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommitWritesAllTables(t *testing.T) {
	dir := t.TempDir()
	a := NewTable[widget](filepath.Join(dir, "a.csv"), widgetCodec{})
	b := NewTable[widget](filepath.Join(dir, "b.csv"), widgetCodec{})
	a.Put(widget{ID: "A1"})
	b.Put(widget{ID: "B1"})

	if err := Commit(a, b); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	for _, name := range []string{"a.csv", "b.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestOpenTableSharesInstance(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	first, err := OpenTable[widget](db, "w.csv", widgetCodec{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := OpenTable[widget](db, "w.csv", widgetCodec{})
	if err != nil {
		t.Fatal(err)
	}
	first.Put(widget{ID: "W1"})
	if _, ok := second.Get("W1"); !ok {
		t.Error("second handle does not see writes through the first")
	}
}

func TestRefreshSeesOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.csv")
	reader := NewTable[widget](path, widgetCodec{})
	if err := reader.Load(); err != nil {
		t.Fatal(err)
	}

	writer := NewTable[widget](path, widgetCodec{})
	if err := writer.Update(func() error {
		writer.Put(widget{ID: "W1", Name: "first"})
		return nil
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := reader.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got, ok := reader.Get("W1"); !ok || got.Name != "first" {
		t.Errorf("reader W1 = %+v, %v", got, ok)
	}

	if err := writer.Update(func() error {
		writer.Put(widget{ID: "W1", Name: "second"})
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	reader.Refresh()
	if got, _ := reader.Get("W1"); got.Name != "second" {
		t.Errorf("reader W1 after rewrite = %+v", got)
	}
}

func TestUpdateKeepsRowsFromOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.csv")
	a := NewTable[widget](path, widgetCodec{})
	b := NewTable[widget](path, widgetCodec{})

	if err := a.Update(func() error { a.Put(widget{ID: "W1"}); return nil }); err != nil {
		t.Fatal(err)
	}
	// b never loaded W1; its write must not drop it.
	if err := b.Update(func() error { b.Put(widget{ID: "W2"}); return nil }); err != nil {
		t.Fatal(err)
	}

	fresh := NewTable[widget](path, widgetCodec{})
	if err := fresh.Load(); err != nil {
		t.Fatal(err)
	}
	if keys := fresh.Keys(); len(keys) != 2 || keys[0] != "W1" || keys[1] != "W2" {
		t.Errorf("keys on disk = %v, want [W1 W2]", keys)
	}
}

func TestInsertDrawsFreshIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.csv")
	a := NewTable[widget](path, widgetCodec{})
	b := NewTable[widget](path, widgetCodec{})
	idsA := NewSequenceIDs("W", 2, a.Keys)
	idsB := NewSequenceIDs("W", 2, b.Keys)

	build := func(id string) widget { return widget{ID: id} }
	var got []string
	for _, step := range []struct {
		tbl *Table[widget]
		ids IDGenerator
	}{{a, idsA}, {b, idsB}, {a, idsA}} {
		w, err := step.tbl.Insert(step.ids, build)
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		got = append(got, w.ID)
	}
	want := []string{"W01", "W02", "W03"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ids = %v, want %v", got, want)
			break
		}
	}
}

type fixedIDs string

func (f fixedIDs) NextID() string { return string(f) }

func TestInsertGivesUpOnTakenIDs(t *testing.T) {
	tbl := NewTable[widget](filepath.Join(t.TempDir(), "widgets.csv"), widgetCodec{})
	if _, err := tbl.Insert(fixedIDs("W1"), func(id string) widget { return widget{ID: id} }); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.Insert(fixedIDs("W1"), func(id string) widget { return widget{ID: id} }); !errors.Is(err, ErrNoFreeID) {
		t.Errorf("Insert() error = %v, want ErrNoFreeID", err)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestUpdateRollsBackOnFailure(t *testing.T) {
	boom := errors.New("boom")
	path := filepath.Join(t.TempDir(), "widgets.csv")
	tbl := NewTable[widget](path, widgetCodec{})
	if err := tbl.Update(func() error { tbl.Put(widget{ID: "W1", Name: "kept"}); return nil }); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		breaks func() error
	}{
		{"fn fails", func() error { return boom }},
		{"rename fails", func() error {
			// a non-empty directory where the file was cannot be renamed over
			if err := os.Remove(path); err != nil {
				return err
			}
			return os.MkdirAll(filepath.Join(path, "blocked"), 0o755)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tbl.Update(func() error {
				tbl.Put(widget{ID: "W1", Name: "changed"})
				tbl.Put(widget{ID: "W2"})
				return tt.breaks()
			})
			if err == nil {
				t.Fatal("Update() error = nil")
			}
			if got, _ := tbl.Get("W1"); got.Name != "kept" {
				t.Errorf("W1 = %+v, want the stored row", got)
			}
			if _, ok := tbl.Get("W2"); ok {
				t.Error("W2 survived a failed update")
			}
		})
	}
}
