package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestManifest_UpsertReplacesInPlace(t *testing.T) {
	m := &Manifest{Skills: []SkillEntry{
		{Name: "alpha", Description: "a"},
		{Name: "Beta", Description: "old", Installer: "npm"},
		{Name: "gamma", Description: "c"},
	}}

	replaced := m.Upsert(SkillEntry{Name: "beta", Description: "new", Origin: "https://github.com/o/beta.git"})
	if !replaced {
		t.Fatal("expected replacement")
	}
	if len(m.Skills) != 3 {
		t.Fatalf("len = %d, want 3", len(m.Skills))
	}
	got := m.Skills[1]
	want := SkillEntry{Name: "beta", Description: "new", Origin: "https://github.com/o/beta.git"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Skills[1] = %+v, want %+v (full replacement)", got, want)
	}

	// Same upsert again leaves the manifest unchanged.
	before := append([]SkillEntry(nil), m.Skills...)
	m.Upsert(want)
	if !reflect.DeepEqual(m.Skills, before) {
		t.Errorf("upsert is not idempotent: %+v", m.Skills)
	}

	if m.Upsert(SkillEntry{Name: "delta", Description: "d"}) {
		t.Error("new entry reported as replaced")
	}
	if m.Skills[3].Name != "delta" {
		t.Errorf("new entry not appended: %+v", m.Skills)
	}
}

func TestManifest_Remove(t *testing.T) {
	m := &Manifest{Skills: []SkillEntry{{Name: "a"}, {Name: "b"}, {Name: "c"}}}

	if !m.Remove("B") {
		t.Fatal("Remove(B) = false")
	}
	if len(m.Skills) != 2 || m.Skills[0].Name != "a" || m.Skills[1].Name != "c" {
		t.Errorf("Skills = %+v", m.Skills)
	}
	if m.Remove("missing") {
		t.Error("Remove(missing) = true")
	}
}

func TestManifestStore_LoadMissing(t *testing.T) {
	s := NewManifestStore(filepath.Join(t.TempDir(), "skills-manifest.json"))

	m, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m == nil || m.Skills == nil || len(m.Skills) != 0 {
		t.Errorf("expected empty manifest, got %+v", m)
	}
}

func TestManifestStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewManifestStore(filepath.Join(t.TempDir(), "nested", "skills-manifest.json"))

	m := &Manifest{Skills: []SkillEntry{
		{
			Name:         "web-tool",
			Description:  "网页工具",
			Origin:       "https://github.com/me/web-tool.git",
			Upstream:     "https://github.com/them/web-tool.git",
			Installer:    "npm",
			Dependencies: []string{"pnpm"},
			Commands:     []string{"/web-tool"},
		},
		{Name: "local-only", Description: "本地", Local: true},
	}}
	if err := s.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, m)
	}
}

func TestManifestStore_SaveFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills-manifest.json")
	s := NewManifestStore(path)

	if err := s.Save(&Manifest{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "{\n  \"skills\": []\n}\n" {
		t.Errorf("empty manifest = %q", data)
	}

	if err := s.Save(&Manifest{Skills: []SkillEntry{{Name: "a&b", Description: "技能 <x>"}}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ = os.ReadFile(path)
	want := `{
  "skills": [
    {
      "name": "a&b",
      "description": "技能 <x>"
    }
  ]
}
`
	if string(data) != want {
		t.Errorf("manifest =\n%s\nwant\n%s", data, want)
	}
}

func TestManifestStore_LoadAcceptsCommentsAndTrailingCommas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills-manifest.json")
	content := `{
  // hand edited
  "skills": [
    {"name": "a", "description": "甲",},
  ],
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManifestStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Skills) != 1 || m.Skills[0].Name != "a" {
		t.Errorf("Skills = %+v", m.Skills)
	}
}

func TestManifestStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills-manifest.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManifestStore(path).Load()
	var unreadable *ManifestUnreadableError
	if !errors.As(err, &unreadable) {
		t.Fatalf("expected ManifestUnreadableError, got %v", err)
	}
	if m == nil || len(m.Skills) != 0 {
		t.Errorf("expected empty manifest, got %+v", m)
	}
}

func TestManifestStore_UpdateMovesCorruptFileAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills-manifest.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewManifestStore(path)

	upd, err := s.Update(context.Background(), func(m *Manifest) error {
		m.Upsert(SkillEntry{Name: "a", Description: "甲"})
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Recovered == nil {
		t.Error("expected Recovered to be set")
	}

	backups, _ := filepath.Glob(path + ".corrupt-*")
	if len(backups) != 1 {
		t.Fatalf("expected one set-aside copy, got %v", backups)
	}
	aside, err := os.ReadFile(backups[0])
	if err != nil {
		t.Fatalf("reading set-aside copy: %v", err)
	}
	if string(aside) != "{not json" {
		t.Errorf("set-aside copy = %q", aside)
	}

	m, err := s.Load()
	if err != nil {
		t.Fatalf("Load after update: %v", err)
	}
	if len(m.Skills) != 1 || m.Skills[0].Name != "a" {
		t.Errorf("Skills = %+v", m.Skills)
	}
}

func TestManifestStore_UpdateNeverOverwritesUnreadableFile(t *testing.T) {
	// A directory in place of the manifest cannot be read.
	path := filepath.Join(t.TempDir(), "skills-manifest.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}

	calls := 0
	_, err := NewManifestStore(path).Update(context.Background(), func(m *Manifest) error {
		calls++
		return nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 0 {
		t.Errorf("fn called %d times", calls)
	}
	if info, statErr := os.Stat(path); statErr != nil || !info.IsDir() {
		t.Errorf("manifest path was modified: %v", statErr)
	}
}

func TestManifestStore_UpdateFnErrorWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills-manifest.json")
	errStop := errors.New("stop")

	_, err := NewManifestStore(path).Update(context.Background(), func(m *Manifest) error {
		m.Upsert(SkillEntry{Name: "a"})
		return errStop
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("err = %v, want errStop", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("manifest should not exist, stat err = %v", statErr)
	}
}

func TestManifestStore_PreviewWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills-manifest.json")

	upd, err := NewManifestStore(path).Preview(context.Background(), func(m *Manifest) error {
		m.Upsert(SkillEntry{Name: "a", Description: "甲"})
		return nil
	})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if upd.Before != nil {
		t.Errorf("Before = %q, want nil", upd.Before)
	}
	if !strings.Contains(string(upd.After), `"name": "a"`) {
		t.Errorf("After = %s", upd.After)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("manifest should not exist, stat err = %v", statErr)
	}
}

func TestManifestStore_UpdateRetriesOnConcurrentChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills-manifest.json")
	s := NewManifestStore(path)
	if err := s.Save(&Manifest{Skills: []SkillEntry{{Name: "first", Description: "一"}}}); err != nil {
		t.Fatal(err)
	}

	calls := 0
	_, err := s.Update(context.Background(), func(m *Manifest) error {
		calls++
		if calls == 1 {
			// Another writer lands between our load and save.
			other := "{\"skills\": [{\"name\": \"first\", \"description\": \"一\"}, {\"name\": \"other\", \"description\": \"他\"}]}\n"
			if err := os.WriteFile(path, []byte(other), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		m.Upsert(SkillEntry{Name: "mine", Description: "我"})
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}

	m, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range m.Skills {
		names = append(names, e.Name)
	}
	if !reflect.DeepEqual(names, []string{"first", "other", "mine"}) {
		t.Errorf("names = %v", names)
	}
}

func TestManifestStore_Upsert(t *testing.T) {
	s := NewManifestStore(filepath.Join(t.TempDir(), "skills-manifest.json"))
	ctx := context.Background()

	replaced, err := s.Upsert(ctx, SkillEntry{Name: "a", Description: "甲"})
	if err != nil || replaced {
		t.Fatalf("first Upsert = %v, %v", replaced, err)
	}
	replaced, err = s.Upsert(ctx, SkillEntry{Name: "A", Description: "乙"})
	if err != nil || !replaced {
		t.Fatalf("second Upsert = %v, %v", replaced, err)
	}

	m, _ := s.Load()
	if len(m.Skills) != 1 || m.Skills[0].Description != "乙" {
		t.Errorf("Skills = %+v", m.Skills)
	}
}

func TestManifestStore_RepeatedCorruptionKeepsEveryCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills-manifest.json")
	s := NewManifestStore(path)

	for _, content := range []string{"{first", "{second"} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Upsert(context.Background(), SkillEntry{Name: "a", Description: "甲"}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	backups, _ := filepath.Glob(path + ".corrupt-*")
	if len(backups) != 2 {
		t.Fatalf("expected two set-aside copies, got %v", backups)
	}
	var contents []string
	for _, b := range backups {
		data, err := os.ReadFile(b)
		if err != nil {
			t.Fatal(err)
		}
		contents = append(contents, string(data))
	}
	if !strings.Contains(strings.Join(contents, "|"), "{first") || !strings.Contains(strings.Join(contents, "|"), "{second") {
		t.Errorf("set-aside copies = %q", contents)
	}
}

func TestManifestStore_UpdateKeepsUnknownMembers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills-manifest.json")
	content := `{"version": 2, "skills": [{"name":"a","description":"甲","branch":"dev","enabled":true}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewManifestStore(path)

	if _, err := s.Upsert(context.Background(), SkillEntry{Name: "b", Description: "乙"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	data, _ := os.ReadFile(path)
	want := `{
  "skills": [
    {
      "name": "a",
      "description": "甲",
      "branch": "dev",
      "enabled": true
    },
    {
      "name": "b",
      "description": "乙"
    }
  ],
  "version": 2
}
`
	if string(data) != want {
		t.Errorf("manifest =\n%s\nwant\n%s", data, want)
	}
}

func TestManifestStore_ReplacedEntryKeepsUnknownMembers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills-manifest.json")
	content := `{
  "skills": [
    {"name": "a", "description": "old", "pinned": {"ref": "v1", /* keep */ "note": "<x>",},},
  ],
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewManifestStore(path)

	replaced, err := s.Upsert(context.Background(), SkillEntry{Name: "A", Description: "新"})
	if err != nil || !replaced {
		t.Fatalf("Upsert = %v, %v", replaced, err)
	}

	m, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Skills) != 1 || m.Skills[0].Name != "A" || m.Skills[0].Description != "新" {
		t.Fatalf("Skills = %+v", m.Skills)
	}
	pinned, ok := m.Skills[0].Extra["pinned"]
	if !ok {
		t.Fatalf("Extra = %v", m.Skills[0].Extra)
	}
	if got := strings.Join(strings.Fields(string(pinned)), ""); got != `{"ref":"v1","note":"<x>"}` {
		t.Errorf("pinned = %s", pinned)
	}
}

func TestManifestStore_RemoveKeepsTopLevelMembers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills-manifest.json")
	content := `{"skills": [{"name": "a", "description": "甲"}], "generatedBy": "update-all.ps1"}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewManifestStore(path)

	if _, err := s.Update(context.Background(), func(m *Manifest) error {
		m.Remove("a")
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	data, _ := os.ReadFile(path)
	want := "{\n  \"skills\": [],\n  \"generatedBy\": \"update-all.ps1\"\n}\n"
	if string(data) != want {
		t.Errorf("manifest = %q, want %q", data, want)
	}
}
