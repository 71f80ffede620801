package gelf

import (
	"testing"
)

func TestEventFieldSetGet(t *testing.T) {
	evt := NewEvent(LevelInfo, "hello")
	evt.Field("http", "status").SetInt(418)
	evt.Field("user").SetString("alice")

	if v := evt.Field("http", "status").GetInt(); v != 418 {
		t.Errorf("expected 418 but got %d", v)
	}
	if v := evt.Get("user"); v != "alice" {
		t.Errorf(`expected "alice" but got %v`, v)
	}
	if evt.Field("http", "missing").Exists() {
		t.Error("expected missing field to not exist")
	}
}

func TestEventFieldDefault(t *testing.T) {
	evt := NewEvent(LevelInfo, "hello")
	evt.Field("env").Default("dev")
	evt.Field("env").Default("prod")
	if v := evt.Field("env").GetString(); v != "dev" {
		t.Errorf(`expected "dev" but got "%s"`, v)
	}
}

func TestEventFieldDelete(t *testing.T) {
	evt := NewEvent(LevelInfo, "hello")
	evt.Field("a", "b").SetBool(true)
	evt.Field("a", "b").Delete()
	if evt.Field("a", "b").Exists() {
		t.Error("expected field to be deleted")
	}
	if !evt.Field("a").Exists() {
		t.Error("expected parent map to remain")
	}
}

func TestEventTraverseFieldsSorted(t *testing.T) {
	evt := NewEvent(LevelInfo, "hello")
	evt.Field("b").SetInt(1)
	evt.Field("a", "y").SetInt(2)
	evt.Field("a", "x").SetInt(3)

	var seen []string
	evt.TraverseFields(func(f Field) {
		seen = append(seen, f.String())
	})
	expected := []string{"[a][x]", "[a][y]", "[b]"}
	if len(seen) != len(expected) {
		t.Fatalf("expected %v but got %v", expected, seen)
	}
	for i := range expected {
		if seen[i] != expected[i] {
			t.Errorf("expected %v but got %v", expected, seen)
		}
	}
}

func TestEventCopyIsIndependent(t *testing.T) {
	evt := NewEvent(LevelInfo, "hello")
	evt.Field("tags", "env").SetString("prod")
	cp := evt.Copy()
	cp.Field("tags", "env").SetString("dev")
	if v := evt.Field("tags", "env").GetString(); v != "prod" {
		t.Errorf(`original changed to "%s"`, v)
	}
}

func TestEventMerge(t *testing.T) {
	evt := NewEvent(LevelInfo, "hello")
	evt.Field("env").SetString("prod")
	template := NewFields()
	template.Set("env", StringValue("dev"))
	template.Set("region", StringValue("eu"))

	evt.Merge(template, false)
	if v := evt.Field("env").GetString(); v != "prod" {
		t.Errorf(`expected "prod" but got "%s"`, v)
	}
	if v := evt.Field("region").GetString(); v != "eu" {
		t.Errorf(`expected "eu" but got "%s"`, v)
	}
}
