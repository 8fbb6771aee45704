package store

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestMetadataStore_MissingIDYieldsZeroRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMetadataStore(newMapKV())

	meta, err := s.Get(ctx, "ghost")
	if err != nil {
		t.Fatalf("get missing id: %v", err)
	}
	if meta.ID != "ghost" || meta.MimeType != "" || !meta.CreatedAt.IsZero() {
		t.Errorf("expected zero record with ID set, got %+v", meta)
	}

	ok, err := s.Exists(ctx, "ghost")
	if err != nil || ok {
		t.Errorf("Exists(ghost) = %v, %v; want false, nil", ok, err)
	}
}

func TestMetadataStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMetadataStore(newMapKV())

	meta := DocumentMetadata{
		ID:        "notes/todo",
		MimeType:  "text/plain",
		SizeBytes: 42,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Tags:      map[string]string{"project": "docgrep"},
	}
	if err := s.Put(ctx, meta); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "notes/todo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, meta) {
		t.Errorf("round trip: got %+v, want %+v", got, meta)
	}

	if err := s.Delete(ctx, "notes/todo"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Deleting again is a no-op.
	if err := s.Delete(ctx, "notes/todo"); err != nil {
		t.Errorf("repeat delete: %v", err)
	}
}

func TestMetadataStore_PutRejectsEmptyID(t *testing.T) {
	if err := NewMetadataStore(newMapKV()).Put(context.Background(), DocumentMetadata{}); err == nil {
		t.Error("expected error for empty document id")
	}
}

func TestSearchableText_DeterministicTagOrder(t *testing.T) {
	meta := DocumentMetadata{
		ID:        "doc",
		MimeType:  "text/plain",
		SizeBytes: 10,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Summary:   "a short note",
		Tags: map[string]string{
			"zone":   "west",
			"author": "sam",
			"mood":   "calm",
		},
	}

	text := meta.SearchableText()
	for _, want := range []string{
		"id: doc\n",
		"type: text/plain\n",
		"size: 10\n",
		"created: 2026-03-01T12:00:00Z\n",
		"summary: a short note\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing line %q in:\n%s", want, text)
		}
	}

	// Sorted tag keys keep the rendering, and its checksum, stable.
	authorAt := strings.Index(text, "author:")
	moodAt := strings.Index(text, "mood:")
	zoneAt := strings.Index(text, "zone:")
	if !(authorAt < moodAt && moodAt < zoneAt) {
		t.Errorf("tags not in sorted order:\n%s", text)
	}
	for i := 0; i < 10; i++ {
		if meta.SearchableText() != text {
			t.Fatal("SearchableText is not deterministic")
		}
	}
}
