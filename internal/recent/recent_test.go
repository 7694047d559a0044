package recent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestPush(t *testing.T) {
	tests := []struct {
		name  string
		list  []string
		query string
		want  []string
	}{
		{name: "empty", list: nil, query: "abc", want: []string{"abc"}},
		{name: "front", list: []string{"a", "b"}, query: "c", want: []string{"c", "a", "b"}},
		{name: "move to front", list: []string{"a", "b", "c"}, query: "c", want: []string{"c", "a", "b"}},
		{name: "already first", list: []string{"a", "b"}, query: "a", want: []string{"a", "b"}},
		{name: "truncate", list: []string{"1", "2", "3", "4", "5"}, query: "6", want: []string{"6", "1", "2", "3", "4"}},
		{name: "trimmed", list: []string{"a"}, query: "  b ", want: []string{"b", "a"}},
		{name: "blank ignored", list: []string{"a"}, query: "   ", want: []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Push(tt.list, tt.query)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Push() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_PersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()

	s := Open(dir)
	for _, q := range []string{"one", "two", "three", "four", "five", "six", "three"} {
		_, err := s.Add(q)
		require.NoError(t, err)
	}

	want := []string{"three", "six", "five", "four", "two"}
	if diff := cmp.Diff(want, Open(dir).List()); diff != "" {
		t.Fatalf("List() after reopen mismatch (-want +got):\n%s", diff)
	}

	got, err := s.Add("")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("blank Add changed the list (-want +got):\n%s", diff)
	}
}

func TestStore_CorruptValueReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Key), []byte("{not json"), 0o644))

	s := Open(dir)
	if got := s.List(); len(got) != 0 {
		t.Fatalf("expected empty list for corrupt value, got %v", got)
	}

	got, err := s.Add("abc")
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"abc"}, got); diff != "" {
		t.Fatalf("Add() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_Clear(t *testing.T) {
	s := Open(t.TempDir())
	require.NoError(t, s.Clear())

	_, err := s.Add("abc")
	require.NoError(t, err)
	require.NoError(t, s.Clear())
	if got := s.List(); len(got) != 0 {
		t.Fatalf("expected empty list after Clear, got %v", got)
	}
}
