package toolargs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/modbuild/internal/fsutil"
)

func TestBuilder_Add(t *testing.T) {
	b := New()
	b.Add("-d").Add(filepath.Join("mods", "main")).Add(42).Add(2 * time.Second)

	assert.Equal(t, []string{"-d", filepath.Join("mods", "main"), "42", "2s"}, b.List())
	assert.Equal(t, 4, b.Len())
}

func TestBuilder_AddPaths(t *testing.T) {
	sep := string(os.PathListSeparator)

	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{name: "single path", paths: []string{"deps"}, want: "deps"},
		{name: "two paths", paths: []string{"mods/main", "deps"}, want: "mods/main" + sep + "deps"},
		{name: "three paths", paths: []string{"mods/test", "mods/main", "deps"}, want: "mods/test" + sep + "mods/main" + sep + "deps"},
		{name: "no paths", paths: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New().AddPaths(tt.paths...)
			require.Equal(t, 1, b.Len(), "paths must collapse into a single token")
			assert.Equal(t, tt.want, b.List()[0])
		})
	}
}

func TestBuilder_AddAll(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"m2/Z.java", "m1/A.java", "m1/readme.txt", "m1/p/B.java"} {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("class X {}"), 0644))
	}

	b := New().Add("--module-source-path").Add(root)
	require.NoError(t, b.AddAll(root, fsutil.HasExtension(".java")))

	assert.Equal(t, []string{
		"--module-source-path",
		root,
		filepath.Join(root, "m1", "A.java"),
		filepath.Join(root, "m1", "p", "B.java"),
		filepath.Join(root, "m2", "Z.java"),
	}, b.List())
}

func TestBuilder_AddAllMissingRoot(t *testing.T) {
	b := New()
	err := b.AddAll(filepath.Join(t.TempDir(), "missing"), fsutil.HasExtension(".java"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "addAll failed for")
	assert.Equal(t, 0, b.Len())
}

func TestBuilder_ListIsCopy(t *testing.T) {
	b := New().Add("a")
	list := b.List()
	list[0] = "mutated"
	assert.Equal(t, []string{"a"}, b.List())
}
