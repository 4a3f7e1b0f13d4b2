package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseURL  string            `json:"base_url"`
	Username string            `json:"username"`
	MaxPages int               `json:"max_pages"`
	Styles   map[string]string `json:"comment_styles"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
}

func TestLocalName(t *testing.T) {
	require.Equal(t, "a/ejudge.local.json5", LocalName("a/ejudge.json5"))
	require.Equal(t, "config.local", LocalName("config"))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "ejudge.json5")

	_, err := ReadConfig[testConfig](name)
	require.ErrorIs(t, err, os.ErrNotExist)

	writeFile(t, name, `{
		// comments are allowed
		base_url: "https://judge.example",
		username: "alice",
		max_pages: 10,
		comment_styles: { ".py": "# " },
	}`)
	writeFile(t, LocalName(name), `{ username: "bob", comment_styles: { ".rs": "// " } }`)

	config, err := ReadConfig[testConfig](name)
	require.NoError(t, err)

	expected := testConfig{
		BaseURL:  "https://judge.example",
		Username: "bob",
		MaxPages: 10,
		Styles:   map[string]string{".py": "# ", ".rs": "// "},
	}
	if diff := cmp.Diff(expected, config); diff != "" {
		t.Fatal(diff)
	}
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "ejudge.json5")
	writeFile(t, name, `{ base_url: `)

	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	writeFile(t, filepath.Join(root, "ejudge-test.json5"), `{ username: "carol" }`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	config, dir, err := ReadRecursively[testConfig]("ejudge-test.json5")
	require.NoError(t, err)
	require.Equal(t, "carol", config.Username)

	resolvedRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	resolvedDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	require.Equal(t, resolvedRoot, resolvedDir)
}
