package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/jartrack/internal/domain"
)

// cli runs jartrack commands against one database in a temp dir.
type cli struct {
	t      *testing.T
	dbPath string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("JARTRACK_IMAGE_PATH", filepath.Join(dir, "images"))
	t.Setenv("JARTRACK_LOG_LEVEL", "error")
	return &cli{t: t, dbPath: filepath.Join(dir, "jartrack.db")}
}

func (c *cli) runWithInput(stdin string, args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"--db", c.dbPath}, args...), strings.NewReader(stdin), &out)
	return out.String(), err
}

func (c *cli) run(args ...string) string {
	c.t.Helper()
	out, err := c.runWithInput("", args...)
	require.NoError(c.t, err, out)
	return out
}

func (c *cli) runJSON(v any, args ...string) {
	c.t.Helper()
	out := c.run(append([]string{"--json"}, args...)...)
	require.NoError(c.t, json.Unmarshal([]byte(out), v), out)
}

func TestBatchLifecycle(t *testing.T) {
	c := newCLI(t)

	var b domain.Batch
	c.runJSON(&b, "batch", "add", "Strawberry Jam", "--qty", "3", "--date", "2024-07-01", "--category", "jams", "--size", "8 oz")
	require.Len(t, b.JarIDs, 3)
	assert.Equal(t, "jams", b.Category)

	out := c.run("batch", "list")
	assert.Contains(t, out, "Strawberry Jam")
	assert.Contains(t, out, "3/3")

	out = c.run("jar", "use", itoa(b.JarIDs[0]))
	assert.Contains(t, out, "marked as used")
	out = c.run("jar", "use", itoa(b.JarIDs[0]))
	assert.Contains(t, out, "already used")

	var extended domain.Batch
	c.runJSON(&extended, "batch", "extend", b.BatchID, "--qty", "2")
	assert.Equal(t, 5, extended.TotalJars)
	assert.Equal(t, 4, extended.AvailableJars)

	out = c.run("batch", "update", b.BatchID, "--location", "Cellar")
	assert.Contains(t, out, "Updated batch")
	out = c.run("stats", "locations")
	assert.Contains(t, out, "Cellar")

	out = c.run("batch", "delete", b.BatchID)
	assert.Contains(t, out, "5 jar(s)")
	assert.Contains(t, c.run("batch", "list"), "No batches found.")
}

func TestScanFromStdin(t *testing.T) {
	c := newCLI(t)
	var b domain.Batch
	c.runJSON(&b, "batch", "add", "Salsa", "--qty", "2", "--date", "2024-08-01")

	payload := strings.TrimSpace(c.run("jar", "label", itoa(b.JarIDs[1])))
	assert.Contains(t, payload, `"jartrack-jar"`)

	out, err := c.runWithInput(payload+"\n", "jar", "scan", "--use")
	require.NoError(t, err)
	assert.Contains(t, out, "marked as used")
	assert.Contains(t, out, "1 left in batch")

	out, err = c.runWithInput("hello", "jar", "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "Not a jar label.")
}

func TestTaxonomyCommands(t *testing.T) {
	c := newCLI(t)

	out := c.run("category", "list")
	assert.Contains(t, out, "jams")
	assert.Contains(t, out, "default")

	c.run("category", "add", "Ferments", "--icon", "F")
	c.run("batch", "add", "Kimchi", "--category", "Ferments", "--qty", "1", "--date", "2024-10-01")

	_, err := c.runWithInput("", "category", "delete", "9")
	assert.ErrorIs(t, err, domain.ErrInUse)
	assert.Equal(t, exitUserError, exitCode(err))

	out = c.run("category", "delete", "9", "--reassign-to", "4")
	assert.Contains(t, out, "moving 1 reference(s)")

	c.run("size", "add", "Jelly 6oz")
	out = c.run("size", "toggle", "8")
	assert.Contains(t, out, "hidden")
	assert.NotContains(t, c.run("size", "list"), "Jelly 6oz")
	assert.Contains(t, c.run("size", "list", "--all"), "Jelly 6oz")
}

func TestRecipeCommands(t *testing.T) {
	c := newCLI(t)

	var r domain.Recipe
	c.runJSON(&r, "recipe", "add", "Grandma's Salsa", "--content", "tomatoes, peppers")
	var b domain.Batch
	c.runJSON(&b, "batch", "add", "Salsa", "--qty", "2", "--date", "2024-08-01", "--recipe", itoa(r.ID))

	out := c.run("recipe", "for-batch", b.BatchID)
	assert.Contains(t, out, "tomatoes, peppers")
	assert.Contains(t, out, "(recipe)")

	c.run("recipe", "override", b.BatchID, "--text", "double the garlic")
	out = c.run("recipe", "for-batch", b.BatchID)
	assert.Contains(t, out, "double the garlic")
	assert.Contains(t, out, "(batch)")

	img := filepath.Join(t.TempDir(), "salsa.png")
	require.NoError(t, os.WriteFile(img, []byte("png bytes"), 0o600))
	c.run("recipe", "image", "set", itoa(r.ID), img)
	out = c.run("recipe", "image", "get", itoa(r.ID), "-")
	assert.Equal(t, "png bytes", out)
}

func TestBackupRoundTrip(t *testing.T) {
	src := newCLI(t)
	src.run("batch", "add", "Peach Jam", "--qty", "4", "--date", "2024-07-15", "--category", "jams")
	path := filepath.Join(t.TempDir(), "backup.json")
	assert.Contains(t, src.run("backup", "export", path), "Backup written")

	dst := newCLI(t)
	out := dst.run("backup", "import", path)
	assert.Contains(t, out, "1 item type(s) and 4 jar(s)")
	assert.Contains(t, dst.run("batch", "list"), "Peach Jam")

	exported := src.run("backup", "export")
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(exported), &doc))
	assert.Len(t, doc["jars"], 4)

	_, err := dst.runWithInput(`{"itemTypes": []}`, "backup", "import")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, dst.run("batch", "list"), "Peach Jam")
}

func TestMetricsFile(t *testing.T) {
	c := newCLI(t)
	metricsPath := filepath.Join(t.TempDir(), "jartrack.prom")

	c.run("--metrics-file", metricsPath, "batch", "add", "Relish", "--qty", "5", "--date", "2024-09-01")

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "jartrack_jars_created_total 5")
}

func TestVersionDoesNotOpenDatabase(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"--db", "/nonexistent/dir/x.db", "version"}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "jartrack")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitUserError, exitCode(domain.NotFound("jar", 1)))
	assert.Equal(t, exitSysError, exitCode(domain.StorageUnavailable(os.ErrClosed)))
}
