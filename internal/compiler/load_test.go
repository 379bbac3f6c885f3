package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mappingsDir(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join("..", "..", "testdata", "mappings", name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Skipf("testdata/mappings/%s not found", name)
	}
	return dir
}

func writeCUE(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func requireLoadError(t *testing.T, err error, code string) *LoadError {
	t.Helper()
	require.Error(t, err)
	le, ok := IsLoadError(err)
	require.True(t, ok, "expected *LoadError, got %T", err)
	assert.Equal(t, code, le.Code)
	return le
}

func TestLoadMappings_Shop(t *testing.T) {
	res, err := LoadMappings(mappingsDir(t, "shop"))
	require.NoError(t, err)

	assert.Equal(t, 2, res.FileCount)
	assert.Len(t, res.Signature, 64)

	m := res.Metamodel
	for _, key := range []string{"Order", "Order.lineItems", "LineItem", "Customer", "Customer.orders", "Product"} {
		_, ok := m.Lookup(key)
		assert.True(t, ok, "missing descriptor %s", key)
	}
	assert.Equal(t, 6, m.Len())
	assert.Empty(t, Validate(m))
}

func TestLoadMappings_SignatureStable(t *testing.T) {
	dir := mappingsDir(t, "hr")
	first, err := LoadMappings(dir)
	require.NoError(t, err)
	second, err := LoadMappings(dir)
	require.NoError(t, err)
	assert.Equal(t, first.Signature, second.Signature)
}

func TestLoadMappings_BrokenCompilesButFailsValidation(t *testing.T) {
	res, err := LoadMappings(mappingsDir(t, "broken"))
	require.NoError(t, err)

	errs := Validate(res.Metamodel)
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrDanglingTarget, errs[0].Code)
	assert.Equal(t, "Invoice.attributes[0].target", errs[0].Field)
}

func TestLoadMappings_NotFound(t *testing.T) {
	_, err := LoadMappings("/nonexistent/mappings")
	le := requireLoadError(t, err, ErrCodeNotFound)
	assert.Contains(t, le.Message, "not found")
}

func TestLoadMappings_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "orders.cue")
	writeCUE(t, dir, "orders.cue", "package shop\n")

	_, err := LoadMappings(file)
	requireLoadError(t, err, ErrCodeNotFound)
}

func TestLoadMappings_NoFiles(t *testing.T) {
	_, err := LoadMappings(t.TempDir())
	requireLoadError(t, err, ErrCodeNoFiles)
}

func TestLoadMappings_SyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "bad.cue", "package shop\n\nentity: Order: {\n")

	_, err := LoadMappings(dir)
	requireLoadError(t, err, ErrCodeLoadFailed)
}

func TestLoadMappings_ConflictingValues(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "a.cue", "package shop\n\nentity: Order: table: \"orders\"\n")
	writeCUE(t, dir, "b.cue", "package shop\n\nentity: Order: table: \"purchases\"\n")

	_, err := LoadMappings(dir)
	requireLoadError(t, err, ErrCodeBuildFailed)
}

func TestLoadMappings_CompileError(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "orders.cue", `package shop

entity: Order: {
	table: "orders"
	attributes: [{target: "Customer"}]
}
`)

	_, err := LoadMappings(dir)
	le := requireLoadError(t, err, ErrCodeCompileFailed)
	assert.Contains(t, le.Message, "name")
}

func TestLoadMappings_NoEntities(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "empty.cue", "package shop\n\nversion: 1\n")

	_, err := LoadMappings(dir)
	requireLoadError(t, err, ErrCodeNoEntities)
}

func TestLoadErrorFormat(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in x"}
	assert.Equal(t, "E003: no CUE files found in x", err.Error())
}
