package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddtft/cmd/ddtft/commands"
	"ddtft/internal/auth"
	"ddtft/internal/config"
)

const invoiceText = `FATTURA
FT 4904 21/05/25 10.32 20322 03247720042 01234567897
Spett.le
BAR CENTRALE SNC
VIA ROMA, 3
12042 BRA CN
070017 TAJARIN UOVO PZ 10 2,1700 21,70 04
TOTALE FATTURA 22,57
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DDTFT_JWT_SECRET", "cli-test-secret")
	cmd := commands.NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "FTV_701029_2025_20322_0004904_21052025.txt", invoiceText)

	out, err := execute(t, "extract", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"number": "4904"`)
	assert.Contains(t, out, `"validation"`)
}

func TestExtract_UndetectableDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "note.txt", "ciao mondo\nnessun documento\n")

	_, err := execute(t, "extract", path)
	assert.Error(t, err)
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.Mkdir(in, 0o700))
	writeFile(t, in, "ft_4904.txt", invoiceText)
	writeFile(t, in, "garbage.txt", "ciao mondo\n")
	csvPath := filepath.Join(dir, "out.csv")

	out, err := execute(t, "batch", "--concurrency", "2", "--csv", csvPath, in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 documents failed")
	assert.Contains(t, out, "ft_4904.txt")
	assert.Contains(t, out, "garbage.txt")

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2, "header plus the one extracted document")
	assert.Contains(t, lines[1], "4904")
}

func TestToken(t *testing.T) {
	out, err := execute(t, "token", "--subject", "operator")
	require.NoError(t, err)

	cfg, err := config.Load()
	require.NoError(t, err)
	claims, err := auth.NewJWT(&cfg.JWT).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Subject)
}
