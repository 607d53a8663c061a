package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phFolio/internal/auth"
	"phFolio/internal/palette"
	"phFolio/internal/portfolio"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("THEME_CATALOG_PATH", "")
	t.Setenv("THEME_DEFAULT_ID", "")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}

func TestSlugCommand(t *testing.T) {
	out, err := execute(t, "", "slug", "Jane", "Doe", "--existing", "jane-doe,jane-doe-1")
	require.NoError(t, err)
	assert.Equal(t, "jane-doe-2\n", out)

	out, err = execute(t, "", "slug", "Café Olé")
	require.NoError(t, err)
	assert.Equal(t, "cafe-ole\n", out)
}

func TestPaletteCommand(t *testing.T) {
	out, err := execute(t, "", "palette", "#FF0000", "--steps", "3", "--json")
	require.NoError(t, err)
	var p palette.Palette
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "#FF0000", p.Primary)
	assert.Len(t, p.Shades, 3)

	out, err = execute(t, "", "palette", "#10B981")
	require.NoError(t, err)
	assert.Contains(t, out, "primary")
	assert.Contains(t, out, "#10B981")

	out, err = execute(t, "", "palette", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, palette.DefaultBase)

	_, err = execute(t, "", "palette", "#FF0000", "--steps", "0")
	assert.Error(t, err)
}

func TestThemesCommand(t *testing.T) {
	out, err := execute(t, "", "themes", "--default-theme", "ocean")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "ocean") {
			assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "*"))
		}
	}

	_, err = execute(t, "", "themes", "--default-theme", "missing")
	assert.Error(t, err)
}

func TestRenderCommand(t *testing.T) {
	out, err := execute(t, "", "render", "--viewport", "mobile")
	require.NoError(t, err)
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, `data-viewport="mobile"`)

	doc := portfolio.New("from-stdin", "midnight")
	doc.AddSection(portfolio.NewSection(portfolio.AboutData{Bio: "Hi from stdin"}))
	raw, err := doc.Encode()
	require.NoError(t, err)

	out, err = execute(t, string(raw), "render", "-", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"themeId": "midnight"`)
	assert.Contains(t, out, "Hi from stdin")

	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	out, err = execute(t, "", "render", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Hi from stdin")

	_, err = execute(t, "", "render", "--viewport", "watch")
	assert.Error(t, err)
}

func TestSeedTemplatesDryRun(t *testing.T) {
	out, err := execute(t, "", "seed-templates", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "(theme default)")
	assert.Contains(t, out, "(theme ocean)")
}

func TestTokenCommand(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "private.pem")
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(keyPath, privatePEM, 0o600))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	out, err := execute(t, "", "token", "--key", keyPath, "--issuer", "phfolio-dev", "--user", "7", "--username", "jane")
	require.NoError(t, err)

	verifier, err := auth.NewVerifier(publicPEM, "phfolio-dev")
	require.NoError(t, err)
	claims, err := verifier.ValidateAccessToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "jane", claims.Username)

	_, err = execute(t, "", "token", "--key", filepath.Join(dir, "missing.pem"))
	assert.Error(t, err)
}
