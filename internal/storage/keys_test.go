package storage

import (
	"errors"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportKeys(t *testing.T) {
	key := NewExportKey(7, "0190c1f2-0000-7000-8000-000000000001")
	assert.True(t, strings.HasPrefix(key, "exports/7/0190c1f2-0000-7000-8000-000000000001/"))
	assert.True(t, strings.HasSuffix(key, ".json"))
	assert.NotEqual(t, key, NewExportKey(7, "0190c1f2-0000-7000-8000-000000000001"))

	assert.True(t, OwnsKey(7, key))
	assert.False(t, OwnsKey(8, key))
	assert.False(t, OwnsKey(7, "exports/7/../8/x.json"))
	assert.False(t, OwnsKey(7, "exports/70/x.json"))
}

func TestTemplatePreviewKey(t *testing.T) {
	key := NewTemplatePreviewKey(3, "desktop")
	assert.True(t, strings.HasPrefix(key, "templates/3/desktop-"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}

func TestIsNoSuchKey(t *testing.T) {
	assert.False(t, IsNoSuchKey(nil))
	assert.True(t, IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, IsNoSuchKey(errors.New("The specified key does not exist.")))
	assert.False(t, IsNoSuchKey(minio.ErrorResponse{Code: "AccessDenied", Message: "denied"}))

	assert.True(t, IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchBucket"}))
	assert.False(t, IsNoSuchBucket(errors.New("timeout")))
}

func TestPortfolioPreviewKeyUnderExportPrefix(t *testing.T) {
	key := NewPortfolioPreviewKey(7, "p1")
	assert.True(t, strings.HasPrefix(key, ExportPrefix(7, "p1")+"preview-"))
	assert.True(t, OwnsKey(7, key))
}

func TestExportPDFKey(t *testing.T) {
	key := NewExportPDFKey(7, "p1")
	assert.True(t, strings.HasPrefix(key, ExportPrefix(7, "p1")))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.True(t, OwnsKey(7, key))
	assert.False(t, OwnsKey(8, key))
}

func TestParseBucketLookup(t *testing.T) {
	for raw, want := range map[string]minio.BucketLookupType{
		"":      minio.BucketLookupAuto,
		" Auto": minio.BucketLookupAuto,
		"dns":   minio.BucketLookupDNS,
		"PATH":  minio.BucketLookupPath,
	} {
		got, err := parseBucketLookup(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := parseBucketLookup("virtual")
	assert.Error(t, err)
}
