package validator

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanRG-20221039/paulofraire-media/internal/models"
)

// fakePending is a mock implementation of PendingState
type fakePending struct {
	count int
	bytes int64
}

func (p *fakePending) Count() int        { return p.count }
func (p *fakePending) TotalBytes() int64 { return p.bytes }

// pngFile encodes a real PNG of the given dimensions
func pngFile(t *testing.T, name string, width, height int) *models.LocalFile {
	t.Helper()

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	require.NoError(t, png.Encode(&buf, img))

	return models.NewBytesFile(name, "image/png", buf.Bytes())
}

// sizedFile declares a size without backing bytes; size checks only read
// the declared size
func sizedFile(name, mimeType string, size int64) *models.LocalFile {
	return &models.LocalFile{Name: name, MimeType: mimeType, SizeBytes: size}
}

func TestValidateFileType(t *testing.T) {
	allowed := []string{"image/jpeg", "image/png"}

	assert.Nil(t, ValidateFileType(sizedFile("a.png", "image/png", 1), allowed))

	rej := ValidateFileType(sizedFile("a.pdf", "application/pdf", 1), allowed)
	require.NotNil(t, rej)
	typeRej, ok := rej.(*models.TypeRejected)
	require.True(t, ok)
	assert.Equal(t, "a.pdf", typeRej.FileName)
	assert.Equal(t, "application/pdf", typeRej.MimeType)
	assert.Contains(t, rej.Message(), "application/pdf")
}

func TestValidateFileSize(t *testing.T) {
	limit := int64(3 << 20)

	assert.Nil(t, ValidateFileSize(sizedFile("icon.png", "image/png", limit), limit),
		"a file exactly at the limit is accepted")

	rej := ValidateFileSize(sizedFile("icon.png", "image/png", limit+1), limit)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Message(), "icon.png")
	assert.Contains(t, rej.Message(), "3MB")
}

func TestValidateImageAspect(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		height    int
		target    float64
		tolerance float64
		accepted  bool
	}{
		{name: "exact 3:2 ratio", width: 900, height: 600, target: 1.5, tolerance: 0.01, accepted: true},
		{name: "ratio outside tolerance", width: 1000, height: 600, target: 1.5, tolerance: 0.01, accepted: false},
		{name: "ratio at inclusive boundary", width: 175, height: 100, target: 1.5, tolerance: 0.25, accepted: true},
		{name: "square within tolerance", width: 101, height: 100, target: 1.0, tolerance: 0.02, accepted: true},
		{name: "square outside tolerance", width: 105, height: 100, target: 1.0, tolerance: 0.02, accepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := pngFile(t, "img.png", tt.width, tt.height)
			rej := ValidateImageAspect(f, tt.target, tt.tolerance)

			if tt.accepted {
				assert.Nil(t, rej)
				return
			}
			require.NotNil(t, rej)
			aspectRej, ok := rej.(*models.AspectRejected)
			require.True(t, ok)
			assert.Equal(t, tt.target, aspectRej.Target)
		})
	}
}

func TestValidateImageAspect_UndecodableIsTypeRejection(t *testing.T) {
	f := models.NewBytesFile("broken.png", "image/png", []byte("not an image"))

	rej := ValidateImageAspect(f, 1.5, 0.01)
	require.NotNil(t, rej)
	typeRej, ok := rej.(*models.TypeRejected)
	require.True(t, ok)
	assert.True(t, typeRej.Undecodable)
}

func TestValidateBatch_CountCeiling(t *testing.T) {
	rules := Rules{
		AllowedMimeTypes: []string{"image/png"},
		MaxFileBytes:     20 << 20,
		MaxTotalBytes:    200 << 20,
		MaxCount:         10,
	}
	pending := &fakePending{count: 9}

	files := []*models.LocalFile{
		sizedFile("a.png", "image/png", 1024),
		sizedFile("b.png", "image/png", 1024),
	}

	rej := ValidateBatch(files, pending, rules)
	require.NotNil(t, rej)
	batchRej, ok := rej.(*models.BatchRejected)
	require.True(t, ok)
	assert.True(t, batchRej.CountExceeded)
	assert.Equal(t, 10, batchRej.MaxCount)
	assert.Equal(t, 11, batchRej.ActualCount)
}

func TestValidateBatch_AggregateCeiling(t *testing.T) {
	// 190MB already staged, incoming 15MB, cap 200MB: the whole batch is
	// refused and the rejection names the cap
	rules := Rules{
		AllowedMimeTypes: []string{"image/png"},
		MaxFileBytes:     20 << 20,
		MaxTotalBytes:    200 << 20,
		MaxCount:         100,
	}
	pending := &fakePending{count: 12, bytes: 190 << 20}

	rej := ValidateBatch([]*models.LocalFile{sizedFile("big.png", "image/png", 15<<20)}, pending, rules)
	require.NotNil(t, rej)
	batchRej, ok := rej.(*models.BatchRejected)
	require.True(t, ok)
	assert.True(t, batchRej.AggregateExceeded)
	assert.Equal(t, int64(200<<20), batchRej.MaxTotalBytes)
	assert.Contains(t, rej.Message(), "200MB")
}

func TestValidateBatch_OversizeFilesEnumerated(t *testing.T) {
	rules := Rules{
		AllowedMimeTypes: []string{"image/png"},
		MaxFileBytes:     20 << 20,
		MaxTotalBytes:    200 << 20,
		MaxCount:         10,
	}

	files := []*models.LocalFile{
		sizedFile("ok.png", "image/png", 1<<20),
		sizedFile("big1.png", "image/png", 21<<20),
		sizedFile("big2.png", "image/png", 25<<20),
	}

	rej := ValidateBatch(files, &fakePending{}, rules)
	require.NotNil(t, rej)
	sizeRej, ok := rej.(*models.SizeRejected)
	require.True(t, ok, "per-file oversize is distinct from the aggregate rejection")
	assert.Equal(t, []string{"big1.png", "big2.png"}, sizeRej.FileNames)
}

func TestValidateBatch_TypeCheckedBeforeSize(t *testing.T) {
	rules := Rules{
		AllowedMimeTypes: []string{"image/png"},
		MaxFileBytes:     1 << 20,
		MaxTotalBytes:    10 << 20,
		MaxCount:         10,
	}

	// The file fails both gates; the fixed ordering reports the type first
	rej := ValidateBatch([]*models.LocalFile{sizedFile("a.exe", "application/octet-stream", 5<<20)}, &fakePending{}, rules)
	require.NotNil(t, rej)
	_, ok := rej.(*models.TypeRejected)
	assert.True(t, ok)
}

func TestValidateBatch_AspectGateApplied(t *testing.T) {
	rules := Rules{
		AllowedMimeTypes: []string{"image/png"},
		MaxFileBytes:     20 << 20,
		MaxTotalBytes:    200 << 20,
		MaxCount:         10,
		AspectRatio:      1.5,
		AspectTolerance:  0.01,
	}

	good := pngFile(t, "good.png", 900, 600)
	bad := pngFile(t, "bad.png", 1000, 600)

	assert.Nil(t, ValidateBatch([]*models.LocalFile{good}, &fakePending{}, rules))

	rej := ValidateBatch([]*models.LocalFile{good, bad}, &fakePending{}, rules)
	require.NotNil(t, rej)
	_, ok := rej.(*models.AspectRejected)
	assert.True(t, ok, "one bad aspect rejects the whole batch")
}

func TestValidateBatch_AcceptsWithinAllCeilings(t *testing.T) {
	rules := Rules{
		AllowedMimeTypes: []string{"image/png", "image/jpeg"},
		MaxFileBytes:     20 << 20,
		MaxTotalBytes:    200 << 20,
		MaxCount:         10,
	}
	pending := &fakePending{count: 3, bytes: 50 << 20}

	files := []*models.LocalFile{
		sizedFile("a.png", "image/png", 10<<20),
		sizedFile("b.jpg", "image/jpeg", 10<<20),
	}

	assert.Nil(t, ValidateBatch(files, pending, rules))
}
