package media

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func TestValidateRejectsOversizedBeforeSniffing(t *testing.T) {
	data := make([]byte, 25<<20)
	_, err := Validate("clip.mp4", "video/mp4", data, MaxBytes)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestValidateKinds(t *testing.T) {
	kind, err := Validate("ramp.jpg", "", jpegMagic, MaxBytes)
	require.NoError(t, err)
	assert.Equal(t, model.MediaImage, kind)

	kind, err = Validate("clip.mp4", "video/mp4", []byte("opaque video payload"), MaxBytes)
	require.NoError(t, err)
	assert.Equal(t, model.MediaVideo, kind)

	_, err = Validate("doc.pdf", "application/pdf", []byte("%PDF-1.4 ..."), MaxBytes)
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	_, err = Validate("empty.jpg", "image/jpeg", nil, MaxBytes)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestIsProprietaryEitherSignalSuffices(t *testing.T) {
	assert.True(t, IsProprietary("IMG_0042.HEIC", "application/octet-stream"))
	assert.True(t, IsProprietary("IMG_0042.heif", ""))
	assert.True(t, IsProprietary("upload.bin", "image/heic"))
	assert.True(t, IsProprietary("upload", "Image/HEIF; charset=binary"))
	assert.False(t, IsProprietary("ramp.jpg", "image/jpeg"))
}

func TestNewAssetMarksProprietaryAsUnnormalized(t *testing.T) {
	a, err := NewAsset("IMG_0042.HEIC", "", []byte("heic payload"), MaxBytes)
	require.NoError(t, err)
	assert.Equal(t, model.MediaImage, a.Kind)
	assert.False(t, a.Normalized)

	b, err := NewAsset("ramp.jpg", "", jpegMagic, MaxBytes)
	require.NoError(t, err)
	assert.True(t, b.Normalized)
	assert.Equal(t, "image/jpeg", b.ContentType)
}

type frames struct {
	out     [][]byte
	err     error
	quality int
}

func (f *frames) Convert(_ context.Context, _ []byte, _ string, quality int) ([][]byte, error) {
	f.quality = quality
	return f.out, f.err
}

func TestNormalizeUsesFirstFrameAndRenames(t *testing.T) {
	conv := &frames{out: [][]byte{jpegMagic, []byte("second frame")}}
	n := NewNormalizer(conv)

	src, err := NewAsset("IMG_0042.HEIC", "image/heic", []byte("heic payload"), MaxBytes)
	require.NoError(t, err)
	require.True(t, n.NeedsNormalization(src))

	out, err := n.Normalize(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, DefaultQuality, conv.quality)
	assert.Equal(t, "IMG_0042.jpg", out.Name)
	assert.Equal(t, model.MediaImage, out.Kind)
	assert.Equal(t, "image/jpeg", out.ContentType)
	assert.Equal(t, jpegMagic, out.Data)
	assert.Equal(t, int64(len(jpegMagic)), out.Size)
	assert.True(t, out.Normalized)
	assert.False(t, IsProprietary(out.Name, out.ContentType))
}

func TestNormalizeFailures(t *testing.T) {
	src, err := NewAsset("IMG_0042.HEIC", "", []byte("heic payload"), MaxBytes)
	require.NoError(t, err)

	_, err = NewNormalizer(&frames{err: errors.New("codec crashed")}).Normalize(context.Background(), src)
	assert.ErrorIs(t, err, ErrNormalization)

	_, err = NewNormalizer(&frames{}).Normalize(context.Background(), src)
	assert.ErrorIs(t, err, ErrNormalization)

	_, err = NewNormalizer(nil).Normalize(context.Background(), src)
	assert.ErrorIs(t, err, ErrNormalization)
}

func TestHandleReleasesOnce(t *testing.T) {
	calls := 0
	h := NewHandle("blob:1", func() { calls++ })

	a := Asset{Name: "a.jpg"}.WithHandle(h)
	a.Release()
	a.Release()
	h.Release()

	assert.Equal(t, 1, calls)
	assert.True(t, h.Released())
}

func TestTempFilesHandle(t *testing.T) {
	a, err := NewAsset("ramp.jpg", "", jpegMagic, MaxBytes)
	require.NoError(t, err)

	h, err := TempFiles{Dir: t.TempDir()}.Acquire(a)
	require.NoError(t, err)

	data, err := os.ReadFile(h.Ref())
	require.NoError(t, err)
	assert.Equal(t, jpegMagic, data)

	h.Release()
	_, err = os.Stat(h.Ref())
	assert.True(t, os.IsNotExist(err))
}

func TestParseCommand(t *testing.T) {
	c, err := ParseCommand("heif-convert -q {quality} {in} {out}")
	require.NoError(t, err)
	assert.Equal(t, "heif-convert", c.Path)
	assert.Equal(t, []string{"-q", "{quality}", "{in}", "{out}"}, c.Args)

	_, err = ParseCommand("   ")
	assert.Error(t, err)
}
