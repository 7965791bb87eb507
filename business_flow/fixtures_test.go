package businessflow

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func dataURI(mimeSubtype string, data []byte) string {
	return "data:image/" + mimeSubtype + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func noiseImage(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, noiseImage(w, h, int64(w*h))))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(buf, noiseImage(w, h, int64(w+h)), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// hugeCanvasPNG returns a 1x1 gray PNG whose header claims a w x h canvas.
// Only DecodeConfig succeeds on it; a full decode would size buffers for w*h.
func hugeCanvasPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc at 29
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func gifBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, gif.Encode(buf, noiseImage(w, h, 7), nil))
	return buf.Bytes()
}

// webpBytes is a lossless WebP container whose header declares a 1x1 image.
// Only the header is ever decoded by the uploader.
func webpBytes() []byte {
	payload := make([]byte, 100)
	payload[0] = 0x2f // VP8L signature; the following zero bits encode 1x1, no alpha, version 0

	chunk := &bytes.Buffer{}
	chunk.WriteString("VP8L")
	_ = binary.Write(chunk, binary.LittleEndian, uint32(len(payload)))
	chunk.Write(payload)

	out := &bytes.Buffer{}
	out.WriteString("RIFF")
	_ = binary.Write(out, binary.LittleEndian, uint32(4+chunk.Len()))
	out.WriteString("WEBP")
	out.Write(chunk.Bytes())
	return out.Bytes()
}

// withJPEGComment inserts a COM segment right after the SOI marker
func withJPEGComment(src []byte, comment []byte) []byte {
	out := make([]byte, 0, len(src)+len(comment)+4)
	out = append(out, src[:2]...)
	out = append(out, 0xFF, 0xFE)
	out = binary.BigEndian.AppendUint16(out, uint16(len(comment)+2))
	out = append(out, comment...)
	return append(out, src[2:]...)
}

// paddedJPEG grows a valid JPEG to exactly size bytes using comment segments
func paddedJPEG(t *testing.T, size int) []byte {
	t.Helper()
	data := jpegBytes(t, 64, 64)
	require.Less(t, len(data), size)
	for len(data) < size {
		need := size - len(data)
		n := need - 4
		if need > 65537 {
			// leave at least one full segment header for the remainder
			n = min(65533, need-8)
		}
		data = withJPEGComment(data, []byte(strings.Repeat("A", n)))
	}
	require.Equal(t, size, len(data))
	return data
}

// storedUploads lists managed image files in dir
func storedUploads(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "prod-") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
