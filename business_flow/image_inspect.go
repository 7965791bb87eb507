package businessflow

import (
	"bytes"
	"image"
	_ "image/gif"  // register GIF for DecodeConfig
	_ "image/jpeg" // register JPEG for DecodeConfig
	_ "image/png"  // register PNG for DecodeConfig
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // register WebP for DecodeConfig
)

// sniffWindow is how much of the file the content sniffers look at.
const sniffWindow = 3072

// Canonical image types. jpg and jpeg collapse to jpeg.
const (
	imageTypeJPEG = "jpeg"
	imageTypePNG  = "png"
	imageTypeGIF  = "gif"
	imageTypeWEBP = "webp"
)

var canonicalImageTypes = map[string]string{
	"jpg":        imageTypeJPEG,
	"jpeg":       imageTypeJPEG,
	"png":        imageTypePNG,
	"gif":        imageTypeGIF,
	"webp":       imageTypeWEBP,
	"image/jpeg": imageTypeJPEG,
	"image/jpg":  imageTypeJPEG,
	"image/png":  imageTypePNG,
	"image/gif":  imageTypeGIF,
	"image/webp": imageTypeWEBP,
}

var imageMimeTypes = map[string]string{
	imageTypeJPEG: "image/jpeg",
	imageTypePNG:  "image/png",
	imageTypeGIF:  "image/gif",
	imageTypeWEBP: "image/webp",
}

// canonicalImageType maps an extension, a MIME type or a decoder format name to
// one of the canonical image types. Unknown inputs map to "".
func canonicalImageType(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	v = strings.TrimPrefix(v, ".")
	return canonicalImageTypes[v]
}

// typeSignal is one independent opinion about what a file really is.
// Raw is what the check reported; Missing is set when the check could not
// identify the content at all.
type typeSignal struct {
	Name    string
	Raw     string
	Type    string
	Missing bool
}

// sniffTypeSignals runs the three type checks over the file head.
// head must start at byte 0 of the file; r must read the file from byte 0.
func sniffTypeSignals(head []byte, r io.Reader) []typeSignal {
	signals := make([]typeSignal, 0, 3)

	// (a) extension derived from content
	ext := mimetype.Detect(head).Extension()
	signals = append(signals, typeSignal{
		Name:    "content extension",
		Raw:     ext,
		Type:    canonicalImageType(ext),
		Missing: ext == "",
	})

	// (b) sniffed MIME type
	sniffed := http.DetectContentType(head)
	signals = append(signals, typeSignal{
		Name:    "sniffed mime type",
		Raw:     sniffed,
		Type:    canonicalImageType(sniffed),
		Missing: sniffed == "application/octet-stream",
	})

	// (c) image header decode
	_, format, err := image.DecodeConfig(r)
	signals = append(signals, typeSignal{
		Name:    "image header",
		Raw:     format,
		Type:    canonicalImageType(format),
		Missing: err != nil || format == "",
	})

	return signals
}

// imageDimensions reads width and height from the image header only.
func imageDimensions(r io.Reader) (int, int, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// Signatures that must never appear near the start of an uploaded image.
var (
	phpSignatures    = [][]byte{[]byte("<?php"), []byte("<?=")}
	scriptSignatures = [][]byte{
		[]byte("<script"),
		[]byte("javascript:"),
		[]byte("vbscript:"),
		[]byte("onload="),
		[]byte("onerror="),
		[]byte("eval("),
		[]byte("exec("),
		[]byte("system("),
		[]byte("shell_exec("),
		[]byte("passthru("),
	}
)

// findMaliciousSignature returns the first denylisted signature found in head.
// PHP open tags match case-sensitively, the rest case-insensitively.
func findMaliciousSignature(head []byte) (string, bool) {
	for _, sig := range phpSignatures {
		if bytes.Contains(head, sig) {
			return string(sig), true
		}
	}
	lowered := bytes.ToLower(head)
	for _, sig := range scriptSignatures {
		if bytes.Contains(lowered, sig) {
			return string(sig), true
		}
	}
	return "", false
}

// validateFilenameShape rejects double extensions and path characters.
func validateFilenameShape(name, expectedExt string) (string, bool) {
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "invalid characters in filename", false
	}
	if strings.Count(name, ".") != 1 {
		return "files with multiple extensions are not allowed", false
	}
	ext := strings.ToLower(name[strings.LastIndexByte(name, '.')+1:])
	if ext != strings.ToLower(expectedExt) {
		return "file extension (" + ext + ") does not match expected type (" + expectedExt + ")", false
	}
	return "", true
}
