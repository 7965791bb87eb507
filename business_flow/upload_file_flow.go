package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/thisisfaizi/product-image-upload/config"
	"github.com/thisisfaizi/product-image-upload/utils"
	xdraw "golang.org/x/image/draw"
)

const previewMaxDimension = 512

// UploadFileFlow serves stored images and their previews
type UploadFileFlow interface {
	ResolveUpload(ctx context.Context, filename string) (string, string, error)
	PreviewUpload(ctx context.Context, filename string) (string, string, []byte, error)
}

// UploadFileFlowImpl implements UploadFileFlow
type UploadFileFlowImpl struct {
	uploadConfig config.UploadConfig
}

// NewUploadFileFlow creates a new upload file flow
func NewUploadFileFlow(uploadConfig config.UploadConfig) *UploadFileFlowImpl {
	return &UploadFileFlowImpl{uploadConfig: uploadConfig}
}

// ResolveUpload maps a public filename to its path and MIME type.
// Only names the uploader generates are served.
func (f *UploadFileFlowImpl) ResolveUpload(ctx context.Context, filename string) (string, string, error) {
	path, err := f.sanitizeUploadPath(filename)
	if err != nil {
		return "", "", err
	}
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return "", "", NewBusinessError("FILE_NOT_FOUND", "File not found", ErrUploadedFileNotFound)
	}
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return path, imageMimeTypes[canonicalImageType(ext)], nil
}

// PreviewUpload renders a JPEG thumbnail no larger than 512px on either side.
// Canvases above utils.MaxPreviewPixels are refused before any pixel is decoded.
func (f *UploadFileFlowImpl) PreviewUpload(ctx context.Context, filename string) (string, string, []byte, error) {
	path, _, err := f.ResolveUpload(ctx, filename)
	if err != nil {
		return "", "", nil, err
	}
	name, mime, data, err := generateImageThumbnail(path)
	if err != nil {
		return "", "", nil, NewBusinessError("PREVIEW_FAILED", "Failed to render preview", err)
	}
	return name, mime, data, nil
}

func (f *UploadFileFlowImpl) sanitizeUploadPath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || !IsManagedUploadName(filename) {
		return "", NewBusinessError("INVALID_FILENAME", "Invalid file name", ErrInvalidUploadedFileName)
	}
	base := filepath.Clean(f.uploadConfig.Dir)
	cleaned := filepath.Clean(filepath.Join(base, filename))
	if filepath.Dir(cleaned) != base {
		return "", NewBusinessError("INVALID_PATH", "path is outside allowed directory", ErrInvalidUploadedFileName)
	}
	return cleaned, nil
}

func generateImageThumbnail(srcPath string) (string, string, []byte, error) {
	file, err := os.Open(srcPath)
	if err != nil {
		return "", "", nil, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return "", "", nil, err
	}
	if int64(cfg.Width)*int64(cfg.Height) > utils.MaxPreviewPixels {
		return "", "", nil, fmt.Errorf("%w: %dx%d", ErrPreviewTooLarge, cfg.Width, cfg.Height)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", "", nil, err
	}

	img, _, err := image.Decode(file)
	if err != nil {
		return "", "", nil, err
	}

	thumb := resizeImage(img, previewMaxDimension)
	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, thumb, &jpeg.Options{Quality: 75}); err != nil {
		return "", "", nil, err
	}

	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	return base + "-preview.jpg", "image/jpeg", buf.Bytes(), nil
}

// resizeImage scales src to fit maxDim, flattening transparency onto white
func resizeImage(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	nw, nh := w, h
	if w > maxDim || h > maxDim {
		if w >= h {
			nw = maxDim
			nh = max(1, int(float64(h)*float64(maxDim)/float64(w)))
		} else {
			nh = maxDim
			nw = max(1, int(float64(w)*float64(maxDim)/float64(h)))
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
