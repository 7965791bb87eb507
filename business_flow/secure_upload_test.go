package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisfaizi/product-image-upload/utils"
)

type uploaderFixture struct {
	uploader *SecureUploaderImpl
	auditor  *recordingAuditor
	dir      string
	scratch  string
}

func newUploaderFixture(t *testing.T, allowed []string, failClosed bool) *uploaderFixture {
	t.Helper()
	root := t.TempDir()
	fx := &uploaderFixture{
		auditor: &recordingAuditor{},
		dir:     filepath.Join(root, "uploads"),
		scratch: filepath.Join(root, "scratch"),
	}
	require.NoError(t, os.MkdirAll(fx.scratch, 0o700))
	fx.uploader = NewSecureUploader(SecureUploaderOptions{
		Dir:                       fx.dir,
		PublicBaseURL:             "https://shop.example/uploads/",
		ScratchDir:                fx.scratch,
		AllowedTypes:              allowed,
		FailClosedOnMissingSignal: failClosed,
		Auditor:                   fx.auditor,
	})
	return fx
}

func (fx *uploaderFixture) assertScratchEmpty(t *testing.T) {
	t.Helper()
	assert.Empty(t, dirEntries(t, fx.scratch), "scratch files must never outlive a call")
}

var guest = SubmitterContext{AnonymousToken: "guest_0123456789ab"}

func TestProcessImage_StoresValidJPEG(t *testing.T) {
	fx := newUploaderFixture(t, []string{"jpg", "png"}, true)
	fx.uploader.Configure(1048576, nil)

	data := paddedJPEG(t, 500*1024)
	artifact, err := fx.uploader.ProcessImage(context.Background(), dataURI("jpg", data), 0, 42, guest, "203.0.113.7")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^prod-42-\d+-[A-Za-z0-9]{32}-0\.jpg$`), artifact.Filename)
	assert.Equal(t, filepath.Join(fx.dir, artifact.Filename), artifact.Path)
	assert.Equal(t, "https://shop.example/uploads/"+artifact.Filename, artifact.URL)
	assert.Equal(t, "image/jpeg", artifact.MimeType)
	assert.Equal(t, int64(len(data)), artifact.Size)
	assert.Equal(t, 64, artifact.Width)
	assert.Equal(t, 64, artifact.Height)

	stored, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, stored), "stored bytes must equal the decoded payload")

	st, err := os.Stat(artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), st.Mode().Perm())

	attempts := fx.auditor.all()
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)
	assert.Equal(t, uint(42), attempts[0].ProductID)
	assert.Equal(t, artifact.Filename, attempts[0].Filename)
	assert.Equal(t, "203.0.113.7", attempts[0].IPAddress)

	fx.assertScratchEmpty(t)
}

func TestProcessImage_AcceptsEverySupportedType(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		data     func(t *testing.T) []byte
		ext      string
	}{
		{"png", "png", func(t *testing.T) []byte { return pngBytes(t, 32, 32) }, "png"},
		{"jpeg declared as jpeg", "jpeg", func(t *testing.T) []byte { return jpegBytes(t, 32, 32) }, "jpeg"},
		{"jpeg declared as jpg", "jpg", func(t *testing.T) []byte { return jpegBytes(t, 32, 32) }, "jpg"},
		{"gif", "gif", func(t *testing.T) []byte { return gifBytes(t, 16, 16) }, "gif"},
		{"webp", "webp", func(*testing.T) []byte { return webpBytes() }, "webp"},
		{"upper case declared type", "PNG", func(t *testing.T) []byte { return pngBytes(t, 32, 32) }, "png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newUploaderFixture(t, nil, true)
			artifact, err := fx.uploader.ProcessImage(context.Background(), dataURI(tt.declared, tt.data(t)), 3, 7, guest, "198.51.100.1")
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(artifact.Filename, "-3."+tt.ext), artifact.Filename)
			assert.Len(t, storedUploads(t, fx.dir), 1)
			fx.assertScratchEmpty(t)
		})
	}
}

func TestProcessImage_RejectsOversizedPNG(t *testing.T) {
	fx := newUploaderFixture(t, []string{"jpg", "png"}, true)
	fx.uploader.Configure(1048576, nil)

	data := append(pngBytes(t, 64, 64), make([]byte, 2*1024*1024)...)
	_, err := fx.uploader.ProcessImage(context.Background(), dataURI("png", data), 0, 42, guest, "203.0.113.7")
	require.Error(t, err)
	assert.True(t, IsUploadErrorKind(err, UploadErrSizeViolation))

	ue, ok := AsUploadError(err)
	require.True(t, ok)
	assert.Contains(t, ue.Message, "exceeds maximum allowed size (1.0 MiB)")

	assert.Empty(t, storedUploads(t, fx.dir))
	attempts := fx.auditor.all()
	require.Len(t, attempts, 1)
	assert.False(t, attempts[0].Success)
	assert.Equal(t, uint(42), attempts[0].ProductID)
	assert.Contains(t, attempts[0].ErrorDetail, "1048576")
	assert.Contains(t, attempts[0].ErrorDetail, utils.SizeFormat(1048576))
	fx.assertScratchEmpty(t)
}

func TestProcessImage_RejectsTinyPayloadRegardlessOfType(t *testing.T) {
	for _, declared := range []string{"png", "jpg", "jpeg", "gif", "webp"} {
		t.Run(declared, func(t *testing.T) {
			fx := newUploaderFixture(t, nil, true)
			_, err := fx.uploader.ProcessImage(context.Background(), dataURI(declared, bytes.Repeat([]byte{0x89}, 99)), 0, 1, guest, "")
			assert.True(t, IsUploadErrorKind(err, UploadErrSizeViolation), "got %v", err)
			fx.assertScratchEmpty(t)
		})
	}
}

func TestProcessImage_RejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  UploadErrorKind
	}{
		{"empty", "", UploadErrInvalidFormat},
		{"not a data uri", "https://evil.example/a.png", UploadErrInvalidFormat},
		{"unsupported type", "data:image/bmp;base64,Qk0=", UploadErrInvalidFormat},
		{"svg", "data:image/svg+xml;base64,PHN2Zz4=", UploadErrInvalidFormat},
		{"missing base64 marker", "data:image/png,abcd", UploadErrInvalidFormat},
		{"upper case scheme", "DATA:IMAGE/PNG;BASE64,iVBORw0KGgo=", UploadErrInvalidFormat},
		{"mixed case scheme", "Data:image/png;base64,iVBORw0KGgo=", UploadErrInvalidFormat},
		{"leading whitespace", " data:image/png;base64,iVBORw0KGgo=", UploadErrInvalidFormat},
		{"bad base64", "data:image/png;base64,@@@not-base64@@@", UploadErrDecodeFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newUploaderFixture(t, nil, true)
			_, err := fx.uploader.ProcessImage(context.Background(), tt.input, 1, 5, guest, "")
			require.Error(t, err)
			assert.True(t, IsUploadErrorKind(err, tt.kind), "got %v", err)
			ue, _ := AsUploadError(err)
			assert.Equal(t, 1, ue.Index)
			assert.Len(t, fx.auditor.all(), 1)
		})
	}
}

func TestProcessImage_RejectsTypeMismatch(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		data     func(t *testing.T) []byte
	}{
		{"png declared as jpeg", "jpeg", func(t *testing.T) []byte { return pngBytes(t, 32, 32) }},
		{"jpeg declared as png", "png", func(t *testing.T) []byte { return jpegBytes(t, 32, 32) }},
		{"gif declared as webp", "webp", func(t *testing.T) []byte { return gifBytes(t, 16, 16) }},
		{"script declared as png", "png", func(*testing.T) []byte {
			return []byte(strings.Repeat("#!/bin/sh\necho pwned\n", 10))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newUploaderFixture(t, nil, true)
			_, err := fx.uploader.ProcessImage(context.Background(), dataURI(tt.declared, tt.data(t)), 0, 9, guest, "")
			assert.True(t, IsUploadErrorKind(err, UploadErrTypeMismatch), "got %v", err)
			assert.Empty(t, storedUploads(t, fx.dir))
			fx.assertScratchEmpty(t)
		})
	}
}

func TestProcessImage_RejectsTypeOutsideProductPolicy(t *testing.T) {
	fx := newUploaderFixture(t, []string{"png"}, true)
	_, err := fx.uploader.ProcessImage(context.Background(), dataURI("jpeg", jpegBytes(t, 32, 32)), 0, 9, guest, "")
	assert.True(t, IsUploadErrorKind(err, UploadErrTypeMismatch), "got %v", err)

	// jpg and jpeg are interchangeable in a policy
	fx = newUploaderFixture(t, []string{"jpg"}, true)
	_, err = fx.uploader.ProcessImage(context.Background(), dataURI("jpeg", jpegBytes(t, 32, 32)), 0, 9, guest, "")
	assert.NoError(t, err)
}

func TestProcessImage_MissingSignal(t *testing.T) {
	// SOI followed by a comment and no frame: content sniffers say JPEG, the header decode finds nothing
	headerless := []byte{0xFF, 0xD8}
	headerless = append(headerless, 0xFF, 0xFE, 0x00, 0xCA)
	headerless = append(headerless, bytes.Repeat([]byte("A"), 200)...)

	t.Run("fail closed", func(t *testing.T) {
		fx := newUploaderFixture(t, nil, true)
		_, err := fx.uploader.ProcessImage(context.Background(), dataURI("jpeg", headerless), 0, 1, guest, "")
		assert.True(t, IsUploadErrorKind(err, UploadErrTypeMismatch), "got %v", err)
		assert.Empty(t, storedUploads(t, fx.dir))
	})

	t.Run("fail open skips the missing signal", func(t *testing.T) {
		fx := newUploaderFixture(t, nil, false)
		artifact, err := fx.uploader.ProcessImage(context.Background(), dataURI("jpeg", headerless), 0, 1, guest, "")
		require.NoError(t, err)
		assert.Zero(t, artifact.Width)
	})

	t.Run("fail open still rejects disagreeing signals", func(t *testing.T) {
		fx := newUploaderFixture(t, nil, false)
		_, err := fx.uploader.ProcessImage(context.Background(), dataURI("png", jpegBytes(t, 16, 16)), 0, 1, guest, "")
		assert.True(t, IsUploadErrorKind(err, UploadErrTypeMismatch), "got %v", err)
	})
}

func TestProcessImage_DetectsMaliciousSignatures(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		message string
	}{
		{"php open tag", "<?php system($_GET['c']); ?>", "executable code"},
		{"php short echo", "<?= `id` ?>", "executable code"},
		{"mixed case script", "<ScRiPt>alert(1)</script>", "malicious content"},
		{"event handler", "x onerror=alert(1)", "malicious content"},
		{"shell exec", "SHELL_EXEC('rm -rf /')", "malicious content"},
		{"javascript url", "JavaScript:alert(1)", "malicious content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newUploaderFixture(t, nil, true)
			data := withJPEGComment(jpegBytes(t, 32, 32), []byte(tt.comment))
			_, err := fx.uploader.ProcessImage(context.Background(), dataURI("jpeg", data), 0, 3, guest, "")
			require.Error(t, err)
			assert.True(t, IsUploadErrorKind(err, UploadErrMaliciousContent), "got %v", err)
			ue, _ := AsUploadError(err)
			assert.Contains(t, ue.Message, tt.message)
			assert.Empty(t, storedUploads(t, fx.dir))
			fx.assertScratchEmpty(t)
		})
	}
}

func TestProcessImage_ScansOnlyLeadingKilobyte(t *testing.T) {
	fx := newUploaderFixture(t, nil, true)
	data := jpegBytes(t, 32, 32)
	data = withJPEGComment(data, []byte("eval(payload)"))
	data = withJPEGComment(data, bytes.Repeat([]byte("A"), 2000))

	_, err := fx.uploader.ProcessImage(context.Background(), dataURI("jpeg", data), 0, 3, guest, "")
	assert.NoError(t, err)
}

func TestProcessImage_Resolution(t *testing.T) {
	tests := []struct {
		name   string
		policy ResolutionPolicy
		w, h   int
		ok     bool
	}{
		{"below min width", ResolutionPolicy{MinWidth: 800}, 799, 10, false},
		{"exactly min width", ResolutionPolicy{MinWidth: 800}, 800, 10, true},
		{"below min height", ResolutionPolicy{MinHeight: 20}, 30, 19, false},
		{"above max width", ResolutionPolicy{MaxWidth: 100}, 101, 10, false},
		{"exactly max width", ResolutionPolicy{MaxWidth: 100}, 100, 10, true},
		{"above max height", ResolutionPolicy{MaxHeight: 50}, 10, 51, false},
		{"zero bounds are unbounded", ResolutionPolicy{}, 900, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newUploaderFixture(t, nil, true)
			policy := tt.policy
			fx.uploader.Configure(utils.DefaultMaxFileSize, &policy)
			_, err := fx.uploader.ProcessImage(context.Background(), dataURI("png", pngBytes(t, tt.w, tt.h)), 0, 11, guest, "")
			if tt.ok {
				assert.NoError(t, err)
				assert.Len(t, storedUploads(t, fx.dir), 1)
				return
			}
			assert.True(t, IsUploadErrorKind(err, UploadErrResolution), "got %v", err)
			assert.Empty(t, storedUploads(t, fx.dir))
		})
	}
}

func TestConfigure_ClampsLimits(t *testing.T) {
	fx := newUploaderFixture(t, nil, true)
	fx.uploader.Configure(10, &ResolutionPolicy{MinWidth: -5, MinHeight: 20000, MaxWidth: 10001, MaxHeight: 300})

	info := fx.uploader.UploadInfo()
	assert.Equal(t, int64(1024), info.MaxFileSize)
	require.NotNil(t, info.Resolution)
	assert.Equal(t, ResolutionPolicy{MinWidth: 0, MinHeight: 10000, MaxWidth: 10000, MaxHeight: 300}, *info.Resolution)

	fx.uploader.Configure(2048, nil)
	info = fx.uploader.UploadInfo()
	assert.Equal(t, int64(2048), info.MaxFileSize)
	assert.Nil(t, info.Resolution)
}

func TestGenerateFilename_Unique(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	u := NewSecureUploader(SecureUploaderOptions{Dir: t.TempDir(), Now: func() time.Time { return fixed }})

	seen := make(map[string]struct{}, 10000)
	for i := range 10000 {
		name := u.generateFilename(42, i%9, "png")
		require.True(t, IsManagedUploadName(name), name)
		require.True(t, strings.HasPrefix(name, fmt.Sprintf("prod-42-%d-", fixed.Unix())))
		_, dup := seen[name]
		require.False(t, dup, "duplicate filename %s", name)
		seen[name] = struct{}{}
	}
}

func TestProcessImage_ShortInjectedToken(t *testing.T) {
	root := t.TempDir()
	scratch := filepath.Join(root, "scratch")
	require.NoError(t, os.MkdirAll(scratch, 0o700))
	u := NewSecureUploader(SecureUploaderOptions{
		Dir:        filepath.Join(root, "uploads"),
		ScratchDir: scratch,
		Token:      func() string { return "abc" },
	})

	artifact, err := u.ProcessImage(context.Background(), dataURI("png", pngBytes(t, 20, 20)), 0, 42, guest, "")
	require.NoError(t, err)
	assert.Contains(t, artifact.Filename, "-abc-0.png")
	assert.Empty(t, dirEntries(t, scratch))

	assert.Len(t, u.scratchToken(), scratchNameLen)
}

func TestProcessImage_SameInputDifferentIndex(t *testing.T) {
	fx := newUploaderFixture(t, nil, true)
	uri := dataURI("png", pngBytes(t, 20, 20))

	a, err := fx.uploader.ProcessImage(context.Background(), uri, 0, 42, guest, "")
	require.NoError(t, err)
	b, err := fx.uploader.ProcessImage(context.Background(), uri, 1, 42, guest, "")
	require.NoError(t, err)

	assert.NotEqual(t, a.Filename, b.Filename)
	assert.Len(t, storedUploads(t, fx.dir), 2)
}

func TestCleanup(t *testing.T) {
	fx := newUploaderFixture(t, nil, true)
	a, err := fx.uploader.ProcessImage(context.Background(), dataURI("png", pngBytes(t, 20, 20)), 0, 1, guest, "")
	require.NoError(t, err)
	b, err := fx.uploader.ProcessImage(context.Background(), dataURI("gif", gifBytes(t, 20, 20)), 1, 1, guest, "")
	require.NoError(t, err)

	removed := fx.uploader.Cleanup([]string{a.Path, b.Path, filepath.Join(fx.dir, "prod-1-1-missing-9.png"), ""})
	assert.Equal(t, 2, removed)
	assert.Empty(t, storedUploads(t, fx.dir))
}

func TestEnsureSecureDirectory(t *testing.T) {
	fx := newUploaderFixture(t, nil, true)

	require.NoError(t, fx.uploader.EnsureSecureDirectory())
	require.NoError(t, fx.uploader.EnsureSecureDirectory())

	st, err := os.Stat(fx.dir)
	require.NoError(t, err)
	assert.True(t, st.IsDir())

	index, err := os.ReadFile(filepath.Join(fx.dir, "index.html"))
	require.NoError(t, err)
	assert.Empty(t, index)

	ht, err := os.ReadFile(filepath.Join(fx.dir, ".htaccess"))
	require.NoError(t, err)
	assert.Contains(t, string(ht), "Options -Indexes")
	assert.Contains(t, string(ht), `\.(php|php3|php4|php5|phtml|pl|py|jsp|asp|sh|cgi)$`)
	assert.Contains(t, string(ht), `\.(jpg|jpeg|png|gif|webp)$`)

	// a removed descriptor is restored on the next call
	require.NoError(t, os.Remove(filepath.Join(fx.dir, ".htaccess")))
	assert.False(t, fx.uploader.UploadInfo().Hardened)
	require.NoError(t, fx.uploader.EnsureSecureDirectory())
	assert.True(t, fx.uploader.UploadInfo().Hardened)
}

func TestUploadInfo_CountsOnlyManagedFiles(t *testing.T) {
	fx := newUploaderFixture(t, nil, true)
	a, err := fx.uploader.ProcessImage(context.Background(), dataURI("png", pngBytes(t, 20, 20)), 0, 1, guest, "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(fx.dir, "notes.txt"), []byte("x"), 0o644))

	info := fx.uploader.UploadInfo()
	assert.Equal(t, 1, info.FileCount)
	assert.Equal(t, a.Size, info.TotalBytes)
	assert.True(t, info.Writable)
}

func TestSubmitterContext(t *testing.T) {
	uid := uint(17)
	user := SubmitterContext{UserID: &uid}
	assert.False(t, user.IsGuest())
	assert.Equal(t, "17", user.SubmitterID())
	assert.Equal(t, "user", user.SubmitterType())

	assert.True(t, guest.IsGuest())
	assert.Equal(t, "guest_0123456789ab", guest.SubmitterID())
	assert.Equal(t, "guest", guest.SubmitterType())
}
