package businessflow

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thisisfaizi/product-image-upload/utils"
)

// ResolutionPolicy bounds image dimensions. A zero bound is unbounded on that side.
type ResolutionPolicy struct {
	MinWidth  int `json:"min_width" validate:"min=0,max=10000"`
	MinHeight int `json:"min_height" validate:"min=0,max=10000"`
	MaxWidth  int `json:"max_width" validate:"min=0,max=10000"`
	MaxHeight int `json:"max_height" validate:"min=0,max=10000"`
}

func (p ResolutionPolicy) clamped() ResolutionPolicy {
	return ResolutionPolicy{
		MinWidth:  utils.ClampInt(p.MinWidth, 0, utils.MaxResolutionBound),
		MinHeight: utils.ClampInt(p.MinHeight, 0, utils.MaxResolutionBound),
		MaxWidth:  utils.ClampInt(p.MaxWidth, 0, utils.MaxResolutionBound),
		MaxHeight: utils.ClampInt(p.MaxHeight, 0, utils.MaxResolutionBound),
	}
}

// SubmitterContext identifies who submitted an upload
type SubmitterContext struct {
	UserID         *uint
	AnonymousToken string
}

func (s SubmitterContext) IsGuest() bool {
	return s.UserID == nil
}

// SubmitterID is the identifier recorded in the upload log
func (s SubmitterContext) SubmitterID() string {
	if s.UserID != nil {
		return strconv.FormatUint(uint64(*s.UserID), 10)
	}
	return s.AnonymousToken
}

func (s SubmitterContext) SubmitterType() string {
	if s.UserID != nil {
		return "user"
	}
	return "guest"
}

// StoredImageArtifact describes one image persisted in the managed directory
type StoredImageArtifact struct {
	Path      string `json:"-"`
	URL       string `json:"url"`
	Filename  string `json:"filename"`
	Extension string `json:"extension"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Index     int    `json:"index"`
}

// UploadInfo summarises the managed upload directory
type UploadInfo struct {
	Dir             string            `json:"dir"`
	PublicBaseURL   string            `json:"public_base_url"`
	MaxFileSize     int64             `json:"max_file_size"`
	Resolution      *ResolutionPolicy `json:"resolution,omitempty"`
	Hardened        bool              `json:"hardened"`
	FileCount       int               `json:"file_count"`
	TotalBytes      int64             `json:"total_bytes"`
	Writable        bool              `json:"writable"`
	AllowedTypes    []string          `json:"allowed_types"`
	FailClosedCheck bool              `json:"fail_closed_check"`
}

// SecureUploader validates data-URI images and stores them under generated names
type SecureUploader interface {
	Configure(maxFileSizeBytes int64, resolution *ResolutionPolicy)
	ProcessImage(ctx context.Context, dataURI string, index int, productID uint, submitter SubmitterContext, address string) (*StoredImageArtifact, error)
	Cleanup(paths []string) int
	EnsureSecureDirectory() error
	UploadInfo() UploadInfo
}

// SecureUploaderOptions wires a SecureUploaderImpl
type SecureUploaderOptions struct {
	Dir           string
	PublicBaseURL string
	ScratchDir    string
	AllowedTypes  []string

	// FailClosedOnMissingSignal rejects an image when any type check cannot
	// identify it. When false, unidentified checks are skipped.
	FailClosedOnMissingSignal bool

	Auditor UploadAuditor
	Now     func() time.Time
	Token   func() string
}

// SecureUploaderImpl implements SecureUploader
type SecureUploaderImpl struct {
	dir           string
	publicBaseURL string
	scratchDir    string
	allowedTypes  []string
	failClosed    bool
	auditor       UploadAuditor
	now           func() time.Time
	token         func() string

	maxFileSize int64
	resolution  *ResolutionPolicy

	hardenOnce sync.Once
	hardenErr  error
}

var dataURIPattern = regexp.MustCompile(`(?is)^data:image/(png|jpe?g|gif|webp);base64,(.*)$`)

const (
	htaccessName   = ".htaccess"
	indexName      = "index.html"
	scratchPrefix  = "cpiu_temp_"
	scratchNameLen = 12
)

// htaccessContent denies script execution and only serves image extensions
const htaccessContent = `# Prevent execution of uploaded files
Options -Indexes
Options -ExecCGI
AddHandler cgi-script .php .pl .py .jsp .asp .sh .cgi
<FilesMatch "\.(php|php3|php4|php5|phtml|pl|py|jsp|asp|sh|cgi)$">
    Order Deny,Allow
    Deny from all
</FilesMatch>

# Allow only image files
<FilesMatch "\.(jpg|jpeg|png|gif|webp)$">
    Order Allow,Deny
    Allow from all
</FilesMatch>
`

// NewSecureUploader creates an uploader with the default size limit and no resolution check
func NewSecureUploader(opts SecureUploaderOptions) *SecureUploaderImpl {
	u := &SecureUploaderImpl{
		dir:           opts.Dir,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		scratchDir:    opts.ScratchDir,
		allowedTypes:  utils.NormalizeExtensions(opts.AllowedTypes),
		failClosed:    opts.FailClosedOnMissingSignal,
		auditor:       opts.Auditor,
		now:           opts.Now,
		token:         opts.Token,
		maxFileSize:   utils.DefaultMaxFileSize,
	}
	if u.scratchDir == "" {
		u.scratchDir = os.TempDir()
	}
	if len(u.allowedTypes) == 0 {
		u.allowedTypes = slices.Clone(utils.AllowedImageExtensions)
	}
	if u.now == nil {
		u.now = utils.UTCNow
	}
	if u.token == nil {
		u.token = randomToken
	}
	return u
}

// randomToken returns 32 lowercase hex characters from a v4 UUID
func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (u *SecureUploaderImpl) Configure(maxFileSizeBytes int64, resolution *ResolutionPolicy) {
	u.maxFileSize = max(maxFileSizeBytes, utils.MinMaxFileSize)
	if resolution == nil {
		u.resolution = nil
		return
	}
	r := resolution.clamped()
	u.resolution = &r
}

func (u *SecureUploaderImpl) ProcessImage(ctx context.Context, dataURI string, index int, productID uint, submitter SubmitterContext, address string) (*StoredImageArtifact, error) {
	artifact, err := u.processImage(dataURI, index, productID)
	attempt := UploadAttempt{
		Submitter: submitter,
		IPAddress: address,
		ProductID: productID,
		Success:   err == nil,
	}
	if err != nil {
		attempt.ErrorDetail = err.Error()
		var ue *UploadError
		if errors.As(err, &ue) {
			attempt.ErrorDetail = ue.Detail
			recordUploadOutcome(string(ue.Kind))
		}
		log.Printf(`{"level":"warn","event":"image_rejected","product_id":%d,"index":%d,"error":%q}`, productID, index, attempt.ErrorDetail)
	} else {
		attempt.Filename = artifact.Filename
		recordUploadOutcome("")
	}
	if u.auditor != nil {
		u.auditor.RecordUploadAttempt(ctx, attempt)
	}
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

func (u *SecureUploaderImpl) processImage(dataURI string, index int, productID uint) (*StoredImageArtifact, error) {
	n := index + 1

	// 1. format
	if !strings.HasPrefix(dataURI, "data:image/") {
		return nil, newUploadError(UploadErrInvalidFormat, index,
			fmt.Sprintf("Invalid image format for image %d.", n), "data URI does not start with data:image/", nil)
	}
	m := dataURIPattern.FindStringSubmatch(dataURI)
	if m == nil {
		return nil, newUploadError(UploadErrInvalidFormat, index,
			fmt.Sprintf("Unsupported image type for image %d.", n), "declared image type is not png, jpg, jpeg, gif or webp", nil)
	}
	declaredExt := strings.ToLower(m[1])
	declaredType := canonicalImageType(declaredExt)

	// 2. decode
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(m[2]))
	if err != nil {
		return nil, newUploadError(UploadErrDecodeFailure, index,
			fmt.Sprintf("Failed to decode image %d.", n), "base64 payload does not decode", err)
	}

	// 3. scratch copy, removed on every path
	scratchPath, err := u.writeScratch(data, declaredExt)
	if err != nil {
		return nil, newUploadError(UploadErrStorageFailure, index,
			"Could not create temporary file for validation.", "scratch file could not be written", err)
	}
	defer func() {
		if rmErr := os.Remove(scratchPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf(`{"level":"error","event":"scratch_cleanup_failed","error":%q}`, rmErr.Error())
		}
	}()

	width, height, err := u.inspectScratch(scratchPath, declaredExt, declaredType, index)
	if err != nil {
		return nil, err
	}

	// 9. persist under a generated name
	filename := u.generateFilename(productID, index, declaredExt)
	target := filepath.Join(u.dir, filename)
	if err := u.EnsureSecureDirectory(); err != nil {
		return nil, newUploadError(UploadErrStorageFailure, index,
			fmt.Sprintf("Failed to save image %d.", n), "upload directory is not available", err)
	}
	if err := writeNewFile(target, data); err != nil {
		return nil, newUploadError(UploadErrStorageFailure, index,
			fmt.Sprintf("Failed to save image %d.", n), "write to upload directory failed", err)
	}

	return &StoredImageArtifact{
		Path:      target,
		URL:       u.publicBaseURL + "/" + filename,
		Filename:  filename,
		Extension: declaredExt,
		MimeType:  imageMimeTypes[declaredType],
		Size:      int64(len(data)),
		Width:     width,
		Height:    height,
		Index:     index,
	}, nil
}

// inspectScratch runs steps 4 to 8 against the scratch file and returns the image dimensions
func (u *SecureUploaderImpl) inspectScratch(path, declaredExt, declaredType string, index int) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, newUploadError(UploadErrStorageFailure, index, "File does not exist.", "scratch file vanished", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, 0, newUploadError(UploadErrStorageFailure, index, "File does not exist.", "scratch file stat failed", err)
	}

	// 4. size
	size := st.Size()
	if size > u.maxFileSize {
		msg := fmt.Sprintf("File size (%s) exceeds maximum allowed size (%s).", utils.SizeFormat(size), utils.SizeFormat(u.maxFileSize))
		return 0, 0, newUploadError(UploadErrSizeViolation, index, msg,
			fmt.Sprintf("file size %d bytes exceeds maximum allowed size %d bytes (%s)", size, u.maxFileSize, utils.SizeFormat(u.maxFileSize)), nil)
	}
	if size < utils.MinImageBytes {
		return 0, 0, newUploadError(UploadErrSizeViolation, index, "File is too small to be a valid image.",
			fmt.Sprintf("file size %d bytes is below the %d byte floor", size, utils.MinImageBytes), nil)
	}

	head := make([]byte, sniffWindow)
	nRead, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, 0, newUploadError(UploadErrStorageFailure, index, "Could not read file for security check.", "scratch read failed", err)
	}
	head = head[:nRead]

	// 5. type cross-check
	if !slices.ContainsFunc(u.allowedTypes, func(t string) bool { return canonicalImageType(t) == declaredType }) {
		return 0, 0, newUploadError(UploadErrTypeMismatch, index, "Invalid file type. Please upload a valid image file.",
			fmt.Sprintf("declared type %s is not allowed for this product (allowed: %s)", declaredExt, strings.Join(u.allowedTypes, ", ")), nil)
	}
	signals := sniffTypeSignals(head, io.MultiReader(bytes.NewReader(head), f))
	for _, s := range signals {
		if s.Missing {
			if !u.failClosed {
				continue
			}
			return 0, 0, newUploadError(UploadErrTypeMismatch, index, "File is not a valid image.",
				fmt.Sprintf("%s check could not identify the content (declared %s)", s.Name, declaredExt), nil)
		}
		if s.Type != declaredType {
			return 0, 0, newUploadError(UploadErrTypeMismatch, index, "Invalid file type. Please upload a valid image file.",
				fmt.Sprintf("%s reports %q but declared type is %s", s.Name, s.Raw, declaredExt), nil)
		}
	}

	// 6. filename shape
	if reason, ok := validateFilenameShape(filepath.Base(path), declaredExt); !ok {
		return 0, 0, newUploadError(UploadErrTypeMismatch, index, "Invalid file name.", reason, nil)
	}

	// 7. signature scan
	scan := head[:min(len(head), utils.ContentScanBytes)]
	if sig, found := findMaliciousSignature(scan); found {
		msg := "File contains potentially malicious content."
		if strings.HasPrefix(sig, "<?") {
			msg = "File contains executable code and is not allowed."
		}
		return 0, 0, newUploadError(UploadErrMaliciousContent, index, msg,
			fmt.Sprintf("signature %q found in the first %d bytes", sig, utils.ContentScanBytes), nil)
	}

	// 8. resolution
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, 0, newUploadError(UploadErrStorageFailure, index, "Could not read file for security check.", "scratch seek failed", err)
	}
	width, height, err := imageDimensions(f)
	if u.resolution == nil {
		return width, height, nil
	}
	if err != nil {
		return 0, 0, newUploadError(UploadErrResolution, index, "Could not determine image dimensions.", "image header could not be decoded", err)
	}
	if err := checkResolution(*u.resolution, width, height, index); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func checkResolution(p ResolutionPolicy, width, height, index int) error {
	var msg string
	switch {
	case p.MinWidth > 0 && width < p.MinWidth:
		msg = fmt.Sprintf("Image width (%dpx) is below minimum required width (%dpx).", width, p.MinWidth)
	case p.MinHeight > 0 && height < p.MinHeight:
		msg = fmt.Sprintf("Image height (%dpx) is below minimum required height (%dpx).", height, p.MinHeight)
	case p.MaxWidth > 0 && width > p.MaxWidth:
		msg = fmt.Sprintf("Image width (%dpx) exceeds maximum allowed width (%dpx).", width, p.MaxWidth)
	case p.MaxHeight > 0 && height > p.MaxHeight:
		msg = fmt.Sprintf("Image height (%dpx) exceeds maximum allowed height (%dpx).", height, p.MaxHeight)
	default:
		return nil
	}
	return newUploadError(UploadErrResolution, index, msg, msg, nil)
}

func (u *SecureUploaderImpl) writeScratch(data []byte, ext string) (string, error) {
	for range 3 {
		name := scratchPrefix + u.scratchToken() + "." + ext
		path := filepath.Join(u.scratchDir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("could not allocate a unique scratch file in %s", u.scratchDir)
}

// scratchToken takes scratchNameLen characters of the injected token,
// falling back to a random one when the token is too short
func (u *SecureUploaderImpl) scratchToken() string {
	tok := u.token()
	if len(tok) < scratchNameLen {
		tok = randomToken()
	}
	return tok[:scratchNameLen]
}

// generateFilename builds prod-<productId>-<unix>-<token>-<index>.<ext>
func (u *SecureUploaderImpl) generateFilename(productID uint, index int, ext string) string {
	return fmt.Sprintf("%s%d-%d-%s-%d.%s", utils.UploadFilePrefix, productID, u.now().Unix(), u.token(), index, ext)
}

func writeNewFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	// umask may have narrowed the create mode
	if err := os.Chmod(path, 0o644); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// Cleanup removes previously stored files and returns how many were deleted.
// Missing files are ignored.
func (u *SecureUploaderImpl) Cleanup(paths []string) int {
	removed := 0
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil {
			if !os.IsNotExist(err) {
				log.Printf(`{"level":"error","event":"upload_cleanup_failed","file":%q,"error":%q}`, filepath.Base(p), err.Error())
			}
			continue
		}
		removed++
	}
	return removed
}

// EnsureSecureDirectory creates the managed directory with its listing
// placeholder and access descriptor. Safe to call repeatedly.
func (u *SecureUploaderImpl) EnsureSecureDirectory() error {
	u.hardenOnce.Do(func() {
		u.hardenErr = hardenDirectory(u.dir)
	})
	if u.hardenErr != nil {
		return u.hardenErr
	}
	// artefacts may have been removed since the first call
	if !isHardened(u.dir) {
		return hardenDirectory(u.dir)
	}
	return nil
}

func hardenDirectory(dir string) error {
	if dir == "" {
		return errors.New("upload directory is not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create secure upload directory: %w", err)
	}
	indexPath := filepath.Join(dir, indexName)
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		if err := os.WriteFile(indexPath, nil, 0o644); err != nil {
			return fmt.Errorf("could not write index placeholder: %w", err)
		}
	}
	htPath := filepath.Join(dir, htaccessName)
	if _, err := os.Stat(htPath); os.IsNotExist(err) {
		if err := os.WriteFile(htPath, []byte(htaccessContent), 0o644); err != nil {
			return fmt.Errorf("could not write access descriptor: %w", err)
		}
	}
	return nil
}

func isHardened(dir string) bool {
	for _, name := range []string{indexName, htaccessName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

func (u *SecureUploaderImpl) UploadInfo() UploadInfo {
	info := UploadInfo{
		Dir:             u.dir,
		PublicBaseURL:   u.publicBaseURL,
		MaxFileSize:     u.maxFileSize,
		Resolution:      u.resolution,
		Hardened:        isHardened(u.dir),
		AllowedTypes:    slices.Clone(u.allowedTypes),
		FailClosedCheck: u.failClosed,
	}
	entries, err := os.ReadDir(u.dir)
	if err != nil {
		return info
	}
	for _, e := range entries {
		if e.IsDir() || !IsManagedUploadName(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		info.FileCount++
		info.TotalBytes += fi.Size()
	}
	info.Writable = dirWritable(u.dir)
	return info
}

func dirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".writecheck-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

var managedUploadPattern = regexp.MustCompile(`^prod-\d+-\d+-[A-Za-z0-9]+-\d+\.(jpg|jpeg|png|gif|webp)$`)

// IsManagedUploadName reports whether name looks like a file this service stored
func IsManagedUploadName(name string) bool {
	return managedUploadPattern.MatchString(name)
}
