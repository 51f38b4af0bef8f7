package endpoint

import (
	"context"
	stderrors "errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/asrkit/asr"
	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/media"
	"github.com/kbukum/asrkit/validation"
)

// Transcriber is the part of asr.Transcriber the HTTP handlers use.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts asr.RunOptions) (*asr.RunResult, error)
	AudioInfo(ctx context.Context, audioPath string) (*media.AudioInfo, error)
	EstimateChunks(durationSeconds float64) int
}

// TranscriptionOptions configures the transcription handlers.
type TranscriptionOptions struct {
	// UploadDir receives uploaded files for the duration of a request.
	// Empty uses the system temp dir.
	UploadDir string
	// AllowLocalPaths enables JSON requests naming a file on the server's
	// own filesystem.
	AllowLocalPaths bool
	// MaxChunkDuration is reported by the audio-info handler.
	MaxChunkDuration float64
}

// TranscribeRequest is the JSON body of a local-path transcription.
type TranscribeRequest struct {
	AudioPath      string `json:"audio_path" validate:"required"`
	ContextMode    string `json:"context_mode,omitempty"`
	MaxConcurrency int    `json:"max_concurrency,omitempty"`
	Language       string `json:"language,omitempty"`
}

// AudioInfoResponse is the audio-info payload.
type AudioInfoResponse struct {
	*media.AudioInfo
	EstimatedChunks  int     `json:"estimated_chunks"`
	MaxChunkDuration float64 `json:"max_chunk_duration"`
}

// Transcriptions serves POST /v1/transcriptions. The audio is either a
// multipart "file" upload or, when local paths are allowed, a JSON body
// with audio_path. Run options come from form fields or the JSON body.
// ?format=markdown returns the rendered transcript instead of JSON.
func Transcriptions(t Transcriber, opts TranscriptionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		path, runOpts, cleanup, err := transcriptionInput(c, opts)
		if err != nil {
			RespondWithError(c, err)
			return
		}
		defer cleanup()

		res, err := t.Transcribe(c.Request.Context(), path, runOpts)
		if err != nil {
			RespondWithError(c, err)
			return
		}
		if wantsMarkdown(c) {
			c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(asr.FormatResult(res)))
			return
		}
		RespondOK(c, res)
	}
}

// AudioInfo serves POST /v1/audio-info with the same input forms as
// Transcriptions, and GET /v1/audio-info?path=... for local paths.
func AudioInfo(t Transcriber, opts TranscriptionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			path    string
			cleanup = func() {}
			err     error
		)
		if c.Request.Method == http.MethodGet {
			path, err = localPath(c.Query("path"), opts)
		} else {
			path, _, cleanup, err = transcriptionInput(c, opts)
		}
		if err != nil {
			RespondWithError(c, err)
			return
		}
		defer cleanup()

		info, err := t.AudioInfo(c.Request.Context(), path)
		if err != nil {
			RespondWithError(c, err)
			return
		}
		if wantsMarkdown(c) {
			c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(asr.FormatAudioInfo(info, opts.MaxChunkDuration)))
			return
		}
		RespondOK(c, AudioInfoResponse{
			AudioInfo:        info,
			EstimatedChunks:  t.EstimateChunks(info.DurationSeconds),
			MaxChunkDuration: opts.MaxChunkDuration,
		})
	}
}

func transcriptionInput(c *gin.Context, opts TranscriptionOptions) (string, asr.RunOptions, func(), error) {
	noop := func() {}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return uploadInput(c, opts)
	}

	var req TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", asr.RunOptions{}, noop, bodyError("body", err)
	}
	if err := validation.Validate(req); err != nil {
		return "", asr.RunOptions{}, noop, err
	}
	path, err := localPath(req.AudioPath, opts)
	if err != nil {
		return "", asr.RunOptions{}, noop, err
	}
	runOpts, err := runOptions(req.ContextMode, req.MaxConcurrency, req.Language)
	return path, runOpts, noop, err
}

func uploadInput(c *gin.Context, opts TranscriptionOptions) (string, asr.RunOptions, func(), error) {
	noop := func() {}
	file, err := c.FormFile("file")
	if err != nil {
		return "", asr.RunOptions{}, noop, bodyError("file", err)
	}

	concurrency := 0
	if v := c.PostForm("max_concurrency"); v != "" {
		if concurrency, err = strconv.Atoi(v); err != nil {
			return "", asr.RunOptions{}, noop, errors.InvalidInput("max_concurrency", "max_concurrency must be an integer")
		}
	}
	runOpts, err := runOptions(c.PostForm("context_mode"), concurrency, c.PostForm("language"))
	if err != nil {
		return "", asr.RunOptions{}, noop, err
	}

	path, cleanup, err := saveUpload(c, file, opts.UploadDir)
	if err != nil {
		return "", asr.RunOptions{}, noop, err
	}
	return path, runOpts, cleanup, nil
}

// saveUpload stores the upload in its own temp dir, keeping a safe form of
// the extension so the media tool can guess the container.
func saveUpload(c *gin.Context, file *multipart.FileHeader, uploadDir string) (string, func(), error) {
	dir, err := os.MkdirTemp(uploadDir, "asr-upload-*")
	if err != nil {
		return "", nil, errors.Internal(err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	dst := filepath.Join(dir, "audio"+safeExt(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		cleanup()
		return "", nil, bodyError("file", err)
	}
	return dst, cleanup, nil
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func localPath(p string, opts TranscriptionOptions) (string, error) {
	if !opts.AllowLocalPaths {
		return "", errors.New(errors.ErrCodeInvalidInput,
			"Local file paths are disabled on this server; upload the file instead.", http.StatusForbidden)
	}
	if p == "" {
		return "", errors.MissingField("audio_path")
	}
	if !filepath.IsAbs(p) {
		return "", errors.InvalidInput("audio_path", "audio_path must be absolute")
	}
	return filepath.Clean(p), nil
}

func runOptions(mode string, concurrency int, language string) (asr.RunOptions, error) {
	m, err := asr.ParseContextMode(mode)
	if err != nil {
		return asr.RunOptions{}, err
	}
	return asr.RunOptions{Mode: m, MaxConcurrency: concurrency, Language: language}, nil
}

func bodyError(field string, err error) error {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return errors.New(errors.ErrCodeInvalidInput, "Request body is too large.", http.StatusRequestEntityTooLarge).
			WithDetail("limit_bytes", maxErr.Limit)
	}
	return errors.InvalidInput(field, err.Error()).WithCause(err)
}

func wantsMarkdown(c *gin.Context) bool {
	switch strings.ToLower(c.Query("format")) {
	case "markdown", "md":
		return true
	}
	return false
}
