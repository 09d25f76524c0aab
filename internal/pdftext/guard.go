package pdftext

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/extract"
)

// DefaultMaxFileSize caps what the guard lets through to the text reader.
const DefaultMaxFileSize int64 = 50 << 20

type GuardConfig struct {
	MaxFileSize    int64 // bytes; 0 -> DefaultMaxFileSize, <0 -> no limit
	MaxPages       int   // 0 = no limit
	AllowEncrypted bool
}

// Info describes a file on disk and its PDF structure.
type Info struct {
	Path            string
	FileName        string
	FileExt         string
	FileSize        int64
	ModifiedAt      time.Time
	PageCount       int
	Encrypted       bool
	HasImageStreams bool
}

// Metadata returns the facts worth keeping on a parsed record.
func (i Info) Metadata() map[string]any {
	return map[string]any{
		"page_count":        i.PageCount,
		"file_size":         i.FileSize,
		"encrypted":         i.Encrypted,
		"has_image_streams": i.HasImageStreams,
	}
}

// Guard rejects files that cannot be parsed before any text extraction is attempted.
type Guard struct {
	cfg    GuardConfig
	logger *slog.Logger
}

func NewGuard(cfg GuardConfig, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	return &Guard{cfg: cfg, logger: logger}
}

// Stat checks existence, extension and size only.
func (g *Guard) Stat(path string) (Info, error) {
	info := Info{
		Path:     path,
		FileName: filepath.Base(path),
		FileExt:  constants.NormalizeExt(filepath.Ext(path)),
	}
	st, err := os.Stat(path)
	if err != nil {
		return info, extract.Unreadable(path, "stat", err)
	}
	if !st.Mode().IsRegular() {
		return info, extract.Unreadable(path, "not a regular file", nil)
	}
	info.FileSize = st.Size()
	info.ModifiedAt = st.ModTime()

	if constants.MapExtToFormat(info.FileExt) != constants.PDF {
		return info, extract.Unreadable(path, "unsupported extension", fmt.Errorf("%q", info.FileExt))
	}
	if info.FileSize == 0 {
		return info, extract.Unreadable(path, "empty file", nil)
	}
	if g.cfg.MaxFileSize > 0 && info.FileSize > g.cfg.MaxFileSize {
		return info, extract.Unreadable(path, "file too large", fmt.Errorf("%d bytes exceeds %d", info.FileSize, g.cfg.MaxFileSize))
	}
	return info, nil
}

// Inspect describes the file and applies the encryption and page limits.
func (g *Guard) Inspect(ctx context.Context, path string) (Info, error) {
	info, err := g.Describe(ctx, path)
	if err != nil {
		return info, err
	}
	if info.Encrypted && !g.cfg.AllowEncrypted {
		g.logger.Warn("intake rejected", "path", path, "reason", "encrypted")
		return info, extract.Unreadable(path, "encrypted", nil)
	}
	if g.cfg.MaxPages > 0 && info.PageCount > g.cfg.MaxPages {
		g.logger.Warn("intake rejected", "path", path, "reason", "too many pages", "pages", info.PageCount)
		return info, extract.Unreadable(path, "too many pages", fmt.Errorf("%d pages exceeds %d", info.PageCount, g.cfg.MaxPages))
	}
	g.logger.Debug("intake ok",
		"path", path,
		"pages", info.PageCount,
		"size", info.FileSize,
		"images", info.HasImageStreams,
	)
	return info, nil
}

// Describe runs Stat and then reads the PDF structure for page count, encryption
// and embedded images. No policy beyond Stat is applied.
func (g *Guard) Describe(ctx context.Context, path string) (Info, error) {
	info, err := g.Stat(path)
	if err != nil {
		g.logger.Warn("intake rejected", "path", path, "error", err)
		return info, err
	}
	if err := ctx.Err(); err != nil {
		return info, extract.Unreadable(path, "cancelled", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return info, extract.Unreadable(path, "open", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			g.logger.Warn("close pdf failed", "path", path, "error", cerr)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		g.logger.Warn("intake rejected", "path", path, "reason", "invalid pdf structure", "error", err)
		return info, extract.Unreadable(path, "invalid pdf structure", err)
	}

	info.PageCount = pctx.PageCount
	info.Encrypted = pctx.Encrypt != nil
	info.HasImageStreams = detectImageStreams(pctx)
	return info, nil
}

// detectImageStreams reports whether the PDF contains image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}
