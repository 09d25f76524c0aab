package docparse

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/pdftext"
)

// ErrNoGuard is returned by DocumentInfo when the parser was built without a guard.
var ErrNoGuard = errors.New("document info requires an intake guard")

// DocumentInfo describes a file without parsing its text.
type DocumentInfo struct {
	FileName      string    `json:"file_name"`
	FileExt       string    `json:"file_ext"`
	FileSize      int64     `json:"file_size"`
	ModifiedAt    time.Time `json:"modified_at"`
	PageCount     int       `json:"page_count"`
	Encrypted     bool      `json:"is_encrypted"`
	HasImages     bool      `json:"has_image_streams"`
	ParserVersion string    `json:"parser_version"`
}

// DocumentInfo reports file facts and PDF structure. Encrypted files are described,
// not rejected.
func (p *Parser) DocumentInfo(ctx context.Context, path string) (DocumentInfo, error) {
	if p.guard == nil {
		return DocumentInfo{}, ErrNoGuard
	}
	i, err := p.guard.Describe(ctx, path)
	if err != nil {
		return DocumentInfo{}, err
	}
	return documentInfo(i), nil
}

func documentInfo(i pdftext.Info) DocumentInfo {
	return DocumentInfo{
		FileName:      i.FileName,
		FileExt:       i.FileExt,
		FileSize:      i.FileSize,
		ModifiedAt:    i.ModifiedAt,
		PageCount:     i.PageCount,
		Encrypted:     i.Encrypted,
		HasImages:     i.HasImageStreams,
		ParserVersion: constants.ParserVersion,
	}
}
