package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/catalog"
	"github.com/joseph-ayodele/docs-tracker/internal/docparse"
	"github.com/joseph-ayodele/docs-tracker/internal/extract"
	"github.com/joseph-ayodele/docs-tracker/internal/ingest"
	"github.com/joseph-ayodele/docs-tracker/internal/metrics"
	"github.com/joseph-ayodele/docs-tracker/internal/repository"
)

const poText = `Purchase Order
PO Number: PO-1003
Vendor: Nova Plastics
Date: 2024-10-08
Item: Polycarbonate Sheet
Quantity: 200
Unit Price: $389.45
Total: $77,890.00`

const invoiceText = `INVOICE
Invoice Number: INV-2001
Reference PO: PO-1003
Vendor: Nova Plastics Inc.
Invoice Date: 10/15/2024
Total: $1,000.00`

const memoText = `Team lunch on Friday`

type env struct {
	proc    *Processor
	docs    repository.DocumentRepository
	vendors repository.VendorDirectory
	runs    repository.ParseRunRepository
	metrics *metrics.Metrics
	dir     string
}

// pageText hands out text by file name; names missing from the map are unreadable.
type pageText struct {
	mu    sync.Mutex
	texts map[string]string
	calls int
}

func (p *pageText) Extract(_ context.Context, path string) (extract.TextExtractionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	text, ok := p.texts[filepath.Base(path)]
	if !ok {
		return extract.TextExtractionResult{}, extract.Unreadable(path, "no text layer", nil)
	}
	return extract.TextExtractionResult{Text: text, Pages: 1, Method: "pdf-text"}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEnv(t *testing.T, text *pageText, opts ...Option) *env {
	t.Helper()
	log := discardLogger()
	db, err := repository.OpenSQLite(":memory:", log)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	e := &env{
		docs:    repository.NewDocumentRepository(db, log),
		vendors: repository.NewVendorDirectory(db, log),
		runs:    repository.NewParseRunRepository(db, log),
		metrics: metrics.New(),
		dir:     t.TempDir(),
	}
	parser := docparse.NewParser(text, catalog.MustDefault(), log)
	ing := ingest.NewFSIngestor(repository.NewDocumentFileRepository(db, log), log)
	opts = append([]Option{WithMetrics(e.metrics)}, opts...)
	e.proc = NewProcessor(log, ing, parser, e.runs, e.docs, e.vendors, opts...)
	return e
}

// writeFile creates a file whose content is unique to its name.
func (e *env) writeFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte("%PDF-1.4 "+name), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessFileStoresRecord(t *testing.T) {
	e := newEnv(t, &pageText{texts: map[string]string{"po.pdf": poText}})
	path := e.writeFile(t, "po.pdf")

	res, err := e.proc.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if res.DocumentType != constants.PurchaseOrder || res.Skipped {
		t.Fatalf("result = %+v", res)
	}

	stored, err := e.docs.GetByID(context.Background(), res.DocumentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.FileID == nil || *stored.FileID != res.FileID {
		t.Errorf("file link = %v, want %v", stored.FileID, res.FileID)
	}
	if stored.VendorID == nil {
		t.Fatal("document not linked to a vendor")
	}
	if got := stored.Record.DocumentNumber; got == nil || *got != "PO-1003" {
		t.Errorf("document number = %v", got)
	}
	if len(stored.Record.LineItems) != 1 {
		t.Errorf("line items = %+v", stored.Record.LineItems)
	}

	v, err := e.vendors.GetByID(context.Background(), *stored.VendorID)
	if err != nil {
		t.Fatalf("vendor: %v", err)
	}
	if v.DocumentCount != 1 || v.PurchaseOrders != 1 || v.TotalAmount.StringFixed(2) != "77890.00" {
		t.Errorf("vendor stats = %+v", v)
	}

	runs, err := e.runs.ListByFile(context.Background(), res.FileID)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != string(constants.JobStatusParsed) {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].DocumentID == nil || *runs[0].DocumentID != res.DocumentID {
		t.Errorf("run document = %v", runs[0].DocumentID)
	}

	if got := testutil.ToFloat64(e.metrics.DocumentsParsed.WithLabelValues(string(constants.PurchaseOrder))); got != 1 {
		t.Errorf("documents parsed metric = %v", got)
	}
}

func TestProcessFileSkipsParsedDuplicates(t *testing.T) {
	text := &pageText{texts: map[string]string{"po.pdf": poText}}
	e := newEnv(t, text)
	path := e.writeFile(t, "po.pdf")
	ctx := context.Background()

	first, err := e.proc.ProcessFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.proc.ProcessFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Skipped || second.FileID != first.FileID {
		t.Fatalf("second = %+v", second)
	}
	if text.calls != 1 {
		t.Errorf("extractor called %d times, want 1", text.calls)
	}
	if got := testutil.ToFloat64(e.metrics.FilesDuplicate); got != 1 {
		t.Errorf("duplicate metric = %v", got)
	}

	counts, err := e.docs.CountByType(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[constants.PurchaseOrder] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestProcessFileReprocess(t *testing.T) {
	text := &pageText{texts: map[string]string{"po.pdf": poText}}
	e := newEnv(t, text, WithReprocess(true))
	path := e.writeFile(t, "po.pdf")

	for range 2 {
		res, err := e.proc.ProcessFile(context.Background(), path)
		if err != nil || res.Skipped {
			t.Fatalf("res = %+v, err = %v", res, err)
		}
	}
	if text.calls != 2 {
		t.Errorf("extractor called %d times, want 2", text.calls)
	}
}

func TestProcessFileUnreadableFailsRun(t *testing.T) {
	e := newEnv(t, &pageText{texts: map[string]string{}})
	path := e.writeFile(t, "scan.pdf")

	res, err := e.proc.ProcessFile(context.Background(), path)
	if !errors.Is(err, extract.ErrUnreadablePDF) {
		t.Fatalf("err = %v, want ErrUnreadablePDF", err)
	}
	if !errors.Is(res.Err, extract.ErrUnreadablePDF) {
		t.Errorf("result err = %v", res.Err)
	}

	runs, err := e.runs.ListByFile(context.Background(), res.FileID)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != string(constants.JobStatusFailed) || runs[0].ErrorMessage == nil {
		t.Fatalf("runs = %+v", runs)
	}
	if got := testutil.ToFloat64(e.metrics.ParseFailures.WithLabelValues(metrics.ReasonUnreadable)); got != 1 {
		t.Errorf("failure metric = %v", got)
	}
}

func TestProcessFileFailedContentIsRetried(t *testing.T) {
	text := &pageText{texts: map[string]string{}}
	e := newEnv(t, text)
	path := e.writeFile(t, "po.pdf")
	ctx := context.Background()

	if _, err := e.proc.ProcessFile(ctx, path); err == nil {
		t.Fatal("expected the first attempt to fail")
	}
	text.texts["po.pdf"] = poText
	res, err := e.proc.ProcessFile(ctx, path)
	if err != nil || res.Skipped {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
}

func TestProcessFileRejectsUnsupportedExtension(t *testing.T) {
	e := newEnv(t, &pageText{})
	path := e.writeFile(t, "notes.txt")

	_, err := e.proc.ProcessFile(context.Background(), path)
	if !errors.Is(err, ingest.ErrUnsupportedExt) {
		t.Fatalf("err = %v", err)
	}
	if !strings.HasPrefix(err.Error(), "ingest "+path+": ") {
		t.Errorf("err = %q, want it to name the path", err)
	}
	if got := testutil.ToFloat64(e.metrics.ParseFailures.WithLabelValues(metrics.ReasonIntake)); got != 1 {
		t.Errorf("intake failure metric = %v", got)
	}
}

func TestProcessBatchCollectsFailures(t *testing.T) {
	e := newEnv(t, &pageText{texts: map[string]string{
		"po.pdf":      poText,
		"invoice.pdf": invoiceText,
		"memo.pdf":    memoText,
	}}, WithWorkers(2))
	paths := []string{
		e.writeFile(t, "po.pdf"),
		e.writeFile(t, "broken.pdf"),
		e.writeFile(t, "invoice.pdf"),
		e.writeFile(t, "memo.pdf"),
	}

	results, stats, err := e.proc.ProcessBatch(context.Background(), paths)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("results = %d", len(results))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("result %d path = %s, want %s", i, r.Path, paths[i])
		}
	}
	if !errors.Is(results[1].Err, extract.ErrUnreadablePDF) {
		t.Errorf("broken.pdf err = %v", results[1].Err)
	}
	if stats.Total != 4 || stats.Parsed != 3 || stats.Failed != 1 || stats.Skipped != 0 {
		t.Errorf("stats = %+v", stats)
	}
	want := map[constants.DocumentType]int{
		constants.PurchaseOrder: 1,
		constants.Invoice:       1,
		constants.Unknown:       1,
	}
	for k, v := range want {
		if stats.ByType[k] != v {
			t.Errorf("by type %s = %d, want %d", k, stats.ByType[k], v)
		}
	}

	// "Nova Plastics" and "Nova Plastics Inc." resolve to the same vendor.
	vendors, err := e.vendors.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(vendors) != 1 || vendors[0].DocumentCount != 2 {
		t.Fatalf("vendors = %+v", vendors)
	}
}

func TestProcessBatchCancelled(t *testing.T) {
	e := newEnv(t, &pageText{texts: map[string]string{"po.pdf": poText}})
	paths := []string{e.writeFile(t, "po.pdf")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, stats, err := e.proc.ProcessBatch(ctx, paths)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if stats.Failed != 1 || results[0].Err == nil {
		t.Errorf("stats = %+v results = %+v", stats, results)
	}
}

func TestProcessDirectory(t *testing.T) {
	e := newEnv(t, &pageText{texts: map[string]string{"po.pdf": poText, "invoice.pdf": invoiceText}})
	e.writeFile(t, "po.pdf")
	e.writeFile(t, "invoice.pdf")
	e.writeFile(t, "readme.txt")
	if err := os.Mkdir(filepath.Join(e.dir, ".cache"), 0o755); err != nil {
		t.Fatal(err)
	}
	e.writeFile(t, filepath.Join(".cache", "po-copy.pdf"))

	_, stats, err := e.proc.ProcessDirectory(context.Background(), e.dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 || stats.Parsed != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
