package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"phFolio/internal/database"
	"phFolio/internal/errcode"
	"phFolio/internal/portfolio"
	"phFolio/internal/render"
	"phFolio/internal/tasks"
)

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages []NotifyMessage
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var msg NotifyMessage
	if data, ok := message.([]byte); ok {
		_ = json.Unmarshal(data, &msg)
	}
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, msg)
	return redis.NewIntResult(1, nil)
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) PutBytes(_ context.Context, name string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.objects[name] = data
	f.types[name] = contentType
	return nil
}

func (f *fakeObjects) keysWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

type fakeCapturer struct {
	profiles []render.Profile
	html     []string
	err      error
}

func (f *fakeCapturer) Capture(_ context.Context, html string, profile render.Profile) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.profiles = append(f.profiles, profile)
	f.html = append(f.html, html)
	return []byte("jpeg"), nil
}

type fakePrinter struct {
	fakeCapturer
	pdfErr error
}

func (f *fakePrinter) PrintPDF(_ context.Context, _ string, _ render.Profile) ([]byte, error) {
	if f.pdfErr != nil {
		return nil, f.pdfErr
	}
	return []byte("%PDF-1.4"), nil
}

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := database.NewStore(db)
	require.NoError(t, s.EnsureUser(context.Background(), 1, "owner"))
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func exportTask(t *testing.T, portfolioID, userID uint) *asynq.Task {
	t.Helper()
	task, err := tasks.NewPortfolioExportTask(portfolioID, userID, "cid-1")
	require.NoError(t, err)
	return task
}

func TestExportTaskUploadsBundle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := portfolio.NewStarter("", "ocean")
	doc.AddSection(portfolio.Section{Type: "timeline", Visible: true, Data: portfolio.RawData{Type: "timeline"}})
	p, err := store.CreatePortfolio(ctx, 1, "Export Me", doc)
	require.NoError(t, err)

	objects := newFakeObjects()
	pub := &fakePublisher{}
	capturer := &fakeCapturer{}
	h := NewExportTaskHandler(store, objects, nil, capturer, pub, discardLogger())

	require.NoError(t, h.ProcessTask(ctx, exportTask(t, p.ID, 1)))

	got, err := store.GetPortfolioByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusExported, got.Status)
	require.NotEmpty(t, got.ExportKey)
	assert.True(t, strings.HasPrefix(got.ExportKey, "exports/1/"+p.PublicID+"/"))
	assert.Equal(t, "application/json", objects.types[got.ExportKey])

	var bundle ExportBundle
	require.NoError(t, json.Unmarshal(objects.objects[got.ExportKey], &bundle))
	assert.Equal(t, BundleVersion, bundle.Version)
	assert.Equal(t, "export-me", bundle.Slug)
	require.Len(t, bundle.Views, 3)
	assert.Equal(t, render.Mobile, bundle.Views[0].Profile.Viewport)
	assert.Equal(t, render.Desktop, bundle.Views[2].Profile.Viewport)
	assert.Equal(t, "ocean", bundle.Views[2].ThemeID)
	assert.Contains(t, bundle.Views[1].HTML, `data-viewport="tablet"`)

	// 文档原样保存，未知 section 不丢失。
	back, err := portfolio.Decode(bundle.Document)
	require.NoError(t, err)
	assert.Len(t, back.Sections, 6)

	require.Len(t, capturer.profiles, 1)
	assert.Equal(t, render.Desktop, capturer.profiles[0].Viewport)
	assert.True(t, strings.HasPrefix(got.PreviewImageURL, "exports/1/"+p.PublicID+"/preview-"))
	assert.Equal(t, "image/jpeg", objects.types[got.PreviewImageURL])

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "user_notify:1", pub.channels[0])
	msg := pub.messages[0]
	assert.Equal(t, NotifyExport, msg.Type)
	assert.Equal(t, StatusCompleted, msg.Status)
	assert.Equal(t, p.PublicID, msg.PortfolioID)
	assert.Equal(t, "cid-1", msg.CorrelationID)
	assert.Equal(t, errcode.UnknownSection, msg.ErrorCode)
	assert.Equal(t, 1, msg.Placeholders)
}

func TestExportTaskSkipsMissingOrForeignPortfolio(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureUser(ctx, 2, "other"))
	p, err := store.CreatePortfolio(ctx, 1, "Mine", nil)
	require.NoError(t, err)

	objects := newFakeObjects()
	pub := &fakePublisher{}
	h := NewExportTaskHandler(store, objects, nil, nil, pub, discardLogger())

	assert.NoError(t, h.ProcessTask(ctx, exportTask(t, 999, 1)))
	assert.NoError(t, h.ProcessTask(ctx, exportTask(t, p.ID, 2)))

	assert.Empty(t, objects.objects)
	assert.Empty(t, pub.messages)
	got, err := store.GetPortfolioByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusDraft, got.Status)
}

func TestExportTaskRejectsBadPayload(t *testing.T) {
	h := NewExportTaskHandler(newTestStore(t), newFakeObjects(), nil, nil, nil, discardLogger())
	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypePortfolioExport, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestExportTaskCorruptDocumentFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p, err := store.CreatePortfolio(ctx, 1, "Broken", nil)
	require.NoError(t, err)
	require.NoError(t, store.DB().Model(p).Update("content", []byte(`"not a document"`)).Error)

	pub := &fakePublisher{}
	h := NewExportTaskHandler(store, newFakeObjects(), nil, nil, pub, discardLogger())

	err = h.ProcessTask(ctx, exportTask(t, p.ID, 1))
	require.ErrorIs(t, err, asynq.SkipRetry)

	got, err := store.GetPortfolioByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusFailed, got.Status)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, StatusError, pub.messages[0].Status)
	assert.Equal(t, errcode.SystemError, pub.messages[0].ErrorCode)
}

func TestExportTaskUploadErrorRetries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p, err := store.CreatePortfolio(ctx, 1, "Retry", nil)
	require.NoError(t, err)

	objects := newFakeObjects()
	objects.err = errors.New("minio down")
	pub := &fakePublisher{}
	h := NewExportTaskHandler(store, objects, nil, nil, pub, discardLogger())

	err = h.ProcessTask(ctx, exportTask(t, p.ID, 1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	// 非最后一次尝试：保持 exporting，不通知。
	got, err := store.GetPortfolioByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusExporting, got.Status)
	assert.Empty(t, pub.messages)
}

func TestExportTaskPreviewFailureIsNotFatal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p, err := store.CreatePortfolio(ctx, 1, "No Thumb", nil)
	require.NoError(t, err)

	pub := &fakePublisher{}
	h := NewExportTaskHandler(store, newFakeObjects(), nil, &fakeCapturer{err: errors.New("no chromium")}, pub, discardLogger())

	require.NoError(t, h.ProcessTask(ctx, exportTask(t, p.ID, 1)))
	got, err := store.GetPortfolioByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusExported, got.Status)
	assert.Empty(t, got.PreviewImageURL)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, errcode.OK, pub.messages[0].ErrorCode)
}

func TestExportTaskPrintsPDF(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p, err := store.CreatePortfolio(ctx, 1, "Printable", nil)
	require.NoError(t, err)

	objects := newFakeObjects()
	printer := &fakePrinter{}
	h := NewExportTaskHandler(store, objects, nil, printer, &fakePublisher{}, discardLogger())

	require.NoError(t, h.ProcessTask(ctx, exportTask(t, p.ID, 1)))
	got, err := store.GetPortfolioByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotEmpty(t, got.PDFKey)
	assert.True(t, strings.HasSuffix(got.PDFKey, ".pdf"))
	assert.Equal(t, "application/pdf", objects.types[got.PDFKey])
	assert.Equal(t, []byte("%PDF-1.4"), objects.objects[got.PDFKey])
	assert.NotEmpty(t, got.PreviewImageURL)
}

func TestExportTaskPDFFailureIsNotFatal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p, err := store.CreatePortfolio(ctx, 1, "No Print", nil)
	require.NoError(t, err)

	printer := &fakePrinter{pdfErr: errors.New("print failed")}
	h := NewExportTaskHandler(store, newFakeObjects(), nil, printer, &fakePublisher{}, discardLogger())

	require.NoError(t, h.ProcessTask(ctx, exportTask(t, p.ID, 1)))
	got, err := store.GetPortfolioByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusExported, got.Status)
	assert.Empty(t, got.PDFKey)
}

func TestTemplatePreviewTask(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tpl, err := store.CreateTemplate(ctx, 1, "Starter", portfolio.NewStarter("", ""), true)
	require.NoError(t, err)

	objects := newFakeObjects()
	pub := &fakePublisher{}
	capturer := &fakeCapturer{}
	h := NewTemplatePreviewHandler(store, objects, nil, capturer, pub, discardLogger())

	task, err := tasks.NewTemplatePreviewTask(tpl.ID, 1, "mobile", "cid-2")
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(ctx, task))

	require.Len(t, capturer.profiles, 1)
	assert.Equal(t, 375, capturer.profiles[0].WidthPx)
	assert.Contains(t, capturer.html[0], "<!DOCTYPE html>")

	got, err := store.GetTemplateByID(ctx, tpl.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.PreviewImageURL, "templates/"))
	assert.Len(t, objects.keysWithPrefix("templates/"), 1)

	require.Len(t, pub.messages, 1)
	assert.Equal(t, NotifyTemplatePreview, pub.messages[0].Type)
	assert.Equal(t, tpl.ID, pub.messages[0].TemplateID)
	assert.Equal(t, StatusCompleted, pub.messages[0].Status)
}

func TestTemplatePreviewDefaultsToDesktop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tpl, err := store.CreateTemplate(ctx, 1, "Wide", portfolio.NewStarter("", ""), false)
	require.NoError(t, err)

	capturer := &fakeCapturer{}
	h := NewTemplatePreviewHandler(store, newFakeObjects(), nil, capturer, nil, discardLogger())
	task, err := tasks.NewTemplatePreviewTask(tpl.ID, 0, "watch", "")
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(ctx, task))

	require.Len(t, capturer.profiles, 1)
	assert.Equal(t, render.Desktop, capturer.profiles[0].Viewport)
}

func TestTemplatePreviewMissingTemplate(t *testing.T) {
	h := NewTemplatePreviewHandler(newTestStore(t), newFakeObjects(), nil, &fakeCapturer{}, nil, discardLogger())
	task, err := tasks.NewTemplatePreviewTask(42, 1, "", "")
	require.NoError(t, err)
	assert.NoError(t, h.ProcessTask(context.Background(), task))
}
