package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"procscribe/internal/diagram"
	"procscribe/internal/document"
	"procscribe/internal/extraction"
	"procscribe/internal/history"
	"procscribe/internal/payload"
	"procscribe/internal/process"
	"procscribe/internal/services"
	"procscribe/internal/testsupport"
)

const diagramReply = "```xml\n<mxfile><diagram name=\"p\"><mxGraphModel><root><mxCell id=\"0\"/></root></mxGraphModel></diagram></mxfile>\n```"

type fakeExtractor struct {
	mu    sync.Mutex
	raw   string
	err   error
	calls int
}

func (f *fakeExtractor) Submit(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.raw, f.err
}

func (f *fakeExtractor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeChat struct {
	reply string
	err   error
}

func (f fakeChat) Chat(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

type fakeRenderer struct {
	path  string
	err   error
	calls atomic.Int32
}

func (f *fakeRenderer) Render(context.Context, process.Description) (string, error) {
	f.calls.Add(1)
	return f.path, f.err
}

type memoryRecorder struct {
	mu   sync.Mutex
	runs []history.Run
}

func (m *memoryRecorder) Record(_ context.Context, run history.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func newPipeline(t *testing.T, extractor Extractor, chat diagram.ChatModel, opts ...Option) (*Pipeline, string) {
	t.Helper()
	out := t.TempDir()
	base := []Option{WithIDGenerator(func() string { return "run-test" })}
	if chat != nil {
		base = append(base, WithDiagram(diagram.NewRenderer(chat, out)))
	}
	return New(extractor, document.NewRenderer(out), out, append(base, opts...)...), out
}

func TestProcessInvoiceApproval(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	video := testsupport.WriteVideo(t, t.TempDir(), "invoice.mp4")
	extractor := &fakeExtractor{raw: testsupport.SampleResponse()}

	p, out := newPipeline(t, extractor, fakeChat{reply: diagramReply}, WithRecorder(store))
	result, err := p.Process(context.Background(), video)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Failure != nil || result.DiagramErr != nil {
		t.Fatalf("unexpected failure: %v / %v", result.Failure, result.DiagramErr)
	}
	if result.DocumentPath != filepath.Join(out, "Invoice_Approval.docx") {
		t.Fatalf("document path = %s", result.DocumentPath)
	}
	if result.DiagramPath != filepath.Join(out, "Invoice_Approval.drawio") {
		t.Fatalf("diagram path = %s", result.DiagramPath)
	}
	for _, path := range []string{result.DocumentPath, result.DiagramPath} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		switch entry.Name() {
		case "Invoice_Approval.docx", "Invoice_Approval.drawio", lockDirName:
		default:
			t.Fatalf("unexpected entry %q in output dir", entry.Name())
		}
	}
	if _, err := os.Stat(filepath.Join(out, lockDirName, "Invoice_Approval.lock")); err != nil {
		t.Fatalf("expected lock file under %s: %v", lockDirName, err)
	}
	if result.Process == nil || len(result.Process.Applications) != 2 || result.Process.Applications[0].URL != "" {
		t.Fatalf("unexpected parsed process: %#v", result.Process)
	}
	if result.RunID != "run-test" || result.Status() != history.StatusSucceeded {
		t.Fatalf("run id %q status %q", result.RunID, result.Status())
	}

	run, err := store.Get(context.Background(), "run-test")
	if err != nil || run == nil {
		t.Fatalf("expected recorded run, got %v %v", run, err)
	}
	if run.ProcessName != "Invoice Approval" || run.Status != history.StatusSucceeded || run.DiagramPath != result.DiagramPath {
		t.Fatalf("unexpected history record: %#v", run)
	}
}

func TestProcessRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		video func(t *testing.T) string
	}{
		{name: "unsupported extension", video: func(t *testing.T) string {
			return testsupport.WriteVideo(t, t.TempDir(), "notes.txt")
		}},
		{name: "missing file", video: func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "missing.mp4")
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			extractor := &fakeExtractor{raw: testsupport.SampleResponse()}
			rec := &memoryRecorder{}
			p, _ := newPipeline(t, extractor, fakeChat{reply: diagramReply}, WithRecorder(rec))

			result, err := p.Process(context.Background(), tc.video(t))
			if err != nil {
				t.Fatalf("early failures are not returned as errors: %v", err)
			}
			var invalid *extraction.InvalidInputError
			if !errors.As(result.Failure, &invalid) || !errors.Is(result.Failure, services.ErrValidation) {
				t.Fatalf("expected InvalidInputError, got %v", result.Failure)
			}
			if result.FailedStage != StageValidating {
				t.Fatalf("failed stage = %s", result.FailedStage)
			}
			if doc, dia := result.Paths(); doc != nil || dia != nil {
				t.Fatal("expected no output paths")
			}
			if extractor.Calls() != 0 {
				t.Fatalf("extractor called %d times", extractor.Calls())
			}
			if len(rec.runs) != 1 || rec.runs[0].Status != history.StatusFailed || rec.runs[0].ErrorKind != "validation" {
				t.Fatalf("unexpected record: %#v", rec.runs)
			}
		})
	}
}

func TestProcessEarlyFailures(t *testing.T) {
	tests := []struct {
		name      string
		extractor *fakeExtractor
		stage     Stage
		sentinel  error
	}{
		{
			name:      "extraction error",
			extractor: &fakeExtractor{err: &extraction.ExtractionError{Op: "upload", Err: errors.New("connection reset")}},
			stage:     StageExtracting,
			sentinel:  services.ErrExternalTool,
		},
		{
			name:      "extraction timeout",
			extractor: &fakeExtractor{err: &extraction.ExtractionError{Op: "wait", Err: services.ErrTimeout}},
			stage:     StageExtracting,
			sentinel:  services.ErrTimeout,
		},
		{
			name:      "probe rejects",
			extractor: &fakeExtractor{err: &extraction.InvalidInputError{Path: "x.mp4", Reason: "no video stream"}},
			stage:     StageValidating,
			sentinel:  services.ErrValidation,
		},
		{
			name:      "no payload",
			extractor: &fakeExtractor{raw: "I could not watch the video."},
			stage:     StageParsing,
			sentinel:  payload.ErrNoPayload,
		},
		{
			name:      "malformed payload",
			extractor: &fakeExtractor{raw: `{"process_name": "x",}`},
			stage:     StageParsing,
			sentinel:  payload.ErrMalformedPayload,
		},
		{
			name:      "truncated payload",
			extractor: &fakeExtractor{raw: `{"process_name": "Invoice approval", "list_of_applications": [` +
				`{"application_name": "SAP", "type": "desktop"}], "list_of_steps": [{"numbering": "1.0", "group_`},
			stage:    StageParsing,
			sentinel: payload.ErrMalformedPayload,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			video := testsupport.WriteVideo(t, t.TempDir(), "demo.MOV")
			p, out := newPipeline(t, tc.extractor, fakeChat{reply: diagramReply})

			result, err := p.Process(context.Background(), video)
			if err != nil {
				t.Fatalf("unexpected error return: %v", err)
			}
			if result.FailedStage != tc.stage {
				t.Fatalf("failed stage = %s, want %s", result.FailedStage, tc.stage)
			}
			if !errors.Is(result.Failure, tc.sentinel) {
				t.Fatalf("failure %v is not %v", result.Failure, tc.sentinel)
			}
			if result.Succeeded() {
				t.Fatal("expected no document")
			}
			entries, _ := os.ReadDir(out)
			if len(entries) != 0 {
				t.Fatalf("expected empty output dir, found %d entries", len(entries))
			}
		})
	}
}

func TestProcessDiagramDegrades(t *testing.T) {
	for _, concurrent := range []bool{true, false} {
		video := testsupport.WriteVideo(t, t.TempDir(), "invoice.mp4")
		rec := &memoryRecorder{}
		p, _ := newPipeline(t, &fakeExtractor{raw: testsupport.SampleResponse()}, fakeChat{reply: "no diagram, sorry"},
			WithConcurrentRender(concurrent), WithRecorder(rec))

		result, err := p.Process(context.Background(), video)
		if err != nil {
			t.Fatalf("concurrent=%v: Process: %v", concurrent, err)
		}
		if !errors.Is(result.DiagramErr, diagram.ErrNoDiagram) {
			t.Fatalf("concurrent=%v: expected ErrNoDiagram, got %v", concurrent, result.DiagramErr)
		}
		doc, dia := result.Paths()
		if doc == nil || *doc != result.DocumentPath || dia != nil {
			t.Fatalf("concurrent=%v: unexpected paths %v %v", concurrent, doc, dia)
		}
		if result.Status() != history.StatusDegraded || rec.runs[0].DiagramError == "" {
			t.Fatalf("concurrent=%v: expected degraded record, got %#v", concurrent, rec.runs)
		}
	}
}

func TestProcessDocumentFailureIsReturned(t *testing.T) {
	for _, concurrent := range []bool{true, false} {
		video := testsupport.WriteVideo(t, t.TempDir(), "invoice.mp4")
		docErr := &document.RenderError{Stem: "Invoice_Approval", Err: errors.New("disk full")}
		docRenderer := &fakeRenderer{err: docErr}
		diaRenderer := &fakeRenderer{path: "/out/Invoice_Approval.drawio"}
		rec := &memoryRecorder{}
		p := New(&fakeExtractor{raw: testsupport.SampleResponse()}, docRenderer, t.TempDir(),
			WithDiagram(diaRenderer), WithConcurrentRender(concurrent), WithRecorder(rec))

		result, err := p.Process(context.Background(), video)
		if !errors.Is(err, services.ErrRender) {
			t.Fatalf("concurrent=%v: expected render error, got %v", concurrent, err)
		}
		if result.FailedStage != StageRenderingDocument || result.DocumentPath != "" || result.DiagramPath != "" {
			t.Fatalf("concurrent=%v: unexpected result %#v", concurrent, result)
		}
		if !concurrent && diaRenderer.calls.Load() != 0 {
			t.Fatal("sequential render should skip the diagram after a document failure")
		}
		if rec.runs[0].Status != history.StatusFailed || rec.runs[0].ErrorKind != "render" {
			t.Fatalf("unexpected record %#v", rec.runs[0])
		}
	}
}

func TestProcessDocumentFailureRemovesWrittenDiagram(t *testing.T) {
	video := testsupport.WriteVideo(t, t.TempDir(), "invoice.mp4")
	out := t.TempDir()
	docRenderer := &fakeRenderer{err: &document.RenderError{Stem: "Invoice_Approval", Err: errors.New("disk full")}}
	p := New(&fakeExtractor{raw: testsupport.SampleResponse()}, docRenderer, out,
		WithDiagram(diagram.NewRenderer(fakeChat{reply: diagramReply}, out)), WithConcurrentRender(true))

	result, err := p.Process(context.Background(), video)
	if !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected render error, got %v", err)
	}
	if result.DiagramPath != "" {
		t.Fatalf("diagram path = %q, want empty", result.DiagramPath)
	}
	if _, err := os.Stat(filepath.Join(out, "Invoice_Approval.drawio")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected orphaned diagram removed, stat err = %v", err)
	}
}

func TestProcessWithoutDiagram(t *testing.T) {
	video := testsupport.WriteVideo(t, t.TempDir(), "invoice.mkv")
	p, out := newPipeline(t, &fakeExtractor{raw: testsupport.SampleResponse()}, nil)

	result, err := p.Process(context.Background(), video)
	if err != nil {
		t.Fatal(err)
	}
	if result.DiagramPath != "" || result.DiagramErr != nil || result.Status() != history.StatusSucceeded {
		t.Fatalf("unexpected result %#v", result)
	}
	if _, err := os.Stat(filepath.Join(out, "Invoice_Approval.drawio")); !os.IsNotExist(err) {
		t.Fatal("no diagram should be written when disabled")
	}
}

type slowRenderer struct {
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (s *slowRenderer) Render(context.Context, process.Description) (string, error) {
	n := s.active.Add(1)
	for {
		prev := s.maxSeen.Load()
		if n <= prev || s.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	time.Sleep(50 * time.Millisecond)
	s.active.Add(-1)
	return "/out/doc.docx", nil
}

func TestProcessSerializesSameStem(t *testing.T) {
	out := t.TempDir()
	video := testsupport.WriteVideo(t, t.TempDir(), "invoice.mp4")
	renderer := &slowRenderer{}

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := New(&fakeExtractor{raw: testsupport.SampleResponse()}, renderer, out)
			if _, err := p.Process(context.Background(), video); err != nil {
				t.Errorf("Process: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := renderer.maxSeen.Load(); got != 1 {
		t.Fatalf("renders overlapped: max concurrent = %d", got)
	}
}

func TestResultRunUsesReturnedError(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := Result{RunID: "r", VideoPath: "v.mp4", FailedStage: StageRenderingDocument, StartedAt: started, FinishedAt: started.Add(time.Second)}
	run := result.Run(&document.RenderError{Err: errors.New("boom")})
	if run.Status != history.StatusFailed || run.ErrorKind != "render" || run.FailedStage != "rendering_document" {
		t.Fatalf("unexpected run %#v", run)
	}
}

func TestFromConfigRequiresKey(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIKey(""))
	if _, err := FromConfig(cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	cfg = testsupport.NewConfig(t)
	p, err := FromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if p.diagram == nil || !p.concurrent || p.outputDir != cfg.Paths.OutputDir {
		t.Fatalf("unexpected wiring: %#v", p)
	}
}
