package scripts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/healinghome/internal/services/scripts/catalog"
	"github.com/louisbranch/healinghome/internal/services/scripts/routepath"
)

const testOrigin = "http://scripts.example.test"

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	service *Service
	handler http.Handler
	logs    *syncBuffer
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	logs := &syncBuffer{}
	if cfg.Logger == nil {
		cfg.Logger = log.New(logs, "", 0)
	}
	service, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(service.Close)
	handler, err := NewHandler(service)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return &testEnv{service: service, handler: handler, logs: logs}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

// mount opens a page's view session and waits for its load to resolve.
func (e *testEnv) mount(t *testing.T) string {
	t.Helper()
	rr := e.do(t, getRequest("/", "", false))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want %d", rr.Code, http.StatusOK)
	}
	viewID := renderedViewID(t, rr)
	controller, ok := e.service.store.Get(viewID)
	if !ok {
		t.Fatalf("session %q not mounted", viewID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := controller.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return viewID
}

// renderedViewID returns the view session id the page rendered into main.
func renderedViewID(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	_, rest, ok := strings.Cut(rr.Body.String(), `data-view-id="`)
	if !ok {
		t.Fatalf("body has no view id:\n%s", rr.Body.String())
	}
	viewID, _, _ := strings.Cut(rest, `"`)
	if viewID == "" {
		t.Fatal("rendered view id is empty")
	}
	return viewID
}

func postRequest(path string, form url.Values, viewID string, htmx bool) *http.Request {
	if viewID != "" {
		if form == nil {
			form = url.Values{}
		}
		form.Set(routepath.ViewParam, viewID)
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(http.MethodPost, testOrigin+path, body)
	req.Header.Set("Origin", testOrigin)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return req
}

func getRequest(path, viewID string, htmx bool) *http.Request {
	if viewID != "" {
		path = routepath.View(viewID)
	}
	req := httptest.NewRequest(http.MethodGet, testOrigin+path, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return req
}

func assertBodyContains(t *testing.T, rr *httptest.ResponseRecorder, want ...string) {
	t.Helper()
	body := rr.Body.String()
	for _, fragment := range want {
		if !strings.Contains(body, fragment) {
			t.Fatalf("body missing %q:\n%s", fragment, body)
		}
	}
}

func blockingSource() catalog.Source {
	return catalog.SourceFunc(func(ctx context.Context) (catalog.Document, error) {
		<-ctx.Done()
		return catalog.Document{}, ctx.Err()
	})
}

func TestIndexMountsSessionAndRendersLoading(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{Source: blockingSource()})
	rr := env.do(t, getRequest("/", "", false))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if cookies := rr.Result().Cookies(); len(cookies) != 0 {
		t.Fatalf("cookies = %v, want none", cookies)
	}
	viewID := renderedViewID(t, rr)
	assertBodyContains(t, rr,
		"<!doctype html>",
		`data-mode="loading"`,
		"Loading healing scripts...",
		`hx-get="/?view=`+viewID+`"`,
	)
	if strings.Contains(rr.Body.String(), "Show Core Principles") {
		t.Fatalf("loading page rendered grid controls")
	}
	if _, ok := env.service.store.Get(viewID); !ok {
		t.Fatalf("session %q not mounted", viewID)
	}
}

func TestIndexReusesSessionFromViewID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	viewID := env.mount(t)

	rr := env.do(t, getRequest("/", viewID, false))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := renderedViewID(t, rr); got != viewID {
		t.Fatalf("view id = %q, want %q", got, viewID)
	}
	assertBodyContains(t, rr,
		`data-mode="grid"`,
		"Tantrum or Meltdown",
		"4 scripts available",
		`action="/situations/tantrum"`,
		`<input type="hidden" name="view" value="`+viewID+`">`,
		"Show Core Principles",
	)
	if got := env.service.store.Len(); got != 1 {
		t.Fatalf("sessions = %d, want 1", got)
	}
}

func TestEachPageLoadGetsItsOwnSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	first := env.mount(t)
	second := env.mount(t)

	if first == second {
		t.Fatalf("both pages share view id %q", first)
	}
	if got := env.service.store.Len(); got != 2 {
		t.Fatalf("sessions = %d, want 2", got)
	}
}

func TestIndexHTMXPollReturnsMainFragment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	viewID := env.mount(t)

	rr := env.do(t, getRequest("/", viewID, true))
	body := rr.Body.String()
	if strings.Contains(body, "<!doctype html>") {
		t.Fatalf("HTMX response rendered full document")
	}
	if want := `<main id="main" data-mode="grid" data-view-id="` + viewID + `">`; !strings.HasPrefix(body, want) {
		t.Fatalf("body = %q, want prefix %q", body, want)
	}
}

func TestSelectSituationRendersDetail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	viewID := env.mount(t)

	rr := env.do(t, postRequest("/situations/tantrum", nil, viewID, true))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	assertBodyContains(t, rr,
		`data-mode="detail"`,
		"<h1>Tantrum or Meltdown</h1>",
		`&#34;I see you&#39;re upset. I&#39;m right here with you.&#34;`,
		`data-principle-index="1">1</span>`,
		"← Back to situations",
		"Copied to clipboard",
	)
}

func TestSelectUnknownSituationIsNoOp(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	viewID := env.mount(t)

	rr := env.do(t, postRequest("/situations/missing", nil, viewID, true))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	assertBodyContains(t, rr, `data-mode="grid"`)
}

func TestSelectAfterLeaveRemountsAndRendersDetail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	viewID := env.mount(t)

	rr := env.do(t, postRequest("/leave", nil, viewID, false))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("leave status = %d, want %d", rr.Code, http.StatusNoContent)
	}

	rr = env.do(t, postRequest("/situations/tantrum", nil, viewID, true))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	assertBodyContains(t, rr, `data-mode="detail"`, `data-situation-id="tantrum"`)
	if got := renderedViewID(t, rr); got != viewID {
		t.Fatalf("view id = %q, want %q", got, viewID)
	}
}

func TestSelectWithoutViewMountsAndRendersDetail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})

	rr := env.do(t, postRequest("/situations/bedtime", nil, "", true))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	assertBodyContains(t, rr, `data-mode="detail"`, `data-situation-id="bedtime"`)
	if _, ok := env.service.store.Get(renderedViewID(t, rr)); !ok {
		t.Fatal("mutation did not mount a session")
	}
}

func TestMutationWaitIsBoundedByFetchTimeout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{Source: blockingSource(), FetchTimeout: 50 * time.Millisecond})

	start := time.Now()
	rr := env.do(t, postRequest("/situations/tantrum", nil, "", true))
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("mutation took %s, want bounded by fetch timeout", elapsed)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	assertBodyContains(t, rr, `data-mode="loading"`)
}

func TestMutationsWithoutHTMXRedirect(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	viewID := env.mount(t)

	rr := env.do(t, postRequest("/situations/bedtime", nil, viewID, false))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
	if got, want := rr.Header().Get("Location"), "/?view="+viewID; got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}

	rr = env.do(t, getRequest("/", viewID, false))
	assertBodyContains(t, rr, `data-mode="detail"`, `data-situation-id="bedtime"`)

	rr = env.do(t, postRequest("/selection/clear", nil, viewID, false))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("clear status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
	rr = env.do(t, getRequest("/", viewID, false))
	assertBodyContains(t, rr, `data-mode="grid"`)
}

func TestTogglePrinciples(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	viewID := env.mount(t)

	rr := env.do(t, postRequest("/principles/toggle", nil, viewID, true))
	assertBodyContains(t, rr,
		"Hide Core Principles",
		`data-section="quick-principles"`,
		`data-principle-index="1">1</span><p>Connect before you correct.</p>`,
		`data-principle-index="6">6</span>`,
	)

	rr = env.do(t, postRequest("/principles/toggle", nil, viewID, true))
	assertBodyContains(t, rr, "Show Core Principles")
	if strings.Contains(rr.Body.String(), `data-section="quick-principles"`) {
		t.Fatalf("principles panel still visible after second toggle")
	}
}

func TestCopyScriptEmitsTrigger(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	viewID := env.mount(t)
	text := "I see you're upset"

	rr := env.do(t, postRequest("/scripts/copy", url.Values{"text": {text}}, viewID, true))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	want, err := copyScriptTrigger(text)
	if err != nil {
		t.Fatalf("copyScriptTrigger() error = %v", err)
	}
	if got := rr.Header().Get("HX-Trigger"); got != want {
		t.Fatalf("HX-Trigger = %q, want %q", got, want)
	}
}

func TestCopyScriptRequiresText(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	viewID := env.mount(t)

	rr := env.do(t, postRequest("/scripts/copy", url.Values{}, viewID, true))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCrossOriginMutationIsRejectedAndLogged(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	viewID := env.mount(t)

	req := postRequest("/situations/tantrum", nil, viewID, true)
	req.Header.Set("Origin", "https://evil.example.test")
	rr := env.do(t, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
	if logs := env.logs.String(); !strings.Contains(logs, "method=POST path=/situations/tantrum status=403") {
		t.Fatalf("logs = %q, want rejected request logged", logs)
	}

	rr = env.do(t, getRequest("/", viewID, true))
	assertBodyContains(t, rr, `data-mode="grid"`)
}

func TestLeaveUnmountsOnlyThatPage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	leaving := env.mount(t)
	staying := env.mount(t)

	if rr := env.do(t, postRequest("/situations/tantrum", nil, staying, true)); rr.Code != http.StatusOK {
		t.Fatalf("select status = %d, want %d", rr.Code, http.StatusOK)
	}
	rr := env.do(t, postRequest("/leave", nil, leaving, false))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if _, ok := env.service.store.Get(leaving); ok {
		t.Fatalf("session %q still mounted after leave", leaving)
	}
	if got := env.service.store.Len(); got != 1 {
		t.Fatalf("sessions = %d, want 1", got)
	}

	rr = env.do(t, getRequest("/", staying, true))
	assertBodyContains(t, rr, `data-mode="detail"`, `data-situation-id="tantrum"`)
}

func TestLeaveWithoutViewIsNoOp(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	env.mount(t)

	rr := env.do(t, postRequest("/leave", nil, "", false))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := env.service.store.Len(); got != 1 {
		t.Fatalf("sessions = %d, want 1", got)
	}
}

func TestLoadFailureIsLoggedAndViewStaysLoading(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{Source: catalog.SourceFunc(func(context.Context) (catalog.Document, error) {
		return catalog.Document{}, errors.New("connection refused")
	})})
	viewID := env.mount(t)

	rr := env.do(t, getRequest("/", viewID, false))
	assertBodyContains(t, rr, `data-mode="loading"`)
	if !strings.Contains(env.logs.String(), "load situations: connection refused") {
		t.Fatalf("logs = %q, want load failure", env.logs.String())
	}
}

func TestResourceEndpointServesData(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	rr := env.do(t, getRequest("/scripts.json", "", false))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if _, err := catalog.Parse(rr.Body.Bytes()); err != nil {
		t.Fatalf("served resource does not parse: %v", err)
	}
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := getRequest("/scripts.json", "", false)
	req.Header.Set("If-None-Match", etag)
	rr = env.do(t, req)
	if rr.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d, want %d", rr.Code, http.StatusNotModified)
	}
}

func TestHealthAndStatic(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	rr := env.do(t, getRequest("/up", "", false))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("GET /up = %d %q, want 200 ok", rr.Code, rr.Body.String())
	}

	rr = env.do(t, getRequest("/static/app.js", "", false))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /static/app.js status = %d, want %d", rr.Code, http.StatusOK)
	}
	assertBodyContains(t, rr, "copy-script", "data-view-id")
}

func TestAppScriptCopiesDuringClick(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	rr := env.do(t, getRequest("/static/app.js", "", false))
	body := rr.Body.String()

	click := strings.Index(body, `addEventListener("click"`)
	trigger := strings.Index(body, `addEventListener("copy-script"`)
	if click < 0 || trigger < 0 {
		t.Fatalf("app.js missing click or copy-script listener:\n%s", body)
	}
	handler := body[click:trigger]
	for _, want := range []string{`input[name="text"]`, "writeText(input.value)"} {
		if !strings.Contains(handler, want) {
			t.Fatalf("click handler missing %q:\n%s", want, handler)
		}
	}
	assertBodyContains(t, rr, "[data-copied-message]")
}

func TestUnknownRouteRendersNotFoundPage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	rr := env.do(t, getRequest("/nope", "", false))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	assertBodyContains(t, rr, "<!doctype html>", "Page not found")
}

func TestNewServiceRejectsWatchWithoutFile(t *testing.T) {
	t.Parallel()

	if _, err := NewService(Config{WatchData: true}); err == nil {
		t.Fatal("expected error for watch without data file")
	}
}

func TestNewServerRequiresAddress(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty http address")
	}
}

func TestClosedServiceRendersUnavailable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	env.service.Close()

	rr := env.do(t, getRequest("/", "", false))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	assertBodyContains(t, rr, "The service is restarting. Please try again in a moment.")
	if !strings.Contains(env.logs.String(), "request failed path=/") {
		t.Fatalf("logs = %q, want request failure", env.logs.String())
	}
}
