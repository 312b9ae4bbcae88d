package scripts

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/healinghome/internal/platform/otel"
	apperrors "github.com/louisbranch/healinghome/internal/services/scripts/platform/errors"
	"github.com/louisbranch/healinghome/internal/services/scripts/platform/httpx"
	"github.com/louisbranch/healinghome/internal/services/scripts/platform/i18n"
	"github.com/louisbranch/healinghome/internal/services/scripts/routepath"
	"github.com/louisbranch/healinghome/internal/services/scripts/session"
	"github.com/louisbranch/healinghome/internal/services/scripts/static"
	"github.com/louisbranch/healinghome/internal/services/scripts/templates"
	"github.com/louisbranch/healinghome/internal/services/scripts/view"
	"go.opentelemetry.io/otel/attribute"
)

const maxCopyFormBytes = 64 << 10

func (s *Service) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(routepath.StaticPrefix, http.StripPrefix(routepath.StaticPrefix, http.FileServer(http.FS(static.FS))))
	mux.Handle("GET "+routepath.Resource, s.resource)
	mux.HandleFunc("GET "+routepath.Health, handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST "+routepath.SituationsPrefix+"{id}", s.handleSelectSituation)
	mux.HandleFunc("POST "+routepath.SelectionClear, s.handleClearSelection)
	mux.HandleFunc("POST "+routepath.PrinciplesToggle, s.handleTogglePrinciples)
	mux.HandleFunc("POST "+routepath.ScriptsCopy, s.handleCopyScript)
	mux.HandleFunc("POST "+routepath.Leave, s.handleLeave)
	mux.HandleFunc("/", s.handleNotFound)
	return mux
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func (s *Service) handleIndex(w http.ResponseWriter, r *http.Request) {
	viewID, controller, _, err := s.openView(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.renderState(w, r, viewID, controller.Snapshot())
}

func (s *Service) handleSelectSituation(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(controller *view.Controller) {
		controller.SelectSituation(r.PathValue("id"))
	})
}

func (s *Service) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(controller *view.Controller) {
		controller.ClearSelection()
	})
}

func (s *Service) handleTogglePrinciples(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(controller *view.Controller) {
		controller.ToggleQuickPrinciples()
	})
}

func (s *Service) handleCopyScript(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCopyFormBytes)
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, apperrors.E(apperrors.KindInvalidInput, "invalid copy form"))
		return
	}
	values, ok := r.PostForm["text"]
	if !ok || len(values) == 0 {
		httpx.WriteError(w, apperrors.E(apperrors.KindInvalidInput, "script text is required"))
		return
	}
	viewID, controller, _, err := s.openView(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	controller.CopyScript(r.Context(), HXTriggerClipboard{W: w}, values[0])
	if httpx.IsHTMXRequest(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.WriteRedirect(w, r, routepath.View(viewID))
}

// handleLeave unmounts only the view session named by the request, so other
// pages of the same browser keep theirs.
func (s *Service) handleLeave(w http.ResponseWriter, r *http.Request) {
	if viewID := strings.TrimSpace(r.FormValue(routepath.ViewParam)); viewID != "" {
		s.store.Unmount(viewID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, apperrors.E(apperrors.KindNotFound, http.StatusText(http.StatusNotFound)))
}

// mutate applies op to the request's view session, then re-renders for HTMX
// or redirects back to the page. A session mounted by this request is given
// until the fetch timeout to load, so the operation applies to a document.
func (s *Service) mutate(w http.ResponseWriter, r *http.Request, op func(*view.Controller)) {
	viewID, controller, mounted, err := s.openView(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if mounted {
		ctx, cancel := context.WithTimeout(r.Context(), s.fetchTimeout)
		if err := controller.Wait(ctx); err != nil {
			s.logger.Printf("wait for view load view=%s: %v", viewID, err)
		}
		cancel()
	}
	op(controller)
	if !httpx.IsHTMXRequest(r) {
		httpx.WriteRedirect(w, r, routepath.View(viewID))
		return
	}
	s.renderState(w, r, viewID, controller.Snapshot())
}

// openView resolves the page's view session from the view form or query
// value, mounting one when it is missing or gone.
func (s *Service) openView(r *http.Request) (string, *view.Controller, bool, error) {
	requested := strings.TrimSpace(r.FormValue(routepath.ViewParam))
	viewID, controller, mounted, err := s.store.Open(r.Context(), requested)
	if err != nil {
		if errors.Is(err, session.ErrClosed) {
			return "", nil, false, apperrors.EK(apperrors.KindUnavailable, "error.unavailable.body", "service is shutting down")
		}
		return "", nil, false, err
	}
	return viewID, controller, mounted, nil
}

func (s *Service) renderState(w http.ResponseWriter, r *http.Request, viewID string, state view.State) {
	ctx, span := otel.Tracer().Start(r.Context(), "view.render")
	defer span.End()
	span.SetAttributes(attribute.String("view.mode", state.Mode().String()))

	printer, tag := i18n.ResolvePrinter(w, r)
	var component templ.Component
	if httpx.IsHTMXRequest(r) {
		component = templates.Main(viewID, state, printer)
	} else {
		component = templates.Page(viewID, state, tag.String(), printer)
	}
	s.writeComponent(ctx, w, http.StatusOK, component)
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Printf("request failed path=%s request_id=%s: %v", r.URL.Path, httpx.RequestIDFrom(r), err)
	}
	printer, tag := i18n.ResolvePrinter(w, r)
	bodyKey := apperrors.LocalizationKey(err)
	var component templ.Component = templates.ErrorState(status, bodyKey, printer)
	if !httpx.IsHTMXRequest(r) {
		component = templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
			body := templates.ErrorState(status, bodyKey, printer)
			return templates.Layout(templates.ErrorTitle(status, printer), tag.String()).Render(templ.WithChildren(ctx, body), out)
		})
	}
	s.writeComponent(r.Context(), w, status, component)
}

func (s *Service) writeComponent(ctx context.Context, w http.ResponseWriter, status int, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := component.Render(ctx, w); err != nil {
		logRenderError(s.logger, err)
	}
}

func logRenderError(logger *log.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	logger.Printf("render view: %v", err)
}
