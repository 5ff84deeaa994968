// Package server provides the CardStencil HTTP API: card previews and
// issuance, the active template slot, interactive field editing and
// uploaded assets.
package server

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xob0t/CardStencil/pkg/member"
	"github.com/xob0t/CardStencil/pkg/render"
	"github.com/xob0t/CardStencil/pkg/source"
	"github.com/xob0t/CardStencil/pkg/store"
	"github.com/xob0t/CardStencil/pkg/template"
)

// Upload limits.
const (
	MaxTemplateUpload = 10 << 20
	MaxFontUpload     = 10 << 20
)

// AssetPrefix is the root-relative URL uploaded assets are served under.
const AssetPrefix = "/api/assets/"

// ── Asset Manager ──

type asset struct {
	Name    string
	Data    []byte
	Mime    string
	Created time.Time
}

type assetManager struct {
	mu     sync.RWMutex
	assets map[string]*asset
}

func newAssetManager() *assetManager {
	return &assetManager{assets: make(map[string]*asset)}
}

func (am *assetManager) add(name string, data []byte, mimeType string) string {
	id := randomID()
	am.mu.Lock()
	am.assets[id] = &asset{Name: name, Data: data, Mime: mimeType, Created: time.Now()}
	am.mu.Unlock()
	return id
}

func (am *assetManager) get(id string) (*asset, bool) {
	am.mu.RLock()
	a, ok := am.assets[id]
	am.mu.RUnlock()
	return a, ok
}

type assetInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Mime string `json:"mime"`
	Size int    `json:"size"`
	URL  string `json:"url"`
}

func (am *assetManager) listAll() []assetInfo {
	am.mu.RLock()
	defer am.mu.RUnlock()
	result := make([]assetInfo, 0, len(am.assets))
	for id, a := range am.assets {
		result = append(result, assetInfo{ID: id, Name: a.Name, Mime: a.Mime, Size: len(a.Data), URL: AssetPrefix + id})
	}
	sort.Slice(result, func(i, j int) bool {
		return am.assets[result[i].ID].Created.Before(am.assets[result[j].ID].Created)
	})
	return result
}

func (am *assetManager) remove(id string) bool {
	am.mu.Lock()
	defer am.mu.Unlock()
	if _, ok := am.assets[id]; !ok {
		return false
	}
	delete(am.assets, id)
	return true
}

// resolve returns the bytes behind an asset URL, if it names one of ours.
func (am *assetManager) resolve(ref string) ([]byte, bool) {
	id, ok := strings.CutPrefix(ref, AssetPrefix)
	if !ok {
		return nil, false
	}
	a, ok := am.get(id)
	if !ok {
		return nil, false
	}
	return a.Data, true
}

func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// ── Server ──

// Options wires the server to its collaborators. Members may be nil, in
// which case issuance is unavailable.
type Options struct {
	Renderer  *render.Renderer
	Templates store.TemplateStore
	Members   store.MemberSource
	Cards     store.CardSink
	Logger    *slog.Logger
}

// Server is the API handler.
type Server struct {
	renderer  *render.Renderer
	templates store.TemplateStore
	members   store.MemberSource
	cards     store.CardSink
	assets    *assetManager
	session   *template.EditSession
	log       *slog.Logger
	mux       *http.ServeMux
}

// New loads the active template into an edit session and registers the
// routes. Settled edits are saved back to the template store.
func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.Renderer == nil || opts.Templates == nil {
		return nil, errors.New("server: renderer and template store are required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	active, err := opts.Templates.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Info("no active template yet, starting empty")
		active = nil
	case err != nil:
		return nil, fmt.Errorf("load active template: %w", err)
	}

	s := &Server{
		renderer:  opts.Renderer,
		templates: opts.Templates,
		members:   opts.Members,
		cards:     opts.Cards,
		assets:    newAssetManager(),
		log:       log,
		mux:       http.NewServeMux(),
	}
	s.session = template.NewEditSession(active, s.autosave)

	// Rendering.
	s.mux.HandleFunc("POST /api/preview", s.handlePreview)
	s.mux.HandleFunc("POST /api/cards/{memberID}/issue", s.handleIssue)
	s.mux.HandleFunc("GET /api/cards/{file}", s.handleGetCard)

	// Template slot and editing.
	s.mux.HandleFunc("GET /api/template", s.handleGetTemplate)
	s.mux.HandleFunc("PUT /api/template", s.handlePutTemplate)
	s.mux.HandleFunc("POST /api/template/fields", s.handleAddField)
	s.mux.HandleFunc("PATCH /api/template/fields/{name}", s.handlePatchField)
	s.mux.HandleFunc("DELETE /api/template/fields/{name}", s.handleDeleteField)
	s.mux.HandleFunc("POST /api/template/fields/{name}/drag", s.handleDrag)

	// Assets.
	s.mux.HandleFunc("POST /api/upload/template", s.handleUploadTemplate)
	s.mux.HandleFunc("POST /api/upload/font", s.handleUploadFont)
	s.mux.HandleFunc("GET /api/assets/{id}", s.handleGetAsset)
	s.mux.HandleFunc("DELETE /api/assets/{id}", s.handleDeleteAsset)
	s.mux.HandleFunc("GET /api/assets", s.handleListAssets)

	s.mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
	})
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("CardStencil API listening", "addr", addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// autosave persists settled edits. It runs outside the session lock.
func (s *Server) autosave(t *template.Template) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.templates.Save(ctx, t); err != nil {
		s.log.Error("autosave template failed", "err", err)
		return
	}
	s.log.Debug("template saved", "fields", len(t.Fields()))
}

// ── Render ──

type previewRequest struct {
	Template *template.Template `json:"template"`
	Record   render.Record      `json:"record"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "decode request: "+err.Error(), http.StatusBadRequest)
		return
	}
	tpl := req.Template
	if tpl == nil {
		tpl = s.session.Snapshot()
	}

	res, err := s.render(r.Context(), tpl, req.Record)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	warnings, _ := json.Marshal(warningList(res.Warnings))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("X-Card-Warnings", string(warnings))
	w.Write(res.Bytes)
}

type issueResponse struct {
	URL      string           `json:"url"`
	Bytes    int              `json:"bytes"`
	Warnings []render.Warning `json:"warnings"`
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	if s.members == nil {
		http.Error(w, "member source not configured", http.StatusServiceUnavailable)
		return
	}
	id := r.PathValue("memberID")
	m, err := s.members.Member(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, fmt.Sprintf("member %q not found", id), http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("load member failed", "member", id, "err", err)
		http.Error(w, "load member: "+err.Error(), http.StatusInternalServerError)
		return
	}

	tpl, err := s.templates.Load(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "no active template", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "load template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	rec := member.Project(m)
	res, err := s.render(r.Context(), tpl, rec)
	if err != nil {
		s.log.Warn("card issuance failed", "member", rec.ID, "err", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	name, err := s.cards.Put(rec.ID, res.Bytes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("card issued", "member", rec.ID, "file", name, "warnings", len(res.Warnings))
	writeJSON(w, http.StatusOK, issueResponse{
		URL:      "/api/cards/" + name,
		Bytes:    len(res.Bytes),
		Warnings: warningList(res.Warnings),
	})
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	path, err := s.cards.Open(r.PathValue("file"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)
}

// render swaps references to uploaded assets for their bytes so renders
// never call back into this server, then renders.
func (s *Server) render(ctx context.Context, tpl *template.Template, rec render.Record) (render.Result, error) {
	tpl = tpl.Clone()
	if ref, ok := tpl.BasePDF.Raw().(string); ok {
		if data, ok := s.assets.resolve(ref); ok {
			tpl.BasePDF = source.Bytes(data)
		}
	}
	if len(rec.Values) > 0 {
		values := make(map[string]render.Value, len(rec.Values))
		for k, v := range rec.Values {
			if data, ok := s.assets.resolve(strings.TrimSpace(v.Text)); ok && len(v.Data) == 0 {
				v = render.Value{Data: data}
			}
			values[k] = v
		}
		rec.Values = values
	}
	return s.renderer.RenderCard(ctx, tpl, rec)
}

func warningList(ws []render.Warning) []render.Warning {
	if ws == nil {
		return []render.Warning{}
	}
	return ws
}

// ── Template ──

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	state, dragging := s.session.State()
	w.Header().Set("X-Edit-State", state.String())
	if dragging != "" {
		w.Header().Set("X-Edit-Field", dragging)
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handlePutTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := decodeTemplate(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := template.Validate(t, nil); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.session.Replace(t); err != nil {
		s.editError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func decodeTemplate(body io.Reader) (*template.Template, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return template.Parse(data)
}

func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	var f template.Field
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "decode field: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.session.Add(f); err != nil {
		s.editError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.session.Snapshot())
}

// handlePatchField merges the given wire properties into the field.
func (s *Server) handlePatchField(w http.ResponseWriter, r *http.Request) {
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "decode patch: "+err.Error(), http.StatusBadRequest)
		return
	}

	var patchErr error
	err := s.session.Update(r.PathValue("name"), func(f *template.Field) {
		merged, err := mergeField(*f, patch)
		if err != nil {
			patchErr = err
			return
		}
		*f = merged
	})
	if patchErr != nil {
		http.Error(w, patchErr.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.editError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func mergeField(f template.Field, patch map[string]json.RawMessage) (template.Field, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return f, err
	}
	var props map[string]json.RawMessage
	if err := json.Unmarshal(raw, &props); err != nil {
		return f, err
	}
	for k, v := range patch {
		props[k] = v
	}
	if raw, err = json.Marshal(props); err != nil {
		return f, err
	}
	var out template.Field
	if err := json.Unmarshal(raw, &out); err != nil {
		return f, fmt.Errorf("apply patch: %w", err)
	}
	return out, nil
}

func (s *Server) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Remove(r.PathValue("name")); err != nil {
		s.editError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

type dragRequest struct {
	State string  `json:"state"` // begin, move or end
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "decode drag: "+err.Error(), http.StatusBadRequest)
		return
	}
	name := r.PathValue("name")

	var err error
	switch req.State {
	case "begin":
		err = s.session.BeginDrag(name)
	case "move":
		err = s.session.DragTo(name, template.Position{X: req.X, Y: req.Y})
	case "end":
		if state, dragging := s.session.State(); state == template.Dragging && dragging != name {
			err = fmt.Errorf("end drag %q: %w", name, template.ErrNotDragging)
			break
		}
		err = s.session.EndDrag()
	default:
		http.Error(w, fmt.Sprintf("unknown drag state %q", req.State), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.editError(w, err)
		return
	}
	state, dragging := s.session.State()
	writeJSON(w, http.StatusOK, map[string]string{"state": state.String(), "field": dragging})
}

func (s *Server) editError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, template.ErrFieldNotFound):
		status = http.StatusNotFound
	case errors.Is(err, template.ErrFieldExists),
		errors.Is(err, template.ErrNotDragging),
		errors.Is(err, template.ErrDragInProgress):
		status = http.StatusConflict
	case errors.Is(err, template.ErrMalformedField):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

// ── Upload ──

func (s *Server) handleUploadTemplate(w http.ResponseWriter, r *http.Request) {
	data, name, err := readUpload(w, r, MaxTemplateUpload, "template", "file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		http.Error(w, "invalid file type: only application/pdf is accepted", http.StatusUnsupportedMediaType)
		return
	}
	s.created(w, s.assets.add(name, data, "application/pdf"), name)
}

func (s *Server) handleUploadFont(w http.ResponseWriter, r *http.Request) {
	data, name, err := readUpload(w, r, MaxFontUpload, "font", "file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mimeType == "" {
		mimeType = "font/ttf"
	}
	s.created(w, s.assets.add(name, data, mimeType), name)
}

// readUpload reads the first present multipart field among names, within
// limit bytes.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64, names ...string) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, "", fmt.Errorf("parse upload: %w", err)
	}
	for _, n := range names {
		file, header, err := r.FormFile(n)
		if err != nil {
			continue
		}
		defer file.Close()
		if header.Size > limit {
			return nil, "", fmt.Errorf("file exceeds %d bytes", limit)
		}
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("read upload: %w", err)
		}
		if len(data) == 0 {
			return nil, "", errors.New("empty file")
		}
		return data, filepath.Base(header.Filename), nil
	}
	return nil, "", errors.New("no file uploaded")
}

func (s *Server) created(w http.ResponseWriter, id, name string) {
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":   id,
		"name": name,
		"url":  AssetPrefix + id,
	})
}

// ── Asset serving ──

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.assets.get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.Mime)
	w.Write(a.Data)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.assets.listAll())
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.assets.remove(id) {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// ── Helpers ──

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
