package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/asset"
	"catalog-admin/internal/config"
	"catalog-admin/internal/submit"
	"catalog-admin/internal/testutil"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// backend is a scripted stand-in for the backing API.
type backend struct {
	mu       sync.Mutex
	requests []string
	forms    map[string]map[string][]string
	files    map[string][]string
}

func (b *backend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
}

func (b *backend) parseForm(t *testing.T, r *http.Request) {
	t.Helper()
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		t.Errorf("ParseMultipartForm() error = %v", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	b.forms[key] = r.MultipartForm.Value
	for field, fhs := range r.MultipartForm.File {
		for _, fh := range fhs {
			b.files[key] = append(b.files[key], field+":"+fh.Filename)
		}
	}
}

func (b *backend) seen(req string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.requests {
		if r == req {
			return true
		}
	}
	return false
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{forms: map[string]map[string][]string{}, files: map[string][]string{}}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/admin/login", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "hunter2" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"token":   "tok-abc",
			"admin":   map[string]any{"_id": "adm1", "name": "Asha", "email": body["email"]},
		})
	})
	mux.HandleFunc("POST /api/admin/logout", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false})
	})
	mux.HandleFunc("GET /api/admin/profile", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if r.Header.Get("Authorization") != "Bearer tok-abc" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Not authorized"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"_id": "adm1", "name": "Asha"}})
	})
	mux.HandleFunc("GET /api/banners/ban1", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"_id": "ban1", "title": "Summer", "isActive": true,
			"images": []map[string]any{
				{"_id": "b1", "imageUrl": "https://cdn/b1.jpg", "isPrimary": true},
				{"_id": "b2", "imageUrl": "https://cdn/b2.jpg"},
				{"_id": "b3", "imageUrl": "https://cdn/b3.jpg"},
			},
		}})
	})
	mux.HandleFunc("DELETE /api/banners/ban1/images/b2", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	mux.HandleFunc("DELETE /api/banners/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	mux.HandleFunc("POST /api/banners", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.parseForm(t, r)
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"_id": "ban9"}})
	})
	mux.HandleFunc("PUT /api/banners/ban1", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.parseForm(t, r)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"_id": "ban1"}})
	})
	mux.HandleFunc("PUT /api/order/order/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Order not found"})
	})
	mux.HandleFunc("POST /api/apk/upload", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.parseForm(t, r)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "APK uploaded"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewConfig("op-test", dir)
	cfg.API.BaseURL = baseURL + "/api"
	cfg.Session = config.SessionConfig{Type: "memory"}
	cfg.Archive = config.ArchiveConfig{Type: "memory"}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, operation string) *ConsoleApp {
	t.Helper()
	a, err := NewConsoleApp(context.Background(), cfg, operation,
		WithStderr(&bytes.Buffer{}, slog.LevelError),
		WithClock(testutil.FixedClock()))
	if err != nil {
		t.Fatalf("NewConsoleApp() error = %v", err)
	}
	return a
}

func loggedIn(t *testing.T, a *ConsoleApp) {
	t.Helper()
	if _, err := a.Login(context.Background(), "asha@example.com", "hunter2"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func reopenHistory(t *testing.T, cfg *config.Config) []*admin.Operation {
	t.Helper()
	a := newTestApp(t, cfg, "history")
	defer a.Close()
	ops, err := a.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	return ops
}

func TestConsoleApp_RequiresLogin(t *testing.T) {
	_, srv := newBackend(t)
	a := newTestApp(t, testConfig(t, srv.URL), "banner list")
	defer a.Close()

	if _, err := a.Banners(context.Background(), false); !errors.Is(err, admin.ErrNotAuthenticated) {
		t.Errorf("Banners() error = %v, want ErrNotAuthenticated", err)
	}
	if _, err := a.SaveBanner(context.Background(), EditRequest{Primary: -1}, nil); !errors.Is(err, admin.ErrNotAuthenticated) {
		t.Errorf("SaveBanner() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestConsoleApp_LoginWhoAmILogout(t *testing.T) {
	b, srv := newBackend(t)
	cfg := testConfig(t, srv.URL)
	a := newTestApp(t, cfg, "login")
	ctx := context.Background()

	if _, err := a.Login(ctx, "asha@example.com", "wrong"); err == nil {
		t.Fatal("Login() expected error for bad password")
	}

	sess, err := a.Login(ctx, "asha@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if sess.Token != "tok-abc" {
		t.Errorf("Token = %q, want tok-abc", sess.Token)
	}
	stored, err := a.sessions.Load()
	if err != nil || stored == nil || stored.Token != "tok-abc" {
		t.Fatalf("stored session = %+v, %v", stored, err)
	}

	op, err := a.WhoAmI(ctx)
	if err != nil {
		t.Fatalf("WhoAmI() error = %v", err)
	}
	if op.Name != "Asha" {
		t.Errorf("WhoAmI() = %+v", op)
	}

	if err := a.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v (remote failure must not block local logout)", err)
	}
	if !b.seen("POST /api/admin/logout") {
		t.Error("remote logout not attempted")
	}
	if stored, _ := a.sessions.Load(); stored != nil {
		t.Errorf("session still stored after logout: %+v", stored)
	}
	if _, err := a.WhoAmI(ctx); !errors.Is(err, admin.ErrNotAuthenticated) {
		t.Errorf("WhoAmI() after logout error = %v, want ErrNotAuthenticated", err)
	}
	a.Close()
}

func TestConsoleApp_CreateBanner(t *testing.T) {
	b, srv := newBackend(t)
	cfg := testConfig(t, srv.URL)
	a := newTestApp(t, cfg, "banner create")
	loggedIn(t, a)

	dir := t.TempDir()
	big := make([]byte, asset.DefaultImageMaxBytes+1)
	req := EditRequest{
		Fields: []submit.Field{
			{Name: "title", Value: "Diwali Sale"},
			{Name: "isActive", Value: true},
		},
		Files: []string{
			writeFile(t, dir, "a.png", []byte("png-a")),
			filepath.Join(dir, "missing.png"),
			writeFile(t, dir, "huge.png", big),
			writeFile(t, dir, "b.png", []byte("png-b")),
		},
		Primary: 3,
	}

	res, err := a.SaveBanner(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("SaveBanner() error = %v", err)
	}
	if res.ID != "ban9" || res.Message != "Banner created successfully!" {
		t.Errorf("result = %+v", res)
	}
	if res.Staged != 2 || len(res.Rejected) != 2 {
		t.Fatalf("staged = %d, rejected = %v", res.Staged, res.Rejected)
	}
	if res.Rejected[0].Reason != admin.ReasonUnreadable || res.Rejected[1].Reason != admin.ReasonSize {
		t.Errorf("rejected = %v, want missing.png unreadable then huge.png size", res.Rejected)
	}

	form := b.forms["POST /api/banners"]
	if got := form["primaryImageIndex"]; len(got) != 1 || got[0] != "1" {
		t.Errorf("primaryImageIndex = %v, want [1]", got)
	}
	if got := form["title"]; len(got) != 1 || got[0] != "Diwali Sale" {
		t.Errorf("title = %v", got)
	}
	if _, ok := form["keepExistingImages"]; ok {
		t.Error("create request carried keepExistingImages")
	}
	files := b.files["POST /api/banners"]
	if len(files) != 2 || files[0] != "images:a.png" || files[1] != "images:b.png" {
		t.Errorf("files = %v", files)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	ops := reopenHistory(t, cfg)
	var found bool
	for _, op := range ops {
		if op.Operation == "banner create" {
			found = true
			if op.Status != "success" || !op.FinishedAt.Valid {
				t.Errorf("recorded op = %+v", op)
			}
		}
	}
	if !found {
		t.Errorf("banner create not recorded: %+v", ops)
	}
}

func TestConsoleApp_EditBanner(t *testing.T) {
	b, srv := newBackend(t)
	a := newTestApp(t, testConfig(t, srv.URL), "banner edit")
	defer a.Close()
	loggedIn(t, a)

	confirm := testutil.Yes()
	keep := true
	res, err := a.SaveBanner(context.Background(), EditRequest{
		ID:              "ban1",
		Fields:          []submit.Field{{Name: "title", Value: "Summer Sale"}},
		Primary:         -1,
		PrimaryExisting: "b3",
		DeleteAssets:    []string{"b2"},
		KeepExisting:    &keep,
	}, confirm)
	if err != nil {
		t.Fatalf("SaveBanner() error = %v", err)
	}
	if res.Message != "Banner updated successfully!" {
		t.Errorf("Message = %q", res.Message)
	}
	if len(res.Deleted) != 1 || res.Deleted[0] != "b2" {
		t.Errorf("Deleted = %v", res.Deleted)
	}
	if !b.seen("DELETE /api/banners/ban1/images/b2") {
		t.Error("image delete not sent")
	}

	form := b.forms["PUT /api/banners/ban1"]
	if got := form["primaryImageId"]; len(got) != 1 || got[0] != "b3" {
		t.Errorf("primaryImageId = %v, want [b3]", got)
	}
	if got := form["keepExistingImages"]; len(got) != 1 || got[0] != "true" {
		t.Errorf("keepExistingImages = %v, want [true]", got)
	}
}

func TestConsoleApp_EditBanner_UnknownPrimary(t *testing.T) {
	b, srv := newBackend(t)
	a := newTestApp(t, testConfig(t, srv.URL), "banner edit")
	defer a.Close()
	loggedIn(t, a)

	_, err := a.SaveBanner(context.Background(), EditRequest{ID: "ban1", Primary: -1, PrimaryExisting: "zz"}, nil)
	if err == nil {
		t.Fatal("SaveBanner() expected error for unknown primary image")
	}
	if b.seen("PUT /api/banners/ban1") {
		t.Error("update sent despite bad primary")
	}
	if a.op.Status != "failed" {
		t.Errorf("op status = %q, want failed", a.op.Status)
	}
}

func TestConsoleApp_DeleteBanner(t *testing.T) {
	tests := []struct {
		name    string
		answer  bool
		want    bool
		wantReq bool
	}{
		{name: "confirmed", answer: true, want: true, wantReq: true},
		{name: "declined", answer: false, want: false, wantReq: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, srv := newBackend(t)
			a := newTestApp(t, testConfig(t, srv.URL), "banner delete")
			defer a.Close()
			loggedIn(t, a)

			confirm := &testutil.ScriptedConfirmer{Answer: tt.answer}
			got, err := a.DeleteBanner(context.Background(), "ban5", confirm)
			if err != nil {
				t.Fatalf("DeleteBanner() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DeleteBanner() = %v, want %v", got, tt.want)
			}
			if b.seen("DELETE /api/banners/ban5") != tt.wantReq {
				t.Errorf("delete request sent = %v, want %v", !tt.wantReq, tt.wantReq)
			}
			if len(confirm.Prompts) != 1 || confirm.Prompts[0] != "Delete banner ban5?" {
				t.Errorf("prompts = %v", confirm.Prompts)
			}
		})
	}
}

func TestConsoleApp_FailedOperationRecorded(t *testing.T) {
	_, srv := newBackend(t)
	cfg := testConfig(t, srv.URL)
	a := newTestApp(t, cfg, "order status")
	loggedIn(t, a)

	if _, err := a.UpdateOrderStatus(context.Background(), "ord1", "shipped"); err == nil {
		t.Fatal("UpdateOrderStatus() expected error")
	}
	a.Close()

	ops := reopenHistory(t, cfg)
	if len(ops) == 0 {
		t.Fatal("no operations recorded")
	}
	last := ops[0]
	if last.Operation != "order status" || last.Status != "failed" || last.Message != "Order not found" {
		t.Errorf("recorded op = %+v", last)
	}
}

func TestConsoleApp_UploadPackage(t *testing.T) {
	b, srv := newBackend(t)
	a := newTestApp(t, testConfig(t, srv.URL), "apk upload")
	defer a.Close()
	loggedIn(t, a)

	path := writeFile(t, t.TempDir(), "shop-1.4.0.apk", []byte("PK\x03\x04 fake apk"))
	res, err := a.UploadPackage(context.Background(), path, "1.4.0")
	if err != nil {
		t.Fatalf("UploadPackage() error = %v", err)
	}
	if res.Message != "App package created successfully!" {
		t.Errorf("Message = %q", res.Message)
	}

	files := b.files["POST /api/apk/upload"]
	if len(files) != 1 || files[0] != "apk:shop-1.4.0.apk" {
		t.Errorf("files = %v", files)
	}
	if got := b.forms["POST /api/apk/upload"]["version"]; len(got) != 1 || got[0] != "1.4.0" {
		t.Errorf("version = %v", got)
	}

	archived, err := a.ArchivedPackages()
	if err != nil {
		t.Fatalf("ArchivedPackages() error = %v", err)
	}
	if len(archived) != 1 || archived[0].Version != "1.4.0" || archived[0].Name != "shop-1.4.0.apk" {
		t.Errorf("archived = %+v", archived)
	}
}

func TestConsoleApp_UploadPackage_WrongType(t *testing.T) {
	b, srv := newBackend(t)
	a := newTestApp(t, testConfig(t, srv.URL), "apk upload")
	defer a.Close()
	loggedIn(t, a)

	path := writeFile(t, t.TempDir(), "notes.txt", []byte("hello"))
	_, err := a.UploadPackage(context.Background(), path, "")
	var verr *admin.ValidationError
	if !errors.As(err, &verr) || verr.Reason != admin.ReasonType {
		t.Fatalf("UploadPackage() error = %v, want type rejection", err)
	}
	if b.seen("POST /api/apk/upload") {
		t.Error("upload sent for rejected file")
	}
	if archived, _ := a.ArchivedPackages(); len(archived) != 0 {
		t.Errorf("rejected file archived: %+v", archived)
	}
}

func TestPoliciesFromConfig(t *testing.T) {
	tests := []struct {
		name   string
		limits config.LimitsConfig
		check  func(t *testing.T, p policies)
	}{
		{
			name:   "defaults",
			limits: config.LimitsConfig{},
			check: func(t *testing.T, p policies) {
				if p.banner.MaxStaged != asset.DefaultBannerMaxImages || p.product.MaxStaged != asset.DefaultProductMaxImages {
					t.Errorf("counts = %d, %d", p.banner.MaxStaged, p.product.MaxStaged)
				}
				if p.pkg.MaxBytes != asset.DefaultPackageMaxBytes {
					t.Errorf("package max = %d", p.pkg.MaxBytes)
				}
			},
		},
		{
			name:   "overrides",
			limits: config.LimitsConfig{ImageMaxBytes: 1024, BannerMaxImages: 3, ProductMaxImages: 2, PackageMaxBytes: 4096},
			check: func(t *testing.T, p policies) {
				if p.banner.MaxBytes != 1024 || p.product.MaxBytes != 1024 {
					t.Errorf("image max = %d, %d", p.banner.MaxBytes, p.product.MaxBytes)
				}
				if p.banner.MaxStaged != 3 || p.product.MaxStaged != 2 || p.pkg.MaxBytes != 4096 {
					t.Errorf("policies = %+v", p)
				}
				if p.pkg.MaxStaged != 1 {
					t.Errorf("package count = %d, want 1", p.pkg.MaxStaged)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, policiesFromConfig(tt.limits))
		})
	}
}
