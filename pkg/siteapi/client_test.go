package siteapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/morf1ng/105site/pkg/imagenorm"
	"github.com/morf1ng/105site/pkg/projectshape"
)

func TestClient_GetProject_SendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/projects/5" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":5,"title":"T","url":"u","stages":"[]","preview_img":null}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", WithToken("Bearer tok"))
	p, err := c.GetProject(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if p.ID != 5 || p.Title != "T" || p.PreviewImg != nil {
		t.Errorf("unexpected project %+v", p)
	}
}

func TestClient_APIErrorTruncatesBody(t *testing.T) {
	long := strings.Repeat("я", 300)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListProjects(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != 400 || apiErr.StatusText != "Bad Request" {
		t.Errorf("status = %d %q", apiErr.Status, apiErr.StatusText)
	}
	if n := len([]rune(apiErr.Body)); n != 200 {
		t.Errorf("body length = %d, want 200", n)
	}
	if !strings.HasPrefix(apiErr.Error(), "list projects: API error 400: Bad Request – ") {
		t.Errorf("message = %q", apiErr.Error())
	}
}

func TestClient_APIErrorHTMLPage(t *testing.T) {
	page := `<html><head><title>502 Bad Gateway</title><style>body{}</style></head>
<body><center><h1>502 Bad Gateway</h1></center><hr><center>nginx</center></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListProjects(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if !strings.HasPrefix(apiErr.Body, "<html>") {
		t.Errorf("raw body must be kept, got %q", apiErr.Body)
	}
	if strings.ContainsAny(apiErr.Text, "<>") || !strings.Contains(apiErr.Text, "502 Bad Gateway") || !strings.Contains(apiErr.Text, "nginx") {
		t.Errorf("text = %q", apiErr.Text)
	}
	if strings.Contains(apiErr.Error(), "<html>") {
		t.Errorf("message must not contain markup: %q", apiErr.Error())
	}
}

func TestClient_APIErrorJSONBodyHasNoText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetProject(context.Background(), 9)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Text != "" || apiErr.Body != `{"error":"not_found"}` {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestClient_NoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := New(srv.URL).DeleteProject(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly one request, got %d", calls)
	}
}

func TestClient_LoginReadsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Error(err)
			return
		}
		if r.PostForm.Get("email") != "a@b.c" || r.PostForm.Get("password") != "pw" {
			t.Errorf("form = %v", r.PostForm)
		}
		w.Header().Set("Authorization", "Bearer acc")
		w.Header().Set("X-Refresh-Token", "ref")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	tok, err := c.Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.AccessToken != "acc" || tok.RefreshToken != "ref" || tok.TokenType != "bearer" {
		t.Errorf("tokens = %+v", tok)
	}
	if c.Token() != "acc" {
		t.Errorf("client token = %q", c.Token())
	}
}

func TestClient_LoginMissingTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"only"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Login(context.Background(), "a", "b")
	if !errors.Is(err, ErrTokensMissing) {
		t.Errorf("expected ErrTokensMissing, got %v", err)
	}
}

func TestClient_UpdateProjectMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/projects/3" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if r.FormValue("title") != "T" {
			t.Errorf("title = %q", r.FormValue("title"))
		}
		if _, _, err := r.FormFile("result_imgs[1]"); err != nil {
			t.Errorf("missing result_imgs[1]: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 3, "title": "T", "url": "u"})
	}))
	defer srv.Close()

	s, err := projectshape.NewSession(projectshape.View{ID: 3, Title: "T", URL: "u"}).
		AttachImage(projectshape.Slot{Role: projectshape.RoleResult, Index: 1}, imagenorm.NewFile("m.jpg", "image/jpeg", []byte("x")))
	if err != nil {
		t.Fatal(err)
	}
	c := New(srv.URL)
	payload, err := projectshape.ToWire(s.View, s.Files, c.Resolver())
	if err != nil {
		t.Fatal(err)
	}
	w, err := c.UpdateProject(context.Background(), 3, payload)
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if w.ID != 3 {
		t.Errorf("id = %d", w.ID)
	}
}

func TestClient_CreateUserForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("role_ids") != "1,3" {
			t.Errorf("role_ids = %q", r.PostForm.Get("role_ids"))
		}
		if _, ok := r.PostForm["fullname"]; ok {
			t.Error("nil fullname must not be sent")
		}
		_, _ = w.Write([]byte(`{"id":9,"email":"x@y.z","fullname":null,"role_ids":"1,3"}`))
	}))
	defer srv.Close()

	email, pw := "x@y.z", "secret"
	u, err := New(srv.URL).CreateUser(context.Background(), UserInput{Email: &email, Password: &pw, RoleIDs: []int64{1, 3}})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID != 9 || u.RoleIDs == nil || *u.RoleIDs != "1,3" {
		t.Errorf("user = %+v", u)
	}
}

func TestClient_ListTables(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tables" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"tables":["project","users"]}`))
	}))
	defer srv.Close()

	tables, err := New(srv.URL).ListTables(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(tables, ",") != "project,users" {
		t.Errorf("tables = %v", tables)
	}
}
