package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/morf1ng/105site/pkg/projectshape"
	"github.com/morf1ng/105site/pkg/siteapi"
)

func TestParseImageSpec(t *testing.T) {
	tests := []struct {
		spec    string
		want    projectshape.Slot
		path    string
		wantErr bool
	}{
		{"preview=./p.png", projectshape.Slot{Role: projectshape.RolePreview}, "./p.png", false},
		{"stage:2=a.jpg", projectshape.Slot{Role: projectshape.RoleStage, Index: 2}, "a.jpg", false},
		{"result_imgs:0=r.jpg", projectshape.Slot{Role: projectshape.RoleResult}, "r.jpg", false},
		{"stage=a.jpg", projectshape.Slot{}, "", true},
		{"stage:-1=a.jpg", projectshape.Slot{}, "", true},
		{"cover=a.jpg", projectshape.Slot{}, "", true},
		{"preview", projectshape.Slot{}, "", true},
	}
	for _, tt := range tests {
		slot, path, err := parseImageSpec(tt.spec)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v", tt.spec, err)
			continue
		}
		if !tt.wantErr && (slot != tt.want || path != tt.path) {
			t.Errorf("%q: got %+v %q", tt.spec, slot, path)
		}
	}
}

func TestParseUserFlags_OnlySetFields(t *testing.T) {
	in, _, err := parseUserFlags("user-update", []string{"-fullname", "Name", "-roles", "1, 3"})
	if err != nil {
		t.Fatal(err)
	}
	if in.Email != nil || in.Password != nil {
		t.Errorf("unset flags must stay nil: %+v", in)
	}
	if in.Fullname == nil || *in.Fullname != "Name" {
		t.Errorf("fullname = %v", in.Fullname)
	}
	if len(in.RoleIDs) != 2 || in.RoleIDs[1] != 3 {
		t.Errorf("roles = %v", in.RoleIDs)
	}

	if _, _, err := parseUserFlags("user-update", []string{"-roles", "x"}); err == nil {
		t.Error("invalid role id must fail")
	}
}

func TestRun_UsageErrors(t *testing.T) {
	c := siteapi.New("http://localhost:1")
	for _, args := range [][]string{nil, {"unknown"}, {"login", "only-email"}, {"project"}, {"user-create", "-email", "a@b.c"}} {
		if err := run(context.Background(), c, args, new(bytes.Buffer)); !errors.Is(err, errUsage) {
			t.Errorf("%v: expected usage error, got %v", args, err)
		}
	}
}

func TestRun_TablesAndRoleCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "GET /api/tables":
			_, _ = w.Write([]byte(`{"tables":["project","users"]}`))
		case "POST /api/admin/roles":
			if r.PostFormValue("name") != "editor" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":2,"name":"editor"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := siteapi.New(srv.URL, siteapi.WithToken("tok"))
	var out bytes.Buffer
	if err := run(context.Background(), c, []string{"tables"}, &out); err != nil {
		t.Fatalf("tables: %v", err)
	}
	if !strings.Contains(out.String(), `"users"`) {
		t.Errorf("tables output = %s", out.String())
	}

	out.Reset()
	if err := run(context.Background(), c, []string{"role-create", "editor"}, &out); err != nil {
		t.Fatalf("role-create: %v", err)
	}
	if !strings.Contains(out.String(), `"id": 2`) {
		t.Errorf("role output = %s", out.String())
	}

	err := run(context.Background(), c, []string{"user", "5"}, &out)
	var apiErr *siteapi.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("expected 404 APIError, got %v", err)
	}
}
