package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/user-directory/internal/api/dto"
	httptransport "github.com/spec-kit/user-directory/internal/api/http"
	"github.com/spec-kit/user-directory/internal/api/http/handlers"
	"github.com/spec-kit/user-directory/internal/query"
	"github.com/spec-kit/user-directory/internal/service"
	"github.com/spec-kit/user-directory/internal/testutil"
	"github.com/spec-kit/user-directory/pkg/client"
)

type nopPinger struct{}

func (nopPinger) Ping(context.Context) error { return nil }

func newTestServer(t *testing.T) string {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	testutil.Seed(t, repo, testutil.SampleUsers())

	svc := service.NewUserService(service.UserDependencies{
		UserRepo: repo,
		Limits:   query.Limits{DefaultPageSize: query.DefaultPageSize, MaxPageSize: query.MaxPageSize},
	})
	app := httptransport.NewServer(httptransport.ServerConfig{
		Routes: httptransport.RouteConfig{
			Health: handlers.NewHealthHandler("user-directory", "test", nopPinger{}, nil),
			Users:  handlers.NewUsersHandler(svc, dto.NewValidator()),
		},
	})
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", serverURL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestUsersList_Table(t *testing.T) {
	url := newTestServer(t)

	out, err := run(t, url, "users", "list", "--search", "sample.net", "--sort", "email", "--order", "desc")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 5 {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[2], "eve@sample.net") {
		t.Errorf("unexpected table:\n%s", out)
	}
	if !strings.Contains(out, "Page 1 of 1 (3 users)") {
		t.Errorf("missing footer:\n%s", out)
	}
}

func TestUsersList_JSONUsesDefaultPageSize(t *testing.T) {
	url := newTestServer(t)

	out, err := run(t, url, "-o", "json", "users", "list", "--page", "2")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	var page client.UserPage
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if page.Meta.Limit != client.DefaultTablePageSize || page.Meta.Page != 2 || len(page.Data) != 5 {
		t.Errorf("page = %+v", page)
	}
}

func TestUsers_Lifecycle(t *testing.T) {
	url := newTestServer(t)

	out, err := run(t, url, "-o", "yaml", "users", "create", "--id", "42", "--name", "A", "--email", "a@x.com")
	if err != nil {
		t.Fatalf("create error = %v", err)
	}
	var created client.User
	if err := yaml.Unmarshal([]byte(out), &created); err != nil || created.ID != 42 {
		t.Fatalf("create output = %q (%v)", out, err)
	}

	if _, err := run(t, url, "users", "create", "--id", "42", "--name", "A", "--email", "a@x.com"); err == nil {
		t.Error("duplicate create succeeded")
	}

	out, err = run(t, url, "users", "update", "42", "--name", "B", "--email", "b@x.com")
	if err != nil {
		t.Fatalf("update error = %v", err)
	}
	if !strings.Contains(out, "Name:  B") {
		t.Errorf("update output:\n%s", out)
	}

	out, err = run(t, url, "users", "get", "42")
	if err != nil || !strings.Contains(out, "Email: b@x.com") {
		t.Errorf("get output = %q, err %v", out, err)
	}

	out, err = run(t, url, "users", "delete", "42")
	if err != nil || !strings.Contains(out, "User 42 deleted") {
		t.Errorf("delete output = %q, err %v", out, err)
	}

	_, err = run(t, url, "users", "delete", "42")
	apiErr, ok := client.AsAPIError(err)
	if !ok || !apiErr.IsNotFound() {
		t.Errorf("second delete error = %v, want not found", err)
	}

	if _, err := run(t, url, "users", "get", "abc"); err == nil || !strings.Contains(err.Error(), "invalid user ID") {
		t.Errorf("get abc error = %v", err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a much longer value", 10, "a much ..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
