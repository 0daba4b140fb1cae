package inference

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gateway "github.com/bodhi-gateway/core/internal"
)

// fakeChildServer stands in for the supervised binary's HTTP server in
// tests: it answers /health and echoes the posted body plus a counter so
// tests can tell which "generation" of child answered a request.
type fakeChildServer struct {
	*httptest.Server
	requests int
}

func newFakeChildServer() *fakeChildServer {
	f := &fakeChildServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		f.requests++
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
	return f
}

func TestComputeStrategy(t *testing.T) {
	t.Parallel()

	sc := &SharedContext{state: stateEmpty}
	if got := sc.computeStrategy(gateway.ServerArgs{AliasName: "llama3"}); got != strategyLoad {
		t.Errorf("empty state: got %v, want strategyLoad", got)
	}

	sc.state = stateLoaded
	sc.current = &child{args: gateway.ServerArgs{AliasName: "llama3"}}
	if got := sc.computeStrategy(gateway.ServerArgs{AliasName: "llama3"}); got != strategyContinue {
		t.Errorf("same alias: got %v, want strategyContinue", got)
	}
	if got := sc.computeStrategy(gateway.ServerArgs{AliasName: "mistral"}); got != strategyDropAndLoad {
		t.Errorf("different alias: got %v, want strategyDropAndLoad", got)
	}
}

func TestForwardContinuesAgainstSameChild(t *testing.T) {
	t.Parallel()
	srv := newFakeChildServer()
	defer srv.Close()

	sc := &SharedContext{state: stateLoaded, current: &child{
		args:    gateway.ServerArgs{AliasName: "llama3"},
		baseURL: srv.URL,
	}, forwardClient: srv.Client()}

	resp, err := sc.Forward(context.Background(), "/v1/chat/completions", strings.NewReader(`{}`), gateway.Alias{Name: "llama3"})
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	resp.Body.Close()
	if srv.requests != 1 {
		t.Errorf("requests = %d, want 1", srv.requests)
	}
}

func TestWaitHealthySucceeds(t *testing.T) {
	t.Parallel()
	srv := newFakeChildServer()
	defer srv.Close()

	if err := waitHealthy(context.Background(), srv.Client(), srv.URL); err != nil {
		t.Errorf("waitHealthy() error = %v", err)
	}
}

func TestWaitHealthyTimesOutOnDeadServer(t *testing.T) {
	t.Parallel()
	if err := waitHealthy(context.Background(), http.DefaultClient, "http://127.0.0.1:1"); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestBuildArgv(t *testing.T) {
	t.Parallel()
	args := gateway.ServerArgs{AliasName: "llama3", ModelPath: "/models/llama3.gguf", ExtraArgs: []string{"-c", "4096"}}
	argv := buildArgv(args, 8080, []string{"--no-webui"})

	want := []string{"--model", "/models/llama3.gguf", "--port", "8080", "--alias", "llama3", "-c", "4096", "--no-webui"}
	if len(argv) != len(want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Errorf("argv[%d] = %q, want %q", i, argv[i], want[i])
		}
	}
}

func TestEndpointFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want string
	}{
		{path: "/v1/chat/completions", want: "/v1/chat/completions"},
		{path: "/v1/embeddings", want: "/v1/embeddings"},
		{path: "/v1/tokenize", want: "/v1/tokenize"},
		{path: "/v1/detokenize", want: "/v1/detokenize"},
	}
	for _, tt := range tests {
		if got := endpointFor(tt.path); got != tt.want {
			t.Errorf("endpointFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
