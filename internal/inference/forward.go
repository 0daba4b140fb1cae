package inference

import (
	"context"
	"io"
	"net/http"
	"strings"

	gateway "github.com/bodhi-gateway/core/internal"
)

// endpointFor maps an inbound gateway route to the matching native
// inference endpoint. The Local Forwarder adds no business logic beyond
// this mapping -- argument construction already happened when the alias
// was resolved into a gateway.ServerArgs.
func endpointFor(path string) string {
	switch {
	case strings.HasSuffix(path, "/embeddings"):
		return "/v1/embeddings"
	case strings.HasSuffix(path, "/tokenize"):
		return "/v1/tokenize"
	case strings.HasSuffix(path, "/detokenize"):
		return "/v1/detokenize"
	default:
		return "/v1/chat/completions"
	}
}

// Forwarder adapts a SharedContext into the gateway.LocalForwarder
// interface, streaming the child's response back to the caller without
// buffering so SSE keep-alive and partial tokens survive the hop.
type Forwarder struct {
	Ctx *SharedContext
}

var _ gateway.LocalForwarder = (*Forwarder)(nil)

// Forward loads or continues the supervised child for alias and pipes its
// response back to w, preserving status code and streaming semantics.
func (f *Forwarder) Forward(ctx context.Context, w http.ResponseWriter, r *http.Request, alias gateway.Alias) error {
	resp, err := f.Ctx.Forward(ctx, endpointFor(r.URL.Path), r.Body, alias)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return pipeResponse(w, resp)
}

func pipeResponse(w http.ResponseWriter, resp *http.Response) error {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
