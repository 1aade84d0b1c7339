package infobip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
	Form   map[string][]string
}

type vendorServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

// newVendorServer replies with respond(n) where n is the zero-based request index.
func newVendorServer(t *testing.T, respond func(n int, r *http.Request) (int, string)) *vendorServer {
	t.Helper()

	vs := &vendorServer{}
	vs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(1 << 20); err == nil {
				rec.Form = r.MultipartForm.Value
			}
		} else {
			rec.Body, _ = io.ReadAll(r.Body)
		}

		vs.mu.Lock()
		n := len(vs.requests)
		vs.requests = append(vs.requests, rec)
		vs.mu.Unlock()

		status, body := respond(n, r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(vs.Close)

	return vs
}

func (vs *vendorServer) Requests() []recordedRequest {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return append([]recordedRequest(nil), vs.requests...)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := NewClient(ClientConfig{BasePath: baseURL, APIKey: "secret"})
	require.NoError(t, err)
	return client
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + strconv.Itoa(n)
	}
}

type recordingObserver struct {
	mu          sync.Mutex
	dispatching []domain.Address
	dispatched  []domain.DispatchResult
	failed      []domain.DispatchResult

	onDispatched func(result domain.DispatchResult)
}

func (o *recordingObserver) Dispatching(_ context.Context, _ domain.DispatchContext, recipient domain.Address) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dispatching = append(o.dispatching, recipient)
}

func (o *recordingObserver) Dispatched(_ context.Context, _ domain.DispatchContext, result domain.DispatchResult) {
	o.mu.Lock()
	o.dispatched = append(o.dispatched, result)
	hook := o.onDispatched
	o.mu.Unlock()

	if hook != nil {
		hook(result)
	}
}

func (o *recordingObserver) Failed(_ context.Context, _ domain.DispatchContext, result domain.DispatchResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, result)
}

func successBody(messageID string, groupID int) string {
	return fmt.Sprintf(
		`{"bulkId":"bulk-1","messages":[{"to":"41793026727","messageId":%q,"status":{"groupId":%d,"groupName":"PENDING","id":26,"name":"PENDING_ACCEPTED"}}]}`,
		messageID, groupID,
	)
}
