package infobip

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upperTemplateEngine struct {
	err error
}

func (e upperTemplateEngine) Render(_ context.Context, content string, model map[string]any) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return fmt.Sprintf("%s|%v", content, model["name"]), nil
}

func addresses(n int, domainPart string) []domain.Address {
	out := make([]domain.Address, n)
	for i := range out {
		out[i] = domain.Address{Value: fmt.Sprintf("user%d@%s", i, domainPart)}
	}
	return out
}

func TestEmailDispatcherMultipartForm(t *testing.T) {
	t.Parallel()

	server := newVendorServer(t, func(int, *http.Request) (int, string) {
		return http.StatusOK, `{"bulkId":"b-1","messages":[` +
			`{"to":"a@example.com","messageId":"e1","status":{"groupId":1,"groupName":"PENDING"}},` +
			`{"to":"b@example.com","messageId":"e2","status":{"groupId":1,"groupName":"PENDING"}}]}`
	})
	observer := &recordingObserver{}

	d, err := NewEmailDispatcher(newTestClient(t, server.URL), WithIDGenerator(sequentialIDs("id")))
	require.NoError(t, err)

	trackClicks := false
	email := domain.Email{
		From:     domain.Address{Value: "sender@example.com", Display: "Sender"},
		To:       []domain.Address{{Value: "a@example.com"}, {Value: "b@example.com"}},
		Cc:       []domain.Address{{Value: "c@example.com"}},
		Subject:  "Hello",
		TextBody: "plain",
		HTMLBody: "<p>html</p>",
		Properties: domain.EmailProperties{
			AMPHTML:     "<html amp4email>{{name}}</html>",
			TrackClicks: &trackClicks,
			NotifyURL:   "https://cb.example.com/email",
			EntityID:    "entity",
		},
	}

	results, err := d.Dispatch(context.Background(), email, domain.DispatchContext{
		Observer:       observer,
		TemplateEngine: upperTemplateEngine{},
		Model:          map[string]any{"name": "Ada"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "e1", results[0].ResourceID)
	assert.Equal(t, "b-1", results[1].BulkID)
	assert.Len(t, observer.dispatched, 2)

	requests := server.Requests()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, "/email/3/send", req.Path)
	require.NotNil(t, req.Form)

	form := req.Form
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, form["to"])
	assert.Equal(t, []string{"c@example.com"}, form["cc"])
	assert.Equal(t, []string{"Sender <sender@example.com>"}, form["from"])
	assert.Equal(t, []string{"Hello"}, form["subject"])
	assert.Equal(t, []string{"plain"}, form["text"])
	assert.Equal(t, []string{"<p>html</p>"}, form["html"])
	assert.Equal(t, []string{"<html amp4email>{{name}}</html>|Ada"}, form["ampHtml"])
	assert.Equal(t, []string{"true"}, form["track"])
	assert.Equal(t, []string{"false"}, form["trackClicks"])
	assert.NotContains(t, form, "trackOpens")
	assert.Equal(t, []string{"entity"}, form["entityId"])
	assert.Equal(t, []string{"id1"}, form["bulkId"])
	assert.NotContains(t, form, "messageId")
	require.Len(t, form["notifyUrl"], 1)
	assert.Contains(t, form["notifyUrl"][0], "resourceId=id1")
	assert.Contains(t, form["notifyUrl"][0], "channelId=email")
}

func TestEmailDispatcherSingleRecipientGetsMessageID(t *testing.T) {
	t.Parallel()

	server := newVendorServer(t, func(int, *http.Request) (int, string) {
		return http.StatusOK, successBody("id2", 1)
	})

	d, err := NewEmailDispatcher(newTestClient(t, server.URL), WithIDGenerator(sequentialIDs("id")))
	require.NoError(t, err)

	email := domain.Email{
		To:         []domain.Address{{Value: "a@example.com"}},
		Properties: domain.EmailProperties{TemplateID: 200},
	}
	_, err = d.Dispatch(context.Background(), email, domain.DispatchContext{})
	require.NoError(t, err)

	form := server.Requests()[0].Form
	assert.Equal(t, []string{"id2"}, form["messageId"])
	assert.Equal(t, []string{"200"}, form["templateId"])
	assert.NotContains(t, form, "from")
	assert.NotContains(t, form, "notifyUrl")
}

func TestEmailDispatcherRecipientCapBeforeNetwork(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := newVendorServer(t, func(int, *http.Request) (int, string) {
		calls.Add(1)
		return http.StatusOK, successBody("m", 1)
	})

	d, err := NewEmailDispatcher(newTestClient(t, server.URL))
	require.NoError(t, err)

	email := domain.Email{
		From:    domain.Address{Value: "sender@example.com"},
		To:      addresses(500, "to.example.com"),
		Cc:      addresses(300, "cc.example.com"),
		Bcc:     addresses(201, "bcc.example.com"),
		Subject: "too many",
	}

	results, err := d.Dispatch(context.Background(), email, domain.DispatchContext{})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Nil(t, results)
	assert.Zero(t, calls.Load())
}

func TestEmailDispatcherTemplateFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := newVendorServer(t, func(int, *http.Request) (int, string) {
		calls.Add(1)
		return http.StatusOK, successBody("m", 1)
	})

	d, err := NewEmailDispatcher(newTestClient(t, server.URL))
	require.NoError(t, err)

	boom := errors.New("bad template")
	email := domain.Email{
		From:       domain.Address{Value: "sender@example.com"},
		To:         []domain.Address{{Value: "a@example.com"}},
		Subject:    "s",
		HTMLBody:   "<p/>",
		Properties: domain.EmailProperties{AMPHTML: "{{#broken}"},
	}

	_, err = d.Dispatch(context.Background(), email, domain.DispatchContext{TemplateEngine: upperTemplateEngine{err: boom}})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, calls.Load())
}

func TestEmailDispatcherVendorRejection(t *testing.T) {
	t.Parallel()

	server := newVendorServer(t, func(int, *http.Request) (int, string) {
		return http.StatusUnauthorized, `{"requestError":{"serviceException":{"messageId":"UNAUTHORIZED","text":"Invalid login details"}}}`
	})
	observer := &recordingObserver{}

	d, err := NewEmailDispatcher(newTestClient(t, server.URL))
	require.NoError(t, err)

	email := domain.Email{
		From:    domain.Address{Value: "sender@example.com"},
		To:      []domain.Address{{Value: "a@example.com"}},
		Subject: "s",
	}
	results, err := d.Dispatch(context.Background(), email, domain.DispatchContext{Observer: observer})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.StatusError, results[0].Status)
	assert.Equal(t, "UNAUTHORIZED", results[0].ResourceID)
	assert.Len(t, observer.failed, 1)
}
