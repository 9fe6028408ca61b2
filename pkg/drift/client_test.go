package drift_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/drift/pkg/drift"
	"github.com/ziadkadry99/drift/pkg/drift/drifttest"
)

func newClient(t *testing.T, srv *drifttest.Server, opts ...drift.Option) *drift.Client {
	t.Helper()
	c, err := drift.New(srv.URL, "", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     drift.Config
		wantErr string
	}{
		{"missing base url", drift.Config{}, "baseurl is required"},
		{"relative base url", drift.Config{BaseURL: "/api"}, "baseurl must be an absolute http(s) URL"},
		{"negative timeout", drift.Config{BaseURL: "http://localhost:8080", Timeout: -time.Second}, "timeout must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := drift.NewClient(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	c, err := drift.NewClient(drift.Config{BaseURL: "http://localhost:8080/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.BaseURL())
	assert.Equal(t, drift.DefaultTimeout, c.Timeout())

	c, err = drift.NewClient(drift.Config{BaseURL: "http://localhost:8080", Timeout: 3 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, c.Timeout())
}

func TestTrailingSlashProducesSameURLs(t *testing.T) {
	srv := drifttest.NewServer(t)
	b := srv.AddBranch("conv-1", "support", "")
	ctx := context.Background()

	for _, base := range []string{srv.URL, srv.URL + "/"} {
		c, err := drift.New(base, "")
		require.NoError(t, err)
		_, err = c.GetContext(ctx, b.ID)
		require.NoError(t, err)
	}

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/api/v1/context/"+b.ID, reqs[0].Path)
	assert.Equal(t, reqs[0].Path, reqs[1].Path)
}

func TestRequestHeaders(t *testing.T) {
	t.Run("with api key", func(t *testing.T) {
		srv := drifttest.NewServer(t, drifttest.WithAPIKey("secret"))
		c, err := drift.New(srv.URL, "secret")
		require.NoError(t, err)

		_, err = c.GetBranches(context.Background(), "conv-1")
		require.NoError(t, err)

		h := srv.LastRequest().Header
		assert.Equal(t, "application/json", h.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", h.Get("Authorization"))
	})

	t.Run("without api key", func(t *testing.T) {
		srv := drifttest.NewServer(t)
		c := newClient(t, srv, drift.WithUserAgent("drift-test/1.0"))

		_, err := c.GetBranches(context.Background(), "conv-1")
		require.NoError(t, err)

		h := srv.LastRequest().Header
		assert.Equal(t, "application/json", h.Get("Content-Type"))
		assert.Empty(t, h.Get("Authorization"))
		assert.Equal(t, "drift-test/1.0", h.Get("User-Agent"))
	})

	t.Run("wrong api key is rejected by the backend", func(t *testing.T) {
		srv := drifttest.NewServer(t, drifttest.WithAPIKey("secret"))
		c, err := drift.New(srv.URL, "nope")
		require.NoError(t, err)

		_, err = c.GetBranches(context.Background(), "conv-1")
		apiErr, ok := drift.IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "invalid api key", err.Error())
	})
}

func TestRouteDefaultsRoleToUser(t *testing.T) {
	srv := drifttest.NewServer(t)
	c := newClient(t, srv)

	res, err := c.Route(context.Background(), drift.RouteRequest{ConversationID: "conv-1", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, drift.ActionBranch, res.Action)
	assert.True(t, res.IsNewBranch)
	assert.Equal(t, "general", res.BranchTopic)
	assert.NotEmpty(t, res.MessageID)
	assert.False(t, res.Moved())

	req := srv.LastRequest()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/drift/route", req.Path)

	var body map[string]string
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, map[string]string{
		"conversationId": "conv-1",
		"content":        "hello",
		"role":           "user",
	}, body)
}

func TestRouteWithAssistantRole(t *testing.T) {
	srv := drifttest.NewServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	first, err := c.Route(ctx, drift.RouteRequest{ConversationID: "conv-1", Content: "hi"})
	require.NoError(t, err)
	second, err := c.Route(ctx, drift.RouteRequest{ConversationID: "conv-1", Content: "hello!", Role: drift.RoleAssistant})
	require.NoError(t, err)

	assert.Equal(t, drift.ActionStay, second.Action)
	assert.Equal(t, first.BranchID, second.BranchID)
	assert.False(t, second.IsNewBranch)
	assert.Contains(t, string(srv.LastRequest().Body), `"role":"assistant"`)
}

func TestRouteToNewTopicSetsPreviousBranch(t *testing.T) {
	router := func(_ []drift.Branch, current *drift.Branch, req drift.RouteRequest) drifttest.Decision {
		if strings.Contains(req.Content, "invoice") {
			return drifttest.Decision{Action: drift.ActionBranch, Topic: "billing", Reason: "topic shift", Confidence: 0.7}
		}
		return drifttest.StickyRouter(nil, current, req)
	}
	srv := drifttest.NewServer(t, drifttest.WithRouter(router))
	c := newClient(t, srv)
	ctx := context.Background()

	first, err := c.Route(ctx, drift.RouteRequest{ConversationID: "conv-1", Content: "my app crashes"})
	require.NoError(t, err)
	moved, err := c.Route(ctx, drift.RouteRequest{ConversationID: "conv-1", Content: "also my invoice is wrong"})
	require.NoError(t, err)

	assert.Equal(t, drift.ActionBranch, moved.Action)
	assert.True(t, moved.IsNewBranch)
	assert.Equal(t, "billing", moved.BranchTopic)
	assert.Equal(t, first.BranchID, moved.PreviousBranchID)
	assert.True(t, moved.Moved())
	assert.Equal(t, "topic shift", moved.Reason)
	assert.InDelta(t, 0.7, moved.Confidence, 1e-9)

	branches, err := c.GetBranches(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "general", branches[0].Topic)
	assert.Equal(t, "billing", branches[1].Topic)
	assert.Equal(t, branches[0].ID, branches[1].ParentID)
	assert.Equal(t, 1, branches[1].MessageCount)
}

func TestGetBranchesEscapesConversationID(t *testing.T) {
	srv := drifttest.NewServer(t)
	c := newClient(t, srv)

	branches, err := c.GetBranches(context.Background(), "team/a b")
	require.NoError(t, err)
	assert.Empty(t, branches)
	assert.Equal(t, "/api/v1/drift/branches/team%2Fa%20b", srv.LastRequest().Path)
}

func TestExtractAndGetFacts(t *testing.T) {
	srv := drifttest.NewServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	res, err := c.Route(ctx, drift.RouteRequest{ConversationID: "conv-1", Content: "name: Alice\nplan: pro"})
	require.NoError(t, err)

	extracted, err := c.ExtractFacts(ctx, res.BranchID)
	require.NoError(t, err)
	assert.Equal(t, res.BranchID, extracted.BranchID)
	assert.Equal(t, 2, extracted.ExtractedCount)
	require.Len(t, extracted.Facts, 2)
	assert.Equal(t, "name", extracted.Facts[0].Key)
	assert.Equal(t, "Alice", extracted.Facts[0].Value)
	assert.Equal(t, res.MessageID, extracted.Facts[0].MessageID)

	req := srv.LastRequest()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/facts/"+res.BranchID+"/extract", req.Path)
	assert.Empty(t, req.Body)

	// A second extraction finds nothing new but still returns prior facts.
	again, err := c.ExtractFacts(ctx, res.BranchID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.ExtractedCount)
	assert.Len(t, again.Facts, 2)

	facts, err := c.GetFacts(ctx, res.BranchID)
	require.NoError(t, err)
	assert.Equal(t, extracted.Facts, facts)
	assert.Equal(t, http.MethodGet, srv.LastRequest().Method)
	assert.Equal(t, "/api/v1/facts/"+res.BranchID, srv.LastRequest().Path)
}

func TestServerReportedFailures(t *testing.T) {
	srv := drifttest.NewServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	t.Run("message from envelope", func(t *testing.T) {
		srv.FailNext(http.StatusBadRequest, "conversationId is required")
		_, err := c.Route(ctx, drift.RouteRequest{Content: "x"})
		require.Error(t, err)
		assert.Equal(t, "conversationId is required", err.Error())
	})

	t.Run("generic message carries status", func(t *testing.T) {
		srv.FailNext(http.StatusServiceUnavailable, "")
		_, err := c.GetFacts(ctx, "b-1")
		require.Error(t, err)
		assert.Equal(t, "request failed: 503", err.Error())
		apiErr, ok := drift.IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	})

	t.Run("empty message falls back to status", func(t *testing.T) {
		srv.RespondNext(http.StatusBadRequest, []byte(`{"success":false,"error":{"message":"","code":"EMPTY"}}`))
		_, err := c.GetFacts(ctx, "b-1")
		apiErr, ok := drift.IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, "request failed: 400", err.Error())
		assert.Empty(t, apiErr.Message)
		assert.Equal(t, "EMPTY", apiErr.Code)
	})

	t.Run("success false with 200", func(t *testing.T) {
		srv.RespondNext(http.StatusOK, []byte(`{"success":false,"error":{"message":"quota exceeded","code":"QUOTA"}}`))
		_, err := c.GetBranches(ctx, "conv-1")
		apiErr, ok := drift.IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, "quota exceeded", apiErr.Error())
		assert.Equal(t, "QUOTA", apiErr.Code)
		assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	})

	t.Run("unknown branch", func(t *testing.T) {
		_, err := c.GetContext(ctx, "missing")
		assert.True(t, drift.IsNotFound(err))
		assert.Equal(t, "branch not found", err.Error())
	})

	t.Run("malformed body", func(t *testing.T) {
		srv.RespondNext(http.StatusBadGateway, []byte("<html>bad gateway</html>"))
		_, err := c.GetFacts(ctx, "b-1")
		var decodeErr *drift.DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Equal(t, http.StatusBadGateway, decodeErr.StatusCode)
		var syntaxErr *json.SyntaxError
		assert.ErrorAs(t, err, &syntaxErr)
		_, isAPI := drift.IsAPIError(err)
		assert.False(t, isAPI)
	})
}

func TestSuccessWithoutData(t *testing.T) {
	srv := drifttest.NewServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	for _, body := range []string{`{"success":true}`, `{"success":true,"data":null}`} {
		t.Run(body, func(t *testing.T) {
			srv.RespondNext(http.StatusOK, []byte(body))
			res, err := c.Route(ctx, drift.RouteRequest{ConversationID: "conv-1", Content: "hi"})
			assert.Nil(t, res)
			var decodeErr *drift.DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, http.StatusOK, decodeErr.StatusCode)
			assert.ErrorIs(t, err, drift.ErrNoData)
		})
	}

	t.Run("empty list is data", func(t *testing.T) {
		srv.RespondNext(http.StatusOK, []byte(`{"success":true,"data":[]}`))
		facts, err := c.GetFacts(ctx, "b-1")
		require.NoError(t, err)
		assert.NotNil(t, facts)
		assert.Empty(t, facts)
	})

	t.Run("data of the wrong shape", func(t *testing.T) {
		srv.RespondNext(http.StatusOK, []byte(`{"success":true,"data":"oops"}`))
		_, err := c.GetBranches(ctx, "conv-1")
		var decodeErr *drift.DecodeError
		require.ErrorAs(t, err, &decodeErr)
		var typeErr *json.UnmarshalTypeError
		assert.ErrorAs(t, err, &typeErr)
	})
}

func TestTimeoutAbortsCall(t *testing.T) {
	srv := drifttest.NewServer(t, drifttest.WithDelay(5*time.Second))
	c, err := drift.NewClient(drift.Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.GetBranches(context.Background(), "conv-1")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.ErrorIs(t, err, drift.ErrTimeout)
	assert.True(t, drift.IsTimeout(err))
	_, isAPI := drift.IsAPIError(err)
	assert.False(t, isAPI)

	// The backend sees the connection go away instead of waiting out the delay.
	require.Eventually(t, func() bool { return srv.Canceled() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestCallerCancellationIsNotATimeout(t *testing.T) {
	srv := drifttest.NewServer(t, drifttest.WithDelay(5*time.Second))
	c := newClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GetBranches(ctx, "conv-1")
	require.Error(t, err)
	assert.False(t, drift.IsTimeout(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNetworkFailureIsReturnedAsIs(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	addr := dead.URL
	dead.Close()

	c, err := drift.New(addr, "")
	require.NoError(t, err)

	_, err = c.GetFacts(context.Background(), "b-1")
	require.Error(t, err)
	var urlErr *url.Error
	assert.ErrorAs(t, err, &urlErr)
	assert.False(t, drift.IsTimeout(err))
}

func TestConcurrentCallsDoNotInterfere(t *testing.T) {
	srv := drifttest.NewServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			conv := "conv-" + string(rune('a'+i))
			_, err := c.Route(ctx, drift.RouteRequest{ConversationID: conv, Content: "hello"})
			errs <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	assert.Len(t, srv.Requests(), n)
}

func TestMetricsRecordOutcomes(t *testing.T) {
	srv := drifttest.NewServer(t)
	reg := prometheus.NewRegistry()
	m, err := drift.NewMetrics(reg)
	require.NoError(t, err)
	c := newClient(t, srv, drift.WithMetrics(m))
	ctx := context.Background()

	_, err = c.Route(ctx, drift.RouteRequest{ConversationID: "conv-1", Content: "hi"})
	require.NoError(t, err)
	_, err = c.GetContext(ctx, "missing")
	require.Error(t, err)

	expected := `
# HELP drift_client_requests_total Drift API calls by operation and outcome
# TYPE drift_client_requests_total counter
drift_client_requests_total{operation="get_context",outcome="api_error"} 1
drift_client_requests_total{operation="route",outcome="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "drift_client_requests_total"))

	// Registering twice on the same registry fails instead of silently sharing.
	_, err = drift.NewMetrics(reg)
	assert.Error(t, err)
}
