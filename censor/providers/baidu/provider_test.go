package baidu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/censorgate/ratelimit"
	"github.com/BaSui01/censorgate/retry"
	"github.com/BaSui01/censorgate/types"
)

type fakeUpstream struct {
	tokenCalls  atomic.Int32
	censorCalls atomic.Int32

	tokenBody  func() any
	censorBody func(r *http.Request) any
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		tokenBody: func() any {
			return map[string]any{
				"access_token": "tok",
				"expires_in":   2592000,
				"scope":        "public brain_all_scope wise_adapt",
			}
		},
		censorBody: func(*http.Request) any {
			return map[string]any{"conclusion": map[string]any{"type": 1}}
		},
	}
}

func (f *fakeUpstream) start(t *testing.T) (*httptest.Server, Config) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/2.0/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		_ = json.NewEncoder(w).Encode(f.tokenBody())
	})
	mux.HandleFunc("/censor", func(w http.ResponseWriter, r *http.Request) {
		f.censorCalls.Add(1)
		require.NoError(t, r.ParseForm())
		_ = json.NewEncoder(w).Encode(f.censorBody(r))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.APIKey = "ak"
	cfg.SecretKey = "sk"
	cfg.TokenURL = srv.URL + "/oauth/2.0/token"
	cfg.TextURL = srv.URL + "/censor"
	cfg.ImageURL = srv.URL + "/censor"
	cfg.RateLimit = ratelimit.Config{Floor: time.Millisecond, Ceiling: 10 * time.Millisecond}
	cfg.Retry = retry.Policy{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	return srv, cfg
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, types.IsConfiguration(err))
}

func TestDetectText_Pass(t *testing.T) {
	up := newFakeUpstream()
	_, cfg := up.start(t)
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	risk, reasons, err := p.DetectText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, types.RiskPass, risk)
	assert.Empty(t, reasons)
	assert.Equal(t, int32(1), up.tokenCalls.Load())
}

func TestDetectText_BlockWithEvidence(t *testing.T) {
	up := newFakeUpstream()
	up.censorBody = func(*http.Request) any {
		return map[string]any{
			"conclusion": map[string]any{"type": 2},
			"data": []any{
				map[string]any{
					"msg":     "存在低俗辱骂不合规",
					"subType": 5,
					"hits":    []any{map[string]any{"words": []string{"term1", "term2"}}},
				},
			},
		}
	}
	_, cfg := up.start(t)
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	risk, reasons, err := p.DetectText(context.Background(), "bad text")
	require.NoError(t, err)
	assert.Equal(t, types.RiskBlock, risk)
	assert.ElementsMatch(t, []string{"term1", "term2", "存在低俗辱骂不合规", "5"}, reasons)
}

func TestDetectText_TokenReusedAcrossCalls(t *testing.T) {
	up := newFakeUpstream()
	_, cfg := up.start(t)
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 3; i++ {
		_, _, err := p.DetectText(context.Background(), "hello")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), up.tokenCalls.Load(), "token must be fetched once and cached")
	assert.Equal(t, int32(3), up.censorCalls.Load())
}

func TestDetectText_MissingScopeIsAuthError(t *testing.T) {
	up := newFakeUpstream()
	up.tokenBody = func() any {
		return map[string]any{"access_token": "tok", "expires_in": 2592000, "scope": "public"}
	}
	_, cfg := up.start(t)
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	_, _, err = p.DetectText(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, types.IsAuth(err))
}

func TestDetectText_ThrottleGrowsIntervalAndRetries(t *testing.T) {
	up := newFakeUpstream()
	var calls atomic.Int32
	up.censorBody = func(*http.Request) any {
		if calls.Add(1) == 1 {
			return map[string]any{"error_code": 18, "error_msg": "Open api qps request limit reached"}
		}
		return map[string]any{"conclusion": map[string]any{"type": 1}}
	}
	_, cfg := up.start(t)
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	before := p.Limiter().MinInterval()
	risk, _, err := p.DetectText(context.Background(), "hello")
	require.NoError(t, err, "throttle must be retried internally")
	assert.Equal(t, types.RiskPass, risk)
	assert.Equal(t, int32(2), up.censorCalls.Load())
	// One throttle then one success: grown once, shrunk once, still above floor.
	assert.GreaterOrEqual(t, p.Limiter().MinInterval(), before)
}

func TestDetectText_PersistentThrottleSurfacesRateLimit(t *testing.T) {
	up := newFakeUpstream()
	up.censorBody = func(*http.Request) any {
		return map[string]any{"error_code": 19, "error_msg": "request limit reached"}
	}
	_, cfg := up.start(t)
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	_, _, err = p.DetectText(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, types.IsRateLimited(err))
}

func TestDetectText_APIErrorIsMalformedResponse(t *testing.T) {
	up := newFakeUpstream()
	up.censorBody = func(*http.Request) any {
		return map[string]any{"error_code": 216100, "error_msg": "invalid param"}
	}
	_, cfg := up.start(t)
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	_, _, err = p.DetectText(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, types.ErrMalformedResponse, types.GetErrorCode(err))
}

func TestDetectImage_PayloadShaping(t *testing.T) {
	up := newFakeUpstream()
	var gotURL, gotInline string
	up.censorBody = func(r *http.Request) any {
		if v := r.PostFormValue("imgUrl"); v != "" {
			gotURL = v
		}
		if v := r.PostFormValue("image"); v != "" {
			gotInline = v
		}
		return map[string]any{"conclusion": map[string]any{"type": 1}}
	}
	_, cfg := up.start(t)
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	_, _, err = p.DetectImage(context.Background(), "https://example.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.jpg", gotURL)

	_, _, err = p.DetectImage(context.Background(), types.Base64Prefix+"aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", gotInline, "base64 prefix must be stripped")
}

func TestDetect_UnknownConclusionIsReview(t *testing.T) {
	up := newFakeUpstream()
	up.censorBody = func(*http.Request) any {
		return map[string]any{"conclusion": map[string]any{"type": 4}}
	}
	_, cfg := up.start(t)
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	risk, _, err := p.DetectText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, types.RiskReview, risk)
}
