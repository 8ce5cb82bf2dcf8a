// Package baidu adapts the Baidu content-safety API to the gateway's
// Detector contract. It is the fully featured adapter pattern: OAuth token
// cache with single-flight refresh, an adaptive per-provider rate limiter,
// and bounded internal retries on throttling.
package baidu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/censorgate/ratelimit"
	"github.com/BaSui01/censorgate/retry"
	"github.com/BaSui01/censorgate/tokencache"
	"github.com/BaSui01/censorgate/types"
)

// Scope the OAuth token must carry to call the censor endpoints.
const requiredScope = "brain_all_scope"

// Config configures the Baidu adapter.
type Config struct {
	APIKey    string `yaml:"api_key" json:"api_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`

	// Endpoint overrides, primarily for tests.
	TokenURL string `yaml:"token_url,omitempty" json:"token_url,omitempty"`
	TextURL  string `yaml:"text_url,omitempty" json:"text_url,omitempty"`
	ImageURL string `yaml:"image_url,omitempty" json:"image_url,omitempty"`

	// Timeout bounds each upstream call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	RateLimit ratelimit.Config `yaml:"rate_limit" json:"rate_limit"`
	Retry     retry.Policy     `yaml:"-" json:"-"`
}

// DefaultConfig returns production endpoints and a 10s call timeout.
func DefaultConfig() Config {
	return Config{
		TokenURL:  "https://aip.baidubce.com/oauth/2.0/token",
		TextURL:   "https://aip.baidubce.com/rest/2.0/solution/v1/text_censor/v2/user_defined",
		ImageURL:  "https://aip.baidubce.com/rest/2.0/solution/v1/img_censor/user_defined",
		Timeout:   10 * time.Second,
		RateLimit: ratelimit.DefaultConfig(),
		Retry:     retry.DefaultPolicy(),
	}
}

// Provider implements censor.Detector against the Baidu content-safety API.
type Provider struct {
	cfg     Config
	client  *http.Client
	tokens  *tokencache.Cache
	limiter *ratelimit.AdaptiveLimiter
	retryer *retry.Retryer
	logger  *zap.Logger
}

// New creates a Baidu adapter. Missing credentials are a construction-time
// CONFIGURATION error.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, types.NewConfigurationError("baidu: api_key and secret_key are required").WithProvider("baidu")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.TokenURL == "" {
		cfg.TokenURL = def.TokenURL
	}
	if cfg.TextURL == "" {
		cfg.TextURL = def.TextURL
	}
	if cfg.ImageURL == "" {
		cfg.ImageURL = def.ImageURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	p := &Provider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: ratelimit.NewAdaptiveLimiter(cfg.RateLimit, logger),
		retryer: retry.New(cfg.Retry, logger),
		logger:  logger.With(zap.String("provider", "baidu")),
	}
	p.tokens = tokencache.New(p.fetchToken, logger)
	return p, nil
}

// Name implements censor.Detector.
func (p *Provider) Name() string { return "baidu" }

// Limiter exposes the adapter's rate limiter for metrics.
func (p *Provider) Limiter() *ratelimit.AdaptiveLimiter { return p.limiter }

// Close implements censor.Detector.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// DetectText implements censor.Detector.
func (p *Provider) DetectText(ctx context.Context, text string) (types.RiskLevel, []string, error) {
	return p.detect(ctx, p.cfg.TextURL, url.Values{"text": {text}})
}

// DetectImage implements censor.Detector.
func (p *Provider) DetectImage(ctx context.Context, image string) (types.RiskLevel, []string, error) {
	payload := url.Values{}
	switch {
	case strings.HasPrefix(image, "http://"), strings.HasPrefix(image, "https://"):
		payload.Set("imgUrl", image)
	case strings.HasPrefix(image, types.Base64Prefix):
		payload.Set("image", strings.TrimPrefix(image, types.Base64Prefix))
	default:
		payload.Set("image", image)
	}
	return p.detect(ctx, p.cfg.ImageURL, payload)
}

func (p *Provider) detect(ctx context.Context, endpoint string, payload url.Values) (types.RiskLevel, []string, error) {
	var resp censorResponse
	err := p.retryer.Do(ctx, func() error {
		var callErr error
		resp, callErr = p.call(ctx, endpoint, payload)
		return callErr
	})
	if err != nil {
		return 0, nil, err
	}
	return mapVerdict(resp)
}

// call performs one rate-limited, authenticated request.
func (p *Provider) call(ctx context.Context, endpoint string, payload url.Values) (censorResponse, error) {
	var zero censorResponse

	if err := p.limiter.Wait(ctx); err != nil {
		return zero, types.NewNetworkError("rate limiter wait canceled").WithCause(err).WithProvider("baidu")
	}

	token, err := p.tokens.Get(ctx)
	if err != nil {
		return zero, err
	}

	reqURL := endpoint + "?access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(payload.Encode()))
	if err != nil {
		return zero, types.NewNetworkError("build request failed").WithCause(err).WithProvider("baidu")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := p.client.Do(req)
	if err != nil {
		return zero, types.NewNetworkError("censor request failed").WithCause(err).WithProvider("baidu")
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return zero, types.NewNetworkError("read response failed").WithCause(err).WithProvider("baidu")
	}

	var resp censorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return zero, types.NewMalformedResponseError(fmt.Sprintf("invalid JSON response: %.200s", string(body))).WithProvider("baidu")
	}

	if resp.ErrorCode != "" || resp.ErrorMsg != "" {
		if resp.throttled() {
			p.limiter.Throttled()
			p.logger.Warn("upstream throttling",
				zap.String("error_code", resp.ErrorCode.String()),
				zap.Duration("min_interval", p.limiter.MinInterval()),
			)
			return zero, types.NewRateLimitError(fmt.Sprintf("request limit [%s]: %s", resp.ErrorCode, resp.ErrorMsg)).WithProvider("baidu")
		}
		return zero, types.NewMalformedResponseError(fmt.Sprintf("api error [%s]: %s", resp.ErrorCode, resp.ErrorMsg)).WithProvider("baidu")
	}

	p.limiter.Succeeded()
	return resp, nil
}

// fetchToken performs the OAuth client-credentials exchange.
func (p *Provider) fetchToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {p.cfg.APIKey},
		"client_secret": {p.cfg.SecretKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, types.NewAuthError("build token request failed").WithCause(err).WithProvider("baidu")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := p.client.Do(req)
	if err != nil {
		return "", 0, types.NewAuthError("token request failed").WithCause(err).WithProvider("baidu")
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", 0, types.NewAuthError("read token response failed").WithCause(err).WithProvider("baidu")
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, types.NewAuthError(fmt.Sprintf("token response is not valid JSON: %.200s", string(body))).WithProvider("baidu")
	}
	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		msg := tr.ErrorDescription
		if msg == "" {
			msg = "unknown error"
		}
		return "", 0, types.NewAuthError("token exchange failed: " + msg).WithProvider("baidu")
	}
	if !hasScope(tr.Scope, requiredScope) {
		return "", 0, types.NewAuthError("token missing required scope: " + requiredScope).WithProvider("baidu")
	}

	return tr.AccessToken, time.Duration(tr.ExpiresIn) * time.Second, nil
}

func hasScope(scopes, want string) bool {
	for _, s := range strings.Fields(scopes) {
		if s == want {
			return true
		}
	}
	return false
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type censorResponse struct {
	ErrorCode  json.Number `json:"error_code"`
	ErrorMsg   string      `json:"error_msg"`
	Conclusion struct {
		Type int `json:"type"`
	} `json:"conclusion"`
	Data []dataItem `json:"data"`
}

type dataItem struct {
	Msg     string      `json:"msg"`
	SubType json.Number `json:"subType"`
	Hits    []struct {
		Words []string `json:"words"`
	} `json:"hits"`
}

// Error codes 18 and 19 are Baidu's QPS/daily request limits.
func (r censorResponse) throttled() bool {
	code := r.ErrorCode.String()
	return code == "18" || code == "19" ||
		strings.Contains(strings.ToLower(r.ErrorMsg), "request limit reached")
}

// mapVerdict converts a raw censor response into the unified verdict.
// Conclusion types: 1 compliant, 2 non-compliant, 3 suspect, 4 review.
func mapVerdict(resp censorResponse) (types.RiskLevel, []string, error) {
	var risk types.RiskLevel
	switch resp.Conclusion.Type {
	case 1:
		risk = types.RiskPass
	case 2:
		risk = types.RiskBlock
	default:
		risk = types.RiskReview
	}

	var reasons []string
	for _, item := range resp.Data {
		for _, hit := range item.Hits {
			reasons = append(reasons, hit.Words...)
		}
		if item.Msg != "" {
			reasons = append(reasons, item.Msg)
		}
		if item.SubType != "" {
			reasons = append(reasons, item.SubType.String())
		}
	}
	return risk, types.NewReasons(reasons...), nil
}
