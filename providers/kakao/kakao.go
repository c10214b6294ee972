// Package kakao implements the authflow.Provider port against the Kakao
// OAuth endpoints: form-encoded token grants on kauth, bearer-authenticated
// user operations on kapi, with separate unlink and logout calls.
package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	authflow "github.com/lumeon/go-authflow"
)

const (
	defaultAuthURL     = "https://kauth.kakao.com/oauth/authorize"
	defaultTokenURL    = "https://kauth.kakao.com/oauth/token"
	defaultUserInfoURL = "https://kapi.kakao.com/v2/user/me"
	defaultUnlinkURL   = "https://kapi.kakao.com/v1/user/unlink"
	defaultLogoutURL   = "https://kapi.kakao.com/v1/user/logout"
)

// Config holds Kakao OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	UnlinkURL   string
	LogoutURL   string

	HTTPClient *http.Client
}

// Provider implements authflow.Provider for Kakao.
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ authflow.Provider = (*Provider)(nil)

// New creates a new Kakao provider.
func New(cfg Config) *Provider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}
	if cfg.UnlinkURL == "" {
		cfg.UnlinkURL = defaultUnlinkURL
	}
	if cfg.LogoutURL == "" {
		cfg.LogoutURL = defaultLogoutURL
	}

	client := cfg.HTTPClient
	if client == nil {
		// Every provider call carries a bounded timeout; a timeout is
		// indistinguishable from a 5xx for the caller.
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "kakao"
}

// AuthCodeURL returns the URL to redirect users for authorization.
func (p *Provider) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"response_type": {"code"},
	}
	if state != "" {
		params.Set("state", state)
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// ExchangeCode implements authflow.Provider.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*authflow.ProviderTokenPair, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {p.config.ClientID},
		"redirect_uri": {p.config.CallbackURL},
		"code":         {code},
	}
	if p.config.ClientSecret != "" {
		data.Set("client_secret", p.config.ClientSecret)
	}

	return p.tokenGrant(ctx, "exchange", data)
}

// Refresh implements authflow.Provider. Kakao may omit a new refresh token
// when the current one is still far from expiry; the presented one stays
// valid in that case.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*authflow.ProviderTokenPair, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {p.config.ClientID},
		"refresh_token": {refreshToken},
	}
	if p.config.ClientSecret != "" {
		data.Set("client_secret", p.config.ClientSecret)
	}

	pair, err := p.tokenGrant(ctx, "refresh", data)
	if err != nil {
		return nil, err
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

// FetchUserInfo implements authflow.Provider. Nickname resolution falls back
// through the optional profile fields and finally to a generated placeholder,
// so sign-in never fails purely for missing profile data.
func (p *Provider) FetchUserInfo(ctx context.Context, accessToken string) (*authflow.ProviderUser, error) {
	body, err := p.bearerRequest(ctx, "user_info", http.MethodGet, p.config.UserInfoURL, accessToken)
	if err != nil {
		return nil, err
	}

	var info kakaoUserResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, p.providerError("user_info", http.StatusOK, "invalid_response", "failed to decode user response", err)
	}
	if info.ID == 0 {
		return nil, p.providerError("user_info", http.StatusOK, "missing_id", "user response carries no id", nil)
	}

	return &authflow.ProviderUser{
		ExternalID: info.ID,
		Nickname:   info.nickname(),
	}, nil
}

// RevokeLink implements authflow.Provider. Full account unlink; the caller
// must present a non-expired access token.
func (p *Provider) RevokeLink(ctx context.Context, accessToken string) (int64, error) {
	body, err := p.bearerRequest(ctx, "unlink", http.MethodPost, p.config.UnlinkURL, accessToken)
	if err != nil {
		return 0, err
	}

	var resp kakaoIDResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, p.providerError("unlink", http.StatusOK, "invalid_response", "failed to decode unlink response", err)
	}

	return resp.ID, nil
}

// EndSession implements authflow.Provider. Session-only logout; the account
// link survives.
func (p *Provider) EndSession(ctx context.Context, accessToken string) error {
	_, err := p.bearerRequest(ctx, "logout", http.MethodPost, p.config.LogoutURL, accessToken)
	return err
}

func (p *Provider) tokenGrant(ctx context.Context, operation string, data url.Values) (*authflow.ProviderTokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, p.providerError(operation, 0, "", "", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, p.providerError(operation, 0, "", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.providerError(operation, resp.StatusCode, "", "", err)
	}

	var tokenResp kakaoTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, p.providerError(operation, resp.StatusCode, "invalid_response", "failed to decode token response", err)
	}

	if resp.StatusCode != http.StatusOK || tokenResp.Error != "" {
		code, desc := tokenResp.Error, tokenResp.ErrorDesc
		if code == "" && desc == "" {
			code, desc = parseKakaoError(body)
		}
		return nil, p.providerError(operation, resp.StatusCode, code, desc, nil)
	}
	if tokenResp.AccessToken == "" {
		return nil, p.providerError(operation, resp.StatusCode, "missing_access_token", "missing access token", nil)
	}

	return &authflow.ProviderTokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
	}, nil
}

func (p *Provider) bearerRequest(ctx context.Context, operation, method, endpoint, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, p.providerError(operation, 0, "", "", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, p.providerError(operation, 0, "", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.providerError(operation, resp.StatusCode, "", "", err)
	}

	if resp.StatusCode != http.StatusOK {
		code, desc := parseKakaoError(body)
		return nil, p.providerError(operation, resp.StatusCode, code, desc, nil)
	}

	return body, nil
}

type kakaoTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

type kakaoUserResponse struct {
	ID         int64 `json:"id"`
	Properties struct {
		Nickname string `json:"nickname"`
	} `json:"properties"`
	KakaoAccount struct {
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func (r *kakaoUserResponse) nickname() string {
	if r.Properties.Nickname != "" {
		return r.Properties.Nickname
	}
	if r.KakaoAccount.Profile.Nickname != "" {
		return r.KakaoAccount.Profile.Nickname
	}
	return fmt.Sprintf("user-%d", r.ID)
}

type kakaoIDResponse struct {
	ID int64 `json:"id"`
}

type kakaoAPIError struct {
	Msg       string `json:"msg"`
	Code      int    `json:"code"`
	Error     string `json:"error"`
	ErrorDesc string `json:"error_description"`
	ErrorCode string `json:"error_code"`
}

// parseKakaoError handles both error shapes: kauth OAuth errors and kapi
// application errors.
func parseKakaoError(body []byte) (string, string) {
	var apiErr kakaoAPIError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error != "" || apiErr.ErrorDesc != "" {
			code := apiErr.Error
			if apiErr.ErrorCode != "" {
				code = apiErr.ErrorCode
			}
			return code, apiErr.ErrorDesc
		}
		if apiErr.Msg != "" || apiErr.Code != 0 {
			return fmt.Sprintf("%d", apiErr.Code), apiErr.Msg
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "kakao request failed"
	}
	return "", msg
}

func (p *Provider) providerError(operation string, status int, code, description string, err error) *authflow.ProviderError {
	return &authflow.ProviderError{
		Provider:    "kakao",
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
