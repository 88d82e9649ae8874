package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// defaultExchangeEndpoint はカスタムトークンをIDトークンに交換するIdentity Toolkitのエンドポイント。
const defaultExchangeEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithCustomToken"

// TokenExchanger はIdentity Toolkit REST APIのクライアント。
// Admin SDKにはカスタムトークンからIDトークンを得る手段がないため、
// Web APIキーを使ってクライアントと同じサインインを行う。
type TokenExchanger struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewTokenExchanger はTokenExchangerの新しいインスタンスを生成する。
func NewTokenExchanger(httpClient *http.Client, apiKey string, logger *slog.Logger) *TokenExchanger {
	return &TokenExchanger{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		endpoint:   defaultExchangeEndpoint,
	}
}

type exchangeRequest struct {
	Token             string `json:"token"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type exchangeResponse struct {
	IDToken string `json:"idToken"`
}

type exchangeErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Exchange はカスタムトークンをIDトークンに交換する。
// 失敗時はリトライせずにエラーを返す。
func (c *TokenExchanger) Exchange(ctx context.Context, customToken string) (string, error) {
	if c.apiKey == "" {
		return "", ErrExchangeNotConfigured
	}

	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("key", c.apiKey)
	reqURL.RawQuery = q.Encode()

	payload, err := json.Marshal(exchangeRequest{Token: customToken, ReturnSecureToken: true})
	if err != nil {
		return "", fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("トークン交換APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr exchangeErrorResponse
		_ = json.Unmarshal(body, &apiErr)
		c.logger.Error("トークン交換APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("reason", apiErr.Error.Message),
		)
		return "", fmt.Errorf("トークン交換APIがステータス %d を返しました: %s", resp.StatusCode, apiErr.Error.Message)
	}

	var result exchangeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if result.IDToken == "" {
		return "", fmt.Errorf("トークン交換APIのレスポンスにidTokenが含まれていません")
	}

	return result.IDToken, nil
}
