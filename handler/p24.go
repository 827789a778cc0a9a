package handler

import (
	"booking_manager/config"
	"booking_manager/model"
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Gateway is the P24-style payment gateway client. All calls carry a bounded
// timeout so a slow gateway never blocks unrelated requests.
type Gateway struct {
	Config model.GatewayConfig
	HTTP   *http.Client
}

func NewGateway() *Gateway {
	merchantID, _ := strconv.Atoi(config.Config("P24_MERCHANT_ID"))
	posID, _ := strconv.Atoi(config.Config("P24_POS_ID"))
	if posID == 0 {
		posID = merchantID
	}
	return &Gateway{
		Config: model.GatewayConfig{
			MerchantID: merchantID,
			PosID:      posID,
			CRC:        config.Config("P24_CRC"),
			APIKey:     config.Config("P24_API_KEY"),
			BaseURL:    config.ConfigOr("P24_URL", "https://sandbox.przelewy24.pl"),
			ReturnURL:  config.Config("APP_URL") + "/payment/return",
			StatusURL:  config.Config("APP_URL") + "/api/v1/payments/webhook",
		},
		HTTP: &http.Client{Timeout: 5 * time.Second},
	}
}

func sha384Hex(payload any) string {
	raw, _ := json.Marshal(payload)
	sum := sha512.Sum384(raw)
	return hex.EncodeToString(sum[:])
}

// RegisterSign signs the transaction/register request.
func (g *Gateway) RegisterSign(sessionID string, amount int64, currency string) string {
	return sha384Hex(struct {
		SessionID  string `json:"sessionId"`
		MerchantID int    `json:"merchantId"`
		Amount     int64  `json:"amount"`
		Currency   string `json:"currency"`
		CRC        string `json:"crc"`
	}{sessionID, g.Config.MerchantID, amount, currency, g.Config.CRC})
}

// NotificationSign is the signature the gateway puts on webhook payloads and
// that verify/refund requests must reproduce.
func (g *Gateway) NotificationSign(sessionID string, orderID, amount int64, currency string) string {
	return sha384Hex(struct {
		SessionID string `json:"sessionId"`
		OrderID   int64  `json:"orderId"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		CRC       string `json:"crc"`
	}{sessionID, orderID, amount, currency, g.Config.CRC})
}

func (g *Gateway) call(method, path string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(method, g.Config.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(strconv.Itoa(g.Config.PosID), g.Config.APIKey)

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return respBody, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// Register creates a gateway checkout session and returns the token plus the
// URL the customer should be redirected to.
func (g *Gateway) Register(req model.RegisterRequest) (token string, redirectURL string, err error) {
	req.MerchantID = g.Config.MerchantID
	req.PosID = g.Config.PosID
	req.URLReturn = g.Config.ReturnURL
	req.URLStatus = g.Config.StatusURL
	req.Sign = g.RegisterSign(req.SessionID, req.Amount, req.Currency)

	respBody, err := g.call(http.MethodPost, "/api/v1/transaction/register", req)
	if err != nil {
		return "", "", err
	}

	var parsed struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", "", fmt.Errorf("decode register response: %w", err)
	}
	if parsed.Data.Token == "" {
		return "", "", fmt.Errorf("register response missing token: %s", string(respBody))
	}
	return parsed.Data.Token, g.Config.BaseURL + "/trnRequest/" + parsed.Data.Token, nil
}

// Verify confirms a notified transaction with the gateway. The raw response
// is returned for the audit trail regardless of outcome.
func (g *Gateway) Verify(sessionID string, orderID, amount int64, currency string) (string, error) {
	body := struct {
		MerchantID int    `json:"merchantId"`
		PosID      int    `json:"posId"`
		SessionID  string `json:"sessionId"`
		Amount     int64  `json:"amount"`
		Currency   string `json:"currency"`
		OrderID    int64  `json:"orderId"`
		Sign       string `json:"sign"`
	}{g.Config.MerchantID, g.Config.PosID, sessionID, amount, currency, orderID,
		g.NotificationSign(sessionID, orderID, amount, currency)}

	respBody, err := g.call(http.MethodPut, "/api/v1/transaction/verify", body)
	return string(respBody), err
}

// Refund returns the full amount of a paid session. The request and refund
// ids derive from the session, so a redelivered notification repeats the
// identical refund request and the gateway deduplicates it instead of paying
// out twice.
func (g *Gateway) Refund(sessionID string, orderID, amount int64) (string, error) {
	body := struct {
		RequestID   string `json:"requestId"`
		RefundsUUID string `json:"refundsUuid"`
		Refunds     []struct {
			SessionID string `json:"sessionId"`
			OrderID   int64  `json:"orderId"`
			Amount    int64  `json:"amount"`
		} `json:"refunds"`
	}{
		RequestID:   uuid.NewSHA1(uuid.NameSpaceURL, []byte("refund-request:"+sessionID)).String(),
		RefundsUUID: uuid.NewSHA1(uuid.NameSpaceURL, []byte("refund:"+sessionID)).String(),
		Refunds: []struct {
			SessionID string `json:"sessionId"`
			OrderID   int64  `json:"orderId"`
			Amount    int64  `json:"amount"`
		}{{SessionID: sessionID, OrderID: orderID, Amount: amount}},
	}

	respBody, err := g.call(http.MethodPost, "/api/v1/transaction/refund", body)
	return string(respBody), err
}
