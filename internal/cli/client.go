package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"classtrade/internal/admin"
	"classtrade/internal/aigen"
	"classtrade/internal/auth"
	"classtrade/internal/game"

	"github.com/google/uuid"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// APIError is a non-2xx response decoded from the result envelope.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("api status %d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

type LoginResult struct {
	Session auth.Session `json:"session"`
	Admin   admin.Admin  `json:"admin"`
}

type QRLink struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	URL       string    `json:"url"`
}

type RankingResult struct {
	Day     int               `json:"day"`
	Ranking []game.RankingRow `json:"ranking"`
}

type GenerateRequest struct {
	StockIDs []int64 `json:"stock_ids,omitempty"`
	Theme    string  `json:"theme,omitempty"`
	Language string  `json:"language,omitempty"`
	Apply    bool    `json:"apply"`
}

type GenerateResult struct {
	Plan    aigen.Plan        `json:"plan"`
	Applied bool              `json:"applied"`
	Result  *admin.PlanResult `json:"result,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/login", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) ListClasses(ctx context.Context, clientID int64, status string) ([]admin.Class, error) {
	q := url.Values{}
	if clientID > 0 {
		q.Set("client_id", strconv.FormatInt(clientID, 10))
	}
	if status != "" {
		q.Set("status", status)
	}
	path := "/v1/admin/classes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Classes []admin.Class `json:"classes"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out.Classes, err
}

func (c *Client) CreateClass(ctx context.Context, in admin.ClassInput) (admin.Class, error) {
	var out admin.Class
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/classes", in, &out)
	return out, err
}

func (c *Client) Class(ctx context.Context, id int64) (admin.Class, error) {
	var out admin.Class
	err := c.jsonRequest(ctx, http.MethodGet, classPath(id, ""), nil, &out)
	return out, err
}

func (c *Client) SetClassStatus(ctx context.Context, id int64, status string) (admin.Class, error) {
	var out admin.Class
	err := c.jsonRequest(ctx, http.MethodPost, classPath(id, "/status"), map[string]any{"status": status}, &out)
	return out, err
}

func (c *Client) AdvanceDay(ctx context.Context, id int64) (game.DayChange, error) {
	var out game.DayChange
	err := c.jsonRequest(ctx, http.MethodPost, classPath(id, "/day/advance"), nil, &out)
	return out, err
}

func (c *Client) RewindDay(ctx context.Context, id int64) (game.DayChange, error) {
	var out game.DayChange
	err := c.jsonRequest(ctx, http.MethodPost, classPath(id, "/day/rewind"), nil, &out)
	return out, err
}

func (c *Client) Overview(ctx context.Context, id int64) (admin.Overview, error) {
	var out admin.Overview
	err := c.jsonRequest(ctx, http.MethodGet, classPath(id, "/overview"), nil, &out)
	return out, err
}

func (c *Client) Ranking(ctx context.Context, id int64, day int) (RankingResult, error) {
	path := classPath(id, "/ranking")
	if day > 0 {
		path += "?day=" + strconv.Itoa(day)
	}
	var out RankingResult
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) GuestQR(ctx context.Context, classID, guestID int64) (QRLink, error) {
	var out QRLink
	err := c.jsonRequest(ctx, http.MethodGet, classPath(classID, "/qr/"+strconv.FormatInt(guestID, 10)), nil, &out)
	return out, err
}

func (c *Client) ListGuests(ctx context.Context, classID int64) ([]admin.Guest, error) {
	var out struct {
		Guests []admin.Guest `json:"guests"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, classPath(classID, "/guests"), nil, &out)
	return out.Guests, err
}

func (c *Client) BulkGuests(ctx context.Context, classID int64, rows []admin.GuestInput) (admin.BulkResult, error) {
	var out admin.BulkResult
	err := c.jsonRequest(ctx, http.MethodPost, classPath(classID, "/guests/bulk"), map[string]any{"rows": rows}, &out)
	return out, err
}

// UploadRoster sends a CSV or XLSX file as-is and lets the server parse it.
func (c *Client) UploadRoster(ctx context.Context, classID int64, name string, file io.Reader) (admin.BulkResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return admin.BulkResult{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return admin.BulkResult{}, err
	}
	if err := mw.Close(); err != nil {
		return admin.BulkResult{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, classPath(classID, "/guests/upload"), &buf)
	if err != nil {
		return admin.BulkResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out admin.BulkResult
	return out, c.do(req, &out)
}

func (c *Client) Generate(ctx context.Context, classID int64, in GenerateRequest) (GenerateResult, error) {
	var out GenerateResult
	err := c.jsonRequest(ctx, http.MethodPost, classPath(classID, "/generate"), in, &out)
	return out, err
}

func classPath(id int64, suffix string) string {
	return "/v1/admin/classes/" + strconv.FormatInt(id, 10) + suffix
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg, Fields: env.Fields}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
