// Package identitydb 身份库的 HTTP 客户端：身份提供方自定义数据库脚本用到的调用（登录/创建/验证/改口令/查询/删除）以及普通 CRUD
package identitydb

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

var (
	ErrWrongCredentials = errors.New("wrong email or password")
	ErrUserExists       = errors.New("user already exists")
	ErrNotFound         = errors.New("user not found")
	ErrBadRequest       = errors.New("invalid request")
)

// StatusError 未预期的响应状态
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

// Pyrate 线上的记录格式
type Pyrate struct {
	ID            string  `json:"_id"`
	Email         string  `json:"email"`
	EmailVerified bool    `json:"email_verified"`
	FirstName     *string `json:"firstName,omitempty"`
	LastName      *string `json:"lastName,omitempty"`
	Ship          *string `json:"ship,omitempty"`
}

// Profile 身份提供方的规范化用户资料
type Profile struct {
	UserID        string         `json:"user_id"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"email_verified"`
	FirstName     *string        `json:"firstName,omitempty"`
	LastName      *string        `json:"lastName,omitempty"`
	UserMetadata  map[string]any `json:"user_metadata,omitempty"`
}

func (p Pyrate) Profile() Profile {
	prof := Profile{
		UserID:        p.ID,
		Email:         p.Email,
		EmailVerified: p.EmailVerified,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
	}
	if p.Ship != nil {
		prof.UserMetadata = map[string]any{"ship": *p.Ship}
	}
	return prof
}

// Changes 更新载荷；nil 字段不发送
type Changes struct {
	Email         *string `json:"email,omitempty"`
	EmailVerified *bool   `json:"email_verified,omitempty"`
	FirstName     *string `json:"firstName,omitempty"`
	LastName      *string `json:"lastName,omitempty"`
	Ship          *string `json:"ship,omitempty"`
	Password      *string `json:"password,omitempty"`
}

// NewPyrate 创建载荷
type NewPyrate struct {
	Email     string  `json:"email"`
	Password  string  `json:"password,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Ship      *string `json:"ship,omitempty"`
}

type Client struct {
	baseURL string
	secret  string
	hc      *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// New baseURL 形如 https://identitydb.example.com；secret 为服务密钥
func New(baseURL, secret string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		hc:      &http.Client{Transport: cleanhttp.DefaultPooledTransport(), Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Login 用用户自己的口令读取自己的记录
func (c *Client) Login(ctx context.Context, email, password string) (Profile, error) {
	var p Pyrate
	code, err := c.do(ctx, http.MethodGet, pyratePath(email), basicAuth(email, password), nil, &p)
	if err != nil {
		return Profile{}, err
	}
	switch code {
	case http.StatusOK:
		return p.Profile(), nil
	case http.StatusUnauthorized, http.StatusNotFound:
		return Profile{}, ErrWrongCredentials
	}
	return Profile{}, &StatusError{Op: "login", Status: code}
}

// GetByEmail 找不到时返回 ErrNotFound
func (c *Client) GetByEmail(ctx context.Context, email string) (Profile, error) {
	p, err := c.Get(ctx, email)
	if err != nil {
		return Profile{}, err
	}
	return p.Profile(), nil
}

// Get key 为 id 或 email
func (c *Client) Get(ctx context.Context, key string) (Pyrate, error) {
	var p Pyrate
	code, err := c.do(ctx, http.MethodGet, pyratePath(key), c.secretAuth(), nil, &p)
	if err != nil {
		return Pyrate{}, err
	}
	if err := expect("get", code, http.StatusOK); err != nil {
		return Pyrate{}, err
	}
	return p, nil
}

func (c *Client) List(ctx context.Context) ([]Pyrate, error) {
	var out []Pyrate
	code, err := c.do(ctx, http.MethodGet, "/pyrates", c.secretAuth(), nil, &out)
	if err != nil {
		return nil, err
	}
	if err := expect("list", code, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// Create 返回新记录的 id
func (c *Client) Create(ctx context.Context, in NewPyrate) (string, error) {
	var out struct {
		ID string `json:"_id"`
	}
	code, err := c.do(ctx, http.MethodPost, "/pyrates", c.secretAuth(), in, &out)
	if err != nil {
		return "", err
	}
	if err := expect("create", code, http.StatusCreated); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Update 返回的 bool 表示服务端是否确认了口令变更（202）
func (c *Client) Update(ctx context.Context, key string, ch Changes) (bool, error) {
	code, err := c.do(ctx, http.MethodPut, pyratePath(key), c.secretAuth(), ch, nil)
	if err != nil {
		return false, err
	}
	if code == http.StatusAccepted {
		return true, nil
	}
	return false, expect("update", code, http.StatusOK)
}

// Verify 把 email 标记为已验证
func (c *Client) Verify(ctx context.Context, email string) error {
	t := true
	_, err := c.Update(ctx, email, Changes{EmailVerified: &t})
	return err
}

// ChangePassword 服务端接受后返回 202
func (c *Client) ChangePassword(ctx context.Context, email, password string) error {
	changed, err := c.Update(ctx, email, Changes{Password: &password})
	if err != nil {
		return err
	}
	if !changed {
		return &StatusError{Op: "change password", Status: http.StatusOK}
	}
	return nil
}

// Remove id 为身份库内的 id（不带身份提供方前缀）
func (c *Client) Remove(ctx context.Context, key string) error {
	code, err := c.do(ctx, http.MethodDelete, pyratePath(key), c.secretAuth(), nil, nil)
	if err != nil {
		return err
	}
	return expect("remove", code, http.StatusAccepted)
}

func (c *Client) do(ctx context.Context, method, path, authz string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", authz)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

func expect(op string, code, want int) error {
	switch {
	case code == want:
		return nil
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrWrongCredentials)
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrUserExists
	case code == http.StatusBadRequest:
		return fmt.Errorf("%s: %w", op, ErrBadRequest)
	}
	return &StatusError{Op: op, Status: code}
}

func (c *Client) secretAuth() string { return basicAuth("", c.secret) }

func basicAuth(user, pass string) string {
	return "basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func pyratePath(key string) string { return "/pyrates/" + url.PathEscape(key) }
