package odoo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kolo/xmlrpc"

	"tdash/internal/logs"
)

// Config — параметры подключения к одному инстансу Odoo.
// Пустой блок в конфиге = дашборды этого инстанса выключены.
type Config struct {
	URL      string `mapstructure:"url"`
	DB       string `mapstructure:"db"`
	Username string `mapstructure:"username"`
	APIKey   string `mapstructure:"api_key"`
}

func (c Config) Enabled() bool {
	return c.URL != "" && c.DB != "" && c.Username != "" && c.APIKey != ""
}

var ErrAuthFailed = errors.New("odoo authentication failed")

// Caller — контракт для query-слоя; в тестах подменяется стабом.
type Caller interface {
	ExecuteKw(ctx context.Context, model, method string, args []any, kw map[string]any) (any, error)
}

// Client — явно сконструированный XML-RPC клиент Odoo.
// Никаких глобальных сессий: uid живёт внутри клиента под мьютексом,
// при протухшей сессии делается один повторный login.
type Client struct {
	cfg    Config
	common *xmlrpc.Client
	object *xmlrpc.Client

	mu  sync.Mutex
	uid int64
}

func NewClient(cfg Config) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("odoo: incomplete config (url/db/username/api_key required)")
	}
	base := strings.TrimRight(cfg.URL, "/")
	common, err := xmlrpc.NewClient(base+"/xmlrpc/2/common", nil)
	if err != nil {
		return nil, fmt.Errorf("odoo: common endpoint: %w", err)
	}
	object, err := xmlrpc.NewClient(base+"/xmlrpc/2/object", nil)
	if err != nil {
		return nil, fmt.Errorf("odoo: object endpoint: %w", err)
	}
	return &Client{cfg: cfg, common: common, object: object}, nil
}

// Authenticate логинится и кэширует uid.
// Odoo на неверный ключ отвечает false вместо fault — разбираем оба типа.
func (c *Client) Authenticate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var reply any
	err := c.common.Call("authenticate",
		[]any{c.cfg.DB, c.cfg.Username, c.cfg.APIKey, map[string]any{}}, &reply)
	if err != nil {
		return fmt.Errorf("odoo authenticate: %w", err)
	}

	uid := asInt(reply)
	if uid == 0 {
		return ErrAuthFailed
	}

	c.mu.Lock()
	c.uid = uid
	c.mu.Unlock()
	logs.Logger.Infof("odoo authenticated db=%s uid=%d", c.cfg.DB, uid)
	return nil
}

// Connected — есть ли закэшированная сессия (без сетевого вызова).
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid != 0
}

// TestConnection — проверка живости для health-эндпоинта.
func (c *Client) TestConnection(ctx context.Context) bool {
	if !c.Connected() {
		return c.Authenticate(ctx) == nil
	}
	_, err := c.ExecuteKw(ctx, "res.users", "search_count",
		[]any{[]any{[]any{"id", "=", c.currentUID()}}}, nil)
	return err == nil
}

func (c *Client) currentUID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid
}

// ExecuteKw — generic-вызов модели. При отсутствии сессии логинится,
// при ошибке вызова пробует перелогиниться и повторить один раз.
func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []any, kw map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Connected() {
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	res, err := c.call(model, method, args, kw)
	if err == nil {
		return res, nil
	}

	// Возможно, сессия протухла — один retry после повторного login.
	logs.Logger.Warnf("odoo call %s.%s failed, re-authenticating: %v", model, method, err)
	if aerr := c.Authenticate(ctx); aerr != nil {
		return nil, aerr
	}
	return c.call(model, method, args, kw)
}

func (c *Client) call(model, method string, args []any, kw map[string]any) (any, error) {
	if args == nil {
		args = []any{}
	}
	if kw == nil {
		kw = map[string]any{}
	}
	var reply any
	err := c.object.Call("execute_kw",
		[]any{c.cfg.DB, c.currentUID(), c.cfg.APIKey, model, method, args, kw}, &reply)
	if err != nil {
		return nil, fmt.Errorf("odoo %s.%s: %w", model, method, err)
	}
	return reply, nil
}
