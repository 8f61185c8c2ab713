// internal/vault/vault.go
//
// Vault-backed secret store for configuration references.
//
// Context
// -------
//   - Wraps the HashiCorp Vault Go SDK so the config resolver can turn
//     `vault:secret/autoinstall#password_hash` into the real value.
//   - Adds background token renewal and a per-key TTL cache.
//   - Only built when VAULT_ADDR is set.  Without it, secret references
//     fail resolution and the server refuses to start.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, log.Infof)              // during boot.
//  2. config.Resolve(ctx, config.Options{Secrets: cli})  // resolves refs.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// CacheTTL bounds how long a fetched value is reused.
const CacheTTL = 5 * time.Minute

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	kv    func(mount string) kvReader
	logFn func(string, ...any)

	cacheMu sync.RWMutex
	cache   map[string]cached // mount/path#key → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

// kvReader is the slice of *vault.KVv2 the client uses.
type kvReader interface {
	Get(ctx context.Context, secretPath string) (*vault.KVSecret, error)
}

// Enabled reports whether the environment points at a Vault server.
func Enabled() bool { return os.Getenv("VAULT_ADDR") != "" }

// New constructs a Vault client and starts a background token‑renewal
// loop bound to ctx.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – initial token (falls back to ~/.vault‑token).
func New(ctx context.Context, logFn func(string, ...any)) (*Client, error) {
	if logFn == nil {
		logFn = func(string, ...any) {}
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := newClient(func(mount string) kvReader { return apiCli.KVv2(mount) }, logFn)
	go renewLoop(ctx, apiCli, logFn)
	return c, nil
}

func newClient(kv func(string) kvReader, logFn func(string, ...any)) *Client {
	return &Client{
		kv:    kv,
		logFn: logFn,
		cache: make(map[string]cached),
	}
}

// Secret resolves "mount/path#key" (the part after `vault:`).
func (c *Client) Secret(ctx context.Context, ref string) (string, error) {
	path, key, ok := strings.Cut(ref, "#")
	if !ok {
		return "", fmt.Errorf("secret reference %q: want <mount>/<path>#<key>", ref)
	}
	return c.GetKV(ctx, path, key, CacheTTL)
}

// GetKV fetches a single key from a KV‑v2 secret.  If ttl > 0 the result
// is cached for that duration.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non‑empty")
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		cv, ok := c.cache[canonical]
		c.cacheMu.RUnlock()
		if ok && time.Now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel := splitMount(secretPath)
	if rel == "" {
		return "", fmt.Errorf("secret path %q has no path below the mount", secretPath)
	}
	sec, err := c.kv(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", canonical)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	c.logFn("vault: fetched %s", canonical)
	return sval, nil
}

//
// SECTION 2.  Background token renewal
//

func renewLoop(ctx context.Context, api *vault.Client, logFn func(string, ...any)) {
	for ctx.Err() == nil {
		sec, err := api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			logFn("vault: token renew self failed: %v", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			logFn("vault: token is not renewable, sleeping 1h")
			backoff(ctx, time.Hour)
			continue
		}

		watcher, err := api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			logFn("vault: watcher init error: %v", err)
			backoff(ctx, 30*time.Second)
			continue
		}

		watch(ctx, watcher, logFn)
		backoff(ctx, 15*time.Second)
	}
}

// watch blocks until the watcher stops or ctx ends.
func watch(ctx context.Context, w *vault.LifetimeWatcher, logFn func(string, ...any)) {
	go w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				logFn("vault: token renewal stopped: %v", err)
			}
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				logFn("vault: token renewed, ttl=%ds", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(strings.Trim(p, "/"), "/")
	return mount, rel
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
