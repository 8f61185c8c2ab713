package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	vault "github.com/hashicorp/vault/api"
)

type fakeKV struct {
	mount string
	data  map[string]map[string]any
	calls *int
}

func (f fakeKV) Get(_ context.Context, p string) (*vault.KVSecret, error) {
	*f.calls++
	d, ok := f.data[f.mount+"/"+p]
	if !ok {
		return nil, errors.New("not found")
	}
	return &vault.KVSecret{Data: d}, nil
}

func newFake(data map[string]map[string]any) (*Client, *int) {
	calls := new(int)
	c := newClient(func(mount string) kvReader {
		return fakeKV{mount: mount, data: data, calls: calls}
	}, nil)
	c.logFn = func(string, ...any) {}
	return c, calls
}

func TestSecret_ResolvesAndCaches(t *testing.T) {
	c, calls := newFake(map[string]map[string]any{
		"secret/autoinstall": {"password_hash": "$6$abc", "port": 22},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := c.Secret(ctx, "secret/autoinstall#password_hash")
		if err != nil {
			t.Fatalf("Secret: %v", err)
		}
		if got != "$6$abc" {
			t.Fatalf("got %q", got)
		}
	}
	if *calls != 1 {
		t.Fatalf("backend calls = %d, want 1 (cached)", *calls)
	}
}

func TestSecret_Errors(t *testing.T) {
	c, _ := newFake(map[string]map[string]any{
		"secret/autoinstall": {"port": 22},
	})
	ctx := context.Background()

	refs := []string{
		"secret/autoinstall",         // no key
		"secret#password_hash",       // no path below mount
		"secret/missing#x",           // backend error
		"secret/autoinstall#nothere", // key missing
		"secret/autoinstall#port",    // not a string
	}
	for _, ref := range refs {
		if _, err := c.Secret(ctx, ref); err == nil {
			t.Errorf("Secret(%q) succeeded, want error", ref)
		}
	}
}

func TestGetKV_ZeroTTLSkipsCache(t *testing.T) {
	c, calls := newFake(map[string]map[string]any{
		"kv/app": {"k": "v"},
	})
	for i := 0; i < 3; i++ {
		if _, err := c.GetKV(context.Background(), "kv/app", "k", 0); err != nil {
			t.Fatalf("GetKV: %v", err)
		}
	}
	if *calls != 3 {
		t.Fatalf("backend calls = %d, want 3", *calls)
	}
}

func TestBackoff_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		backoff(ctx, time.Hour)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("backoff ignored cancelled context")
	}
}
