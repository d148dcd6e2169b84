package keystore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PublicKey(t *testing.T) {
	store := NewMemoryStore()

	err := store.PutPublicKey("", KeyDocument{})
	assert.Error(t, err)

	vm := "did:web:example.com#key-1"
	require.NoError(t, store.PutPublicKey(vm, KeyDocument{
		Type:               "Ed25519VerificationKey2020",
		Controller:         "did:web:example.com",
		PublicKeyMultibase: "z6Mk",
	}))

	doc, err := store.GetPublicKey(vm)
	require.NoError(t, err)
	assert.Equal(t, "did:web:example.com", doc.Controller)

	doc.Controller = "mutated"
	again, err := store.GetPublicKey(vm)
	require.NoError(t, err)
	assert.Equal(t, "did:web:example.com", again.Controller)

	_, err = store.GetPublicKey("did:web:other.com#key-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Context(t *testing.T) {
	tests := []struct {
		name    string
		raw     interface{}
		wantErr bool
	}{
		{name: "bytes", raw: []byte(`{"@context":{"name":"http://schema.org/name"}}`)},
		{name: "string", raw: `{"@context":{}}`},
		{name: "decoded", raw: map[string]interface{}{"@context": map[string]interface{}{}}},
		{name: "invalid json", raw: []byte(`{`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			err := store.PutContext("https://example.com/ctx", tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			doc, err := store.GetContext("https://example.com/ctx")
			require.NoError(t, err)
			assert.IsType(t, map[string]interface{}{}, doc)
		})
	}
}

func TestMemoryStore_StatusList(t *testing.T) {
	store := NewMemoryStore()
	assert.Error(t, store.PutStatusList("https://example.com/status/1", `[1,2]`))
	require.NoError(t, store.PutStatusList("https://example.com/status/1", `{"id":"https://example.com/status/1"}`))

	doc, err := store.GetStatusList("https://example.com/status/1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/status/1", doc["id"])

	require.NoError(t, store.Delete("https://example.com/status/1"))
	_, err = store.GetStatusList("https://example.com/status/1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete("https://example.com/status/1"), ErrNotFound)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.PutPublicKey("did:web:example.com#key-1", KeyDocument{Type: "JsonWebKey2020"})
			_, _ = store.GetPublicKey("did:web:example.com#key-1")
		}()
	}
	wg.Wait()

	doc, err := store.GetPublicKey("did:web:example.com#key-1")
	require.NoError(t, err)
	assert.Equal(t, "JsonWebKey2020", doc.Type)
}
