// Package keystore defines the read-only cache the verifiers consult for key
// material, JSON-LD contexts and status lists. Population is the caller's job.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when the store holds no entry for the requested id.
var ErrNotFound = errors.New("not found in store")

// KeyDocument is the key material cached for a verification method. At most
// one of the public key fields is expected to be set.
type KeyDocument struct {
	ID                 string          `json:"id,omitempty"`
	Type               string          `json:"type"`
	Controller         string          `json:"controller,omitempty"`
	PublicKeyMultibase string          `json:"publicKeyMultibase,omitempty"`
	PublicKeyJwk       json.RawMessage `json:"publicKeyJwk,omitempty"`
	PublicKeyHex       string          `json:"publicKeyHex,omitempty"`
	PublicKeyPem       string          `json:"publicKeyPem,omitempty"`
}

// KeyStore looks up cached key material by verification method URI.
type KeyStore interface {
	GetPublicKey(verificationMethod string) (*KeyDocument, error)
}

// ContextStore looks up cached JSON documents (JSON-LD contexts and JSON
// schemas) by URL.
type ContextStore interface {
	GetContext(url string) (interface{}, error)
}

// StatusListStore looks up cached status list credentials by URL.
type StatusListStore interface {
	GetStatusList(url string) (map[string]interface{}, error)
}

// MemoryStore is an in-process implementation of every store interface, safe
// for concurrent use.
type MemoryStore struct {
	keys        map[string]KeyDocument
	contexts    map[string]interface{}
	statusLists map[string]map[string]interface{}
	mu          sync.RWMutex
}

// NewMemoryStore initializes an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:        make(map[string]KeyDocument),
		contexts:    make(map[string]interface{}),
		statusLists: make(map[string]map[string]interface{}),
	}
}

// PutPublicKey stores key material for a verification method.
func (s *MemoryStore) PutPublicKey(verificationMethod string, doc KeyDocument) error {
	if verificationMethod == "" {
		return errors.New("verification method cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[verificationMethod] = doc
	return nil
}

// GetPublicKey returns a copy of the key material for a verification method.
func (s *MemoryStore) GetPublicKey(verificationMethod string) (*KeyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.keys[verificationMethod]
	if !exists {
		return nil, fmt.Errorf("public key %q: %w", verificationMethod, ErrNotFound)
	}
	return &doc, nil
}

// PutContext stores a JSON document under url. raw may be JSON bytes or an
// already decoded value.
func (s *MemoryStore) PutContext(url string, raw interface{}) error {
	if url == "" {
		return errors.New("context URL cannot be empty")
	}
	doc, err := decode(raw)
	if err != nil {
		return fmt.Errorf("failed to store context %q: %w", url, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.contexts[url] = doc
	return nil
}

// GetContext returns the JSON document stored under url.
func (s *MemoryStore) GetContext(url string) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.contexts[url]
	if !exists {
		return nil, fmt.Errorf("context %q: %w", url, ErrNotFound)
	}
	return doc, nil
}

// PutStatusList stores a status list credential under url.
func (s *MemoryStore) PutStatusList(url string, raw interface{}) error {
	if url == "" {
		return errors.New("status list URL cannot be empty")
	}
	doc, err := decode(raw)
	if err != nil {
		return fmt.Errorf("failed to store status list %q: %w", url, err)
	}
	m, ok := doc.(map[string]interface{})
	if !ok {
		return fmt.Errorf("status list %q is not a JSON object", url)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.statusLists[url] = m
	return nil
}

// GetStatusList returns the status list credential stored under url.
func (s *MemoryStore) GetStatusList(url string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.statusLists[url]
	if !exists {
		return nil, fmt.Errorf("status list %q: %w", url, ErrNotFound)
	}
	return doc, nil
}

// Delete removes every entry stored under id.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, k := s.keys[id]
	_, c := s.contexts[id]
	_, l := s.statusLists[id]
	if !k && !c && !l {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	delete(s.keys, id)
	delete(s.contexts, id)
	delete(s.statusLists, id)
	return nil
}

func decode(raw interface{}) (interface{}, error) {
	var data []byte
	switch v := raw.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	case string:
		data = []byte(v)
	default:
		return v, nil
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
