package processor

import (
	"bytes"
	"embed"
	"errors"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/piprate/json-gold/ld"
	"go.uber.org/zap"

	"github.com/pilacorp/go-vc-verifier/credential/common/constant"
	"github.com/pilacorp/go-vc-verifier/credential/common/keystore"
)

//go:embed contexts/*.json
var embeddedContexts embed.FS

var embeddedContextFiles = map[string]string{
	constant.CredentialsContextV1URL:    "contexts/credentials-v1.json",
	constant.CredentialsContextV2URL:    "contexts/credentials-v2.json",
	constant.SecurityContextV2URL:       "contexts/security-v2.json",
	constant.Ed25519Suite2020ContextURL: "contexts/ed25519-2020-v1.json",
}

// DefaultCacheSize is the number of parsed context documents kept in memory.
const DefaultCacheSize int64 = 256

// ErrContextNotCached is returned for a context URL that is neither embedded
// nor held by the ContextStore. Loading never falls back to the network.
var ErrContextNotCached = errors.New("context not available offline")

// LoaderOpt configures a ContextLoader.
type LoaderOpt func(*ContextLoader)

// WithCacheSize bounds the number of memoized context documents.
func WithCacheSize(size int64) LoaderOpt {
	return func(l *ContextLoader) {
		if size > 0 {
			l.cacheSize = size
		}
	}
}

// WithLoaderLogger sets the logger used for cache misses.
func WithLoaderLogger(logger *zap.Logger) LoaderOpt {
	return func(l *ContextLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// ContextLoader is an offline ld.DocumentLoader. It consults the ContextStore
// first, then the embedded copies of the well-known contexts. Parsed documents
// are memoized.
type ContextLoader struct {
	store     keystore.ContextStore
	cache     *ristretto.Cache[string, *ld.RemoteDocument]
	cacheSize int64
	logger    *zap.Logger
}

// NewContextLoader creates a ContextLoader. store may be nil, in which case
// only the embedded contexts resolve.
func NewContextLoader(store keystore.ContextStore, opts ...LoaderOpt) (*ContextLoader, error) {
	l := &ContextLoader{
		store:     store,
		cacheSize: DefaultCacheSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *ld.RemoteDocument]{
		NumCounters: l.cacheSize * 10,
		MaxCost:     l.cacheSize,
		BufferItems: 64,
		// Cost is counted in documents.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context cache: %w", err)
	}
	l.cache = cache
	return l, nil
}

// LoadDocument implements ld.DocumentLoader.
func (l *ContextLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	if doc, ok := l.cache.Get(u); ok {
		return doc, nil
	}

	doc, err := l.load(u)
	if err != nil {
		l.logger.Debug("context lookup failed", zap.String("url", u), zap.Error(err))
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}

	l.cache.Set(u, doc, 1)
	l.cache.Wait()
	return doc, nil
}

// Close releases the memo.
func (l *ContextLoader) Close() {
	l.cache.Close()
}

func (l *ContextLoader) load(u string) (*ld.RemoteDocument, error) {
	if l.store != nil {
		doc, err := l.store.GetContext(u)
		if err == nil && doc != nil {
			return &ld.RemoteDocument{DocumentURL: u, Document: doc}, nil
		}
		if err != nil && !errors.Is(err, keystore.ErrNotFound) {
			return nil, fmt.Errorf("failed to read context %q from store: %w", u, err)
		}
	}

	file, ok := embeddedContextFiles[u]
	if !ok {
		return nil, fmt.Errorf("%q: %w", u, ErrContextNotCached)
	}
	data, err := embeddedContexts.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded context %q: %w", u, err)
	}
	doc, err := ld.DocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded context %q: %w", u, err)
	}
	return &ld.RemoteDocument{DocumentURL: u, Document: doc}, nil
}
