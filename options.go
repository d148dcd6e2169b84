package verifier

import (
	"crypto/x509"

	"go.uber.org/zap"

	"github.com/pilacorp/go-vc-verifier/config"
	"github.com/pilacorp/go-vc-verifier/credential/common/dateutil"
	"github.com/pilacorp/go-vc-verifier/credential/common/keystore"
)

// Option configures a Verifier.
type Option func(*options)

type options struct {
	logger           *zap.Logger
	keyStore         keystore.KeyStore
	contextStore     keystore.ContextStore
	statusStore      keystore.StatusListStore
	clock            dateutil.Clock
	roots            *x509.CertPool
	schemaValidation bool
	cfg              *config.Config
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithKeyStore sets the cache consulted for did:web and https verification methods.
func WithKeyStore(store keystore.KeyStore) Option {
	return func(o *options) {
		o.keyStore = store
	}
}

// WithContextStore sets the cache of JSON-LD contexts and JSON schemas.
func WithContextStore(store keystore.ContextStore) Option {
	return func(o *options) {
		o.contextStore = store
	}
}

// WithStatusListStore sets the cache of status list credentials used by CheckStatus.
func WithStatusListStore(store keystore.StatusListStore) Option {
	return func(o *options) {
		o.statusStore = store
	}
}

// WithMemoryStore uses store for keys, contexts and status lists.
func WithMemoryStore(store *keystore.MemoryStore) Option {
	return func(o *options) {
		o.keyStore = store
		o.contextStore = store
		o.statusStore = store
	}
}

// WithClock sets the clock used by date checks.
func WithClock(clock dateutil.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithTrustAnchors enables mdoc certificate chain validation against roots.
func WithTrustAnchors(roots *x509.CertPool) Option {
	return func(o *options) {
		o.roots = roots
	}
}

// WithSchemaValidation validates JSON-LD credentials against the JSON schemas
// named in credentialSchema that are present in the context store.
func WithSchemaValidation() Option {
	return func(o *options) {
		o.schemaValidation = true
	}
}

// WithConfig sets the tunables. Zero fields keep their defaults.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = config.New(cfg)
	}
}
