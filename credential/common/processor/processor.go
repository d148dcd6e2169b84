// Package processor canonicalizes JSON-LD documents with URDNA2015 using an
// offline document loader.
package processor

import (
	"crypto/sha256"
	"fmt"

	"github.com/piprate/json-gold/ld"
)

const formatNQuads = "application/n-quads"

// ProcessorOpt represents an option for JSON-LD processing.
type ProcessorOpt func(*Processor)

// WithAlgorithm sets the canonicalization algorithm.
func WithAlgorithm(alg string) ProcessorOpt {
	return func(p *Processor) {
		p.algorithm = alg
	}
}

// Processor canonicalizes documents. It is safe for concurrent use as long as
// its document loader is.
type Processor struct {
	loader    ld.DocumentLoader
	algorithm string
}

// NewProcessor returns a Processor bound to loader.
func NewProcessor(loader ld.DocumentLoader, opts ...ProcessorOpt) *Processor {
	p := &Processor{
		loader:    loader,
		algorithm: ld.AlgorithmURDNA2015,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Canonicalize returns the canonical N-Quads of doc.
func (p *Processor) Canonicalize(doc map[string]interface{}) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("failed to canonicalize document: document is nil")
	}
	if p.loader == nil {
		return nil, fmt.Errorf("failed to canonicalize document: no document loader")
	}

	jsonldOptions := ld.NewJsonLdOptions("")
	jsonldOptions.Format = formatNQuads
	jsonldOptions.Algorithm = p.algorithm
	jsonldOptions.DocumentLoader = p.loader

	canonicalized, err := ld.NewJsonLdProcessor().Normalize(doc, jsonldOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}
	nquads, ok := canonicalized.(string)
	if !ok {
		return nil, fmt.Errorf("failed to normalize document: unexpected result %T", canonicalized)
	}
	return []byte(nquads), nil
}

// CanonicalDigest canonicalizes doc and returns the SHA-256 of the N-Quads.
func (p *Processor) CanonicalDigest(doc map[string]interface{}) ([]byte, error) {
	canonical, err := p.Canonicalize(doc)
	if err != nil {
		return nil, err
	}
	return ComputeDigest(canonical)
}

// ComputeDigest computes the SHA-256 digest of the input data.
func ComputeDigest(data []byte) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("failed to compute digest: input data is nil")
	}
	hash := sha256.Sum256(data)
	return hash[:], nil
}
