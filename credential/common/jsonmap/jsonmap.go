package jsonmap

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pilacorp/go-vc-verifier/credential/common/constant"
	"github.com/pilacorp/go-vc-verifier/credential/common/dto"
)

// JSONMap represents a JSON object as a map. Unknown fields are kept as-is so
// a credential survives reserialization unchanged.
type JSONMap map[string]interface{}

// Parse decodes raw JSON into a JSONMap.
func Parse(raw []byte) (JSONMap, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("JSON string is empty")
	}
	var m JSONMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("credential is not a JSON object")
	}
	return m, nil
}

// ToJSON serializes the JSONMap to JSON.
func (m JSONMap) ToJSON() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("JSONMap is nil")
	}
	data, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSONMap: %w", err)
	}
	return data, nil
}

// Clone returns a deep copy of the map.
func (m JSONMap) Clone() JSONMap {
	if m == nil {
		return nil
	}
	return deepCopy(map[string]interface{}(m)).(map[string]interface{})
}

// Without returns a deep copy of the map with the given top-level keys removed.
func (m JSONMap) Without(keys ...string) JSONMap {
	out := m.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// WithoutProof returns the credential without its proof attached.
func (m JSONMap) WithoutProof() JSONMap {
	return m.Without(constant.Proof)
}

// Has reports whether the top-level key exists.
func (m JSONMap) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// String returns the string value of a top-level key.
func (m JSONMap) String(key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// Contexts returns the @context entries as a slice. A single string context
// becomes a one-element slice.
func (m JSONMap) Contexts() []interface{} {
	return AsSlice(m[constant.Context])
}

// FirstContext returns the first @context entry when it is a string.
func (m JSONMap) FirstContext() (string, bool) {
	contexts := m.Contexts()
	if len(contexts) == 0 {
		return "", false
	}
	s, ok := contexts[0].(string)
	return s, ok
}

// Types returns the type values as strings.
func (m JSONMap) Types() []string {
	var types []string
	for _, t := range AsSlice(m[constant.Type]) {
		if s, ok := t.(string); ok {
			types = append(types, s)
		}
	}
	return types
}

// IssuerID returns the issuer identifier whether issuer is a string or an object.
func (m JSONMap) IssuerID() string {
	switch v := m[constant.Issuer].(type) {
	case string:
		return v
	case map[string]interface{}:
		id, _ := v[constant.ID].(string)
		return id
	}
	return ""
}

// RawProofs returns every proof object attached to the credential.
func (m JSONMap) RawProofs() ([]JSONMap, error) {
	raw, exists := m[constant.Proof]
	if !exists || raw == nil {
		return nil, fmt.Errorf("JSONMap has no proof")
	}
	var proofs []JSONMap
	for _, p := range AsSlice(raw) {
		pm, ok := p.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid proof format: expected object, got %T", p)
		}
		proofs = append(proofs, JSONMap(pm))
	}
	if len(proofs) == 0 {
		return nil, fmt.Errorf("JSONMap has no proof")
	}
	return proofs, nil
}

// Lookup walks a dotted path through nested objects. When an array is met on
// the way every element must contain the remaining path. It reports whether
// the leaf exists for every branch.
func (m JSONMap) Lookup(path string) bool {
	return lookup(map[string]interface{}(m), strings.Split(path, "."))
}

func lookup(node interface{}, parts []string) bool {
	if len(parts) == 0 {
		return node != nil
	}
	switch v := node.(type) {
	case map[string]interface{}:
		next, ok := v[parts[0]]
		if !ok || next == nil {
			return false
		}
		return lookup(next, parts[1:])
	case []interface{}:
		if len(v) == 0 {
			return false
		}
		for _, el := range v {
			if !lookup(el, parts) {
				return false
			}
		}
		return true
	}
	return false
}

// ParseRawToProof converts a JSON object to a Proof struct.
func ParseRawToProof(proof interface{}) (dto.Proof, error) {
	var result dto.Proof
	proofMap, ok := proof.(map[string]interface{})
	if !ok {
		if jm, isMap := proof.(JSONMap); isMap {
			proofMap = jm
		} else {
			return result, fmt.Errorf("invalid proof format: expected map[string]interface{}, got %T", proof)
		}
	}

	result.Context = proofMap[constant.Context]
	if t, ok := proofMap[constant.ProofType].(string); ok {
		result.Type = t
	}
	if created, ok := proofMap[constant.ProofCreated].(string); ok {
		result.Created = created
	}
	if purpose, ok := proofMap[constant.ProofPurpose].(string); ok {
		result.ProofPurpose = purpose
	}
	if vm, ok := proofMap[constant.ProofVerificationMethod].(string); ok {
		result.VerificationMethod = vm
	}
	if pv, ok := proofMap[constant.ProofValue].(string); ok {
		result.ProofValue = pv
	}
	if jws, ok := proofMap[constant.ProofJWS].(string); ok {
		result.JWS = jws
	}
	if challenge, ok := proofMap["challenge"].(string); ok {
		result.Challenge = challenge
	}
	if domain, ok := proofMap["domain"].(string); ok {
		result.Domain = domain
	}
	if mb, ok := proofMap[constant.PublicKeyMultibase].(string); ok {
		result.PublicKeyMultibase = mb
	}
	return result, nil
}

// AsSlice wraps a single value in a slice; slices are returned unchanged and nil yields nil.
func AsSlice(value interface{}) []interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	case []string:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case JSONMap:
		return []interface{}{map[string]interface{}(v)}
	default:
		return []interface{}{v}
	}
}

func deepCopy(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = deepCopy(val)
		}
		return out
	case JSONMap:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = deepCopy(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = deepCopy(val)
		}
		return out
	case []string:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = val
		}
		return out
	default:
		return v
	}
}
