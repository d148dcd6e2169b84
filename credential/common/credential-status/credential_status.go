// Package credentialstatus checks StatusList2021 and BitstringStatusList
// entries against status list credentials held in a local store.
package credentialstatus

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/pilacorp/go-vc-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-vc-verifier/credential/common/keystore"
)

// ErrUnsupportedEntry is returned for entry types the checker does not know.
var ErrUnsupportedEntry = errors.New("unsupported credentialStatus type")

// Checker resolves status entries against a StatusListStore.
type Checker struct {
	store keystore.StatusListStore
}

// NewChecker creates a Checker.
func NewChecker(store keystore.StatusListStore) *Checker {
	return &Checker{store: store}
}

// ParseEntries reads the credentialStatus value of a credential, a single
// object or an array of objects.
func ParseEntries(credentialStatus interface{}) ([]Entry, error) {
	var entries []Entry
	for i, raw := range jsonmap.AsSlice(credentialStatus) {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("credentialStatus entry %d is not an object", i)
		}
		entry := Entry{}
		entry.ID, _ = m["id"].(string)
		entry.Type, _ = m["type"].(string)
		entry.StatusPurpose, _ = m["statusPurpose"].(string)
		entry.StatusListCredential, _ = m["statusListCredential"].(string)
		switch idx := m["statusListIndex"].(type) {
		case string:
			entry.StatusListIndex = idx
		case float64:
			entry.StatusListIndex = strconv.FormatInt(int64(idx), 10)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Check returns whether the entry's bit is set in its status list.
func (c *Checker) Check(entry Entry) (*Result, error) {
	if c.store == nil {
		return nil, fmt.Errorf("no status list store configured")
	}

	var multibaseList bool
	switch entry.Type {
	case TypeStatusList2021Entry:
	case TypeBitstringStatusListEntry:
		multibaseList = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEntry, entry.Type)
	}

	if entry.StatusListCredential == "" {
		return nil, fmt.Errorf("statusListCredential is empty")
	}
	position, err := strconv.Atoi(entry.StatusListIndex)
	if err != nil || position < 0 {
		return nil, fmt.Errorf("invalid statusListIndex %q", entry.StatusListIndex)
	}

	raw, err := c.store.GetStatusList(entry.StatusListCredential)
	if err != nil {
		return nil, fmt.Errorf("failed to load status list credential: %w", err)
	}
	list, err := parseStatusListCredential(raw)
	if err != nil {
		return nil, err
	}

	subject := list.CredentialSubject
	if entry.StatusPurpose != "" && subject.StatusPurpose != "" && entry.StatusPurpose != subject.StatusPurpose {
		return nil, fmt.Errorf("status purpose mismatch: entry %q, list %q", entry.StatusPurpose, subject.StatusPurpose)
	}

	set, err := IsSet(position, subject.EncodedList, multibaseList)
	if err != nil {
		return nil, err
	}
	return &Result{Entry: entry, Set: set}, nil
}

// IsSet decodes encodedList and reads the bit at position. StatusList2021
// lists are read least significant bit first; BitstringStatusList lists are
// read left to right.
func IsSet(position int, encodedList string, multibaseList bool) (bool, error) {
	var (
		bitstring []byte
		err       error
	)
	if multibaseList {
		bitstring, err = DecompressFromMultibase(encodedList)
	} else {
		bitstring, err = DecompressFromBase64URL(encodedList)
	}
	if err != nil {
		return false, fmt.Errorf("failed to decode status list: %w", err)
	}

	byteIndex := position / 8
	bitIndex := position % 8
	if byteIndex >= len(bitstring) {
		return false, fmt.Errorf("statusListIndex %d out of range", position)
	}

	if multibaseList {
		return (bitstring[byteIndex]>>(7-bitIndex))&1 == 1, nil
	}
	return (bitstring[byteIndex]>>bitIndex)&1 == 1, nil
}

// IsRevoked checks whether a credential is revoked based on the encoded list
// and a given status position.
func IsRevoked(position int, subject StatusListCredentialSubject) (bool, error) {
	if subject.StatusPurpose != PurposeRevocation {
		return false, nil
	}
	return IsSet(position, subject.EncodedList, false)
}

func parseStatusListCredential(raw map[string]interface{}) (*StatusListCredential, error) {
	if data, ok := raw["data"].(map[string]interface{}); ok {
		raw = data
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status list credential: %w", err)
	}
	var list StatusListCredential
	if err := json.Unmarshal(encoded, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status list credential JSON: %w", err)
	}
	if list.CredentialSubject.EncodedList == "" {
		return nil, fmt.Errorf("status list credential has no encodedList")
	}
	return &list, nil
}
