package credentialstatus

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/multiformats/go-multibase"
)

// Compress gzips data.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress gunzips data.
func Decompress(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

// CompressToBase64URL gzips data and encodes it as unpadded base64url, the
// StatusList2021 encodedList format.
func CompressToBase64URL(data []byte) (string, error) {
	compressed, err := Compress(data)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(compressed), nil
}

// DecompressFromBase64URL reverses CompressToBase64URL. Padding is tolerated.
func DecompressFromBase64URL(data string) ([]byte, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return nil, fmt.Errorf("failed to decode encodedList: %w", err)
	}
	return Decompress(compressed)
}

// CompressToMultibase gzips data and encodes it as base64url multibase, the
// BitstringStatusList encodedList format.
func CompressToMultibase(data []byte) (string, error) {
	compressed, err := Compress(data)
	if err != nil {
		return "", err
	}
	return multibase.Encode(multibase.Base64url, compressed)
}

// DecompressFromMultibase reverses CompressToMultibase.
func DecompressFromMultibase(data string) ([]byte, error) {
	_, compressed, err := multibase.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encodedList: %w", err)
	}
	return Decompress(compressed)
}
