// Package share encodes stories as URL-safe tokens for shareable links.
package share

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"chatfic/pkg/domain"
)

// Token format: "cf1." + base64url(gzip(json(Story))), no padding. The
// version prefix lets future Story fields ship without breaking old links.
const versionPrefix = "cf1."

// ErrBadToken wraps every decode failure so callers can treat them all as
// a non-fatal notice.
var ErrBadToken = errors.New("share: malformed token")

var encoding = base64.RawURLEncoding

// Encode serializes a story into a shareable token.
func Encode(story domain.Story) (string, error) {
	if story.ID == "" {
		return "", fmt.Errorf("share: story id required")
	}
	payload, err := json.Marshal(story)
	if err != nil {
		return "", fmt.Errorf("share: encode story: %w", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return "", fmt.Errorf("share: compress story: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("share: compress story: %w", err)
	}
	return versionPrefix + encoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. Any malformed input fails with an error wrapping
// ErrBadToken; the caller surfaces it as a notice and continues.
func Decode(token string) (domain.Story, error) {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, versionPrefix) {
		return domain.Story{}, fmt.Errorf("%w: unknown version", ErrBadToken)
	}
	raw, err := encoding.DecodeString(strings.TrimPrefix(token, versionPrefix))
	if err != nil {
		return domain.Story{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return domain.Story{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	payload, err := io.ReadAll(zr)
	if err != nil {
		return domain.Story{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	var story domain.Story
	if err := json.Unmarshal(payload, &story); err != nil {
		return domain.Story{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if story.ID == "" {
		return domain.Story{}, fmt.Errorf("%w: missing story id", ErrBadToken)
	}
	return story, nil
}
