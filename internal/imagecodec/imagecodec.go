// Package imagecodec turns base64 transport payloads into decoded images.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptyPayload is returned when no image data was supplied.
	ErrEmptyPayload = errors.New("imagecodec: empty payload")
	// ErrDecode is wrapped by every base64 or image format failure.
	ErrDecode = errors.New("imagecodec: decode failed")
)

// DecodeBase64 decodes a base64 image, optionally given as a data URL
// ("data:image/png;base64,...").
func DecodeBase64(payload string) (image.Image, error) {
	if i := strings.LastIndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrEmptyPayload
	}

	raw, err := decodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrDecode, err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// DecodeAll decodes the target followed by every option, stopping at the
// first failure.
func DecodeAll(target string, options []string) (image.Image, []image.Image, error) {
	targetImg, err := DecodeBase64(target)
	if err != nil {
		return nil, nil, fmt.Errorf("target: %w", err)
	}

	imgs := make([]image.Image, len(options))
	for i, opt := range options {
		img, err := DecodeBase64(opt)
		if err != nil {
			return nil, nil, fmt.Errorf("option %d: %w", i+1, err)
		}
		imgs[i] = img
	}
	return targetImg, imgs, nil
}

func decodeString(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return raw, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}
