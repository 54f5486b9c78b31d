// Package qr turns text into QR symbols and renders them as images.
package qr

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/skip2/go-qrcode"
)

// MaxPayload is the largest input, in bytes, that fits a version 40 symbol
// in byte mode at the lowest recovery level.
const MaxPayload = 2953

var (
	ErrEmptyText   = errors.New("text is empty")
	ErrTooLong     = fmt.Errorf("text exceeds %d bytes", MaxPayload)
	ErrInvalidUTF8 = errors.New("text is not valid UTF-8")
)

// Level is an error-correction tier.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

func (l Level) recovery() qrcode.RecoveryLevel {
	switch l {
	case LevelHigh:
		return qrcode.High
	case LevelMedium:
		return qrcode.Medium
	default:
		return qrcode.Low
	}
}

// ChooseLevel picks the recovery level from the byte length of text: short
// payloads get the strongest correction, long ones trade it for capacity.
func ChooseLevel(text string) Level {
	switch n := len(text); {
	case n <= 100:
		return LevelHigh
	case n <= 500:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Symbol is an encoded QR code without its quiet zone.
type Symbol struct {
	Modules [][]bool // row major, true = dark
	Level   Level
	Version int
}

// Size returns the number of modules per side.
func (s *Symbol) Size() int {
	return len(s.Modules)
}

// Validate reports whether text can be encoded at all.
func Validate(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	if len(text) > MaxPayload {
		return ErrTooLong
	}
	if !utf8.ValidString(text) {
		return ErrInvalidUTF8
	}
	return nil
}

// IsInputError reports whether err was caused by unusable input rather than
// an encoder or I/O failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyText) || errors.Is(err, ErrTooLong) || errors.Is(err, ErrInvalidUTF8)
}

// Encode validates text and encodes it at the level chosen by ChooseLevel.
func Encode(text string) (*Symbol, error) {
	if err := Validate(text); err != nil {
		return nil, err
	}

	level := ChooseLevel(text)
	q, err := qrcode.New(text, level.recovery())
	if err != nil {
		return nil, fmt.Errorf("encode QR code: %w", err)
	}
	q.DisableBorder = true

	return &Symbol{
		Modules: q.Bitmap(),
		Level:   level,
		Version: q.VersionNumber,
	}, nil
}

// Terminal renders text as a QR code made of half-block characters, quiet
// zone included, suitable for printing to a terminal.
func Terminal(text string) (string, error) {
	if err := Validate(text); err != nil {
		return "", err
	}
	q, err := qrcode.New(text, ChooseLevel(text).recovery())
	if err != nil {
		return "", fmt.Errorf("encode QR code: %w", err)
	}
	return q.ToSmallString(false), nil
}
