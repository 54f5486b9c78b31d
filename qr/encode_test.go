package qr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseLevel(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want Level
	}{
		{"single byte", 1, LevelHigh},
		{"upper bound high", 100, LevelHigh},
		{"lower bound medium", 101, LevelMedium},
		{"upper bound medium", 500, LevelMedium},
		{"lower bound low", 501, LevelLow},
		{"max payload", MaxPayload, LevelLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseLevel(strings.Repeat("x", tt.n)))
		})
	}
}

func TestChooseLevel_CountsBytesNotRunes(t *testing.T) {
	// 40 runes, 120 bytes.
	text := strings.Repeat("码", 40)
	assert.Equal(t, LevelMedium, ChooseLevel(text))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"empty", "", ErrEmptyText},
		{"too long", strings.Repeat("a", MaxPayload+1), ErrTooLong},
		{"invalid utf8", "abc\xff\xfe", ErrInvalidUTF8},
		{"ascii", "hello", nil},
		{"multibyte", "生成二维码", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.text)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsInputError(err))
		})
	}
}

func TestEncode(t *testing.T) {
	sym, err := Encode("hello")
	require.NoError(t, err)

	assert.Equal(t, LevelHigh, sym.Level)
	assert.Equal(t, 1, sym.Version)
	assert.Equal(t, 21, sym.Size())
	for _, row := range sym.Modules {
		assert.Len(t, row, sym.Size())
	}

	// Finder pattern corners are dark and there is no quiet zone.
	assert.True(t, sym.Modules[0][0])
	assert.True(t, sym.Modules[0][sym.Size()-1])
	assert.True(t, sym.Modules[sym.Size()-1][0])
}

func TestEncode_SizeMatchesVersion(t *testing.T) {
	for _, text := range []string{"a", strings.Repeat("b", 200), strings.Repeat("c", 1000)} {
		sym, err := Encode(text)
		require.NoError(t, err)
		assert.Equal(t, 17+4*sym.Version, sym.Size())
	}
}

func TestEncode_MaxPayload(t *testing.T) {
	sym, err := Encode(strings.Repeat("7", MaxPayload))
	require.NoError(t, err)
	assert.Equal(t, LevelLow, sym.Level)

	_, err = Encode(strings.Repeat("7", MaxPayload+1))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestEncode_MaxPayloadByteMode(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"two-byte runes", strings.Repeat("é", 1476) + "a"},
		{"three-byte runes", strings.Repeat("中", 984)},
		{"mixed widths", strings.Repeat("a中é", 491)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.LessOrEqual(t, len(tt.text), MaxPayload)
			require.Greater(t, len(tt.text), 2809, "must not fit version 39")

			sym, err := Encode(tt.text)
			require.NoError(t, err)
			assert.Equal(t, LevelLow, sym.Level)
			assert.Equal(t, 40, sym.Version)
			assert.Equal(t, 177, sym.Size())

			img, err := NewGenerator().Generate(tt.text)
			require.NoError(t, err)
			assert.Equal(t, (177+2*DefaultBorder)*6, img.Pixels)

			over := tt.text + strings.Repeat("a", MaxPayload-len(tt.text)+1)
			_, err = Encode(over)
			assert.ErrorIs(t, err, ErrTooLong)
		})
	}
}

func TestEncode_RejectsBadInput(t *testing.T) {
	_, err := Encode("")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = Encode("\xc3\x28")
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestTerminal(t *testing.T) {
	out, err := Terminal("hello")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Contains(t, out, "\n")

	_, err = Terminal("")
	assert.ErrorIs(t, err, ErrEmptyText)
}
