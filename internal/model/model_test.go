package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidDay(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"well formed", "2025-03-10", true},
		{"leap day", "2024-02-29", true},
		{"not zero padded", "2025-3-10", false},
		{"impossible day", "2025-02-30", false},
		{"wrong separator", "2025/03/10", false},
		{"empty", "", false},
		{"garbage", "not-a-date", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidDay(tc.in))
		})
	}
}

func TestDayOrderingIsLexical(t *testing.T) {
	// The fixed-width format must keep string order equal to date order;
	// the engine relies on this for occupy-date and range comparisons.
	assert.True(t, "2025-03-09" < "2025-03-10")
	assert.True(t, "2025-03-31" < "2025-04-01")
	assert.True(t, "2025-12-31" < "2026-01-01")
}

func TestParsePurpose(t *testing.T) {
	p, ok := ParsePurpose("MEETING")
	assert.True(t, ok)
	assert.Equal(t, PurposeMeeting, p)

	p, ok = ParsePurpose("DIKSHA")
	assert.True(t, ok)
	assert.Equal(t, PurposeDiksha, p)

	_, ok = ParsePurpose("meeting")
	assert.False(t, ok)
	_, ok = ParsePurpose("")
	assert.False(t, ok)
}

func TestGroupKindValidSize(t *testing.T) {
	cases := []struct {
		kind GroupKind
		n    int
		want bool
	}{
		{GroupSingle, 1, true},
		{GroupSingle, 2, false},
		{GroupCouple, 2, true},
		{GroupCouple, 1, false},
		{GroupCouple, 3, false},
		{GroupFamily, 2, true},
		{GroupFamily, 5, true},
		{GroupFamily, 1, false},
		{GroupKind("OTHER"), 1, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.kind.ValidSize(tc.n), "%s size %d", tc.kind, tc.n)
	}
}

func TestParseDisposition(t *testing.T) {
	d, ok := ParseDisposition("TO_TRASH")
	assert.True(t, ok)
	assert.Equal(t, ToTrash, d)

	d, ok = ParseDisposition("TO_PENDING")
	assert.True(t, ok)
	assert.Equal(t, ToPending, d)

	_, ok = ParseDisposition("DELETE")
	assert.False(t, ok)
}
