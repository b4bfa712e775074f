package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"御飯糰", "御飯糰"},
		{"  鮪魚   飯糰 ", "鮪魚 飯糰"},
		{"鮪魚飯糰<br>綠茶", "鮪魚飯糰 綠茶"},
		{"<b>便當</b> &amp; 沙拉", "便當 & 沙拉"},
		{"Fish &amp; Chips", "Fish & Chips"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanText(tt.in), "CleanText(%q)", tt.in)
	}
}
