package valueobjects

import (
	"testing"

	pkgerrors "github.com/Quan024/Phan-loai-bao/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTitle(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain title", raw: "Attention Is All You Need", want: "Attention Is All You Need"},
		{name: "surrounding whitespace is trimmed", raw: "  Graph Networks\n", want: "Graph Networks"},
		{name: "empty title", raw: "", wantErr: true},
		{name: "whitespace only title", raw: "   ", wantErr: true},
		{name: "tabs and newlines only", raw: "\t\n ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, err := NewTitle(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				assert.Contains(t, err.Error(), "title must not be empty")
				assert.True(t, title.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, title.String())
			assert.False(t, title.IsZero())
		})
	}
}

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, 42.13, RoundPercent(0.421337))
	assert.Equal(t, 100.0, RoundPercent(1))
	assert.Equal(t, 0.0, RoundPercent(0.00001))
	assert.Equal(t, 33.33, Prediction{Probability: 1.0 / 3}.Confidence())
}
