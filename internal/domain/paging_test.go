package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     PageRequest
		wantErr bool
	}{
		{"first page", PageRequest{Page: 1, Size: 10}, false},
		{"max size", PageRequest{Page: 3, Size: MaxPageSize}, false},
		{"zero page", PageRequest{Page: 0, Size: 10}, true},
		{"negative page", PageRequest{Page: -1, Size: 10}, true},
		{"zero size", PageRequest{Page: 1, Size: 0}, true},
		{"oversized", PageRequest{Page: 1, Size: MaxPageSize + 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPageRequest_Offset(t *testing.T) {
	assert.Equal(t, 0, PageRequest{Page: 1, Size: 25}.Offset())
	assert.Equal(t, 50, PageRequest{Page: 3, Size: 25}.Offset())
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, PageCount(0, 10))
	assert.Equal(t, 1, PageCount(10, 10))
	assert.Equal(t, 2, PageCount(11, 10))
	assert.Equal(t, 3, PageCount(25, 10))
}

func TestNewPage_NeverNilItems(t *testing.T) {
	page := NewPage[string](nil, 25, PageRequest{Page: 5, Size: 10})

	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(25), page.TotalCount)
	assert.Equal(t, 3, page.PageCount)
	assert.Equal(t, 5, page.Page)
}
