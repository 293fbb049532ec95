package expression

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFile(t *testing.T) {
	f := &File{
		Path:    "/data/photos/img.jpg",
		Name:    "img.jpg",
		Ext:     ".jpg",
		Dir:     "/data/photos",
		Size:    4096,
		AgeDays: 12,
	}

	tests := []struct {
		name       string
		expression string
		want       bool
	}{
		{name: "size", expression: "Size >= 4096", want: true},
		{name: "extension_list", expression: `Ext in [".jpg", ".png"]`, want: true},
		{name: "age", expression: "AgeDays > 30", want: false},
		{name: "path_contains", expression: `Path contains "/photos/" && Size < 1024`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := Compile(tt.expression)
			require.NoError(t, err)

			got, err := CheckFile(context.Background(), f, compiled)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile(t *testing.T) {
	compiled, err := Compile("   ")
	require.NoError(t, err)
	assert.Nil(t, compiled)

	match, err := CheckFile(context.Background(), &File{}, compiled)
	require.NoError(t, err)
	assert.True(t, match)

	_, err = Compile("Size +")
	assert.Error(t, err)

	_, err = Compile("Size")
	assert.Error(t, err, "non boolean expressions are rejected")
}
