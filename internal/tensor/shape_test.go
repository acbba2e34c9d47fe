package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_NumElements(t *testing.T) {
	assert.Equal(t, 1, Shape{}.NumElements())
	assert.Equal(t, 24, Shape{2, 3, 4}.NumElements())
}

func TestShape_Validate(t *testing.T) {
	require.NoError(t, Shape{1, 2}.Validate())
	assert.Error(t, Shape{1, 0}.Validate())
	assert.Error(t, Shape{-3}.Validate())
}

func TestShape_ComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Empty(t, Shape{}.ComputeStrides())
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Shape
		want      Shape
		broadcast bool
		wantErr   bool
	}{
		{"same", Shape{2, 3}, Shape{2, 3}, Shape{2, 3}, false, false},
		{"column", Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true, false},
		{"bias4d", Shape{2, 4, 8, 8}, Shape{1, 4, 1, 1}, Shape{2, 4, 8, 8}, true, false},
		{"rank", Shape{5}, Shape{2, 5}, Shape{2, 5}, true, false},
		{"mismatch", Shape{3, 4}, Shape{3, 5}, nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, broadcast, err := BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
			assert.Equal(t, tt.broadcast, broadcast)
		})
	}
}

func TestBroadcastStrides(t *testing.T) {
	assert.Equal(t, []int{0, 1, 0, 0}, BroadcastStrides(Shape{1, 4, 1, 1}, Shape{2, 4, 8, 8}))
	assert.Equal(t, []int{0, 1}, BroadcastStrides(Shape{3}, Shape{2, 3}))
	assert.Equal(t, []int{3, 1}, BroadcastStrides(Shape{2, 3}, Shape{2, 3}))
}

func TestRawTensor_ReshapeSharesStorage(t *testing.T) {
	r, err := NewRaw(Shape{2, 3}, Float32, CPU)
	require.NoError(t, err)

	view, err := r.Reshape(Shape{3, 2})
	require.NoError(t, err)

	view.AsFloat32()[5] = 7
	assert.Equal(t, float32(7), r.AsFloat32()[5])
	assert.Equal(t, []int{2, 1}, view.Strides())

	_, err = r.Reshape(Shape{4, 2})
	assert.Error(t, err)
}

func TestRawTensor_CloneIsDeep(t *testing.T) {
	r := MustRaw(Shape{4}, Int32, CPU)
	c := r.Clone()
	c.AsInt32()[0] = 9
	assert.Equal(t, int32(0), r.AsInt32()[0])
}

func TestRawTensor_WrongDTypePanics(t *testing.T) {
	r := MustRaw(Shape{2}, Int32, CPU)
	assert.Panics(t, func() { r.AsFloat32() })
}

func TestDataType(t *testing.T) {
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, "int32", Int32.String())
	assert.Equal(t, Float32, inferDataType(float32(0)))
	assert.Equal(t, Int32, inferDataType(int32(0)))
}
