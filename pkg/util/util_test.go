package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReverseG(t *testing.T) {
	arr := []int{1, 2, 3, 4}
	rev := ReverseG(arr)
	assert.Equal(t, []int{4, 3, 2, 1}, rev)
	assert.Equal(t, []int{1, 2, 3, 4}, arr)
}

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, 1.235, RoundFloat(1.23456, 3))
	assert.Equal(t, -7.56584, RoundFloat(-7.565837, 5))
}
