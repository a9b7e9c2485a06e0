// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := Make[int](10)
	assert.Len(t, s, 0)

	s.Insert(3, 7)
	assert.Len(t, s, 2)
	assert.True(t, s.Has(3))
	assert.True(t, s.Has(7))
	assert.False(t, s.Has(5))

	s2 := MakeWith(5, 7)
	assert.True(t, s2.Has(5))
	assert.False(t, s2.Has(3))

	delete(s, 7)
	assert.True(t, s.Equal(MakeWith(3)))
	assert.False(t, s.Equal(s2))
	assert.False(t, s.Equal(MakeWith(-3)))
}

func TestInsertNew(t *testing.T) {
	s := Make[int]()
	assert.True(t, s.InsertNew(2))
	assert.False(t, s.InsertNew(2))
	assert.True(t, s.InsertNew(0))
	assert.True(t, s.Equal(MakeWith(0, 2)))
}
