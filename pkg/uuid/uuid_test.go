// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package uuid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/shiftsphere/pkg/uuid"
)

/*
TestNew verifies that generated IDs are valid and time-ordered.
*/
func TestNew(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	// 1. Both are valid and distinct
	assert.True(t, uuid.Valid(first))
	assert.NotEqual(t, first, second)

	// 2. Version 7 nibble
	assert.Equal(t, byte('7'), first[14])

	// 3. Garbage is rejected
	assert.False(t, uuid.Valid("not-a-uuid"))
}
