package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentFields(t *testing.T) {
	fields, err := SentFields([]byte(`{"title":"x","assignedToId":null}`))
	require.NoError(t, err)

	assert.True(t, fields["title"])
	assert.True(t, fields["assignedToId"])
	assert.False(t, fields["price"])

	_, err = SentFields([]byte(`[1,2]`))
	assert.Error(t, err)
}
