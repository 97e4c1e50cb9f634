package dnsresolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupLocalhostV4(t *testing.T) {
	m := New()
	res, err := m.Lookup(context.Background(), "localhost", FamilyV4)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", res.Address)
	assert.Equal(t, 4, res.Family)
}

func TestLookupUnknownHostIsNotFoundOrTransport(t *testing.T) {
	m := New()
	_, err := m.Lookup(context.Background(), "this-host-does-not-exist.invalid", FamilyAny)
	require.Error(t, err)
}
