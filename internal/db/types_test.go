package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSlice_RoundTrip(t *testing.T) {
	in := StringSlice{"a", "b"}
	v, err := in.Value()
	require.NoError(t, err)

	var out StringSlice
	require.NoError(t, out.Scan([]byte(v.(string))))
	assert.Equal(t, in, out)
}

func TestStringSlice_NilValueAndScan(t *testing.T) {
	var s StringSlice
	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var out StringSlice
	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)
}

func TestStringSlice_ScanUnsupportedType(t *testing.T) {
	var out StringSlice
	assert.Error(t, out.Scan(42))
}

func TestErrorList_RoundTrip(t *testing.T) {
	in := ErrorList{{SourceID: "s1", Error: "source not found"}}
	v, err := in.Value()
	require.NoError(t, err)

	var out ErrorList
	require.NoError(t, out.Scan(v.(string)))
	assert.Equal(t, in, out)
}

func TestErrorList_NilScanAndValue(t *testing.T) {
	var l ErrorList
	v, err := l.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var out ErrorList
	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)
}
