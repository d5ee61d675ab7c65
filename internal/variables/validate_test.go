package variables

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                      "Variable name cannot be empty.",
		strings.Repeat("k", 51): "Variable name cannot exceed 50 characters.",
		"has space":             "Variable name can only contain letters, numbers, underscores, and dashes.",
		"dot.key":               "Variable name can only contain letters, numbers, underscores, and dashes.",
	}
	for key, want := range cases {
		err := ValidateKey(key)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "key %q", key)
		require.Equal(t, "key", verr.Field)
		require.Equal(t, want, verr.Message)
	}

	for _, ok := range []string{"a", "snake_case", "kebab-case", "MiXeD09", strings.Repeat("k", 50)} {
		require.NoError(t, ValidateKey(ok), ok)
	}
}

func TestValidateValue(t *testing.T) {
	t.Parallel()

	require.Error(t, ValidateValue(""))
	require.Error(t, ValidateValue(strings.Repeat("v", 1001)))
	require.NoError(t, ValidateValue(strings.Repeat("v", 1000)))
	require.NoError(t, ValidateValue(strings.Repeat("é", 1000)))
}

func TestValidateValueLengthAllowsEmpty(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateValueLength(""))
	require.NoError(t, ValidateValueLength(strings.Repeat("v", 1000)))
	var verr *ValidationError
	require.ErrorAs(t, ValidateValueLength(strings.Repeat("v", 1001)), &verr)
	require.Equal(t, "value", verr.Field)
}

func TestDuplicateKeyUnwraps(t *testing.T) {
	t.Parallel()

	err := DuplicateKey("x")
	require.ErrorIs(t, err, ErrDuplicateKey)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "A variable with this name already exists.", verr.Error())
}
