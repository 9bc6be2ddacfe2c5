package nvd

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		depName   string
		version   string
		vendor    string
		want      Identifier
		wantField string
		wantBound string
	}{
		{
			name:    "normalizes name and defaults vendor",
			depName: "Log4J",
			version: "2.14.1",
			want:    Identifier{Name: "log4j", Version: "2.14.1", Vendor: "*"},
		},
		{
			name:    "lower-cases vendor",
			depName: "log4j",
			version: "2.14.1",
			vendor:  "Apache",
			want:    Identifier{Name: "log4j", Version: "2.14.1", Vendor: "apache"},
		},
		{
			name:    "two character name is accepted",
			depName: "ab",
			version: "1.2.3",
			want:    Identifier{Name: "ab", Version: "1.2.3", Vendor: "*"},
		},
		{
			name:    "leading zero version is accepted",
			depName: "django",
			version: "01.2.3",
			want:    Identifier{Name: "django", Version: "01.2.3", Vendor: "*"},
		},
		{
			name:    "hundred character name is accepted",
			depName: strings.Repeat("a", 100),
			version: "1.0.0",
			want:    Identifier{Name: strings.Repeat("a", 100), Version: "1.0.0", Vendor: "*"},
		},
		{name: "one character name", depName: "a", version: "1.2.3", wantField: "name", wantBound: BoundMin},
		{name: "name too long", depName: strings.Repeat("a", 101), version: "1.2.3", wantField: "name", wantBound: BoundMax},
		{name: "name with dash", depName: "spring-core", version: "1.2.3", wantField: "name"},
		{name: "name with space", depName: "log 4j", version: "1.2.3", wantField: "name"},
		{name: "two part version", depName: "log4j", version: "1.2", wantField: "version"},
		{name: "one character version", depName: "log4j", version: "1", wantField: "version", wantBound: BoundMin},
		{name: "version too long", depName: "log4j", version: "1234567.1234567.1", wantField: "version", wantBound: BoundMax},
		{name: "version with suffix", depName: "log4j", version: "1.2.3-rc1", wantField: "version"},
		{name: "version with letters", depName: "log4j", version: "a.b.c", wantField: "version"},
		{name: "one character vendor", depName: "log4j", version: "1.2.3", vendor: "x", wantField: "vendor", wantBound: BoundMin},
		{name: "vendor with dot", depName: "log4j", version: "1.2.3", vendor: "apache.org", wantField: "vendor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.depName, tt.version, tt.vendor)

			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Equal(t, tt.wantBound, verr.Bound)
			if tt.wantBound == "" {
				assert.NotEmpty(t, verr.Reason)
			}
			assert.Equal(t, Identifier{}, got)
		})
	}
}

func TestValidate_IsPure(t *testing.T) {
	first, err1 := Validate("Log4J", "2.14.1", "")
	second, err2 := Validate("Log4J", "2.14.1", "")
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)

	_, err1 = Validate("x", "2.14.1", "")
	_, err2 = Validate("x", "2.14.1", "")
	assert.Equal(t, err1, err2)
}

func TestIdentifierMatchString(t *testing.T) {
	id, err := Validate("Log4J", "2.14.1", "Apache")
	require.NoError(t, err)
	assert.Equal(t, "cpe:2.3:a:apache:log4j:2.14.1", id.MatchString())

	id, err = Validate("log4j", "2.14.1", "")
	require.NoError(t, err)
	assert.Equal(t, "cpe:2.3:a:*:log4j:2.14.1", id.MatchString())
}

func TestValidateCPEName(t *testing.T) {
	assert.NoError(t, ValidateCPEName("cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*"))
	assert.Error(t, ValidateCPEName(""))
	assert.Error(t, ValidateCPEName("log4j"))
	assert.Error(t, ValidateCPEName("cpe:2.3:"+strings.Repeat("a", MaxCPENameLength)))
}

func TestCredentialFromHeader(t *testing.T) {
	assert.Equal(t, "abc", CredentialFromHeader("Bearer abc"))
	assert.Equal(t, "abc", CredentialFromHeader("abc"))
	assert.Equal(t, "abc", CredentialFromHeader("  Bearer   abc  "))
	assert.Equal(t, "", CredentialFromHeader(""))
	assert.Equal(t, "", CredentialFromHeader("   "))
}
