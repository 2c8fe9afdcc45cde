package sysinfo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOSRelease(t *testing.T) {
	input := `
NAME="Debian GNU/Linux"
VERSION="12 (bookworm)"
ID=debian
# a comment
HOME_URL="https://www.debian.org/"
BROKEN LINE
`
	fields := parseOSRelease(strings.NewReader(input))
	assert.Equal(t, "Debian GNU/Linux", fields["NAME"])
	assert.Equal(t, "12 (bookworm)", fields["VERSION"])
	assert.Equal(t, "debian", fields["ID"])
	assert.NotContains(t, fields, "BROKEN LINE")
}

func TestStat(t *testing.T) {
	info, err := Stat()
	require.NoError(t, err)
	assert.NotEmpty(t, info.Name)
}
