package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseVacancyID(t *testing.T) {
	id, err := parseVacancyID("42")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	for _, arg := range []string{"0", "-1", "abc", ""} {
		_, err = parseVacancyID(arg)
		assert.Error(t, err, arg)
	}
}

func Test_Commands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "refresh", "export", "import", "version"})
}
