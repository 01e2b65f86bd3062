package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporterStandardCollects(t *testing.T) {
	r := NewReporter(nil)
	r.Standard(errors.New("first"))
	r.Standard(nil)
	r.Standard(errors.New("second"))

	problems := r.Problems()
	require.Len(t, problems, 2)
	assert.EqualError(t, problems[0], "first")
	assert.EqualError(t, problems[1], "second")
	assert.False(t, IsFatal(problems[0]))
}

func TestFatalSurvivesWrapping(t *testing.T) {
	r := NewReporter(nil)
	err := r.Fatal(errors.New("no configuration file exists"))
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "no configuration file exists")

	wrapped := fmt.Errorf("bootstrap: %w", err)
	assert.True(t, IsFatal(wrapped))

	assert.Nil(t, r.Fatal(nil))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(errors.New("plain")))
}
