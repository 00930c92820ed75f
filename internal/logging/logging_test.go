package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer

	logger := New(false, &buf)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger = New(true, &buf)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_StructuredFields(t *testing.T) {
	var buf bytes.Buffer
	New(false, &buf).WithFields(logrus.Fields{
		"groups": 3,
		"pairs":  7,
	}).Info("merged revisions")

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, `msg="merged revisions"`)
	assert.Contains(t, out, "groups=3")
	assert.Contains(t, out, "pairs=7")
}

func TestNew_DefaultsToStderr(t *testing.T) {
	assert.NotNil(t, New(false, nil).Out)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.Equal(t, logrus.PanicLevel, logger.GetLevel())
	logger.Error("dropped")
}
