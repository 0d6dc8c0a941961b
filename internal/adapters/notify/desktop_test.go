package notify

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "it's done", sanitize(`it"s done`))
	assert.Equal(t, "line one line two", sanitize("line one\nline two"))
	assert.Equal(t, "plain", sanitize("plain"))
}

func TestLogNotifier(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	n := NewLog(logger)

	err := n.Notify(context.Background(), "Timer Complete", "Timer completed after 5 seconds")
	assert.NoError(t, err)
}
