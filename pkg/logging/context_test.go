package logging_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aclement30/raceresults/pkg/logging"
)

func TestContextFunctions(t *testing.T) {
	t.Run("WithEvent adds event to context", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := zerolog.New(buf)

		ctx := logging.WithLogger(context.Background(), &logger)
		ctx = logging.WithEvent(ctx, "ev-1")

		logging.Ctx(ctx).Info().Msg("consolidating")
		assert.Contains(t, buf.String(), `"event":"ev-1"`)
	})

	t.Run("WithAthlete adds athlete to context", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := zerolog.New(buf)

		ctx := logging.WithLogger(context.Background(), &logger)
		ctx = logging.WithAthlete(ctx, "10000000001")

		logging.Ctx(ctx).Info().Msg("merging")
		assert.Contains(t, buf.String(), `"athlete":"10000000001"`)
	})

	t.Run("WithSource adds source to context", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := zerolog.New(buf)

		ctx := logging.WithLogger(context.Background(), &logger)
		ctx = logging.WithSource(ctx, "events/2026/ev-1.json")

		logging.Ctx(ctx).Warn().Msg("skipping")
		assert.Contains(t, buf.String(), "events/2026/ev-1.json")
	})

	t.Run("WithRunID tags logs and is retrievable", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := zerolog.New(buf)

		ctx := logging.WithLogger(context.Background(), &logger)
		ctx = logging.WithRunID(ctx, "run-123")

		assert.Equal(t, "run-123", logging.RunID(ctx))

		logging.Ctx(ctx).Info().Msg("starting")
		assert.Contains(t, buf.String(), `"run_id":"run-123"`)
	})

	t.Run("FromContext falls back to default", func(t *testing.T) {
		logger := logging.FromContext(context.Background())
		assert.NotNil(t, logger)
	})

	t.Run("WithField adds typed fields", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := zerolog.New(buf)

		ctx := logging.WithLogger(context.Background(), &logger)
		ctx = logging.WithField(ctx, "year", 2026)
		ctx = logging.WithField(ctx, "dry_run", true)

		logging.Ctx(ctx).Info().Msg("configured")
		output := buf.String()
		assert.True(t, strings.Contains(output, `"year":2026`), output)
		assert.True(t, strings.Contains(output, `"dry_run":true`), output)
	})
}
