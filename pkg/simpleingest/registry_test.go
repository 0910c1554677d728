package simpleingest

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// namedHandler builds a handler that records its name on invocation, so
// resolution tests can tell handlers apart.
func namedHandler(name string, got *string) Handler {
	return func(ctx context.Context, evt *StorageEvent, raw map[string]any) error {
		*got = name
		return nil
	}
}

func TestRegistry_ExactBeatsPattern(t *testing.T) {
	tests := []struct {
		name          string
		registerOrder []string // exact name is always "s3:ObjectCreated:Put"
	}{
		{"pattern registered first", []string{"s3:ObjectCreated:*", "s3:ObjectCreated:Put"}},
		{"exact registered first", []string{"s3:ObjectCreated:Put", "s3:ObjectCreated:*"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			var got string
			for _, entry := range tt.registerOrder {
				require.NoError(t, r.Register(namedHandler(entry, &got), entry))
			}

			h := r.Resolve("s3:ObjectCreated:Put")
			require.NotNil(t, h)
			require.NoError(t, h(context.Background(), &StorageEvent{}, nil))
			assert.Equal(t, "s3:ObjectCreated:Put", got, "exact entry must win regardless of registration order")

			// A name with no exact entry falls through to the pattern.
			h = r.Resolve("s3:ObjectCreated:Post")
			require.NotNil(t, h)
			require.NoError(t, h(context.Background(), &StorageEvent{}, nil))
			assert.Equal(t, "s3:ObjectCreated:*", got)
		})
	}
}

func TestRegistry_PatternOrderBreaksTies(t *testing.T) {
	r := NewRegistry()
	var got string
	require.NoError(t, r.Register(namedHandler("broad", &got), "s3:ObjectCreated:*"))
	require.NoError(t, r.Register(namedHandler("narrow", &got), "s3:ObjectCreated:P*"))

	// Both patterns match; the first registered wins even though the second
	// is more specific.
	h := r.Resolve("s3:ObjectCreated:Put")
	require.NotNil(t, h)
	require.NoError(t, h(context.Background(), &StorageEvent{}, nil))
	assert.Equal(t, "broad", got)
}

func TestRegistry_ResolveMisses(t *testing.T) {
	r := NewRegistry()
	var got string
	require.NoError(t, r.Register(namedHandler("removed", &got), "s3:ObjectRemoved:*"))

	assert.Nil(t, r.Resolve("s3:ObjectAccessed:Get"))
	assert.Nil(t, r.Resolve(""))
}

func TestRegistry_ResolveNeverReturnsDefault(t *testing.T) {
	r := NewRegistry()
	var got string
	r.SetDefault(namedHandler("default", &got))

	assert.Nil(t, r.Resolve("s3:ObjectCreated:Put"))
	assert.NotNil(t, r.Default())
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()
	var got string

	err := r.Register(nil, "s3:ObjectCreated:Put")
	assert.ErrorIs(t, err, ErrNilHandler)

	err = r.Register(namedHandler("h", &got))
	assert.ErrorIs(t, err, ErrNoNames)

	err = r.Register(namedHandler("h", &got), "s3:ObjectCreated:[")
	var perr *PatternError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "s3:ObjectCreated:[", perr.Pattern)
}

func TestRegistry_MetacharClassification(t *testing.T) {
	r := NewRegistry()
	var got string
	// A name with a metachar is a pattern entry even though it is also a
	// plausible literal.
	require.NoError(t, r.Register(namedHandler("q", &got), "s3:ObjectAccessed:?et"))

	h := r.Resolve("s3:ObjectAccessed:Get")
	require.NotNil(t, h)
	require.NoError(t, h(context.Background(), &StorageEvent{}, nil))
	assert.Equal(t, "q", got)
}

func TestRegistry_MultipleNamesOneHandler(t *testing.T) {
	r := NewRegistry()
	var got string
	require.NoError(t, r.Register(namedHandler("created", &got),
		EventObjectCreatedPut, EventObjectCreatedPost, EventObjectCreatedCopy))

	for _, name := range []string{EventObjectCreatedPut, EventObjectCreatedPost, EventObjectCreatedCopy} {
		h := r.Resolve(name)
		require.NotNil(t, h, name)
	}
	assert.Nil(t, r.Resolve(EventObjectRemoved))
}

func TestRegistry_GenerateStubs(t *testing.T) {
	r := NewRegistry()
	var got string
	require.NoError(t, r.Register(namedHandler("put", &got), EventObjectCreatedPut))
	require.NoError(t, r.Register(namedHandler("removed", &got), "s3:ObjectRemoved:*"))

	r.GenerateStubs(slog.Default(), slog.LevelDebug)

	// Every catalogued name now resolves.
	for _, name := range AllEventNames() {
		assert.NotNil(t, r.Resolve(name), name)
	}

	// Existing registrations survive stub generation.
	h := r.Resolve(EventObjectCreatedPut)
	require.NoError(t, h(context.Background(), &StorageEvent{}, nil))
	assert.Equal(t, "put", got)

	got = ""
	h = r.Resolve("s3:ObjectRemoved:Delete")
	require.NoError(t, h(context.Background(), &StorageEvent{}, nil))
	assert.Equal(t, "removed", got, "pattern-covered names must not be shadowed by stubs")

	// Running it again changes nothing.
	before := len(r.exact)
	r.GenerateStubs(slog.Default(), slog.LevelDebug)
	assert.Equal(t, before, len(r.exact))

	// Stubs succeed and touch nothing.
	got = ""
	h = r.Resolve("s3:Scanner:BigPrefix")
	require.NoError(t, h(context.Background(), &StorageEvent{EventName: "s3:Scanner:BigPrefix"}, nil))
	assert.Empty(t, got)
}
