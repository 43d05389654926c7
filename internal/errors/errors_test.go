package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindBlocking(t *testing.T) {
	assert.True(t, KindContent.Blocking())
	assert.True(t, KindConfiguration.Blocking())
	assert.False(t, KindSystem.Blocking())
	assert.False(t, KindDependency.Blocking())
	assert.False(t, KindResource.Blocking())
}

func TestErrorFormatting(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind and message only",
			err:  New(KindSystem, "node runtime not found").Build(),
			want: "[system] node runtime not found",
		},
		{
			name: "with file and line",
			err: New(KindContent, "broken internal link").
				AtFile("notes/a.md").AtLine(12).Build(),
			want: "[content] notes/a.md:12: broken internal link",
		},
		{
			name: "with file only",
			err: New(KindContent, "file exceeds size limit").
				AtFile("media/big.png").Build(),
			want: "[content] media/big.png: file exceeds size limit",
		},
		{
			name: "with cause",
			err:  Wrap(fmt.Errorf("exit status 1"), KindDependency, "npm install failed").Build(),
			want: "[dependency] npm install failed: exit status 1",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestUnwrapAndKindOf(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, KindResource, "write failed").Remedy("free up disk space and retry").Build()

	require.ErrorIs(t, err, cause)
	assert.Equal(t, KindResource, KindOf(err))
	assert.Equal(t, "free up disk space and retry", err.Remediation())

	wrapped := fmt.Errorf("pipeline: %w", err)
	assert.Equal(t, KindResource, KindOf(wrapped))

	ce, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.Equal(t, "write failed", ce.Message())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(stderrors.New("plain")))
}

func TestIsMatchesKindAndMessage(t *testing.T) {
	a := New(KindConfiguration, "missing generated config").Build()
	b := New(KindConfiguration, "missing generated config").AtFile("quartz.config.ts").Build()
	c := New(KindConfiguration, "other message").Build()

	assert.True(t, stderrors.Is(b, a))
	assert.False(t, stderrors.Is(c, a))
}
