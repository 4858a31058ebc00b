package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserContext_RoundTrip(t *testing.T) {
	ctx := WithUser(context.Background(), &UserContext{UserID: "u-1", Roles: []string{"accountant"}})

	assert.Equal(t, "u-1", GetUserID(ctx))
	assert.True(t, HasRole(ctx, "accountant"))
	assert.False(t, HasRole(ctx, "admin"))
}

func TestUserContext_Missing(t *testing.T) {
	assert.Empty(t, GetUserID(context.Background()))
	assert.False(t, HasRole(context.Background(), "accountant"))
}

func TestTrace_GeneratesWhenMissing(t *testing.T) {
	assert.NotEmpty(t, GetTraceID(context.Background()))

	tc := NewTraceContext()
	ctx := WithTrace(context.Background(), tc)
	assert.Equal(t, tc.TraceID, GetTraceID(ctx))
	assert.Equal(t, tc.RequestID, GetRequestID(ctx))
}
