package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/subkeeper/subkeeper/internal/model"
)

func TestIdentityContext(t *testing.T) {
	if IdentityFromContext(context.Background()) != nil {
		t.Fatal("expected no identity on a bare context")
	}
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected no user id on a bare context")
	}

	want := &model.Identity{ID: uuid.New()}
	ctx := ContextWithIdentity(context.Background(), want)

	if got := IdentityFromContext(ctx); got != want {
		t.Errorf("expected %p, got %p", want, got)
	}
	userID, ok := UserIDFromContext(ctx)
	if !ok || userID != want.ID {
		t.Errorf("expected user id %s, got %s (ok=%v)", want.ID, userID, ok)
	}
}
