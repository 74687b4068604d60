package handlers

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/realmforge/internal/domain/mocks"
	"github.com/ersonp/realmforge/internal/domain/services"
)

// newTestSession returns a session over mock stores with the seeded default
// world active.
func newTestSession(t *testing.T) (*services.Session, *mocks.ContentStore) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	content := mocks.NewContentStore()
	s := services.NewSession(mocks.NewWorldStore(), content, services.SessionOptions{OwnerID: "owner-1", Logger: logger})
	require.NoError(t, s.Worlds.Load(context.Background()))
	return s, content
}
