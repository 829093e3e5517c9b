package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/hia_server/internal/model"
	"github.com/qs3c/hia_server/internal/model/dto"
	"github.com/qs3c/hia_server/internal/repository"
	"github.com/qs3c/hia_server/internal/testutil"
)

func setupSessionService(t *testing.T) (*SessionService, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	svc := NewSessionService(
		repository.NewSessionRepository(db),
		repository.NewMessageRepository(db),
		nil,
	)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return svc, db, cleanup
}

func TestSessionService_Create_DefaultTitle(t *testing.T) {
	svc, db, cleanup := setupSessionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	item, err := svc.Create(user.ID, &dto.CreateSessionRequest{})
	require.NoError(t, err)
	assert.NotZero(t, item.ID)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2} / \d{2}:\d{2}:\d{2}$`), item.Title)
}

func TestSessionService_Create_WithTitle(t *testing.T) {
	svc, db, cleanup := setupSessionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	item, err := svc.Create(user.ID, &dto.CreateSessionRequest{Title: "  年度体检  "})
	require.NoError(t, err)
	assert.Equal(t, "年度体检", item.Title)
}

func TestSessionService_List_NewestFirst(t *testing.T) {
	svc, db, cleanup := setupSessionService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	base := time.Now().Add(-time.Hour)

	testutil.TestSession(t, db, user.ID, testutil.WithTitle("old"), testutil.WithSessionCreatedAt(base))
	testutil.TestSession(t, db, user.ID, testutil.WithTitle("new"), testutil.WithSessionCreatedAt(base.Add(30*time.Minute)))
	testutil.TestSession(t, db, other.ID, testutil.WithTitle("other"))

	items, err := svc.List(user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "new", items[0].Title)
	assert.Equal(t, "old", items[1].Title)
}

func TestSessionService_Get(t *testing.T) {
	svc, db, cleanup := setupSessionService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	stranger := testutil.TestUser(t, db)
	session := testutil.TestSession(t, db, owner.ID, testutil.WithTitle("mine"))

	item, err := svc.Get(owner.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", item.Title)

	_, err = svc.Get(stranger.ID, session.ID)
	assert.ErrorIs(t, err, ErrSessionPermission)

	_, err = svc.Get(owner.ID, 99999)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_Delete(t *testing.T) {
	svc, db, cleanup := setupSessionService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	stranger := testutil.TestUser(t, db)
	session := testutil.TestSession(t, db, owner.ID)
	testutil.TestMessage(t, db, session.ID, model.RoleAssistant, "report")

	ctx := context.Background()
	assert.ErrorIs(t, svc.Delete(ctx, stranger.ID, session.ID), ErrSessionPermission)

	require.NoError(t, svc.Delete(ctx, owner.ID, session.ID))

	_, err := svc.Get(owner.ID, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	var count int64
	db.Model(&model.ChatMessage{}).Where("session_id = ?", session.ID).Count(&count)
	assert.Zero(t, count)
}

func TestSessionService_Delete_RemovesExports(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	store := newFakeObjectStore()
	messageRepo := repository.NewMessageRepository(db)
	svc := NewSessionService(repository.NewSessionRepository(db), messageRepo, store)
	ctx := context.Background()

	owner := testutil.TestUser(t, db)
	session := testutil.TestSession(t, db, owner.ID)
	other := testutil.TestSession(t, db, owner.ID)
	exported := testutil.TestMessage(t, db, session.ID, model.RoleAssistant, "report")
	testutil.TestMessage(t, db, session.ID, model.RoleAssistant, "never exported")
	kept := testutil.TestMessage(t, db, other.ID, model.RoleAssistant, "report")

	require.NoError(t, store.Put(ctx, "reports/a.pdf", []byte("a"), "application/pdf"))
	require.NoError(t, store.Put(ctx, "reports/b.pdf", []byte("b"), "application/pdf"))
	require.NoError(t, svc.RecordExport(exported.ID, "reports/a.pdf"))
	require.NoError(t, svc.RecordExport(kept.ID, "reports/b.pdf"))

	require.NoError(t, svc.Delete(ctx, owner.ID, session.ID))

	_, ok := store.get("reports/a.pdf")
	assert.False(t, ok, "exports of the deleted session are removed")
	_, ok = store.get("reports/b.pdf")
	assert.True(t, ok, "exports of other sessions stay")
}

func TestSessionService_Messages(t *testing.T) {
	svc, db, cleanup := setupSessionService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	session := testutil.TestSession(t, db, owner.ID)

	_, err := svc.AppendMessage(session.ID, model.RoleAssistant, "first", "groq/m1")
	require.NoError(t, err)
	_, err = svc.AppendMessage(session.ID, model.RoleAssistant, "second", "")
	require.NoError(t, err)

	items, err := svc.Messages(owner.ID, session.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Content)
	assert.Equal(t, "groq/m1", items[0].ModelUsed)
	assert.Equal(t, "second", items[1].Content)
	assert.Empty(t, items[1].ModelUsed)

	stranger := testutil.TestUser(t, db)
	_, err = svc.Messages(stranger.ID, session.ID)
	assert.ErrorIs(t, err, ErrSessionPermission)
}

func TestSessionService_GetMessage(t *testing.T) {
	svc, db, cleanup := setupSessionService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	session := testutil.TestSession(t, db, owner.ID)
	otherSession := testutil.TestSession(t, db, owner.ID)
	msg := testutil.TestMessage(t, db, session.ID, model.RoleAssistant, "content")

	found, err := svc.GetMessage(owner.ID, session.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "content", found.Content)

	_, err = svc.GetMessage(owner.ID, otherSession.ID, msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	_, err = svc.GetMessage(owner.ID, session.ID, 99999)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}
