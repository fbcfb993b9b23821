package repositories_test

import (
	"context"
	"testing"
	"time"

	"dailyscrum/internal/models"
	"dailyscrum/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repositorySet struct {
	users  repositories.UserRepository
	titles repositories.TitleRepository
	posts  repositories.DailyScrumPostRepository
}

// runContract exercises the behavior every backend must share.
func runContract(t *testing.T, newSet func(t *testing.T) repositorySet) {
	t.Run("UserUniqueness", func(t *testing.T) { testUserUniqueness(t, newSet(t)) })
	t.Run("UserLookups", func(t *testing.T) { testUserLookups(t, newSet(t)) })
	t.Run("PostVersioning", func(t *testing.T) { testPostVersioning(t, newSet(t)) })
	t.Run("PostListing", func(t *testing.T) { testPostListing(t, newSet(t)) })
	t.Run("TitleMembership", func(t *testing.T) { testTitleMembership(t, newSet(t)) })
	t.Run("TitleFilterIsLiteral", func(t *testing.T) { testTitleFilterIsLiteral(t, newSet(t)) })
}

func testUserUniqueness(t *testing.T, s repositorySet) {
	ctx := context.Background()
	require.NoError(t, s.users.Create(ctx, &models.User{Username: "alice", Email: "a@x.com", Password: "h"}))

	err := s.users.Create(ctx, &models.User{Username: "alice", Email: "other@x.com", Password: "h"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	err = s.users.Create(ctx, &models.User{Username: "other", Email: "a@x.com", Password: "h"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)
}

func testUserLookups(t *testing.T, s repositorySet) {
	ctx := context.Background()
	alice := &models.User{Username: "alice", Email: "a@x.com", Password: "h"}
	bob := &models.User{Username: "bob", Email: "b@x.com", Password: "h"}
	require.NoError(t, s.users.Create(ctx, alice))
	require.NoError(t, s.users.Create(ctx, bob))
	require.NotEmpty(t, alice.ID)

	got, err := s.users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "h", got.Password)

	got, err = s.users.GetByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	_, err = s.users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = s.users.GetByUsername(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	users, err := s.users.GetByIDs(ctx, []string{bob.ID, "missing", alice.ID})
	require.NoError(t, err)
	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)

	users, err = s.users.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func testPostVersioning(t *testing.T, s repositorySet) {
	ctx := context.Background()
	post := &models.DailyScrumPost{
		Title:   "Standup",
		UserID:  "u1",
		Files:   []string{"a.jpg"},
		Reviews: []models.Review{{ID: "r1", ReviewText: "ok", Score: "5"}},
	}
	require.NoError(t, s.posts.Create(ctx, post))
	assert.Equal(t, 1, post.Version)

	first, err := s.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	second, err := s.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)

	first.Files = append(first.Files, "b.txt")
	require.NoError(t, s.posts.Update(ctx, first, 1))
	assert.Equal(t, 2, first.Version)

	// second still carries version 1 and loses.
	second.Title = "stale"
	err = s.posts.Update(ctx, second, 1)
	assert.ErrorIs(t, err, repositories.ErrVersionConflict)
	assert.Equal(t, 1, second.Version)

	stored, err := s.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standup", stored.Title)
	assert.Equal(t, []string{"a.jpg", "b.txt"}, stored.Files)
	require.Len(t, stored.Reviews, 1)
	assert.Equal(t, "r1", stored.Reviews[0].ID)
	assert.Equal(t, 2, stored.Version)

	missing := &models.DailyScrumPost{ID: "missing"}
	assert.ErrorIs(t, s.posts.Update(ctx, missing, 1), repositories.ErrNotFound)

	require.NoError(t, s.posts.Delete(ctx, post.ID))
	assert.ErrorIs(t, s.posts.Delete(ctx, post.ID), repositories.ErrNotFound)
	_, err = s.posts.GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func testPostListing(t *testing.T, s repositorySet) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range []struct{ title, user string }{
		{"Sprint Alpha", "u1"},
		{"sprint beta", "u2"},
		{"50% done", "u1"},
	} {
		require.NoError(t, s.posts.Create(ctx, &models.DailyScrumPost{
			Title:     p.title,
			UserID:    p.user,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := s.posts.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "50% done", all[0].Title)
	assert.Equal(t, "Sprint Alpha", all[2].Title)

	sprints, err := s.posts.List(ctx, "SPRINT")
	require.NoError(t, err)
	assert.Len(t, sprints, 2)

	percent, err := s.posts.List(ctx, "0%")
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, "50% done", percent[0].Title)

	none, err := s.posts.List(ctx, ".*")
	require.NoError(t, err)
	assert.Empty(t, none)

	mine, err := s.posts.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "50% done", mine[0].Title)
}

func testTitleMembership(t *testing.T, s repositorySet) {
	ctx := context.Background()
	owned := &models.Title{Name: "Owned", UserID: "owner"}
	member := &models.Title{Name: "Member", UserID: "someone", Members: []string{"owner", "x"}}
	other := &models.Title{Name: "Other", UserID: "someone", Members: []string{"owner-2"}}
	for _, title := range []*models.Title{owned, member, other} {
		require.NoError(t, s.titles.Create(ctx, title))
	}

	titles, err := s.titles.ListForUser(ctx, "owner")
	require.NoError(t, err)
	var names []string
	for _, title := range titles {
		names = append(names, title.Name)
	}
	assert.ElementsMatch(t, []string{"Owned", "Member"}, names)

	stale := *member
	member.Members = []string{"x"}
	require.NoError(t, s.titles.Update(ctx, member, 1))
	assert.ErrorIs(t, s.titles.Update(ctx, &stale, 1), repositories.ErrVersionConflict)

	titles, err = s.titles.ListForUser(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "Owned", titles[0].Name)

	require.NoError(t, s.titles.Delete(ctx, owned.ID))
	_, err = s.titles.GetByID(ctx, owned.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	lookalike := &models.Title{Name: "Lookalike", UserID: "someone", Members: []string{"o-ner"}}
	require.NoError(t, s.titles.Create(ctx, lookalike))
	titles, err = s.titles.ListForUser(ctx, "o_ner")
	require.NoError(t, err)
	assert.Empty(t, titles, "membership is matched exactly")
	titles, err = s.titles.ListForUser(ctx, "o-ner")
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "Lookalike", titles[0].Name)
}

func testTitleFilterIsLiteral(t *testing.T, s repositorySet) {
	ctx := context.Background()
	for _, name := range []string{"Mobile_app", "MobileXapp", `back\end`} {
		require.NoError(t, s.titles.Create(ctx, &models.Title{Name: name, UserID: "u"}))
	}

	titles, err := s.titles.List(ctx, "e_a")
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "Mobile_app", titles[0].Name)

	titles, err = s.titles.List(ctx, `k\e`)
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, `back\end`, titles[0].Name)

	titles, err = s.titles.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, titles, 3)
}
