package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dailyscrum/internal/cache"
	"dailyscrum/internal/models"
	"dailyscrum/internal/repositories"
)

// CreateTitleInput holds the fields of a new title.
type CreateTitleInput struct {
	Name    string
	Members []string
}

// TitlePatch is a partial title update. Nil fields keep their stored value;
// a non-nil Members replaces the whole roster.
type TitlePatch struct {
	Name    *string
	Members *[]string
}

// TitleService manages titles and their member rosters.
type TitleService struct {
	titles repositories.TitleRepository
	users  repositories.UserRepository
	cache  *cache.Cache
	events emitter
	now    func() time.Time
}

// NewTitleService creates a TitleService. cache and publisher may be nil.
func NewTitleService(titles repositories.TitleRepository, users repositories.UserRepository, c *cache.Cache, publisher EventPublisher, logger *slog.Logger) *TitleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TitleService{
		titles: titles,
		users:  users,
		cache:  c,
		events: emitter{pub: publisher, logger: logger},
		now:    time.Now,
	}
}

// CreateTitle creates a title owned by who.
func (s *TitleService) CreateTitle(ctx context.Context, who Identity, in CreateTitleInput) (*models.TitleView, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("title is required: %w", ErrValidation)
	}

	now := s.now()
	title := &models.Title{
		Name:      name,
		UserID:    who.ID,
		Members:   roster(in.Members),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.titles.Create(ctx, title); err != nil {
		return nil, fmt.Errorf("failed to create title: %w", err)
	}

	s.invalidate(ctx, title, nil)
	s.events.emit(Event{Type: EventTitleCreated, ID: title.ID, UserID: who.ID})
	return s.view(ctx, title)
}

// UpdateTitle applies patch. Only the owner may update.
func (s *TitleService) UpdateTitle(ctx context.Context, who Identity, id string, patch TitlePatch) (*models.TitleView, error) {
	title, err := s.loadOwned(ctx, who, id)
	if err != nil {
		return nil, err
	}
	expected := title.Version
	previous := title.Members

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("title cannot be empty: %w", ErrValidation)
		}
		title.Name = name
	}
	if patch.Members != nil {
		title.Members = roster(*patch.Members)
	}
	title.UpdatedAt = s.now()

	if err := s.titles.Update(ctx, title, expected); err != nil {
		return nil, storeError(err, "title")
	}

	s.invalidate(ctx, title, previous)
	s.events.emit(Event{Type: EventTitleUpdated, ID: title.ID, UserID: who.ID})
	return s.view(ctx, title)
}

// DeleteTitle removes a title. Only the owner may delete.
func (s *TitleService) DeleteTitle(ctx context.Context, who Identity, id string) error {
	title, err := s.loadOwned(ctx, who, id)
	if err != nil {
		return err
	}
	if err := s.titles.Delete(ctx, title.ID); err != nil {
		return storeError(err, "title")
	}

	s.invalidate(ctx, title, nil)
	s.events.emit(Event{Type: EventTitleDeleted, ID: title.ID, UserID: who.ID})
	return nil
}

// GetTitle returns one title with its roster resolved to usernames.
func (s *TitleService) GetTitle(ctx context.Context, id string) (*models.TitleView, error) {
	key := cache.TitleKey(id)
	var cached models.TitleView
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	title, err := s.titles.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "title")
	}
	view, err := s.view(ctx, title)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, view)
	return view, nil
}

// ListTitles returns every title, or those whose name contains filter.
// Filtered results are never cached.
func (s *TitleService) ListTitles(ctx context.Context, filter string) ([]models.TitleView, error) {
	if filter != "" {
		titles, err := s.titles.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list titles: %w", err)
		}
		return s.views(ctx, titles)
	}
	return s.cachedList(ctx, cache.TitlesAllKey, func() ([]models.Title, error) {
		return s.titles.List(ctx, "")
	})
}

// ListUserTitles returns the titles userID owns or is a member of.
func (s *TitleService) ListUserTitles(ctx context.Context, userID string) ([]models.TitleView, error) {
	return s.cachedList(ctx, cache.UserTitlesKey(userID), func() ([]models.Title, error) {
		return s.titles.ListForUser(ctx, userID)
	})
}

func (s *TitleService) cachedList(ctx context.Context, key string, load func() ([]models.Title, error)) ([]models.TitleView, error) {
	var cached []models.TitleView
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	titles, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	views, err := s.views(ctx, titles)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, views)
	return views, nil
}

func (s *TitleService) loadOwned(ctx context.Context, who Identity, id string) (*models.Title, error) {
	title, err := s.titles.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "title")
	}
	if title.UserID != who.ID {
		return nil, fmt.Errorf("title belongs to another user: %w", ErrForbidden)
	}
	return title, nil
}

// invalidate drops every entry that can contain title: the full list, the
// title itself and the per-user list of the owner and of every old and new member.
func (s *TitleService) invalidate(ctx context.Context, title *models.Title, previous []string) {
	keys := []string{cache.TitlesAllKey, cache.TitleKey(title.ID), cache.UserTitlesKey(title.UserID)}
	for _, id := range previous {
		keys = append(keys, cache.UserTitlesKey(id))
	}
	for _, id := range title.Members {
		keys = append(keys, cache.UserTitlesKey(id))
	}
	s.cache.Delete(ctx, keys...)
}

func (s *TitleService) view(ctx context.Context, title *models.Title) (*models.TitleView, error) {
	names, err := s.usernames(ctx, title.Members)
	if err != nil {
		return nil, err
	}
	v := titleView(title, names)
	return &v, nil
}

func (s *TitleService) views(ctx context.Context, titles []models.Title) ([]models.TitleView, error) {
	var ids []string
	for i := range titles {
		ids = append(ids, titles[i].Members...)
	}
	names, err := s.usernames(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]models.TitleView, 0, len(titles))
	for i := range titles {
		views = append(views, titleView(&titles[i], names))
	}
	return views, nil
}

func (s *TitleService) usernames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	users, err := s.users.GetByIDs(ctx, roster(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve title members: %w", err)
	}
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names, nil
}

// titleView keeps roster order and leaves out ids with no matching user.
func titleView(t *models.Title, names map[string]string) models.TitleView {
	members := make([]models.Member, 0, len(t.Members))
	for _, id := range t.Members {
		if name, ok := names[id]; ok {
			members = append(members, models.Member{ID: id, Username: name})
		}
	}
	return models.TitleView{
		ID:        t.ID,
		Name:      t.Name,
		UserID:    t.UserID,
		Members:   members,
		Version:   t.Version,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// roster drops blanks and duplicates, keeping first occurrences.
func roster(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
