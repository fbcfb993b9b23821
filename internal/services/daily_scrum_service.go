package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"dailyscrum/internal/cache"
	"dailyscrum/internal/models"
	"dailyscrum/internal/repositories"
	"dailyscrum/internal/storage"
	"dailyscrum/internal/upload"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

const deleteConcurrency = 4

// FileIngester stores uploaded files and reports their keys.
type FileIngester interface {
	Ingest(ctx context.Context, files []upload.File) (upload.Result, error)
}

// CreatePostInput holds the fields of a new post. CreatedAt defaults to now.
type CreatePostInput struct {
	Title     string
	Daily     string
	Problem   string
	Todo      string
	CreatedAt *time.Time
}

// PostPatch is a partial update. Nil fields keep their stored value.
type PostPatch struct {
	Title     *string
	Daily     *string
	Problem   *string
	Todo      *string
	CreatedAt *time.Time
}

// ReviewInput holds the fields of a new review.
type ReviewInput struct {
	ReviewText string
	Score      string
}

// ReviewPatch is a partial review update. Nil fields keep their stored value.
type ReviewPatch struct {
	ReviewText *string
	Score      *string
}

// DailyScrumService coordinates posts, their files and their reviews across
// the blob store, the primary store and the read cache.
type DailyScrumService struct {
	posts  repositories.DailyScrumPostRepository
	files  FileIngester
	blobs  storage.BlobStore
	cache  *cache.Cache
	events emitter
	logger *slog.Logger
	now    func() time.Time
}

// NewDailyScrumService creates a DailyScrumService. cache and publisher may be nil.
func NewDailyScrumService(
	posts repositories.DailyScrumPostRepository,
	files FileIngester,
	blobs storage.BlobStore,
	c *cache.Cache,
	publisher EventPublisher,
	logger *slog.Logger,
) *DailyScrumService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyScrumService{
		posts:  posts,
		files:  files,
		blobs:  blobs,
		cache:  c,
		events: emitter{pub: publisher, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// CreatePost stores the uploads, then the post, and returns the assembled view.
func (s *DailyScrumService) CreatePost(ctx context.Context, who Identity, in CreatePostInput, uploads []upload.File) (*models.DailyScrumPostView, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", ErrValidation)
	}

	stored, err := s.files.Ingest(ctx, uploads)
	if err != nil {
		return nil, fmt.Errorf("failed to store uploaded files: %w", err)
	}

	now := s.now()
	createdAt := now
	if in.CreatedAt != nil {
		createdAt = *in.CreatedAt
	}
	post := &models.DailyScrumPost{
		Title:     in.Title,
		Daily:     in.Daily,
		Problem:   in.Problem,
		Todo:      in.Todo,
		Writer:    who.Username,
		UserID:    who.ID,
		Files:     stored.Keys,
		Reviews:   []models.Review{},
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create daily scrum post: %w", err)
	}

	s.invalidate(ctx, post)
	s.events.emit(Event{Type: EventPostCreated, ID: post.ID, UserID: who.ID})
	return s.view(ctx, post)
}

// UpdatePost applies patch and appends any uploads. Only the owner may update.
func (s *DailyScrumService) UpdatePost(ctx context.Context, who Identity, id string, patch PostPatch, uploads []upload.File) (*models.DailyScrumPostView, error) {
	post, err := s.loadOwned(ctx, who, id)
	if err != nil {
		return nil, err
	}
	expected := post.Version

	stored, err := s.files.Ingest(ctx, uploads)
	if err != nil {
		return nil, fmt.Errorf("failed to store uploaded files: %w", err)
	}

	applyString(&post.Title, patch.Title)
	applyString(&post.Daily, patch.Daily)
	applyString(&post.Problem, patch.Problem)
	applyString(&post.Todo, patch.Todo)
	if patch.CreatedAt != nil {
		post.CreatedAt = *patch.CreatedAt
	}
	post.Files = append(post.Files, stored.Keys...)
	post.UpdatedAt = s.now()

	if err := s.posts.Update(ctx, post, expected); err != nil {
		return nil, storeError(err, "daily scrum post")
	}

	s.invalidate(ctx, post)
	s.events.emit(Event{Type: EventPostUpdated, ID: post.ID, UserID: who.ID})
	return s.view(ctx, post)
}

// DeletePost removes the post and, best effort, every attached file.
func (s *DailyScrumService) DeletePost(ctx context.Context, who Identity, id string) error {
	post, err := s.loadOwned(ctx, who, id)
	if err != nil {
		return err
	}

	s.deleteBlobs(ctx, post.ID, post.Files)

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return storeError(err, "daily scrum post")
	}

	s.invalidate(ctx, post)
	s.events.emit(Event{Type: EventPostDeleted, ID: post.ID, UserID: who.ID})
	return nil
}

// DeleteFile detaches key from the post after removing its blob.
func (s *DailyScrumService) DeleteFile(ctx context.Context, who Identity, id, key string) (*models.DailyScrumPostView, error) {
	post, err := s.loadOwned(ctx, who, id)
	if err != nil {
		return nil, err
	}
	idx := post.FileIndex(key)
	if idx < 0 {
		return nil, fmt.Errorf("file %s is not attached to this post: %w", key, ErrNotFound)
	}
	expected := post.Version

	if err := s.blobs.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to delete file %s: %w", key, err)
	}

	post.Files = slices.Delete(post.Files, idx, idx+1)
	post.UpdatedAt = s.now()
	if err := s.posts.Update(ctx, post, expected); err != nil {
		return nil, storeError(err, "daily scrum post")
	}

	s.invalidate(ctx, post)
	s.events.emit(Event{Type: EventPostUpdated, ID: post.ID, UserID: who.ID})
	return s.view(ctx, post)
}

// GetPost returns one post, served from the cache when possible.
func (s *DailyScrumService) GetPost(ctx context.Context, id string) (*models.DailyScrumPostView, error) {
	key := cache.DailyScrumKey(id)
	var cached models.DailyScrumPostView
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	view, err := s.view(ctx, post)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, view)
	return view, nil
}

// ListPosts returns posts newest first. A non-empty filter matches titles
// case-insensitively and is never cached.
func (s *DailyScrumService) ListPosts(ctx context.Context, filter string) ([]models.DailyScrumPostView, error) {
	if filter != "" {
		posts, err := s.posts.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list daily scrum posts: %w", err)
		}
		return s.views(ctx, posts)
	}
	return s.cachedList(ctx, cache.DailyScrumAllKey, func() ([]models.DailyScrumPost, error) {
		return s.posts.List(ctx, "")
	})
}

// ListUserPosts returns the posts written by userID.
func (s *DailyScrumService) ListUserPosts(ctx context.Context, userID string) ([]models.DailyScrumPostView, error) {
	return s.cachedList(ctx, cache.DailyScrumUserKey(userID), func() ([]models.DailyScrumPost, error) {
		return s.posts.ListByUser(ctx, userID)
	})
}

func (s *DailyScrumService) cachedList(ctx context.Context, key string, load func() ([]models.DailyScrumPost, error)) ([]models.DailyScrumPostView, error) {
	var cached []models.DailyScrumPostView
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	posts, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to list daily scrum posts: %w", err)
	}
	views, err := s.views(ctx, posts)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, views)
	return views, nil
}

// AddReview appends a review by who. Any authenticated user may review.
func (s *DailyScrumService) AddReview(ctx context.Context, who Identity, postID string, in ReviewInput) (*models.Review, error) {
	if strings.TrimSpace(in.ReviewText) == "" {
		return nil, fmt.Errorf("review_text is required: %w", ErrValidation)
	}
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	expected := post.Version

	now := s.now()
	review := models.Review{
		ID:         uuid.NewString(),
		ReviewText: in.ReviewText,
		Score:      in.Score,
		Reviewer:   who.Username,
		ReviewerID: who.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	post.Reviews = append(post.Reviews, review)
	post.UpdatedAt = now
	if err := s.posts.Update(ctx, post, expected); err != nil {
		return nil, storeError(err, "daily scrum post")
	}

	s.invalidate(ctx, post)
	s.events.emit(Event{Type: EventReviewCreated, ID: review.ID, ParentID: post.ID, UserID: who.ID})
	return &review, nil
}

// ListReviews returns the reviews of a post in insertion order.
func (s *DailyScrumService) ListReviews(ctx context.Context, postID string) ([]models.Review, error) {
	view, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if view.Reviews == nil {
		return []models.Review{}, nil
	}
	return view.Reviews, nil
}

// GetReview returns one review of a post.
func (s *DailyScrumService) GetReview(ctx context.Context, postID, reviewID string) (*models.Review, error) {
	reviews, err := s.ListReviews(ctx, postID)
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		if reviews[i].ID == reviewID {
			return &reviews[i], nil
		}
	}
	return nil, fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
}

// UpdateReview applies patch. Only the review's author may edit it.
func (s *DailyScrumService) UpdateReview(ctx context.Context, who Identity, postID, reviewID string, patch ReviewPatch) (*models.Review, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	idx := post.ReviewIndex(reviewID)
	if idx < 0 {
		return nil, fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}
	review := &post.Reviews[idx]
	if review.ReviewerID != who.ID {
		return nil, fmt.Errorf("only the reviewer can edit this review: %w", ErrForbidden)
	}
	if patch.ReviewText != nil && strings.TrimSpace(*patch.ReviewText) == "" {
		return nil, fmt.Errorf("review_text cannot be empty: %w", ErrValidation)
	}
	expected := post.Version

	applyString(&review.ReviewText, patch.ReviewText)
	applyString(&review.Score, patch.Score)
	now := s.now()
	review.UpdatedAt = now
	post.UpdatedAt = now
	updated := *review

	if err := s.posts.Update(ctx, post, expected); err != nil {
		return nil, storeError(err, "daily scrum post")
	}

	s.invalidate(ctx, post)
	s.events.emit(Event{Type: EventReviewUpdated, ID: reviewID, ParentID: post.ID, UserID: who.ID})
	return &updated, nil
}

// DeleteReview removes a review. The reviewer and the post owner may delete it.
func (s *DailyScrumService) DeleteReview(ctx context.Context, who Identity, postID, reviewID string) error {
	post, err := s.load(ctx, postID)
	if err != nil {
		return err
	}
	idx := post.ReviewIndex(reviewID)
	if idx < 0 {
		return fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}
	if post.Reviews[idx].ReviewerID != who.ID && post.UserID != who.ID {
		return fmt.Errorf("only the reviewer or the post owner can delete this review: %w", ErrForbidden)
	}
	expected := post.Version

	post.Reviews = slices.Delete(post.Reviews, idx, idx+1)
	post.UpdatedAt = s.now()
	if err := s.posts.Update(ctx, post, expected); err != nil {
		return storeError(err, "daily scrum post")
	}

	s.invalidate(ctx, post)
	s.events.emit(Event{Type: EventReviewDeleted, ID: reviewID, ParentID: post.ID, UserID: who.ID})
	return nil
}

func (s *DailyScrumService) load(ctx context.Context, id string) (*models.DailyScrumPost, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "daily scrum post")
	}
	return post, nil
}

func (s *DailyScrumService) loadOwned(ctx context.Context, who Identity, id string) (*models.DailyScrumPost, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != who.ID {
		return nil, fmt.Errorf("daily scrum post belongs to another user: %w", ErrForbidden)
	}
	return post, nil
}

// deleteBlobs removes keys concurrently. Failures are logged; the post is
// deleted regardless.
func (s *DailyScrumService) deleteBlobs(ctx context.Context, postID string, keys []string) {
	if len(keys) == 0 {
		return
	}
	p := pool.New().WithErrors().WithMaxGoroutines(deleteConcurrency)
	for _, key := range keys {
		p.Go(func() error {
			if err := s.blobs.Delete(ctx, key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		s.logger.Error("failed to delete attached files", "post_id", postID, "error", err)
	}
}

func (s *DailyScrumService) invalidate(ctx context.Context, post *models.DailyScrumPost) {
	s.cache.Delete(ctx,
		cache.DailyScrumAllKey,
		cache.DailyScrumKey(post.ID),
		cache.DailyScrumUserKey(post.UserID),
	)
}

func (s *DailyScrumService) view(ctx context.Context, post *models.DailyScrumPost) (*models.DailyScrumPostView, error) {
	files, err := resolveFiles(ctx, s.blobs, post.Files)
	if err != nil {
		return nil, err
	}
	reviews := post.Reviews
	if reviews == nil {
		reviews = []models.Review{}
	}
	return &models.DailyScrumPostView{
		ID:        post.ID,
		Title:     post.Title,
		Daily:     post.Daily,
		Problem:   post.Problem,
		Todo:      post.Todo,
		Writer:    post.Writer,
		UserID:    post.UserID,
		Files:     files,
		Reviews:   reviews,
		Version:   post.Version,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}, nil
}

func (s *DailyScrumService) views(ctx context.Context, posts []models.DailyScrumPost) ([]models.DailyScrumPostView, error) {
	views := make([]models.DailyScrumPostView, 0, len(posts))
	for i := range posts {
		v, err := s.view(ctx, &posts[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
