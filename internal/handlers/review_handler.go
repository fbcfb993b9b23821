package handlers

import (
	"dailyscrum/internal/middleware"
	"dailyscrum/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ReviewRequest is the validated form of a new review. Score is free text.
type ReviewRequest struct {
	ReviewText string `validate:"required"`
	Score      string
}

func (h *DailyScrumHandler) HandleAddReview(c *fiber.Ctx) error {
	fields, err := bodyFields(c)
	if err != nil {
		return badRequest(c, err)
	}
	req := ReviewRequest{ReviewText: fields["review_text"], Score: fields["score"]}
	if ok, err := validateRequest(c, h.validate, req); !ok {
		return err
	}

	review, err := h.service.AddReview(c.UserContext(), middleware.Identity(c), c.Params("id"), services.ReviewInput{
		ReviewText: req.ReviewText,
		Score:      req.Score,
	})
	if err != nil {
		return respondError(c, err, "Could not add review")
	}
	return respond(c, fiber.StatusCreated, "Review added successfully", "review", review)
}

func (h *DailyScrumHandler) HandleListReviews(c *fiber.Ctx) error {
	reviews, err := h.service.ListReviews(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not list reviews")
	}
	return respond(c, fiber.StatusOK, "Reviews retrieved successfully", "reviews", reviews)
}

func (h *DailyScrumHandler) HandleGetReview(c *fiber.Ctx) error {
	review, err := h.service.GetReview(c.UserContext(), c.Params("id"), c.Params("reviewId"))
	if err != nil {
		return respondError(c, err, "Could not get review")
	}
	return respond(c, fiber.StatusOK, "Review retrieved successfully", "review", review)
}

// HandleUpdateReview applies the review fields present in the body.
func (h *DailyScrumHandler) HandleUpdateReview(c *fiber.Ctx) error {
	fields, err := bodyFields(c)
	if err != nil {
		return badRequest(c, err)
	}

	review, err := h.service.UpdateReview(c.UserContext(), middleware.Identity(c), c.Params("id"), c.Params("reviewId"), services.ReviewPatch{
		ReviewText: optional(fields, "review_text"),
		Score:      optional(fields, "score"),
	})
	if err != nil {
		return respondError(c, err, "Could not update review")
	}
	return respond(c, fiber.StatusOK, "Review updated successfully", "review", review)
}

func (h *DailyScrumHandler) HandleDeleteReview(c *fiber.Ctx) error {
	err := h.service.DeleteReview(c.UserContext(), middleware.Identity(c), c.Params("id"), c.Params("reviewId"))
	if err != nil {
		return respondError(c, err, "Could not delete review")
	}
	return respond(c, fiber.StatusOK, "Review deleted successfully", "", nil)
}
