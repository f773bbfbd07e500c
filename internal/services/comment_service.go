package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anand-fs/plantrack/internal/audit"
	"github.com/anand-fs/plantrack/internal/cascade"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
)

// CommentService handles comment threads on initiatives
type CommentService struct {
	tx          cascade.Transactor
	initiatives repository.InitiativeRepository
	comments    repository.CommentRepository
	recorder    audit.Recorder
}

// NewCommentService creates a new CommentService
func NewCommentService(d Deps) *CommentService {
	return &CommentService{
		tx:          d.Tx,
		initiatives: d.Initiatives,
		comments:    d.Comments,
		recorder:    d.Recorder,
	}
}

// CreateComment adds a comment. Authors must be assigned to the initiative unless they manage.
func (s *CommentService) CreateComment(ctx context.Context, initiativeID uint64, body string, actor Actor) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrBodyRequired
	}

	comment := &models.Comment{
		InitiativeID: initiativeID,
		AuthorID:     actor.ID,
		Body:         body,
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.initiatives.FindByID(ctx, initiativeID); err != nil {
			return lookupError(err, ErrInitiativeNotFound, "initiative")
		}
		if !actor.Role.CanManage() {
			assigned, err := s.initiatives.IsAssigned(ctx, initiativeID, actor.ID)
			if err != nil {
				return fmt.Errorf("failed to verify assignment: %w", err)
			}
			if !assigned {
				return ErrForbidden
			}
		}

		if err := s.comments.Create(ctx, comment); err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		_, err := s.recorder.Record(ctx, audit.Created(models.EntityComment, comment.ID, nil, actor.Identity(),
			fmt.Sprintf("Comment added to Initiative #%d", initiativeID)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.comments.FindByID(ctx, comment.ID)
}

// ListComments returns an initiative's comments oldest first
func (s *CommentService) ListComments(ctx context.Context, initiativeID uint64) ([]models.Comment, error) {
	if _, err := s.initiatives.FindByID(ctx, initiativeID); err != nil {
		return nil, lookupError(err, ErrInitiativeNotFound, "initiative")
	}
	comments, err := s.comments.ListByInitiative(ctx, initiativeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// UpdateComment edits a comment. Only the author may edit.
func (s *CommentService) UpdateComment(ctx context.Context, id uint64, body string, actor Actor) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrBodyRequired
	}

	var comment *models.Comment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		comment, err = s.comments.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, ErrCommentNotFound, "comment")
		}
		if comment.AuthorID != actor.ID {
			return ErrForbidden
		}

		comment.Body = body
		if err := s.comments.Update(ctx, comment); err != nil {
			return fmt.Errorf("failed to update comment: %w", err)
		}
		_, err = s.recorder.Record(ctx, audit.Updated(models.EntityComment, comment.ID, actor.Identity(), "Comment edited"))
		return err
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment. Authors, managers and admins may delete.
func (s *CommentService) DeleteComment(ctx context.Context, id uint64, actor Actor) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		comment, err := s.comments.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, ErrCommentNotFound, "comment")
		}
		if comment.AuthorID != actor.ID && !actor.Role.CanManage() {
			return ErrForbidden
		}

		if err := s.comments.Delete(ctx, comment.ID); err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}
		_, err = s.recorder.Record(ctx, audit.Deleted(models.EntityComment, comment.ID, nil, actor.Identity(),
			fmt.Sprintf("Comment removed from Initiative #%d", comment.InitiativeID)))
		return err
	})
}
