package services

import (
	"errors"
	"fmt"

	apperrors "github.com/charlesng35/studyhall/pkg/errors"
)

var (
	// ErrPostGone reports a reply attempt against a post that no longer exists.
	ErrPostGone = apperrors.NewNotFound("That post no longer exists.")
	// ErrReplyToDeletedPost reports a reply attempt against a soft-deleted post.
	ErrReplyToDeletedPost = apperrors.NewForbidden("You can't reply to a deleted post.")
	// ErrNotPostAuthor is returned by the ownership precondition helpers.
	ErrNotPostAuthor = apperrors.NewForbidden("You can only change your own posts.")
	// ErrNotReplyAuthor is returned by the ownership precondition helpers.
	ErrNotReplyAuthor = apperrors.NewForbidden("You can only change your own replies.")
	// ErrPostDeleted is returned when editing a soft-deleted post.
	ErrPostDeleted = apperrors.NewForbidden("This post has been deleted and can no longer be edited.")

	ErrAdminRequired       = apperrors.NewForbidden("Only an administrator can perform this action.")
	ErrAdminExists         = apperrors.NewForbidden("An administrator already exists.")
	ErrSelfDelete          = apperrors.NewForbidden("You cannot delete your own account while logged in.")
	ErrSelfAdminRemoval    = apperrors.NewForbidden("You cannot remove your own Admin role.")
	ErrPasswordMismatch    = apperrors.NewValidation("The two passwords must match. Please try again.")
	ErrSearchKeywordNeeded = apperrors.NewValidation("Please enter a keyword to search for.")
)

// wrapUnexpected keeps AppErrors intact and annotates anything else with the service operation.
func wrapUnexpected(service, op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%s: %s: %w", service, op, err)
}
