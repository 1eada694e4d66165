package service

import (
	"snaptrade/internal/apperror"
	"snaptrade/internal/model"
)

// Policy holds every role and ownership rule in one place.
type Policy struct {
	adminRole string
}

func NewPolicy(adminRole string) Policy {
	if adminRole == "" {
		adminRole = "admin"
	}
	return Policy{adminRole: adminRole}
}

func (p Policy) RequireSession(requester *model.Requester) error {
	if requester == nil || requester.ID == "" {
		return apperror.Unauthorized("please sign in to continue")
	}
	return nil
}

func (p Policy) CanListProducts(requester *model.Requester) error {
	if err := p.RequireSession(requester); err != nil {
		return err
	}
	if requester.Role != p.adminRole {
		return apperror.Unauthorized("only admins can list products")
	}
	return nil
}

func (p Policy) AuthorizeOwner(requester *model.Requester, product *model.Product) error {
	if err := p.RequireSession(requester); err != nil {
		return err
	}
	if product.Owner != requester.ID {
		return apperror.Unauthorized("you do not own this product")
	}
	return nil
}

func (p Policy) AuthorizeBuyer(requester *model.Requester, order *model.Order) error {
	if err := p.RequireSession(requester); err != nil {
		return err
	}
	if order.UserID != requester.ID {
		// the order exists, but not for this caller
		return apperror.NotFound("order not found")
	}
	return nil
}
