package services

import (
	"errors"
	"vhs_converter/internal/models"
	"vhs_converter/internal/repository"
)

var (
	ErrNotFound             = repository.ErrNotFound
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidTransition    = models.ErrInvalidTransition
	ErrInvalidConfiguration = models.ErrInvalidConfiguration
	ErrInvalidInput         = errors.New("invalid input")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPaymentNotCompleted  = errors.New("payment not completed")
	ErrCheckoutExpired      = errors.New("checkout session expired")
	ErrUpstream             = errors.New("upstream service failed")
	ErrNotConfigured        = errors.New("integration not configured")
)
